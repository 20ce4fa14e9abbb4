package indexing

// SymbolDoc is one occurrence of a search key as stored in the bleve index
type SymbolDoc struct {
	ID          string   `json:"id"`                    // "<section>/<key>/<n>"
	Section     string   `json:"section"`               // Index section: all, functions, classes...
	Key         string   `json:"key"`                   // Search key as authored ("boost_5fauto_5ftest_5fcase")
	Name        string   `json:"name"`                  // Decoded key ("boost_auto_test_case")
	Label       string   `json:"label"`                 // Display label ("BOOST_AUTO_TEST_CASE")
	Anchor      string   `json:"anchor"`                // Locator as authored ("../qmb_8m.html#ad85")
	Page        string   `json:"page"`                  // Anchor without fragment and relative prefix ("qmb_8m.html")
	Fragment    string   `json:"fragment,omitempty"`    // Anchor fragment ("ad85")
	Compound    string   `json:"compound,omitempty"`    // Page decoded to its source name ("qmb.m")
	Description string   `json:"description,omitempty"` // Plain text snippet
	Position    int      `json:"position"`              // Occurrence position within its entry
	Keywords    []string `json:"keywords,omitempty"`    // Terms extracted from label and description
}
