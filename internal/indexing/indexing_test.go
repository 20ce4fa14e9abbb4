package indexing_test

import (
	"reflect"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/qstem/doxsearch-mcp/internal/indexing"
	"github.com/qstem/doxsearch-mcp/internal/searchdata"
)

func TestSplitAnchor(t *testing.T) {
	tests := []struct {
		name         string
		anchor       string
		wantPage     string
		wantFragment string
	}{
		{
			name:         "relative anchor with fragment",
			anchor:       "../qmb_8m.html#ad8551289e1c86080b94eaad129c0ebe3",
			wantPage:     "qmb_8m.html",
			wantFragment: "ad8551289e1c86080b94eaad129c0ebe3",
		},
		{
			name:         "page only",
			anchor:       "classFoo.html",
			wantPage:     "classFoo.html",
			wantFragment: "",
		},
		{
			name:         "nested relative prefix",
			anchor:       "../../a.html#x",
			wantPage:     "a.html",
			wantFragment: "x",
		},
		{
			name:         "empty",
			anchor:       "",
			wantPage:     "",
			wantFragment: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, fragment := indexing.SplitAnchor(tt.anchor)
			if page != tt.wantPage {
				t.Errorf("SplitAnchor() page = %q, want %q", page, tt.wantPage)
			}
			if fragment != tt.wantFragment {
				t.Errorf("SplitAnchor() fragment = %q, want %q", fragment, tt.wantFragment)
			}
		})
	}
}

func TestCompoundFromPage(t *testing.T) {
	tests := []struct {
		page     string
		expected string
	}{
		{"qmb_8m.html", "qmb.m"},
		{"test__config__qsc_8cpp.html", "test_config_qsc.cpp"},
		{"binwrite2_d_8m.html", "binwrite2D.m"},
		{"_display_model_properties_8m.html", "DisplayModelProperties.m"},
		{"qsc_rg12_8c.html", "qscRg12.c"},
		{"class_f_f_t_w_complex.html", "FFTWComplex"},
		{"class_q_s_t_e_m_1_1_c_img_reader.html", "QSTEM::CImgReader"},
		{"namespacepython_1_1fileio_1_1read__img.html", "python::fileio::read_img"},
		{"struct_atom_01_3_01_t_01_4.html", "Atom < T >"},
		{"index.html", "index"},
		{"trailing_.html", "trailing_"},
	}

	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			result := indexing.CompoundFromPage(tt.page)
			if result != tt.expected {
				t.Errorf("CompoundFromPage(%q) = %q, want %q", tt.page, result, tt.expected)
			}
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name        string
		label       string
		description string
		expected    []string
	}{
		{
			name:        "label and file",
			label:       "button",
			description: "qmb.m",
			expected:    []string{"button", "qmb"},
		},
		{
			name:        "declaration with stop words",
			label:       "begin",
			description: "FFTWComplex::begin() const",
			expected:    []string{"begin", "fftwcomplex"},
		},
		{
			name:        "underscores kept inside identifiers",
			label:       "BOOST_AUTO_TEST_CASE",
			description: "BOOST_AUTO_TEST_CASE(testFormLayout): test_wave_convergent.cpp",
			expected:    []string{"boost_auto_test_case", "testformlayout", "test_wave_convergent", "cpp"},
		},
		{
			name:        "empty",
			label:       "",
			description: "",
			expected:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := indexing.ExtractKeywords(tt.label, tt.description)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractKeywords() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestExtractKeywordsLimit(t *testing.T) {
	description := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"
	result := indexing.ExtractKeywords("", description)
	if len(result) != indexing.MaxKeywords {
		t.Errorf("Expected %d keywords, got %d", indexing.MaxKeywords, len(result))
	}
	if result[0] != "alpha" {
		t.Errorf("Expected keywords in order of appearance, got %v", result)
	}
}

func testCatalog() *searchdata.Catalog {
	return searchdata.NewCatalog(map[string]*searchdata.Table{
		"functions": searchdata.New([]searchdata.IndexEntry{
			{
				Key: "begin",
				Occurrences: []searchdata.Occurrence{
					{Label: "begin", Anchor: "../class_f_f_t_w_complex.html#a57", Description: "FFTWComplex::begin()"},
					{Label: "begin", Anchor: "../class_f_f_t_w_complex.html#a3f", Description: "FFTWComplex::begin() const "},
				},
			},
			{
				Key: "boost_5fauto_5ftest_5fcase",
				Occurrences: []searchdata.Occurrence{
					{Label: "BOOST_AUTO_TEST_CASE", Anchor: "../test__config__qsc_8cpp.html#a6f", Description: "BOOST_AUTO_TEST_CASE(testReadMode):&#160;test_config_qsc.cpp"},
				},
			},
			{
				Key: "button",
				Occurrences: []searchdata.Occurrence{
					{Label: "button", Anchor: "../qmb_8m.html#ad8", Description: "qmb.m"},
				},
			},
		}),
		"all": searchdata.New([]searchdata.IndexEntry{
			{
				Key: "button",
				Occurrences: []searchdata.Occurrence{
					{Label: "button", Anchor: "../qmb_8m.html#ad8", Description: "qmb.m"},
				},
			},
		}),
	})
}

func TestBuildDocuments(t *testing.T) {
	docs := indexing.BuildDocuments(testCatalog())

	if len(docs) != 5 {
		t.Fatalf("Expected 5 documents, got %d", len(docs))
	}

	// Sections in order, entries in authored order
	wantIDs := []string{
		"all/button/0",
		"functions/begin/0",
		"functions/begin/1",
		"functions/boost_5fauto_5ftest_5fcase/0",
		"functions/button/0",
	}
	for i, want := range wantIDs {
		if docs[i].ID != want {
			t.Errorf("Document %d ID = %q, want %q", i, docs[i].ID, want)
		}
	}

	boost := docs[3]
	if boost.Name != "boost_auto_test_case" {
		t.Errorf("Expected decoded name, got %q", boost.Name)
	}
	if boost.Page != "test__config__qsc_8cpp.html" || boost.Fragment != "a6f" {
		t.Errorf("Unexpected page/fragment: %q %q", boost.Page, boost.Fragment)
	}
	if boost.Compound != "test_config_qsc.cpp" {
		t.Errorf("Expected compound test_config_qsc.cpp, got %q", boost.Compound)
	}
	if boost.Description != "BOOST_AUTO_TEST_CASE(testReadMode): test_config_qsc.cpp" {
		t.Errorf("Expected plain text description, got %q", boost.Description)
	}
	if boost.Anchor != "../test__config__qsc_8cpp.html#a6f" {
		t.Errorf("Anchor should be kept as authored, got %q", boost.Anchor)
	}

	if docs[2].Position != 1 {
		t.Errorf("Expected position 1 for second begin occurrence, got %d", docs[2].Position)
	}
}

func TestBuildDocumentsEmptyCatalog(t *testing.T) {
	docs := indexing.BuildDocuments(searchdata.NewCatalog(nil))
	if len(docs) != 0 {
		t.Errorf("Expected no documents, got %d", len(docs))
	}
}

func TestIndexDocuments(t *testing.T) {
	idx, err := bleve.NewMemOnly(indexing.NewIndexMapping())
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	defer idx.Close()

	docs := indexing.BuildDocuments(testCatalog())

	var calls []int
	err = indexing.IndexDocuments(idx, docs, 2, func(done, total int) {
		if total != len(docs) {
			t.Errorf("progress total = %d, want %d", total, len(docs))
		}
		calls = append(calls, done)
	})
	if err != nil {
		t.Fatalf("IndexDocuments failed: %v", err)
	}

	if !reflect.DeepEqual(calls, []int{2, 4, 5}) {
		t.Errorf("Unexpected progress calls: %v", calls)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount failed: %v", err)
	}
	if count != uint64(len(docs)) {
		t.Errorf("Expected %d documents, got %d", len(docs), count)
	}

	t.Run("prefix on key", func(t *testing.T) {
		q := bleve.NewPrefixQuery("bo")
		q.SetField("key")
		res, err := idx.Search(bleve.NewSearchRequest(q))
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if res.Total != 1 || res.Hits[0].ID != "functions/boost_5fauto_5ftest_5fcase/0" {
			t.Errorf("Unexpected prefix hits: %v", res.Hits)
		}
	})

	t.Run("section keyword", func(t *testing.T) {
		q := bleve.NewTermQuery("all")
		q.SetField("section")
		res, err := idx.Search(bleve.NewSearchRequest(q))
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if res.Total != 1 {
			t.Errorf("Expected 1 hit in section all, got %d", res.Total)
		}
	})

	t.Run("match on description", func(t *testing.T) {
		q := bleve.NewMatchQuery("FFTWComplex")
		q.SetField("description")
		res, err := idx.Search(bleve.NewSearchRequest(q))
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if res.Total != 2 {
			t.Errorf("Expected 2 hits for FFTWComplex, got %d", res.Total)
		}
	})
}

func TestIndexDocumentsDefaultBatchSize(t *testing.T) {
	idx, err := bleve.NewMemOnly(indexing.NewIndexMapping())
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	defer idx.Close()

	if err := indexing.IndexDocuments(idx, indexing.BuildDocuments(testCatalog()), 0, nil); err != nil {
		t.Fatalf("IndexDocuments failed: %v", err)
	}
	count, _ := idx.DocCount()
	if count != 5 {
		t.Errorf("Expected 5 documents, got %d", count)
	}
}
