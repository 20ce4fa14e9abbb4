package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/qstem/doxsearch-mcp/internal/searchdata"
)

// LookupSymbolInput defines input for lookup_symbol tool
type LookupSymbolInput struct {
	Key     string `json:"key" jsonschema:"Symbol name or search key, e.g. binwrite2d or BOOST_AUTO_TEST_CASE"`
	Section string `json:"section,omitempty" jsonschema:"Index section to look in, e.g. functions (optional, defaults to every section)"`
	Raw     bool   `json:"raw,omitempty" jsonschema:"Treat key as an already encoded search key (optional)"`
}

// LookupSymbolOutput defines output for lookup_symbol tool
type LookupSymbolOutput struct {
	Key   string                  `json:"key"`
	Found bool                    `json:"found"`
	Hits  []searchdata.SectionHit `json:"hits"`
}

// ListEntriesInput defines input for list_entries tool
type ListEntriesInput struct {
	Section string `json:"section" jsonschema:"Index section to list, e.g. functions"`
	Offset  int    `json:"offset,omitempty" jsonschema:"Number of entries to skip (optional)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of entries to return (optional, defaults to 50)"`
}

// EntrySummary is one search key and how many places it points to
type EntrySummary struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Occurrences int    `json:"occurrences"`
}

// ListEntriesOutput defines output for list_entries tool
type ListEntriesOutput struct {
	Section string         `json:"section"`
	Entries []EntrySummary `json:"entries"`
	Offset  int            `json:"offset"`
	Total   int            `json:"total"`
	HasMore bool           `json:"has_more"`
}

// ListSectionsInput defines input for list_sections tool
type ListSectionsInput struct{}

// SectionSummary describes one loaded index section
type SectionSummary struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// ListSectionsOutput defines output for list_sections tool
type ListSectionsOutput struct {
	Sections    []SectionSummary `json:"sections"`
	TotalKeys   int              `json:"total_keys"`
	Source      string           `json:"source"`
	Fingerprint string           `json:"fingerprint"`
}

// LookupSymbol returns every occurrence recorded for a search key
func LookupSymbol(ctx context.Context, req *mcp.CallToolRequest, input LookupSymbolInput) (*mcp.CallToolResult, LookupSymbolOutput, error) {
	if input.Key == "" {
		return nil, LookupSymbolOutput{}, errors.New("key is required")
	}

	src, err := ensureCatalog()
	if err != nil {
		return nil, LookupSymbolOutput{}, fmt.Errorf("failed to load search data: %w", err)
	}

	key := input.Key
	if !input.Raw {
		key = searchdata.EncodeKey(key)
	}

	var hits []searchdata.SectionHit
	if input.Section != "" {
		if _, ok := src.catalog.Section(input.Section); !ok {
			return nil, LookupSymbolOutput{}, fmt.Errorf("unknown section %q", input.Section)
		}
		hits = []searchdata.SectionHit{}
		if occs := src.catalog.Lookup(input.Section, key); len(occs) > 0 {
			hits = append(hits, searchdata.SectionHit{Section: input.Section, Occurrences: occs})
		}
	} else {
		hits = src.catalog.LookupAll(key)
	}

	return nil, LookupSymbolOutput{
		Key:   key,
		Found: len(hits) > 0,
		Hits:  hits,
	}, nil
}

// ListEntries pages through a section in authored order
func ListEntries(ctx context.Context, req *mcp.CallToolRequest, input ListEntriesInput) (*mcp.CallToolResult, ListEntriesOutput, error) {
	if input.Section == "" {
		return nil, ListEntriesOutput{}, errors.New("section is required")
	}
	if input.Offset < 0 {
		return nil, ListEntriesOutput{}, fmt.Errorf("offset must not be negative, got %d", input.Offset)
	}

	src, err := ensureCatalog()
	if err != nil {
		return nil, ListEntriesOutput{}, fmt.Errorf("failed to load search data: %w", err)
	}
	table, ok := src.catalog.Section(input.Section)
	if !ok {
		return nil, ListEntriesOutput{}, fmt.Errorf("unknown section %q", input.Section)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = settings.Search.DefaultPage
	}
	if limit > settings.Search.MaxPage {
		limit = settings.Search.MaxPage
	}

	output := ListEntriesOutput{
		Section: input.Section,
		Entries: []EntrySummary{},
		Offset:  input.Offset,
		Total:   table.Len(),
	}

	i := 0
	for entry := range table.Entries() {
		if i >= input.Offset+limit {
			break
		}
		if i >= input.Offset {
			summary := EntrySummary{
				Key:         entry.Key,
				Name:        searchdata.DecodeKey(entry.Key),
				Occurrences: len(entry.Occurrences),
			}
			if len(entry.Occurrences) > 0 {
				summary.Label = entry.Occurrences[0].Label
			}
			output.Entries = append(output.Entries, summary)
		}
		i++
	}
	output.HasMore = input.Offset+len(output.Entries) < output.Total

	return nil, output, nil
}

// ListSections reports the loaded index sections and where they came from
func ListSections(ctx context.Context, req *mcp.CallToolRequest, input ListSectionsInput) (*mcp.CallToolResult, ListSectionsOutput, error) {
	src, err := ensureCatalog()
	if err != nil {
		return nil, ListSectionsOutput{}, fmt.Errorf("failed to load search data: %w", err)
	}

	output := ListSectionsOutput{
		Sections:    []SectionSummary{},
		TotalKeys:   src.catalog.Len(),
		Source:      src.origin,
		Fingerprint: src.fingerprint.String(),
	}
	for _, name := range src.catalog.Sections() {
		table, _ := src.catalog.Section(name)
		output.Sections = append(output.Sections, SectionSummary{Name: name, Entries: table.Len()})
	}
	return nil, output, nil
}

// RegisterSymbolTools registers the exact-lookup tools
func RegisterSymbolTools(server *mcp.Server) error {
	if _, err := ensureCatalog(); err != nil {
		log.Printf("Warning: Search data not loaded yet: %v", err)
		log.Printf("Symbol lookups will retry loading on first use")
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "lookup_symbol",
			Description: "Look up a symbol in the Doxygen search index by name or encoded key. Returns every documented occurrence: display label, link target, and declaration snippet.",
		},
		LookupSymbol,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_entries",
			Description: "List the search keys of one index section in documentation order, with paging",
		},
		ListEntries,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_sections",
			Description: "List the loaded index sections (all, functions, classes...) with their entry counts and the data source",
		},
		ListSections,
	)

	return nil
}
