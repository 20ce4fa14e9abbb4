package tools

import (
	"errors"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
)

var errIndexClosed = errors.New("index closed")

// mockIndex is an in-memory Index returning canned hits
type mockIndex struct {
	generation  int
	docCount    uint64
	hits        search.DocumentMatchCollection
	searchError error
	closeError  error
	closed      atomic.Bool
	lastRequest atomic.Pointer[bleve.SearchRequest]
}

func newMockIndex(generation int) *mockIndex {
	return &mockIndex{
		generation: generation,
		docCount:   100,
	}
}

// withHit adds a canned hit carrying the stored fields of one symbol
func (m *mockIndex) withHit(score float64, fields map[string]interface{}) *mockIndex {
	m.hits = append(m.hits, &search.DocumentMatch{
		ID:     fields["section"].(string) + "/" + fields["key"].(string),
		Score:  score,
		Fields: fields,
	})
	return m
}

func (m *mockIndex) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	if m.closed.Load() {
		return nil, errIndexClosed
	}
	m.lastRequest.Store(req)
	if m.searchError != nil {
		return nil, m.searchError
	}
	return &bleve.SearchResult{
		Request: req,
		Hits:    m.hits,
		Total:   m.docCount,
	}, nil
}

func (m *mockIndex) DocCount() (uint64, error) {
	if m.closed.Load() {
		return 0, errIndexClosed
	}
	return m.docCount, nil
}

func (m *mockIndex) Close() error {
	if m.closed.Swap(true) {
		return errors.New("already closed")
	}
	return m.closeError
}

func (m *mockIndex) IsClosed() bool {
	return m.closed.Load()
}
