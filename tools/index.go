package tools

import "github.com/blevesearch/bleve/v2"

// Index is the subset of bleve.Index the symbol search needs. Tests swap in
// a mock to exercise the atomic swap and drain logic without touching disk.
type Index interface {
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)
	DocCount() (uint64, error)
	Close() error
}

// NewBleveIndexWrapper adapts an open bleve index to Index
func NewBleveIndexWrapper(index bleve.Index) Index {
	return bleveIndex{index}
}

type bleveIndex struct {
	bleve.Index
}
