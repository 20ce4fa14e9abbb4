package indexing

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/qstem/doxsearch-mcp/internal/searchdata"
)

// BuildDocuments flattens a catalog into one search document per occurrence,
// in section order then authored order
func BuildDocuments(c *searchdata.Catalog) []SymbolDoc {
	var docs []SymbolDoc
	for _, section := range c.Sections() {
		table, _ := c.Section(section)
		for entry := range table.Entries() {
			name := searchdata.DecodeKey(entry.Key)
			for n, occ := range entry.Occurrences {
				page, fragment := SplitAnchor(occ.Anchor)
				description := searchdata.PlainText(occ.Description)
				docs = append(docs, SymbolDoc{
					ID:          DocumentID(section, entry.Key, n),
					Section:     section,
					Key:         entry.Key,
					Name:        name,
					Label:       occ.Label,
					Anchor:      occ.Anchor,
					Page:        page,
					Fragment:    fragment,
					Compound:    CompoundFromPage(page),
					Description: description,
					Position:    n,
					Keywords:    ExtractKeywords(occ.Label, description),
				})
			}
		}
	}
	return docs
}

// NewIndexMapping returns the bleve mapping for SymbolDoc. Identifiers are
// indexed verbatim so they can be matched exactly or by prefix; prose fields
// go through the standard analyzer.
func NewIndexMapping() *mapping.IndexMappingImpl {
	keyword := func() *mapping.FieldMapping {
		return bleve.NewKeywordFieldMapping()
	}
	text := func() *mapping.FieldMapping {
		return bleve.NewTextFieldMapping()
	}

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("id", keyword())
	doc.AddFieldMappingsAt("section", keyword())
	doc.AddFieldMappingsAt("key", keyword())
	doc.AddFieldMappingsAt("anchor", keyword())
	doc.AddFieldMappingsAt("page", keyword())
	doc.AddFieldMappingsAt("fragment", keyword())
	doc.AddFieldMappingsAt("name", text())
	doc.AddFieldMappingsAt("label", text())
	doc.AddFieldMappingsAt("compound", text())
	doc.AddFieldMappingsAt("description", text())
	doc.AddFieldMappingsAt("keywords", text())
	doc.AddFieldMappingsAt("position", bleve.NewNumericFieldMapping())

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// IndexDocuments writes docs into idx in batches of batchSize. progress, when
// not nil, is called after every submitted batch.
func IndexDocuments(idx bleve.Index, docs []SymbolDoc, batchSize int, progress func(done, total int)) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	batch := idx.NewBatch()
	for i, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to add document %s to batch: %w", doc.ID, err)
		}

		if (i+1)%batchSize == 0 {
			if err := idx.Batch(batch); err != nil {
				return fmt.Errorf("failed to index batch: %w", err)
			}
			batch = idx.NewBatch()
			if progress != nil {
				progress(i+1, len(docs))
			}
		}
	}

	// Submit remaining
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("failed to index final batch: %w", err)
		}
		if progress != nil {
			progress(len(docs), len(docs))
		}
	}
	return nil
}
