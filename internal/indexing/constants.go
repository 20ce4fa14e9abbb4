package indexing

// Indexing constants
const (
	// DefaultBatchSize is the number of documents submitted per bleve batch
	DefaultBatchSize = 100

	// MaxKeywords caps the keywords extracted per document
	MaxKeywords = 10

	// IndexSchemaVersion increments when the document layout or mapping changes
	// v1: one document per entry, v2: one document per occurrence with page metadata
	IndexSchemaVersion = 2
)
