package searchdata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SnapshotVersion is the snapshot document format version
const SnapshotVersion = 1

const snapshotSchemaURL = "https://doxsearch.local/schema/snapshot.json"

var (
	// ErrInvalidSnapshot is returned when a snapshot does not match its schema.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

//go:embed snapshot.schema.json
var snapshotSchemaJSON []byte

var compileSnapshotSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(snapshotSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(snapshotSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add snapshot schema: %w", err)
	}
	return compiler.Compile(snapshotSchemaURL)
})

// snapshotDoc is the on-disk form of a catalog
type snapshotDoc struct {
	Version     int                     `json:"version"`
	Fingerprint digest.Digest           `json:"fingerprint,omitempty"`
	Sections    map[string][]IndexEntry `json:"sections"`
}

// WriteSnapshot writes the catalog as zstd-compressed JSON, tagged with the
// fingerprint of the payload files it was loaded from.
func WriteSnapshot(w io.Writer, c *Catalog, fingerprint digest.Digest) error {
	doc := snapshotDoc{
		Version:     SnapshotVersion,
		Fingerprint: fingerprint,
		Sections:    make(map[string][]IndexEntry),
	}
	for _, name := range c.Sections() {
		t, _ := c.Section(name)
		entries := make([]IndexEntry, 0, t.Len())
		for e := range t.Entries() {
			if e.Occurrences == nil {
				e.Occurrences = []Occurrence{}
			}
			entries = append(entries, e)
		}
		doc.Sections[name] = entries
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(doc); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot reads a snapshot written by WriteSnapshot. The document is
// checked against the snapshot schema and every section against Validate.
func ReadSnapshot(r io.Reader) (*Catalog, digest.Digest, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	schema, err := compileSnapshotSchema()
	if err != nil {
		return nil, "", err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := schema.Validate(instance); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return nil, "", fmt.Errorf("%w: %s", ErrInvalidSnapshot, describeValidationError(validationErr))
		}
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	sections := make(map[string]*Table, len(doc.Sections))
	for name, entries := range doc.Sections {
		if err := Validate(entries); err != nil {
			return nil, "", fmt.Errorf("section %s: %w", name, err)
		}
		sections[name] = New(entries)
	}
	return NewCatalog(sections), doc.Fingerprint, nil
}

// describeValidationError flattens the innermost schema violations into one line
func describeValidationError(err *jsonschema.ValidationError) string {
	if len(err.Causes) == 0 {
		return "at $/" + strings.Join(err.InstanceLocation, "/") + ": " + err.Error()
	}
	msgs := make([]string, 0, len(err.Causes))
	for _, cause := range err.Causes {
		msgs = append(msgs, describeValidationError(cause))
	}
	return strings.Join(msgs, "; ")
}
