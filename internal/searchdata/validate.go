package searchdata

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when two entries share a key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrMissingField is returned when an entry or occurrence lacks a required field.
	ErrMissingField = errors.New("missing required field")
)

// Validate checks the data model invariants the generator is expected to uphold:
// unique non-empty keys, and a label and anchor on every occurrence.
func Validate(entries []IndexEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.Key == "" {
			return fmt.Errorf("entry %d: key: %w", i, ErrMissingField)
		}
		if _, dup := seen[e.Key]; dup {
			return fmt.Errorf("key %q: %w", e.Key, ErrDuplicateKey)
		}
		seen[e.Key] = struct{}{}

		for n, occ := range e.Occurrences {
			if occ.Label == "" {
				return fmt.Errorf("key %q occurrence %d: label: %w", e.Key, n, ErrMissingField)
			}
			if occ.Anchor == "" {
				return fmt.Errorf("key %q occurrence %d: anchor: %w", e.Key, n, ErrMissingField)
			}
		}
	}
	return nil
}

// Merge joins the shards of one section into a single table. Entries keep the
// order they were first seen in; a key repeated in a later shard appends its
// occurrences, skipping anchors already present for that key.
func Merge(tables ...*Table) *Table {
	var merged []IndexEntry
	position := make(map[string]int)
	anchors := make(map[string]map[string]struct{})

	for _, t := range tables {
		for e := range t.Entries() {
			i, ok := position[e.Key]
			if !ok {
				i = len(merged)
				position[e.Key] = i
				anchors[e.Key] = make(map[string]struct{})
				merged = append(merged, IndexEntry{Key: e.Key})
			}
			for _, occ := range e.Occurrences {
				if _, dup := anchors[e.Key][occ.Anchor]; dup {
					continue
				}
				anchors[e.Key][occ.Anchor] = struct{}{}
				merged[i].Occurrences = append(merged[i].Occurrences, occ)
			}
		}
	}
	return New(merged)
}
