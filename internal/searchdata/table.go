// Package searchdata models the Doxygen "search as you type" payload: an
// immutable table mapping search keys to the places they occur in the
// generated documentation tree.
package searchdata

import (
	"iter"
	"slices"
)

// Occurrence is one place a key appears in the documentation.
type Occurrence struct {
	Label       string `json:"label"`                 // Text shown to the user
	Anchor      string `json:"anchor"`                // Document path plus fragment, e.g. "../classFoo.html#a1"
	Description string `json:"description,omitempty"` // Optional snippet, usually the enclosing file or declaration
}

// IndexEntry is a search key and its occurrences in authored order.
type IndexEntry struct {
	Key         string       `json:"key"`
	Occurrences []Occurrence `json:"occurrences"`
}

// Table is a read-only key to occurrences mapping. It never changes after New,
// so concurrent readers need no locking.
type Table struct {
	entries []IndexEntry
	byKey   map[string]int
}

// New builds a table from entries. The input is copied.
//
// Keys are expected to be unique and fields non-empty; that is the generator's
// job and New does not check it. Loaders call Validate first. If a key is
// repeated anyway, Lookup resolves to its first entry.
func New(entries []IndexEntry) *Table {
	t := &Table{
		entries: make([]IndexEntry, len(entries)),
		byKey:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		t.entries[i] = IndexEntry{Key: e.Key, Occurrences: slices.Clone(e.Occurrences)}
		if _, dup := t.byKey[e.Key]; !dup {
			t.byKey[e.Key] = i
		}
	}
	return t
}

// Lookup returns the occurrences for key in authored order. An absent key
// yields an empty slice, never an error.
func (t *Table) Lookup(key string) []Occurrence {
	if t == nil {
		return []Occurrence{}
	}
	i, ok := t.byKey[key]
	if !ok {
		return []Occurrence{}
	}
	return slices.Clone(t.entries[i].Occurrences)
}

// Contains reports whether key is present.
func (t *Table) Contains(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.byKey[key]
	return ok
}

// Entries yields every entry in authored order. Each call starts over.
func (t *Table) Entries() iter.Seq[IndexEntry] {
	return func(yield func(IndexEntry) bool) {
		if t == nil {
			return
		}
		for _, e := range t.entries {
			if !yield(IndexEntry{Key: e.Key, Occurrences: slices.Clone(e.Occurrences)}) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Keys returns all keys in authored order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}
