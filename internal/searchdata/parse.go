package searchdata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

var (
	// ErrMalformedPayload is returned when a search data script cannot be parsed.
	ErrMalformedPayload = errors.New("malformed search data payload")
)

// payloadFileRegex matches Doxygen payload files: "<section>_<shard>.js"
var payloadFileRegex = regexp.MustCompile(`^([a-z]+)_([0-9a-f]+)\.js$`)

// SectionFromFilename splits a payload filename into its index section and shard.
// Example: "functions_2.js" -> ("functions", "2", true)
func SectionFromFilename(name string) (section, shard string, ok bool) {
	m := payloadFileRegex.FindStringSubmatch(path.Base(name))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ParseFile reads and parses a payload script from disk.
func ParseFile(filename string) ([]IndexEntry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read search data: %w", err)
	}
	entries, err := parseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return entries, nil
}

// ParseScript parses a payload script of the form
//
//	var searchData=
//	[
//	  ['key',['Label',['../page.html#anchor',1,'description'],...]],
//	  ...
//	];
//
// Every occurrence of an entry shares the entry label. Inside an occurrence the
// first string is the anchor, integer flags are skipped and the next string is
// the description.
func ParseScript(r io.Reader) ([]IndexEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read search data: %w", err)
	}
	return parseBytes(data)
}

func parseBytes(data []byte) ([]IndexEntry, error) {
	// The literal starts after the assignment if there is one.
	start := 0
	if i := bytes.IndexByte(data, '='); i >= 0 && i < bytes.IndexByte(data, '[') {
		start = i + 1
	}
	literal := bytes.TrimRight(data[start:], " \t\r\n")
	literal = bytes.TrimSuffix(literal, []byte(";"))
	if len(bytes.TrimSpace(literal)) == 0 {
		return nil, fmt.Errorf("%w: offset %d: no array literal found", ErrMalformedPayload, start)
	}

	// Doxygen writes JavaScript literals: single-quoted strings, trailing
	// commas. JSON5 covers both.
	var root any
	if err := json5.Unmarshal(literal, &root); err != nil {
		var syntaxErr *json5.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: offset %d: %s", ErrMalformedPayload, int64(start)+syntaxErr.Offset, syntaxErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}

	rows, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level value is not an array", ErrMalformedPayload)
	}

	entries := make([]IndexEntry, 0, len(rows))
	for i, row := range rows {
		entry, err := entryFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %s", ErrMalformedPayload, i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// entryFromRow maps one decoded row onto an IndexEntry. Numbers decode as
// float64 and are skipped like any other non-string flag.
func entryFromRow(row any) (IndexEntry, error) {
	fields, ok := row.([]any)
	if !ok || len(fields) != 2 {
		return IndexEntry{}, errors.New("expected [key, [label, occurrences...]]")
	}
	key, ok := fields[0].(string)
	if !ok {
		return IndexEntry{}, errors.New("key is not a string")
	}
	body, ok := fields[1].([]any)
	if !ok || len(body) == 0 {
		return IndexEntry{}, fmt.Errorf("key %q: missing label", key)
	}
	label, ok := body[0].(string)
	if !ok {
		return IndexEntry{}, fmt.Errorf("key %q: label is not a string", key)
	}

	entry := IndexEntry{Key: key, Occurrences: make([]Occurrence, 0, len(body)-1)}
	for n, raw := range body[1:] {
		items, ok := raw.([]any)
		if !ok {
			return IndexEntry{}, fmt.Errorf("key %q: occurrence %d is not an array", key, n)
		}
		occ := Occurrence{Label: label}
		strs := 0
		for _, item := range items {
			s, isString := item.(string)
			if !isString {
				continue
			}
			switch strs {
			case 0:
				occ.Anchor = s
			case 1:
				occ.Description = s
			}
			strs++
		}
		if occ.Anchor == "" {
			return IndexEntry{}, fmt.Errorf("key %q: occurrence %d has no anchor", key, n)
		}
		entry.Occurrences = append(entry.Occurrences, occ)
	}
	return entry, nil
}
