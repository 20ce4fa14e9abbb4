package searchdata_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qstem/doxsearch-mcp/internal/searchdata"
)

func compress(t *testing.T, doc string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return &buf
}

func TestSnapshotRoundTrip(t *testing.T) {
	fsys := testSearchFS(t)
	catalog, err := searchdata.LoadFS(context.Background(), fsys, "search/*.js")
	require.NoError(t, err)
	fingerprint, err := searchdata.Fingerprint(fsys, "search/*.js")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, searchdata.WriteSnapshot(&buf, catalog, fingerprint))

	restored, gotFingerprint, err := searchdata.ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, fingerprint, gotFingerprint)
	assert.Equal(t, catalog.Sections(), restored.Sections())

	for _, name := range catalog.Sections() {
		want, _ := catalog.Section(name)
		got, _ := restored.Section(name)
		assert.Equal(t, want.Keys(), got.Keys(), "section %s", name)
		for _, key := range want.Keys() {
			assert.Equal(t, want.Lookup(key), got.Lookup(key), "section %s key %s", name, key)
		}
	}
}

func TestReadSnapshotRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"wrong version", `{"version":2,"sections":{}}`},
		{"missing sections", `{"version":1}`},
		{"empty key", `{"version":1,"sections":{"all":[{"key":"","occurrences":[]}]}}`},
		{"missing anchor", `{"version":1,"sections":{"all":[{"key":"a","occurrences":[{"label":"a"}]}]}}`},
		{"bad section name", `{"version":1,"sections":{"All Things":[]}}`},
		{"bad fingerprint", `{"version":1,"fingerprint":"nope","sections":{}}`},
		{"not json", `{"version":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := searchdata.ReadSnapshot(compress(t, tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, searchdata.ErrInvalidSnapshot), "got %v", err)
		})
	}
}

func TestReadSnapshotRejectsDuplicateKeys(t *testing.T) {
	doc := `{"version":1,"sections":{"all":[
		{"key":"a","occurrences":[{"label":"a","anchor":"1"}]},
		{"key":"a","occurrences":[{"label":"a","anchor":"2"}]}
	]}}`
	_, _, err := searchdata.ReadSnapshot(compress(t, doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, searchdata.ErrDuplicateKey))
}

func TestReadSnapshotWithoutFingerprint(t *testing.T) {
	doc := `{"version":1,"sections":{"all":[{"key":"a","occurrences":[{"label":"a","anchor":"1","description":"d"}]}]}}`
	catalog, fingerprint, err := searchdata.ReadSnapshot(compress(t, doc))
	require.NoError(t, err)
	assert.Equal(t, digest.Digest(""), fingerprint)
	assert.Equal(t, []searchdata.Occurrence{{Label: "a", Anchor: "1", Description: "d"}}, catalog.Lookup("all", "a"))
}

func TestReadSnapshotNotCompressed(t *testing.T) {
	_, _, err := searchdata.ReadSnapshot(bytes.NewBufferString(`{"version":1,"sections":{}}`))
	assert.Error(t, err)
}
