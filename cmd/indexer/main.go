package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/opencontainers/go-digest"
	"github.com/qstem/doxsearch-mcp/internal/indexing"
	"github.com/qstem/doxsearch-mcp/internal/searchdata"
)

func main() {
	pattern := flag.String("pattern", "*.js", "glob selecting payload files inside the search directory")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-pattern glob] <search-dir> <index-dir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s docs/html/search ~/.doxsearch-mcp/search/index\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	searchDir := flag.Arg(0)
	indexDir := filepath.Clean(flag.Arg(1))
	outDir := filepath.Dir(indexDir)

	log.Printf("Doxygen Symbol Indexer v%d", indexing.IndexSchemaVersion)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	// Step 1: Parse search data
	log.Printf("Parsing search data: %s (%s)", searchDir, *pattern)
	fsys := os.DirFS(searchDir)
	catalog, err := searchdata.LoadFS(context.Background(), fsys, *pattern)
	if err != nil {
		log.Fatalf("Failed to parse search data: %v", err)
	}
	fingerprint, err := searchdata.Fingerprint(fsys, *pattern)
	if err != nil {
		log.Fatalf("Failed to fingerprint search data: %v", err)
	}

	docs := indexing.BuildDocuments(catalog)
	log.Printf("✓ Parsed %d keys in %d sections (%d occurrences)", catalog.Len(), len(catalog.Sections()), len(docs))

	// Step 2: Remove existing index
	if err := os.RemoveAll(indexDir); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove old index: %v", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatalf("Failed to create index directory: %v", err)
	}

	// Step 3: Create and fill the index
	log.Printf("Creating search index: %s", indexDir)
	index, err := bleve.New(indexDir, indexing.NewIndexMapping())
	if err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}

	err = indexing.IndexDocuments(index, docs, indexing.DefaultBatchSize, func(done, total int) {
		log.Printf("  Indexed %d/%d documents...", done, total)
	})
	if err != nil {
		index.Close()
		log.Fatalf("Failed to index documents: %v", err)
	}
	if err := index.Close(); err != nil {
		log.Fatalf("Failed to close index: %v", err)
	}
	log.Printf("✓ Indexed %d documents successfully", len(docs))

	// Step 4: Write the catalog snapshot next to the index
	snapshotPath := filepath.Join(outDir, "catalog.snapshot.zst")
	if err := writeSnapshot(snapshotPath, catalog, fingerprint); err != nil {
		log.Printf("Warning: Failed to write snapshot: %v", err)
	} else {
		log.Printf("✓ Snapshot written: %s", snapshotPath)
	}

	// Step 5: Write version file
	versionFile := filepath.Join(outDir, ".index_version")
	versionContent := fmt.Sprintf("%d\n%s\n", indexing.IndexSchemaVersion, fingerprint)
	if err := os.WriteFile(versionFile, []byte(versionContent), 0644); err != nil {
		log.Printf("Warning: Failed to write version file: %v", err)
	} else {
		log.Printf("✓ Index schema version: v%d", indexing.IndexSchemaVersion)
	}

	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✓ Indexing complete!")
	log.Printf("")
	log.Printf("Index details:")
	log.Printf("  Location:     %s", indexDir)
	log.Printf("  Sections:     %v", catalog.Sections())
	log.Printf("  Total keys:   %d", catalog.Len())
	log.Printf("  Documents:    %d", len(docs))
	log.Printf("  Fingerprint:  %s", fingerprint)
}

// writeSnapshot persists the parsed catalog so the server can skip parsing
func writeSnapshot(path string, catalog *searchdata.Catalog, fingerprint digest.Digest) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := searchdata.WriteSnapshot(w, catalog, fingerprint); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
