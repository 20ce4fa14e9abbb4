package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/qstem/doxsearch-mcp/internal/searchdata"
)

// loadedSource is a catalog together with the fingerprint of the payload files
// it was built from
type loadedSource struct {
	catalog     *searchdata.Catalog
	fingerprint digest.Digest
	origin      string // "embedded", the source directory, or "snapshot"
	loadedAt    time.Time
}

// DefaultCatalog returns the catalog parsed from the payload embedded in the
// binary. It is built on first use and shared by every caller afterwards.
var DefaultCatalog = sync.OnceValues(func() (*searchdata.Catalog, error) {
	return searchdata.LoadFS(context.Background(), NewEmbeddedDataProvider(), embeddedPattern)
})

// sourceFS returns where payload files are read from: the configured source
// directory, or the default data provider
func sourceFS() (fsys fs.FS, pattern, origin string) {
	if settings.Source.Dir != "" {
		return os.DirFS(settings.Source.Dir), settings.Source.Pattern, settings.Source.Dir
	}
	return defaultDataProvider, embeddedPattern, "embedded"
}

// usingEmbeddedData reports whether the payload comes from the binary itself
func usingEmbeddedData() bool {
	return settings.Source.Dir == "" && defaultDataProvider == NewEmbeddedDataProvider()
}

// loadSource builds the catalog for the current source. A persisted snapshot
// with a matching fingerprint is preferred over parsing the payload again.
func loadSource(ctx context.Context) (*loadedSource, error) {
	fsys, pattern, origin := sourceFS()

	fingerprint, err := searchdata.Fingerprint(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint search data: %w", err)
	}

	if catalog, snapFingerprint, err := readSnapshotFile(); err == nil {
		if snapFingerprint == fingerprint {
			log.Printf("✓ Catalog loaded from snapshot (%d entries)", catalog.Len())
			return &loadedSource{catalog: catalog, fingerprint: fingerprint, origin: "snapshot", loadedAt: time.Now()}, nil
		}
		log.Printf("Snapshot is stale (have: %s, want: %s), reloading search data...", snapFingerprint, fingerprint)
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Ignoring unreadable snapshot: %v", err)
	}

	parseStart := time.Now()
	var catalog *searchdata.Catalog
	if usingEmbeddedData() {
		catalog, err = DefaultCatalog()
	} else {
		catalog, err = searchdata.LoadFS(ctx, fsys, pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load search data from %s: %w", origin, err)
	}
	log.Printf("Parsed %d entries in %d sections from %s in %v",
		catalog.Len(), len(catalog.Sections()), origin, time.Since(parseStart).Round(time.Millisecond))

	src := &loadedSource{catalog: catalog, fingerprint: fingerprint, origin: origin, loadedAt: time.Now()}
	if err := writeSnapshotFile(src); err != nil {
		log.Printf("Warning: Failed to write catalog snapshot: %v", err)
	}
	return src, nil
}

// ensureCatalog returns the active catalog, loading it on first use
func ensureCatalog() (*loadedSource, error) {
	if src := indexMgr.source.Load(); src != nil {
		return src, nil
	}

	indexMgr.initMu.Lock()
	defer indexMgr.initMu.Unlock()

	// Another goroutine may have loaded it while we were waiting
	if src := indexMgr.source.Load(); src != nil {
		return src, nil
	}

	src, err := loadSource(context.Background())
	if err != nil {
		return nil, err
	}
	indexMgr.source.Store(src)
	return src, nil
}

// readSnapshotFile loads the persisted catalog snapshot
func readSnapshotFile() (*searchdata.Catalog, digest.Digest, error) {
	f, err := os.Open(filepath.Join(dataDir, snapshotFile))
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return searchdata.ReadSnapshot(bufio.NewReader(f))
}

// writeSnapshotFile persists a catalog snapshot, replacing the old one atomically
func writeSnapshotFile(src *loadedSource) error {
	snapPath := filepath.Join(dataDir, snapshotFile)
	if err := os.MkdirAll(filepath.Dir(snapPath), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(snapPath), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := searchdata.WriteSnapshot(w, src.catalog, src.fingerprint); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), snapPath)
}
