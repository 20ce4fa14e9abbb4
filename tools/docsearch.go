package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/opencontainers/go-digest"
	"github.com/qstem/doxsearch-mcp/internal/indexing"
	"github.com/qstem/doxsearch-mcp/internal/searchdata"
)

// SymbolHit is a full-text search result
type SymbolHit struct {
	Section     string  `json:"section"`
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Anchor      string  `json:"anchor"`
	Page        string  `json:"page"`
	Fragment    string  `json:"fragment,omitempty"`
	Compound    string  `json:"compound,omitempty"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// SearchSymbolsInput defines input for search_symbols tool
type SearchSymbolsInput struct {
	Query      string `json:"query" jsonschema:"Symbol name, name prefix, or words from the declaration"`
	Section    string `json:"section,omitempty" jsonschema:"Restrict results to one index section, e.g. functions (optional)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10)"`
}

// SearchSymbolsOutput defines output for search_symbols tool
type SearchSymbolsOutput struct {
	Results   []SymbolHit `json:"results"`
	Query     string      `json:"query"`
	TotalHits int         `json:"total_hits"`
}

// RefreshSearchIndexInput defines input for refresh_search_index tool
type RefreshSearchIndexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"Rebuild even if the search data has not changed (optional, defaults to false)"`
}

// RefreshSearchIndexOutput defines output for refresh_search_index tool
type RefreshSearchIndexOutput struct {
	Updated     bool      `json:"updated"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	Entries     int       `json:"entries"`
	DocsIndexed int       `json:"docs_indexed"`
	LastUpdate  time.Time `json:"last_update"`
	Message     string    `json:"message"`
}

// indexHolder manages concurrent access to the catalog and its bleve index
type indexHolder struct {
	// current holds the active index pointer (atomic access for lock-free reads)
	current atomic.Pointer[Index]

	// source holds the catalog the current index was built from
	source atomic.Pointer[loadedSource]

	// refreshMu serializes index initialization and refreshes.
	// NOT used for searches - they are lock-free via atomic pointer
	refreshMu sync.Mutex

	// initMu serializes the first catalog load
	initMu sync.Mutex

	// wg tracks in-flight search operations for graceful cleanup of old indexes
	wg sync.WaitGroup
}

var indexMgr = &indexHolder{}

// InitializeDocSearch loads the catalog and opens its search index, building
// the index when the persisted one is missing, outdated or corrupt.
func InitializeDocSearch() error {
	startTime := time.Now()

	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	if indexMgr.current.Load() != nil {
		return nil
	}
	log.Printf("Initializing symbol search...")

	lockStart := time.Now()
	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}
	log.Printf("Lock acquired in %v", time.Since(lockStart).Round(time.Millisecond))

	src, err := ensureCatalog()
	if err != nil {
		return err
	}

	// Strategy 1: reuse the persisted index if it matches the catalog
	indexPath := filepath.Join(dataDir, indexDir)
	if _, err := os.Stat(indexPath); err == nil {
		version, fingerprint := getIndexVersion()
		switch {
		case version != indexing.IndexSchemaVersion:
			log.Printf("Index schema version mismatch (have: v%d, want: v%d), rebuilding...",
				version, indexing.IndexSchemaVersion)
		case fingerprint != src.fingerprint:
			log.Printf("Index was built from different search data, rebuilding...")
		default:
			openStart := time.Now()
			index, err := bleve.Open(indexPath)
			if err == nil {
				wrapped := NewBleveIndexWrapper(index)
				indexMgr.current.Store(&wrapped)
				count, _ := wrapped.DocCount()
				log.Printf("✓ Symbol search initialized (%d docs, local index v%d) in %v",
					count, indexing.IndexSchemaVersion, time.Since(startTime).Round(time.Millisecond))
				return nil
			}
			log.Printf("Warning: Local index corrupted (open failed in %v: %v), rebuilding...",
				time.Since(openStart).Round(time.Millisecond), err)
		}
	}

	// Strategy 2: build it from the catalog
	if err := rebuildIndex(src); err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}
	log.Printf("✓ Symbol search initialized from %s in %v", src.origin, time.Since(startTime).Round(time.Millisecond))
	return nil
}

// getIndexVersion reads the schema version and source fingerprint the
// persisted index was built with
func getIndexVersion() (int, digest.Digest) {
	data, err := os.ReadFile(filepath.Join(dataDir, indexVersionFile))
	if err != nil {
		return 0, "" // No version file = unknown index
	}

	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	version, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return 0, ""
	}
	var fingerprint digest.Digest
	if len(lines) > 1 {
		fingerprint = digest.Digest(strings.TrimSpace(lines[1]))
	}
	return version, fingerprint
}

// writeIndexVersion records the schema version and source fingerprint of the index
func writeIndexVersion(fingerprint digest.Digest) error {
	versionPath := filepath.Join(dataDir, indexVersionFile)
	if err := os.MkdirAll(filepath.Dir(versionPath), 0755); err != nil {
		return err
	}
	content := fmt.Sprintf("%d\n%s\n", indexing.IndexSchemaVersion, fingerprint)
	return os.WriteFile(versionPath, []byte(content), 0644)
}

// rebuildIndex builds a fresh index for src in a temp directory, moves it into
// place and swaps it in. The previous index is closed once in-flight searches
// on it have drained.
func rebuildIndex(src *loadedSource) error {
	h := indexMgr
	startTime := time.Now()
	indexPath := filepath.Join(dataDir, indexDir)
	tempIndexPath := filepath.Join(dataDir, indexDir+".tmp")

	// Clean up any leftover temp index from previous crash
	os.RemoveAll(tempIndexPath)

	if err := os.MkdirAll(filepath.Dir(tempIndexPath), 0755); err != nil {
		return fmt.Errorf("failed to create temp index directory: %w", err)
	}

	docs := indexing.BuildDocuments(src.catalog)
	log.Printf("Creating new index with %d documents in temp location...", len(docs))
	newIndex, err := bleve.New(tempIndexPath, indexing.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}

	indexStart := time.Now()
	err = indexing.IndexDocuments(newIndex, docs, indexing.DefaultBatchSize, func(done, total int) {
		if done < total {
			log.Printf("Indexed %d/%d documents...", done, total)
		}
	})
	if err != nil {
		newIndex.Close()
		os.RemoveAll(tempIndexPath)
		return err
	}
	log.Printf("Indexed %d documents in %v", len(docs), time.Since(indexStart).Round(time.Millisecond))

	// Close temp index before moving
	if err := newIndex.Close(); err != nil {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to close temp index: %w", err)
	}

	if err := os.RemoveAll(indexPath); err != nil && !os.IsNotExist(err) {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	// Rename temp to final location (atomic operation on POSIX)
	if err := os.Rename(tempIndexPath, indexPath); err != nil {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to rename temp index: %w", err)
	}

	finalIndex, err := bleve.Open(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open new index: %w", err)
	}
	wrapped := NewBleveIndexWrapper(finalIndex)

	oldIndexPtr := h.current.Swap(&wrapped)
	go h.closeWhenDrained(oldIndexPtr)

	if err := writeIndexVersion(src.fingerprint); err != nil {
		log.Printf("Warning: Failed to write index version: %v", err)
	}

	log.Printf("✓ Index swap completed in %v, searches now using new index", time.Since(startTime).Round(time.Millisecond))
	return nil
}

// closeWhenDrained closes a replaced index after in-flight searches on h finish
func (h *indexHolder) closeWhenDrained(oldPtr *Index) {
	if oldPtr == nil {
		return
	}

	waitStart := time.Now()
	h.wg.Wait()

	old := *oldPtr
	if err := old.Close(); err != nil {
		log.Printf("Warning: Error closing old index: %v", err)
		return
	}
	log.Printf("✓ Old index closed (waited %v)", time.Since(waitStart).Round(time.Millisecond))
}

// refreshSearchIndex reloads the search data and rebuilds the index when the
// payload fingerprint changed or force is set. It reports whether anything was
// rebuilt.
func refreshSearchIndex(ctx context.Context, force bool) (bool, *loadedSource, error) {
	startTime := time.Now()

	// Serialize refresh operations (prevent concurrent refreshes)
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	fsys, pattern, origin := sourceFS()
	fingerprint, err := searchdata.Fingerprint(fsys, pattern)
	if err != nil {
		return false, nil, fmt.Errorf("failed to fingerprint search data: %w", err)
	}

	current := indexMgr.source.Load()
	if !force && current != nil && current.fingerprint == fingerprint && indexMgr.current.Load() != nil {
		log.Printf("Search data unchanged (%s), skipping refresh", fingerprint)
		return false, current, nil
	}

	log.Printf("Starting search index refresh from %s (force=%v)...", origin, force)

	// Acquire inter-process lock for re-indexing (will wait if another process has it)
	// Note: Lock will be released by CloseDocSearch() when process exits
	if err := acquireLock(); err != nil {
		return false, nil, fmt.Errorf("failed to acquire lock for refresh: %w", err)
	}

	parseStart := time.Now()
	catalog, err := searchdata.LoadFS(ctx, fsys, pattern)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load search data: %w", err)
	}
	log.Printf("Parsed %d entries in %v", catalog.Len(), time.Since(parseStart).Round(time.Millisecond))

	src := &loadedSource{catalog: catalog, fingerprint: fingerprint, origin: origin, loadedAt: time.Now()}
	if err := writeSnapshotFile(src); err != nil {
		log.Printf("Warning: Failed to write catalog snapshot: %v", err)
	}
	if err := rebuildIndex(src); err != nil {
		return false, nil, fmt.Errorf("indexing failed: %w", err)
	}
	indexMgr.source.Store(src)

	log.Printf("✓ Search index refresh completed in %v", time.Since(startTime).Round(time.Millisecond))
	return true, src, nil
}

// buildSymbolQuery combines the ways a typed query can match a symbol: the
// exact key, a key prefix, the label (exact words or within the configured
// edit distance), and words from the owning compound or description
func buildSymbolQuery(text, section string) query.Query {
	key := searchdata.EncodeKey(text)

	exact := bleve.NewTermQuery(key)
	exact.SetField("key")
	exact.SetBoost(5)

	prefix := bleve.NewPrefixQuery(key)
	prefix.SetField("key")
	prefix.SetBoost(3)

	label := bleve.NewMatchQuery(text)
	label.SetField("label")
	label.SetBoost(2)

	queries := []query.Query{exact, prefix, label}

	if settings.Search.Fuzziness > 0 {
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
		fuzzy.SetField("label")
		fuzzy.SetFuzziness(settings.Search.Fuzziness)
		queries = append(queries, fuzzy)
	}

	compound := bleve.NewMatchQuery(text)
	compound.SetField("compound")

	description := bleve.NewMatchQuery(text)
	description.SetField("description")
	description.SetBoost(0.5)

	queries = append(queries, compound, description)
	var q query.Query = bleve.NewDisjunctionQuery(queries...)

	if section != "" {
		inSection := bleve.NewTermQuery(section)
		inSection.SetField("section")
		q = bleve.NewConjunctionQuery(q, inSection)
	}
	return q
}

// hitFromFields converts stored bleve fields back into a SymbolHit
func hitFromFields(fields map[string]interface{}, score float64) SymbolHit {
	str := func(name string) string {
		s, _ := fields[name].(string)
		return s
	}
	return SymbolHit{
		Section:     str("section"),
		Key:         str("key"),
		Name:        str("name"),
		Label:       str("label"),
		Anchor:      str("anchor"),
		Page:        str("page"),
		Fragment:    str("fragment"),
		Compound:    str("compound"),
		Description: str("description"),
		Score:       score,
	}
}

// SearchSymbols runs a full-text search over the documented symbols
func SearchSymbols(ctx context.Context, req *mcp.CallToolRequest, input SearchSymbolsInput) (*mcp.CallToolResult, SearchSymbolsOutput, error) {
	text := strings.TrimSpace(input.Query)
	if text == "" {
		return nil, SearchSymbolsOutput{}, errors.New("query is required")
	}

	// Track in-flight searches for graceful cleanup (MUST be before Load)
	indexMgr.wg.Add(1)
	defer indexMgr.wg.Done()

	indexPtr := indexMgr.current.Load()
	if indexPtr == nil {
		log.Printf("Symbol index not initialized, initializing now...")
		if err := InitializeDocSearch(); err != nil {
			return nil, SearchSymbolsOutput{}, fmt.Errorf("failed to initialize search index: %w", err)
		}
		indexPtr = indexMgr.current.Load()
		if indexPtr == nil {
			return nil, SearchSymbolsOutput{}, errors.New("index still nil after initialization")
		}
	}
	index := *indexPtr

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = settings.Search.DefaultResults
	}
	if maxResults > settings.Search.MaxResults {
		maxResults = settings.Search.MaxResults
	}

	search := bleve.NewSearchRequestOptions(buildSymbolQuery(text, input.Section), maxResults, 0, false)
	search.Fields = []string{"*"}

	searchResults, err := index.Search(search)
	if err != nil {
		return nil, SearchSymbolsOutput{}, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SymbolHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		results = append(results, hitFromFields(hit.Fields, hit.Score))
	}

	return nil, SearchSymbolsOutput{
		Results:   results,
		Query:     text,
		TotalHits: int(searchResults.Total),
	}, nil
}

// RefreshSearchIndex reloads the search data and rebuilds the index if it changed
func RefreshSearchIndex(ctx context.Context, req *mcp.CallToolRequest, input RefreshSearchIndexInput) (*mcp.CallToolResult, RefreshSearchIndexOutput, error) {
	updated, src, err := refreshSearchIndex(ctx, input.Force)
	if err != nil {
		return nil, RefreshSearchIndexOutput{}, fmt.Errorf("refresh failed: %w", err)
	}

	output := RefreshSearchIndexOutput{
		Updated:     updated,
		Source:      src.origin,
		Fingerprint: src.fingerprint.String(),
		Entries:     src.catalog.Len(),
		LastUpdate:  src.loadedAt,
	}
	if indexPtr := indexMgr.current.Load(); indexPtr != nil {
		count, _ := (*indexPtr).DocCount()
		output.DocsIndexed = int(count)
	}

	if updated {
		output.Message = fmt.Sprintf("Search index rebuilt, %d entries (%d documents) indexed", output.Entries, output.DocsIndexed)
	} else {
		output.Message = fmt.Sprintf("Search data unchanged since %s", src.loadedAt.Format(time.RFC3339))
	}
	return nil, output, nil
}

// RegisterDocSearchTools registers the full-text search tools
func RegisterDocSearchTools(server *mcp.Server) error {
	// Initialize search synchronously
	if err := InitializeDocSearch(); err != nil {
		log.Printf("Warning: Symbol search initialization failed: %v", err)
		log.Printf("Symbol search will attempt to initialize on first use")
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_symbols",
			Description: "Full-text search over the documented symbols: matches key prefixes, misspelled names, owning files and classes, and declaration text. Returns ranked locations in the documentation tree.",
		},
		SearchSymbols,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_search_index",
			Description: "Reload the Doxygen search data and rebuild the search index (skipped when the data has not changed unless force is set)",
		},
		RefreshSearchIndex,
	)

	return nil
}

// CloseDocSearch closes the search index and releases the lock
func CloseDocSearch() error {
	var closeErr error

	// Atomically swap index to nil (prevents new searches)
	if indexPtr := indexMgr.current.Swap(nil); indexPtr != nil {
		log.Printf("Waiting for in-flight searches to complete before closing...")
		indexMgr.wg.Wait()

		index := *indexPtr
		closeErr = index.Close()
		if closeErr != nil {
			log.Printf("Error closing search index: %v", closeErr)
		} else {
			log.Printf("✓ Search index closed successfully")
		}
	}

	// Always attempt to release inter-process lock, even if close failed
	if err := releaseLock(); err != nil {
		log.Printf("Error releasing lock: %v", err)
		if closeErr == nil {
			closeErr = err
		}
	}

	return closeErr
}
