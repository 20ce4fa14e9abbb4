package tools

import (
	"log"
	"os"
	"path/filepath"

	"github.com/qstem/doxsearch-mcp/internal/config"
)

const (
	searchDir        = "search"
	indexDir         = "search/index"
	lockFile         = "search/index.lock"
	indexVersionFile = "search/.index_version"
	snapshotFile     = "search/catalog.snapshot.zst"
)

var (
	dataDir  string                    // Data directory for the persisted index and snapshot
	settings *config.Config = config.Default()
)

func init() {
	dataDir = resolveDataDir()
}

// Configure applies a loaded configuration. It must run before the tools are
// registered.
func Configure(cfg *config.Config) {
	settings = cfg
	if cfg.DataDir != "" {
		dataDir = cfg.DataDir
		if err := os.MkdirAll(filepath.Join(dataDir, searchDir), 0755); err != nil {
			log.Printf("Warning: Could not create data directory %s: %v", dataDir, err)
		}
		log.Printf("✓ Data directory: %s (configured)", dataDir)
	}
	if cfg.Source.Dir != "" {
		log.Printf("✓ Search data source: %s (%s)", cfg.Source.Dir, cfg.Source.Pattern)
	}
}

// resolveDataDir picks the default data directory: the user's home, then a
// data directory next to the binary, then ./data.
func resolveDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userDataDir := filepath.Join(homeDir, ".doxsearch-mcp")

		if info, err := os.Stat(userDataDir); err == nil && info.IsDir() {
			return userDataDir
		}

		if err := os.MkdirAll(filepath.Join(userDataDir, searchDir), 0755); err == nil {
			log.Printf("✓ Data directory created: %s", userDataDir)
			return userDataDir
		}
		log.Printf("Warning: Could not create user data directory at %s: %v", userDataDir, err)
	} else {
		log.Printf("Warning: Could not determine user home directory: %v", err)
	}

	// Installed layout: bin/doxsearch-mcp next to share/doxsearch-mcp/
	if execPath, err := os.Executable(); err == nil {
		shared := filepath.Join(filepath.Dir(execPath), "..", "share", "doxsearch-mcp")
		if info, err := os.Stat(shared); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(shared)
			return abs
		}
	}

	fallback := filepath.Join(".", "data")
	log.Printf("⚠️  Data directory (fallback): %s", fallback)
	os.MkdirAll(filepath.Join(fallback, searchDir), 0755)
	return fallback
}
