package tools

import (
	"embed"
)

// Embed the Doxygen search payload into the binary.
// This ensures the MCP server works standalone without requiring a generated
// documentation tree on the filesystem. A configured source directory takes
// precedence at runtime.

//go:embed data/search/*.js
var embeddedFS embed.FS

// embeddedPattern matches the payload files inside embeddedFS
const embeddedPattern = "data/search/*.js"

// NewEmbeddedDataProvider creates a production DataProvider that uses embedded files.
func NewEmbeddedDataProvider() DataProvider {
	return embeddedFS
}

// Default provider used by package-level functions
var defaultDataProvider DataProvider = NewEmbeddedDataProvider()
