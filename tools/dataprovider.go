package tools

import (
	"io/fs"
)

// DataProvider defines the interface for accessing the bundled search data.
// This abstraction allows for dependency injection and makes the code testable
// without requiring actual embedded files to be present.
//
// Implementations:
//   - embed.FS: the payload compiled into the binary (production)
//   - fstest.MapFS: in-memory files for tests
type DataProvider interface {
	// ReadFile reads the named file and returns its contents.
	// The name is relative to the data root (e.g., "data/search/functions_2.js").
	ReadFile(name string) ([]byte, error)

	// ReadDir reads the named directory and returns its entries.
	// The name is relative to the data root (e.g., "data/search").
	ReadDir(name string) ([]fs.DirEntry, error)

	// Open opens the named file. Together with the methods above this makes a
	// DataProvider usable wherever an fs.FS is expected.
	Open(name string) (fs.File, error)
}

// SetDefaultDataProvider sets the default data provider for the package.
// This is useful for testing to inject a mock provider.
func SetDefaultDataProvider(provider DataProvider) {
	defaultDataProvider = provider
}

// ResetDefaultDataProvider resets the default provider to use embedded data.
func ResetDefaultDataProvider() {
	defaultDataProvider = NewEmbeddedDataProvider()
}
