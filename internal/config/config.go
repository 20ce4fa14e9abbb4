// Package config loads the server configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the environment variable holding the config file path
const EnvConfigFile = "DOXSEARCH_CONFIG"

// Config is the top-level configuration.
type Config struct {
	// DataDir holds the persisted search index, snapshot and lock file.
	// Empty means the server picks one (user home, next to the binary, ./data).
	DataDir string       `yaml:"dataDir"`
	Source  SourceConfig `yaml:"source"`
	Search  SearchConfig `yaml:"search"`
	Lock    LockConfig   `yaml:"lock"`
}

// SourceConfig points at the Doxygen html/search directory to serve.
// An empty Dir serves the payload embedded in the binary.
type SourceConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
}

// SearchConfig controls full-text search limits.
type SearchConfig struct {
	DefaultResults int `yaml:"defaultResults"`
	MaxResults     int `yaml:"maxResults"`
	Fuzziness      int `yaml:"fuzziness"`
	DefaultPage    int `yaml:"defaultPage"`
	MaxPage        int `yaml:"maxPage"`
}

// LockConfig controls waiting on the inter-process index lock.
type LockConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	RetryWait time.Duration `yaml:"retryWait"`
}

// Load reads a YAML config file (if path is not empty) over the defaults and
// then applies DOXSEARCH_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Pattern: "*.js",
		},
		Search: SearchConfig{
			DefaultResults: 10,
			MaxResults:     50,
			Fuzziness:      1,
			DefaultPage:    50,
			MaxPage:        500,
		},
		Lock: LockConfig{
			Timeout:   5 * time.Second,
			RetryWait: 500 * time.Millisecond,
		},
	}
}

// Validate checks that limits are usable.
func (c *Config) Validate() error {
	var errs []error
	if _, err := path.Match(c.Source.Pattern, ""); err != nil {
		errs = append(errs, fmt.Errorf("source.pattern %q: %w", c.Source.Pattern, err))
	}
	if c.Source.Pattern == "" {
		errs = append(errs, errors.New("source.pattern must not be empty"))
	}
	if c.Search.DefaultResults <= 0 || c.Search.MaxResults < c.Search.DefaultResults {
		errs = append(errs, fmt.Errorf("search: need 0 < defaultResults (%d) <= maxResults (%d)",
			c.Search.DefaultResults, c.Search.MaxResults))
	}
	if c.Search.Fuzziness < 0 || c.Search.Fuzziness > 2 {
		errs = append(errs, fmt.Errorf("search.fuzziness must be between 0 and 2, got %d", c.Search.Fuzziness))
	}
	if c.Search.DefaultPage <= 0 || c.Search.MaxPage < c.Search.DefaultPage {
		errs = append(errs, fmt.Errorf("search: need 0 < defaultPage (%d) <= maxPage (%d)",
			c.Search.DefaultPage, c.Search.MaxPage))
	}
	if c.Lock.Timeout <= 0 || c.Lock.RetryWait <= 0 {
		errs = append(errs, errors.New("lock timeout and retryWait must be positive"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides reads DOXSEARCH_* environment variables over cfg.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DOXSEARCH_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DOXSEARCH_SOURCE_DIR"); v != "" {
		cfg.Source.Dir = v
	}
	if v := os.Getenv("DOXSEARCH_SOURCE_PATTERN"); v != "" {
		cfg.Source.Pattern = v
	}
	if v := os.Getenv("DOXSEARCH_MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOXSEARCH_MAX_RESULTS: %w", err)
		}
		cfg.Search.MaxResults = n
	}
	if v := os.Getenv("DOXSEARCH_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOXSEARCH_LOCK_TIMEOUT: %w", err)
		}
		cfg.Lock.Timeout = d
	}
	return nil
}
