// Package config loads treegrep configuration from TOML, YAML or JSON files.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for treegrep.
type Config struct {
	// Search settings
	Search SearchConfig `koanf:"search" toml:"search"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Result cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// SearchConfig controls the match pipeline.
type SearchConfig struct {
	// Workers is the worker pool size (0 = number of logical CPUs).
	Workers int `koanf:"workers" toml:"workers"`

	// MaxFileSize in bytes; files above it are skipped (0 = built-in cap).
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"`

	// MmapThreshold in bytes; files above it are memory-mapped instead of
	// read into a heap buffer (0 = 64 KiB default).
	MmapThreshold int64 `koanf:"mmap_threshold" toml:"mmap_threshold"`

	// DispatchWindow bounds how many files may be in flight between the
	// walker and the printer (0 = 4x workers).
	DispatchWindow int `koanf:"dispatch_window" toml:"dispatch_window"`
}

// ExcludeConfig defines file exclusion using gitignore-style syntax.
type ExcludeConfig struct {
	// Patterns uses gitignore syntax for excluding files:
	//   - "vendor/"      matches the vendor directory
	//   - "*.min.js"     matches minified JS files
	//   - "!keep.js"     negates a previous pattern
	Patterns []string `koanf:"patterns" toml:"patterns"`

	// Gitignore controls whether the repository's .gitignore files are also
	// respected.
	Gitignore bool `koanf:"gitignore" toml:"gitignore"`

	// Hidden includes hidden files and directories when true.
	Hidden bool `koanf:"hidden" toml:"hidden"`
}

// CacheConfig controls the per-file result cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // grep, vimgrep, json, toon, count
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
	Context int    `koanf:"context" toml:"context"` // context lines around matches
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Workers:        0, // NumCPU
			MaxFileSize:    0, // built-in 2 GiB cap
			MmapThreshold:  64 * 1024,
			DispatchWindow: 0, // 4x workers
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				".git/",
				"node_modules/",
				"vendor/",
				"third_party/",
				"dist/",
				"build/",
				"target/",
				"__pycache__/",
				".venv/",
				"venv/",
				"*.min.js",
				"*.min.css",
			},
			Gitignore: true,
			Hidden:    false,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".treegrep/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "grep",
			Color:   true,
			Verbose: false,
			Context: 0,
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the first config file found in the standard locations,
// or returns the defaults when none exists.
func LoadOrDefault() *Config {
	if path := FindConfigFile(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// FindConfigFile searches the standard locations for a config file. Returns
// "" when none is found.
func FindConfigFile() string {
	configNames := []string{
		"treegrep.toml",
		"treegrep.yaml",
		"treegrep.yml",
		"treegrep.json",
	}
	searchDirs := []string{".", ".treegrep"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
