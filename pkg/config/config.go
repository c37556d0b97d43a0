// Package config loads and validates simcheck's configuration: the
// winnowing parameters, which comparator passes run, and name/ignore
// lists for the comparators that need them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AllPasses lists every comparator pass simcheck knows how to run, in
// the order compare50's own passes.py defines them.
var AllPasses = []string{"structure", "text", "exact", "names", "nocomments", "misspellings"}

// Config holds all configuration options for simcheck.
type Config struct {
	// Winnowing controls the k-gram/guarantee-window parameters shared
	// by every Winnowing-backed pass.
	Winnowing WinnowingConfig `koanf:"winnowing" toml:"winnowing"`

	// Passes lists which named passes to run. Defaults to AllPasses.
	Passes []string `koanf:"passes" toml:"passes"`

	// TopN bounds how many ranked submission pairs are kept per pass.
	TopN int `koanf:"top_n" toml:"top_n"`

	// Names controls the names comparator's context-hashing.
	Names NamesConfig `koanf:"names" toml:"names"`

	// Ignore controls which files/fragments are excluded from
	// comparison (e.g. distributed starter code).
	Ignore IgnoreConfig `koanf:"ignore" toml:"ignore"`

	// Output controls rendering of the final result set.
	Output OutputConfig `koanf:"output" toml:"output"`
}

// WinnowingConfig defines the k-gram size and guarantee threshold used
// by the winnowing index (spec: every match of length >= t is caught;
// no match of length < k is ever reported).
type WinnowingConfig struct {
	K int `koanf:"k" toml:"k"` // k-gram (substring) length
	T int `koanf:"t" toml:"t"` // guarantee threshold, t >= k
}

// NamesConfig defines the names comparator's context window.
type NamesConfig struct {
	ContextWindow int    `koanf:"context_window" toml:"context_window"`
	Seed          uint64 `koanf:"seed" toml:"seed"`
}

// IgnoreConfig defines files and fingerprints excluded from comparison.
type IgnoreConfig struct {
	// Files names distro/starter-code files. Neither engine.Run nor the
	// compare command reads it: distro submissions reach the engine only
	// through engine.Corpus.Distro (the compare command's --ignore flag).
	Files []string `koanf:"files" toml:"files"`

	// Patterns are glob patterns over submission-relative paths. Neither
	// engine.Run nor the compare command reads them, so no file is
	// skipped because of them.
	Patterns []string `koanf:"patterns" toml:"patterns"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Winnowing: WinnowingConfig{
			K: 25,
			T: 35,
		},
		Passes: append([]string{}, AllPasses...),
		TopN:   50,
		Names: NamesConfig{
			ContextWindow: 5,
			Seed:          50,
		},
		Ignore: IgnoreConfig{
			Files:    []string{},
			Patterns: []string{},
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
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

// FindConfigFile searches for a config file in standard locations.
// Returns the path if found, or empty string if not found.
func FindConfigFile() string {
	configNames := []string{
		"simcheck.toml",
		"simcheck.yaml",
		"simcheck.yml",
		"simcheck.json",
	}

	searchDirs := []string{".", ".simcheck"}

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

// LoadOption configures how configuration is loaded.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithPath specifies an explicit config file path.
// If the path doesn't exist, an error is returned.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadResult contains the loaded configuration and metadata.
type LoadResult struct {
	Config *Config
	Source string // Path to the config file, empty if using defaults
}

// LoadConfig loads configuration with the provided options.
// If no path is specified, it searches standard locations.
// Returns defaults if no config file is found.
// Always validates the config before returning.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var cfg *Config
	var source string
	var err error

	if o.path != "" {
		if _, statErr := os.Stat(o.path); os.IsNotExist(statErr) {
			return nil, fmt.Errorf("config file not found: %s", o.path)
		}
		cfg, err = Load(o.path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", o.path, err)
		}
		source = o.path
	} else {
		source = FindConfigFile()
		if source == "" {
			cfg = DefaultConfig()
		} else {
			cfg, err = Load(source)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", source, err)
			}
		}
	}

	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("config validation failed: %w", validationErr)
	}

	return &LoadResult{Config: cfg, Source: source}, nil
}

// LoadOrDefault loads config from standard locations or returns defaults.
// Returns an error if validation fails.
func LoadOrDefault() (*Config, error) {
	result, err := LoadConfig()
	if err != nil {
		if FindConfigFile() == "" {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return result.Config, nil
}

// isValidPass reports whether name is one of AllPasses.
func isValidPass(name string) bool {
	for _, p := range AllPasses {
		if p == name {
			return true
		}
	}
	return false
}

// Validate checks that all config values are within acceptable ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Winnowing.K < 1 {
		errs = append(errs, errors.New("winnowing.k must be at least 1"))
	}
	if c.Winnowing.T < c.Winnowing.K {
		errs = append(errs, fmt.Errorf("winnowing.t (%d) must be >= winnowing.k (%d)", c.Winnowing.T, c.Winnowing.K))
	}
	if c.TopN < 1 {
		errs = append(errs, errors.New("top_n must be at least 1"))
	}
	if c.Names.ContextWindow < 1 {
		errs = append(errs, errors.New("names.context_window must be at least 1"))
	}
	if len(c.Passes) == 0 {
		errs = append(errs, errors.New("passes must name at least one pass"))
	}
	for _, p := range c.Passes {
		if !isValidPass(p) {
			errs = append(errs, fmt.Errorf("unknown pass %q (valid passes: %v)", p, AllPasses))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
