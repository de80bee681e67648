// Package config loads dirsize defaults from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/idelchi/dirsize/internal/dirsize"
)

// Outputs lists the supported output formats.
//
//nolint:gochecknoglobals // Config constant
var Outputs = []string{"table", "json", "plain"}

// Config holds the tunable defaults of the CLI.
type Config struct {
	// Strategy is the traversal strategy (sequential, thread, hybrid, walk).
	Strategy string `yaml:"strategy"`
	// Threads is the number of concurrent directory scans.
	Threads int `yaml:"threads"`
	// Processes is the number of worker processes for the hybrid strategy.
	Processes int `yaml:"processes"`
	// Output is the output format (table, json, plain).
	Output string `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Strategy:  string(dirsize.StrategyThread),
		Threads:   dirsize.DefaultThreadLimit,
		Processes: dirsize.DefaultProcessLimit,
		Output:    "table",
	}
}

// DefaultPath returns the location of the user configuration file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}

	return filepath.Join(dir, "dirsize", "config.yaml"), nil
}

// Load reads the configuration at path on top of the defaults.
// A missing file yields the defaults; a malformed or invalid one is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	// Fields absent from the file keep their default values.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config file %q: %w", path, err)
	}

	return cfg, nil
}

// Validate reports invalid values.
func (c Config) Validate() error {
	if !slices.Contains(dirsize.Strategies, dirsize.Strategy(c.Strategy)) {
		return fmt.Errorf("invalid strategy %q: must be one of %v", c.Strategy, dirsize.Strategies)
	}

	if c.Threads < 1 {
		return fmt.Errorf("threads must be > 0, got %d", c.Threads)
	}

	if c.Processes < 1 {
		return fmt.Errorf("processes must be > 0, got %d", c.Processes)
	}

	if !slices.Contains(Outputs, c.Output) {
		return fmt.Errorf("invalid output format %q: must be one of %v", c.Output, Outputs)
	}

	return nil
}
