// Package config loads the analysis configuration from a TOML file and
// applies the pipeline defaults. CLI flags may override individual
// values after loading.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/globulab/globulator/internal/linker"
)

// Config is the full runtime configuration of the analysis pipeline.
type Config struct {
	// Linker holds the linking pass parameters.
	Linker linker.Config `toml:"linker"`

	// InputDir is where detection tables are discovered.
	InputDir string `toml:"input_dir"`

	// OutputDir receives the per-image result tables and maps.
	OutputDir string `toml:"output_dir"`

	// Workers bounds how many images are processed concurrently. The
	// linking pass itself stays single-threaded per image.
	Workers int `toml:"workers"`

	// RenderMaps enables linkage map rendering per image.
	RenderMaps bool `toml:"render_maps"`

	// MapScale resizes rendered maps (1.0 = native size).
	MapScale float64 `toml:"map_scale"`
}

// Default returns the reference pipeline configuration.
func Default() Config {
	return Config{
		Linker:     linker.DefaultConfig(),
		InputDir:   "inputs",
		OutputDir:  "results",
		Workers:    runtime.NumCPU(),
		RenderMaps: true,
		MapScale:   1.0,
	}
}

// Load reads a TOML configuration file over the defaults. An empty path
// returns the defaults unchanged; a missing file is an error so a typo
// in --config does not silently fall back.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// Validate checks the values a pass depends on.
func (c Config) Validate() error {
	if err := c.Linker.Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", linker.ErrInvalidConfiguration, c.Workers)
	}
	if c.MapScale < 0 {
		return fmt.Errorf("%w: map scale must not be negative, got %v", linker.ErrInvalidConfiguration, c.MapScale)
	}
	return nil
}
