package linker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration marks a linking configuration that would make a
// pass meaningless: a non-positive cell size or search radius factor, or
// a negative minimum area ratio. It is raised before any particle state
// is mutated, so a failed pass leaves both stores untouched.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Defaults match the reference analysis pipeline: a 50-unit grid cell, a
// search neighborhood of three crescent radii, and a partner globule of
// at least a quarter of the crescent's area.
const (
	DefaultCellSize           = 50.0
	DefaultSearchRadiusFactor = 3.0
	DefaultMinAreaRatio       = 0.25
)

// Config holds the numeric parameters of a linking pass.
type Config struct {
	// CellSize is the spatial index cell edge length, fixed per run (not
	// adaptive per particle). Choose it near the typical search radius,
	// e.g. three times the expected crescent radius.
	CellSize float64 `json:"cell_size" toml:"cell_size"`

	// SearchRadiusFactor scales a crescent's derived radius into its
	// search radius.
	SearchRadiusFactor float64 `json:"search_radius_factor" toml:"search_radius_factor"`

	// MinAreaRatio is the minimum globule area as a fraction of the
	// crescent area for the pair to be size-compatible.
	MinAreaRatio float64 `json:"min_area_ratio" toml:"min_area_ratio"`
}

// DefaultConfig returns the reference pipeline parameters.
func DefaultConfig() Config {
	return Config{
		CellSize:           DefaultCellSize,
		SearchRadiusFactor: DefaultSearchRadiusFactor,
		MinAreaRatio:       DefaultMinAreaRatio,
	}
}

// Validate checks the configuration, wrapping ErrInvalidConfiguration on
// the first violation.
func (c Config) Validate() error {
	if c.CellSize <= 0 {
		return fmt.Errorf("%w: cell size must be positive, got %v", ErrInvalidConfiguration, c.CellSize)
	}
	if c.SearchRadiusFactor <= 0 {
		return fmt.Errorf("%w: search radius factor must be positive, got %v", ErrInvalidConfiguration, c.SearchRadiusFactor)
	}
	if c.MinAreaRatio < 0 {
		return fmt.Errorf("%w: min area ratio must not be negative, got %v", ErrInvalidConfiguration, c.MinAreaRatio)
	}
	return nil
}
