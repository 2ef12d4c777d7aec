package voronoi

import (
	"errors"
	"fmt"
	"strconv"

	"mapgen/internal/core"
	"mapgen/internal/hashfield"
)

// ErrInvalidConfig marks configuration errors that prevent generation.
var ErrInvalidConfig = errors.New("voronoi: invalid config")

// Probabilities weights the three biome buckets before normalisation.
type Probabilities struct {
	Red    float64 `yaml:"red"`
	Yellow float64 `yaml:"yellow"`
	Gray   float64 `yaml:"gray"`
}

// Config controls partition dimensions, hierarchy and colouring.
type Config struct {
	Width  int   `yaml:"-"`
	Height int   `yaml:"-"`
	Seed   int32 `yaml:"-"`

	// Levels lists cell size exponents from coarsest to finest.
	Levels []int `yaml:"levels"`

	Probabilities Probabilities `yaml:"probabilities"`
	BorderRatio   float64       `yaml:"border_ratio"`

	// MinRegionDivisor sets the merge threshold to area/MinRegionDivisor.
	MinRegionDivisor int `yaml:"min_region_divisor"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Width:  256,
		Height: 256,
		Levels: []int{4, 3, 2},
		Probabilities: Probabilities{
			Red:    0.2,
			Yellow: 0.2,
			Gray:   0.2,
		},
		BorderRatio:      0.1,
		MinRegionDivisor: 100,
	}
}

// MinRegionSize returns the merge threshold for the configured area.
func (c Config) MinRegionSize() int {
	if c.MinRegionDivisor <= 0 {
		return 0
	}
	return c.Width * c.Height / c.MinRegionDivisor
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if err := validateLevels(c.Levels); err != nil {
		return err
	}
	p := c.Probabilities
	if p.Red < 0 || p.Yellow < 0 || p.Gray < 0 {
		return fmt.Errorf("%w: negative probability %+v", ErrInvalidConfig, p)
	}
	if c.BorderRatio < 0 || c.BorderRatio > 0.5 {
		return fmt.Errorf("%w: border ratio %v outside [0,0.5]", ErrInvalidConfig, c.BorderRatio)
	}
	if c.MinRegionDivisor < 0 {
		return fmt.Errorf("%w: min region divisor %d", ErrInvalidConfig, c.MinRegionDivisor)
	}
	return nil
}

func validateLevels(levels []int) error {
	if len(levels) == 0 {
		return fmt.Errorf("%w: no levels", ErrInvalidConfig)
	}
	for _, u := range levels {
		if u < 0 || u > hashfield.MaxUnit {
			return fmt.Errorf("%w: level exponent %d outside [0,%d]", ErrInvalidConfig, u, hashfield.MaxUnit)
		}
	}
	return nil
}

// FromMap populates the config from a string map (flag-style key/value pairs).
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v, ok := cfg["w"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Width = parsed
		}
	}
	if v, ok := cfg["h"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Height = parsed
		}
	}
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 32); err == nil {
			c.Seed = int32(parsed)
		}
	}
	if v, ok := cfg["levels"]; ok {
		if parsed, err := core.ParseIntList(v); err == nil && validateLevels(parsed) == nil {
			c.Levels = parsed
		}
	}
	if v, ok := cfg["red"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			c.Probabilities.Red = parsed
		}
	}
	if v, ok := cfg["yellow"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			c.Probabilities.Yellow = parsed
		}
	}
	if v, ok := cfg["gray"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			c.Probabilities.Gray = parsed
		}
	}
	if v, ok := cfg["border_ratio"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 && parsed <= 0.5 {
			c.BorderRatio = parsed
		}
	}
	if v, ok := cfg["min_region_divisor"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.MinRegionDivisor = parsed
		}
	}
	return c
}

// ParameterGroup describes the configuration for presentation.
func (c Config) ParameterGroup() core.ParameterGroup {
	return core.ParameterGroup{
		Name: "Voronoi",
		Params: []core.Parameter{
			core.IntParam("w", "Width", c.Width),
			core.IntParam("h", "Height", c.Height),
			core.Int64Param("seed", "Seed", int64(c.Seed)),
			core.ListParam("levels", "Levels", c.Levels),
			core.FloatParam("red", "Settlement weight", c.Probabilities.Red),
			core.FloatParam("yellow", "Farmland weight", c.Probabilities.Yellow),
			core.FloatParam("gray", "Highland weight", c.Probabilities.Gray),
			core.FloatParam("border_ratio", "Border ratio", c.BorderRatio),
			core.IntParam("min_region_divisor", "Min region divisor", c.MinRegionDivisor),
		},
		Summary: fmt.Sprintf("merge below %d cells", c.MinRegionSize()),
	}
}
