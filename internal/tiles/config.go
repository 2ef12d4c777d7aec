package tiles

import (
	"errors"
	"fmt"
	"strconv"

	"mapgen/internal/core"
)

// ErrInvalidConfig marks configuration errors that prevent generation.
var ErrInvalidConfig = errors.New("tiles: invalid config")

// Config controls the collapse grid and its failure policy.
type Config struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"-"`

	// Fallback force-places the best matching tile when a cell has no valid
	// option. Without it the engine backtracks.
	Fallback bool `yaml:"fallback"`

	// MaxBacktracks bounds the number of history pops. Zero selects
	// four per cell.
	MaxBacktracks int `yaml:"max_backtracks"`

	// Rules is an optional path to a YAML rule set.
	Rules string `yaml:"rules"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Width:    16,
		Height:   16,
		Fallback: true,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.MaxBacktracks < 0 {
		return fmt.Errorf("%w: max backtracks %d", ErrInvalidConfig, c.MaxBacktracks)
	}
	return nil
}

func (c Config) backtrackBudget() int {
	if c.MaxBacktracks > 0 {
		return c.MaxBacktracks
	}
	return c.Width * c.Height * 4
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
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	if v, ok := cfg["fallback"]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Fallback = parsed
		}
	}
	if v, ok := cfg["max_backtracks"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.MaxBacktracks = parsed
		}
	}
	if v, ok := cfg["rules"]; ok {
		c.Rules = v
	}
	return c
}

// ParameterGroup describes the configuration for presentation.
func (c Config) ParameterGroup() core.ParameterGroup {
	return core.ParameterGroup{
		Name: "Tiles",
		Params: []core.Parameter{
			core.IntParam("w", "Width", c.Width),
			core.IntParam("h", "Height", c.Height),
			core.Int64Param("seed", "Seed", c.Seed),
			core.BoolParam("fallback", "Fallback", c.Fallback),
			core.IntParam("max_backtracks", "Max backtracks", c.backtrackBudget()),
		},
	}
}
