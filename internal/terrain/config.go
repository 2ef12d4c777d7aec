package terrain

import (
	"errors"
	"fmt"
	"strconv"

	"mapgen/internal/core"
)

// ErrInvalidConfig marks configuration errors that prevent generation.
var ErrInvalidConfig = errors.New("terrain: invalid config")

// Config controls heightmap synthesis, shaping and river carving.
type Config struct {
	Width  int   `yaml:"-"`
	Height int   `yaml:"-"`
	Seed   int64 `yaml:"-"`

	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
	Scale   float64 `yaml:"scale"`
	Octaves int     `yaml:"octaves"`
	Gain    float64 `yaml:"gain"`
	Power   float64 `yaml:"power"`

	IslandCurve    KeyframeCurve `yaml:"island_curve"`
	WaterThreshold float64       `yaml:"water_threshold"`

	RiverCount  int `yaml:"river_count"`
	RiverLength int `yaml:"river_length"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Width:   256,
		Height:  256,
		Scale:   4,
		Octaves: 8,
		Gain:    0.5,
		Power:   1.5,
		IslandCurve: KeyframeCurve{
			{T: 0, V: 1},
			{T: 0.6, V: 0.85},
			{T: 1, V: 0},
		},
		WaterThreshold: 0.05,
		RiverCount:     10,
		RiverLength:    200,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Scale < 0 {
		return fmt.Errorf("%w: scale %v", ErrInvalidConfig, c.Scale)
	}
	if c.Octaves < 1 {
		return fmt.Errorf("%w: octaves %d", ErrInvalidConfig, c.Octaves)
	}
	if c.Gain < 0 || c.Gain > 1 {
		return fmt.Errorf("%w: gain %v outside [0,1]", ErrInvalidConfig, c.Gain)
	}
	if c.Power < 0 || c.Power > 10 {
		return fmt.Errorf("%w: power %v outside [0,10]", ErrInvalidConfig, c.Power)
	}
	if c.WaterThreshold < 0 || c.WaterThreshold > 1 {
		return fmt.Errorf("%w: water threshold %v outside [0,1]", ErrInvalidConfig, c.WaterThreshold)
	}
	if c.RiverCount < 0 || c.RiverLength < 0 {
		return fmt.Errorf("%w: rivers %d x %d", ErrInvalidConfig, c.RiverCount, c.RiverLength)
	}
	return c.IslandCurve.Validate()
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
	if v, ok := cfg["offset_x"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.OffsetX = parsed
		}
	}
	if v, ok := cfg["offset_y"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.OffsetY = parsed
		}
	}
	if v, ok := cfg["scale"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			c.Scale = parsed
		}
	}
	if v, ok := cfg["octaves"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 {
			c.Octaves = parsed
		}
	}
	if v, ok := cfg["gain"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.Gain = clamp(parsed, 0, 1)
		}
	}
	if v, ok := cfg["power"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.Power = clamp(parsed, 0, 10)
		}
	}
	if v, ok := cfg["water_threshold"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.WaterThreshold = clamp(parsed, 0, 1)
		}
	}
	if v, ok := cfg["river_count"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.RiverCount = parsed
		}
	}
	if v, ok := cfg["river_length"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.RiverLength = parsed
		}
	}
	return c
}

// ParameterGroup describes the configuration for presentation.
func (c Config) ParameterGroup() core.ParameterGroup {
	return core.ParameterGroup{
		Name: "Terrain",
		Params: []core.Parameter{
			core.IntParam("w", "Width", c.Width),
			core.IntParam("h", "Height", c.Height),
			core.Int64Param("seed", "Seed", c.Seed),
			core.FloatParam("offset_x", "Offset X", c.OffsetX),
			core.FloatParam("offset_y", "Offset Y", c.OffsetY),
			core.FloatParam("scale", "Scale", c.Scale),
			core.IntParam("octaves", "Octaves", c.Octaves),
			core.FloatParam("gain", "Gain", c.Gain),
			core.FloatParam("power", "Power", c.Power),
			core.FloatParam("water_threshold", "Water threshold", c.WaterThreshold),
			core.IntParam("river_count", "Rivers", c.RiverCount),
			core.IntParam("river_length", "River length", c.RiverLength),
		},
		Summary: fmt.Sprintf("%d island curve keys", len(c.IslandCurve)),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
