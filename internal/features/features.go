// Package features plans where settlements, farms and mountains sit on a
// partitioned map.
package features

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"mapgen/internal/core"
	"mapgen/internal/voronoi"
)

// ErrInvalidConfig marks configuration errors that prevent planning.
var ErrInvalidConfig = errors.New("features: invalid config")

// Kind is the type of feature placed in a region.
type Kind uint8

const (
	None Kind = iota
	Village
	Farm
	Mountain
)

func (k Kind) String() string {
	switch k {
	case Village:
		return "village"
	case Farm:
		return "farm"
	case Mountain:
		return "mountain"
	default:
		return "none"
	}
}

// KindFor maps a biome color to the feature it hosts.
func KindFor(c voronoi.Color) Kind {
	switch c {
	case voronoi.Settlement:
		return Village
	case voronoi.Farmland:
		return Farm
	case voronoi.Highland:
		return Mountain
	default:
		return None
	}
}

// Placement is one planned feature.
type Placement struct {
	Kind   Kind
	Region int
	Pos    core.Point
}

// Config controls feature density and spacing.
type Config struct {
	Seed         int64   `yaml:"-"`
	MaxPerRegion int     `yaml:"max_per_region"`
	MaxAttempts  int     `yaml:"max_attempts"`
	Spacing      float64 `yaml:"spacing"`
	AvoidWater   bool    `yaml:"avoid_water"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		MaxPerRegion: 5,
		MaxAttempts:  10,
		Spacing:      3,
		AvoidWater:   true,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxPerRegion < 1 {
		return fmt.Errorf("%w: max per region %d", ErrInvalidConfig, c.MaxPerRegion)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.Spacing < 0 {
		return fmt.Errorf("%w: spacing %v", ErrInvalidConfig, c.Spacing)
	}
	return nil
}

// FromMap populates the config from a string map (flag-style key/value pairs).
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	if v, ok := cfg["max_per_region"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 {
			c.MaxPerRegion = parsed
		}
	}
	if v, ok := cfg["max_attempts"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 {
			c.MaxAttempts = parsed
		}
	}
	if v, ok := cfg["spacing"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			c.Spacing = parsed
		}
	}
	if v, ok := cfg["avoid_water"]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.AvoidWater = parsed
		}
	}
	return c
}

// ParameterGroup describes the configuration for presentation.
func (c Config) ParameterGroup() core.ParameterGroup {
	return core.ParameterGroup{
		Name: "Features",
		Params: []core.Parameter{
			core.Int64Param("seed", "Seed", c.Seed),
			core.IntParam("max_per_region", "Max per region", c.MaxPerRegion),
			core.IntParam("max_attempts", "Max attempts", c.MaxAttempts),
			core.FloatParam("spacing", "Spacing", c.Spacing),
			core.BoolParam("avoid_water", "Avoid water", c.AvoidWater),
		},
	}
}

// Plan picks feature sites for every region. The color under a region's
// centre decides the kind; the count is a Gaussian draw in
// [1, MaxPerRegion]. Each site is drawn from the region's cells with up to
// MaxAttempts tries and must keep Spacing from every accepted site. Water
// is consulted only when it has the same dimensions as colors.
func Plan(cfg Config, regions []voronoi.Region, colors *core.Grid[voronoi.Color], water *core.Grid[bool]) ([]Placement, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if colors == nil {
		return nil, fmt.Errorf("%w: no color grid", ErrInvalidConfig)
	}
	useWater := cfg.AvoidWater && water != nil && water.W == colors.W && water.H == colors.H
	rng := core.NewRNG(cfg.Seed)
	var out []Placement
	for _, r := range regions {
		if len(r.Cells) == 0 || !colors.InBounds(r.Center.X, r.Center.Y) {
			continue
		}
		kind := KindFor(colors.At(r.Center.X, r.Center.Y))
		if kind == None {
			continue
		}
		count := int(math.Round(rng.GaussianRange(1, float64(cfg.MaxPerRegion))))
		for i := 0; i < count; i++ {
			pos, ok := pickSite(rng, cfg, r.Cells, out, water, useWater)
			if !ok {
				continue
			}
			out = append(out, Placement{Kind: kind, Region: r.Index, Pos: pos})
		}
	}
	return out, nil
}

func pickSite(rng *core.RNG, cfg Config, cells []core.Point, taken []Placement, water *core.Grid[bool], useWater bool) (core.Point, bool) {
	last := float64(len(cells) - 1)
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		p := cells[int(math.Round(rng.GaussianRange(0, last)))]
		if useWater && water.At(p.X, p.Y) {
			continue
		}
		if spaced(p, taken, cfg.Spacing) {
			return p, true
		}
	}
	return core.Point{}, false
}

func spaced(p core.Point, taken []Placement, spacing float64) bool {
	limit := spacing * spacing
	for _, t := range taken {
		if float64(p.DistSq(t.Pos)) < limit {
			return false
		}
	}
	return true
}

// Counts tallies placements per kind.
func Counts(ps []Placement) map[Kind]int {
	out := make(map[Kind]int)
	for _, p := range ps {
		out[p.Kind]++
	}
	return out
}
