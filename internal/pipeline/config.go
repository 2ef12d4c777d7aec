package pipeline

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mapgen/internal/core"
	"mapgen/internal/features"
	"mapgen/internal/terrain"
	"mapgen/internal/tiles"
	"mapgen/internal/voronoi"
)

// ErrInvalidConfig marks pipeline configuration errors.
var ErrInvalidConfig = errors.New("pipeline: invalid config")

// SeedOffsets shifts the base seed per stage so stages draw independent
// streams from one seed.
type SeedOffsets struct {
	Terrain  int64 `yaml:"terrain"`
	Tiles    int64 `yaml:"tiles"`
	Features int64 `yaml:"features"`
}

// Config describes one map: base seed, map size, stage order and the
// settings of every stage.
type Config struct {
	Seed        int64       `yaml:"seed"`
	Width       int         `yaml:"width"`
	Height      int         `yaml:"height"`
	Stages      []string    `yaml:"stages"`
	SeedOffsets SeedOffsets `yaml:"seed_offsets"`

	Voronoi  voronoi.Config  `yaml:"voronoi"`
	Terrain  terrain.Config  `yaml:"terrain"`
	Tiles    tiles.Config    `yaml:"tiles"`
	Features features.Config `yaml:"features"`
}

// DefaultStages is the fixed generation order.
var DefaultStages = []string{StageVoronoi, StageTiles, StageTerrain, StageFeatures}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	cfg := Config{
		Seed:        42,
		Width:       256,
		Height:      256,
		Stages:      append([]string(nil), DefaultStages...),
		SeedOffsets: SeedOffsets{Terrain: 1, Tiles: 2, Features: 3},
		Voronoi:     voronoi.DefaultConfig(),
		Terrain:     terrain.DefaultConfig(),
		Tiles:       tiles.DefaultConfig(),
		Features:    features.DefaultConfig(),
	}
	cfg.Normalize()
	return cfg
}

// Load reads a pipeline file over the defaults. An empty path yields the
// defaults. Relative rule set paths resolve against the file's directory.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if r := cfg.Tiles.Rules; r != "" && !filepath.IsAbs(r) {
		cfg.Tiles.Rules = filepath.Join(filepath.Dir(path), r)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Normalize canonicalises stage names and pushes the shared size and seeds
// into the stage sections.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if len(c.Stages) == 0 {
		c.Stages = append([]string(nil), DefaultStages...)
	}
	for i, s := range c.Stages {
		c.Stages[i] = strings.ToLower(strings.TrimSpace(s))
	}
	c.Voronoi.Width, c.Voronoi.Height = c.Width, c.Height
	c.Voronoi.Seed = int32(c.Seed)
	c.Terrain.Width, c.Terrain.Height = c.Width, c.Height
	c.Terrain.Seed = c.Seed + c.SeedOffsets.Terrain
	c.Tiles.Seed = c.Seed + c.SeedOffsets.Tiles
	c.Features.Seed = c.Seed + c.SeedOffsets.Features
}

// Validate checks the stage list and every section it uses.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	seen := map[string]bool{}
	for _, s := range c.Stages {
		if _, ok := stages[s]; !ok {
			return fmt.Errorf("%w: unknown stage %q", ErrInvalidConfig, s)
		}
		if seen[s] {
			return fmt.Errorf("%w: stage %q listed twice", ErrInvalidConfig, s)
		}
		if s == StageFeatures && !seen[StageVoronoi] {
			return fmt.Errorf("%w: stage %q needs %q before it", ErrInvalidConfig, s, StageVoronoi)
		}
		seen[s] = true
	}
	if seen[StageVoronoi] {
		if err := c.Voronoi.Validate(); err != nil {
			return err
		}
	}
	if seen[StageTerrain] {
		if err := c.Terrain.Validate(); err != nil {
			return err
		}
	}
	if seen[StageTiles] {
		if err := c.Tiles.Validate(); err != nil {
			return err
		}
	}
	if seen[StageFeatures] {
		if err := c.Features.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether the stage list contains name.
func (c Config) Has(name string) bool {
	for _, s := range c.Stages {
		if s == name {
			return true
		}
	}
	return false
}

// Parameters captures every stage section for presentation.
func (c Config) Parameters() core.ParameterSnapshot {
	general := core.ParameterGroup{
		Name: "Map",
		Params: []core.Parameter{
			core.Int64Param("seed", "Seed", c.Seed),
			core.IntParam("w", "Width", c.Width),
			core.IntParam("h", "Height", c.Height),
		},
		Summary: strings.Join(c.Stages, " → "),
	}
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		general,
		c.Voronoi.ParameterGroup(),
		c.Tiles.ParameterGroup(),
		c.Terrain.ParameterGroup(),
		c.Features.ParameterGroup(),
	}}
}

// Overrides carries command-line values applied on top of a loaded file.
// Only flags that were set on the command line take effect.
type Overrides struct {
	ConfigPath string
	Seed       int64
	Width      int
	Height     int
	Rules      string

	fs *flag.FlagSet
}

// Bind attaches the overrides to the provided FlagSet.
func (o *Overrides) Bind(fs *flag.FlagSet) {
	o.fs = fs
	fs.StringVar(&o.ConfigPath, "config", o.ConfigPath, "pipeline YAML file (defaults when empty)")
	fs.Int64Var(&o.Seed, "seed", o.Seed, "base seed")
	fs.IntVar(&o.Width, "w", o.Width, "map width in cells")
	fs.IntVar(&o.Height, "h", o.Height, "map height in cells")
	fs.StringVar(&o.Rules, "rules", o.Rules, "tile rule set YAML file (built-in when empty)")
}

// Load reads the configured file and applies the overrides that were set.
func (o *Overrides) Load() (Config, error) {
	cfg, err := Load(o.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if o.fs != nil {
		o.fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "seed":
				cfg.Seed = o.Seed
			case "w":
				cfg.Width = o.Width
			case "h":
				cfg.Height = o.Height
			case "rules":
				cfg.Tiles.Rules = o.Rules
			}
		})
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WithSeed returns a copy of c reseeded to seed.
func (c Config) WithSeed(seed int64) Config {
	c.Seed = seed
	c.Stages = append([]string(nil), c.Stages...)
	c.Normalize()
	return c
}
