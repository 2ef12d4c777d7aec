package app

import (
	"flag"
	"time"

	"mapgen/internal/pipeline"
	"mapgen/internal/render"
)

// Config represents the command-line parameters of the viewer.
type Config struct {
	Scale    int
	TPS      int
	Step     time.Duration
	Layer    string
	HUDWidth int
	Pipeline pipeline.Overrides
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{Scale: 3, TPS: 60, Step: 400 * time.Millisecond, Layer: render.LayerBiomes.String(), HUDWidth: 240}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.DurationVar(&c.Step, "step", c.Step, "delay between pipeline stages")
	fs.StringVar(&c.Layer, "layer", c.Layer, "initial layer (biomes, regions, terrain, tiles)")
	fs.IntVar(&c.HUDWidth, "hud", c.HUDWidth, "parameter panel width in pixels (0 hides it)")
	c.Pipeline.Bind(fs)
}

// Validate normalizes out-of-range values and resolves the initial layer.
func (c *Config) Validate() (render.Layer, error) {
	if c.Scale < 1 {
		c.Scale = 1
	}
	if c.TPS < 1 {
		c.TPS = 1
	}
	if c.HUDWidth < 0 {
		c.HUDWidth = 0
	}
	return render.ParseLayer(c.Layer)
}
