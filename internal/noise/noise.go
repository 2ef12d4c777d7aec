// Package noise provides coherent Perlin noise and fractal Brownian motion
// accumulation over it.
package noise

import (
	"math"

	perlin "github.com/aquilax/go-perlin"

	"mapgen/internal/core"
)

const (
	perlinAlpha = 2
	perlinBeta  = 2
)

// Sampler evaluates seeded single-octave Perlin noise.
type Sampler struct {
	p    *perlin.Perlin
	seed int64
}

// NewSampler returns a sampler whose permutation table is derived from seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{p: perlin.NewPerlin(perlinAlpha, perlinBeta, 1, seed), seed: seed}
}

// Seed reports the seed the sampler was built with.
func (s *Sampler) Seed() int64 { return s.seed }

// SampleNoise returns single-octave noise at (x, y) remapped into [0, 1].
// Raw 2D Perlin output lies within ±√2/2.
func (s *Sampler) SampleNoise(x, y float64) float64 {
	v := 0.5 + s.p.Noise2D(x, y)*math.Sqrt2/2
	return clamp01(v)
}

// SampleFBM sums octaves of noise starting at amplitude 0.5 and frequency 1,
// doubling the frequency and scaling the amplitude by gain each octave. The
// result is not normalised.
func (s *Sampler) SampleFBM(x, y float64, octaves int, gain float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	gain = clamp01(gain)
	f := 1.0
	a := 0.5
	t := 0.0
	for i := 0; i < octaves; i++ {
		t += a * s.SampleNoise(f*x, f*y)
		f *= 2
		a *= gain
	}
	return t
}

// GenerateGrid samples fBM for every cell of a w×h grid at
// (offsetX + x/w*scale, offsetY + y/h*scale).
func (s *Sampler) GenerateGrid(w, h int, offsetX, offsetY, scale float64, octaves int, gain float64) *core.Grid[float64] {
	g := core.NewGrid[float64](w, h)
	if g.W == 0 || g.H == 0 {
		return g
	}
	cells := g.Cells()
	for y := 0; y < g.H; y++ {
		yc := offsetY + float64(y)/float64(g.H)*scale
		for x := 0; x < g.W; x++ {
			xc := offsetX + float64(x)/float64(g.W)*scale
			cells[y*g.W+x] = s.SampleFBM(xc, yc, octaves, gain)
		}
	}
	return g
}

// MinMax returns the smallest and largest values of the grid.
func MinMax(g *core.Grid[float64]) (float64, float64) {
	cells := g.Cells()
	if len(cells) == 0 {
		return 0, 0
	}
	lo, hi := cells[0], cells[0]
	for _, v := range cells[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
