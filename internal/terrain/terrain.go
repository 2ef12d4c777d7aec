// Package terrain builds fractal heightmaps, shapes them into islands and
// carves rivers by steepest descent.
package terrain

import (
	"math"

	"mapgen/internal/core"
	"mapgen/internal/hashfield"
	"mapgen/internal/noise"
)

// River records one carved river.
type River struct {
	Start core.Point
	Cells int
}

// Result holds the outputs of a terrain run.
type Result struct {
	Height *core.Grid[float64]
	Water  *core.Grid[bool]
	Rivers []River
}

// GenerateHeightmap samples the raw fBM field described by cfg.
func GenerateHeightmap(cfg Config) *core.Grid[float64] {
	s := noise.NewSampler(cfg.Seed)
	return s.GenerateGrid(cfg.Width, cfg.Height, cfg.OffsetX, cfg.OffsetY, cfg.Scale, cfg.Octaves, cfg.Gain)
}

// PowerPass normalises g to [0,1] and raises every cell to exponent. A flat
// grid normalises to zero.
func PowerPass(g *core.Grid[float64], exponent float64) {
	lo, hi := noise.MinMax(g)
	cells := g.Cells()
	if hi == lo {
		for i := range cells {
			cells[i] = 0
		}
		return
	}
	span := hi - lo
	for i, v := range cells {
		cells[i] = math.Pow((v-lo)/span, exponent)
	}
}

// IslandPass scales every cell by curve evaluated at its distance from the
// centre divided by half the shorter side.
func IslandPass(g *core.Grid[float64], curve Curve) {
	if curve == nil || g.W == 0 || g.H == 0 {
		return
	}
	cx := float64(g.W) / 2
	cy := float64(g.H) / 2
	half := float64(min(g.W, g.H)) / 2
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			i := g.Index(x, y)
			g.Cells()[i] *= curve.Evaluate(d / half)
		}
	}
}

// riverDirs is the neighbour order N, S, E, W, NE, NW, SE, SW with north at y-1.
var riverDirs = [8]core.Point{
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 1, Y: -1},
	{X: -1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: 1},
}

// RiverPass walks downhill from (x, y), marking every visited cell as water.
// Each step moves to the lowest in-bounds neighbour that is not yet water,
// the first minimum winning. The walk ends after maxLength cells, when no
// neighbour is left, or once it steps onto a cell at or below threshold. It
// returns the number of cells marked.
func RiverPass(height *core.Grid[float64], water *core.Grid[bool], x, y, maxLength int, threshold float64) int {
	pos := core.Pt(x, y)
	if !height.InBounds(pos.X, pos.Y) || !water.InBounds(pos.X, pos.Y) {
		return 0
	}
	marked := 0
	for i := 0; i < maxLength; i++ {
		water.Set(pos.X, pos.Y, true)
		marked++

		best := math.Inf(1)
		next := pos
		found := false
		for _, d := range riverDirs {
			n := pos.Add(d)
			if !height.InBounds(n.X, n.Y) || !water.InBounds(n.X, n.Y) || water.At(n.X, n.Y) {
				continue
			}
			if h := height.At(n.X, n.Y); h < best || !found {
				best = h
				next = n
				found = true
			}
		}
		if !found {
			break
		}
		pos = next
		if height.At(pos.X, pos.Y) <= threshold {
			break
		}
	}
	return marked
}

// RiverStart derives the start cell of river i. Both coordinates lie in
// [0.1*size, 0.8*size) of their axis.
func RiverStart(seed int64, i, w, h int) core.Point {
	return core.Pt(
		hashfield.IntRange(hashfield.Hash2(seed, i, 0), int(float64(w)*0.1), int(float64(w)*0.8)),
		hashfield.IntRange(hashfield.Hash2(seed, i, 1), int(float64(h)*0.1), int(float64(h)*0.8)),
	)
}

// Generate runs heightmap synthesis, power and island shaping, then carves
// cfg.RiverCount rivers.
func Generate(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	height := GenerateHeightmap(cfg)
	PowerPass(height, cfg.Power)
	IslandPass(height, cfg.IslandCurve)

	water := core.NewGrid[bool](cfg.Width, cfg.Height)
	rivers := make([]River, 0, cfg.RiverCount)
	for i := 0; i < cfg.RiverCount; i++ {
		start := RiverStart(cfg.Seed, i, cfg.Width, cfg.Height)
		n := RiverPass(height, water, start.X, start.Y, cfg.RiverLength, cfg.WaterThreshold)
		rivers = append(rivers, River{Start: start, Cells: n})
	}
	return Result{Height: height, Water: water, Rivers: rivers}, nil
}

// WaterCells counts the cells marked as water.
func WaterCells(water *core.Grid[bool]) int {
	n := 0
	for _, w := range water.Cells() {
		if w {
			n++
		}
	}
	return n
}
