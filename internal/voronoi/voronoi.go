// Package voronoi partitions a grid into regions using a hierarchical
// multi-resolution Voronoi lookup, merges regions that are too small into
// their larger neighbours and classifies every cell into a biome color.
package voronoi

import (
	"fmt"
	"math"

	"mapgen/internal/core"
	"mapgen/internal/hashfield"
)

const (
	// MergeSearchRadius bounds the ring search for a larger neighbour.
	MergeSearchRadius = 10
	// MergeTargetMinSize is the smallest region a small region may merge into.
	MergeTargetMinSize = 20
)

// BuildRegionGrid resolves the region index of every cell. At each level but
// the last the query point moves to the nearest root position; the last level
// yields the nearest root index.
func BuildRegionGrid(w, h int, seed int32, levels []int) (*core.Grid[int], error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, w, h)
	}
	if err := validateLevels(levels); err != nil {
		return nil, err
	}
	g := core.NewGrid[int](w, h)
	cells := g.Cells()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cells[y*w+x] = regionAt(core.Pt(x, y), seed, levels)
		}
	}
	return g, nil
}

func regionAt(q core.Point, seed int32, levels []int) int {
	last := len(levels) - 1
	for level := 0; level < last; level++ {
		_, q = closestRoot(level, levels[level], q, seed)
	}
	index, _ := closestRoot(last, levels[last], q, seed)
	return index
}

// closestRoot scans the 3×3 cell neighbourhood around q. The first strict
// minimum wins; x offset is the outer loop.
func closestRoot(level, unit int, q core.Point, seed int32) (int, core.Point) {
	cx, cy := q.X>>unit, q.Y>>unit
	best := math.MaxInt
	var index int
	var pos core.Point
	for i := -1; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			idx, p := hashfield.CellRoot(level, unit, cx+i, cy+j, seed)
			if d := p.DistSq(q); d < best {
				best = d
				index = idx
				pos = p
			}
		}
	}
	return index, pos
}

// ComputeRegionSizes counts the cells of every region index.
func ComputeRegionSizes(g *core.Grid[int]) map[int]int {
	sizes := make(map[int]int)
	for _, idx := range g.Cells() {
		sizes[idx]++
	}
	return sizes
}

// MergeSmallRegions folds every region smaller than minSize into the first
// region of at least MergeTargetMinSize cells found by an expanding ring
// search around one of its cells. Regions merge as a whole, and a region that
// has absorbed others carries them along when it merges in turn. Passes repeat
// until no merge happens, so a region left below minSize has no qualifying
// neighbour within MergeSearchRadius of any of its cells. The input grid is
// not modified.
func MergeSmallRegions(g *core.Grid[int], sizes map[int]int, minSize int) *core.Grid[int] {
	merged := g.Clone()
	if g == nil || g.W == 0 || g.H == 0 {
		return merged
	}
	m := newMerger(sizes)
	edge := boundaryCells(g)
	for changed := true; changed; {
		changed = false
		for _, p := range edge {
			own := m.find(g.At(p.X, p.Y))
			if m.size[own] >= minSize {
				continue
			}
			if target, ok := m.search(g, p.X, p.Y, own); ok {
				m.union(own, target)
				changed = true
			}
		}
	}
	cells := merged.Cells()
	for i, idx := range cells {
		cells[i] = m.find(idx)
	}
	return merged
}

// boundaryCells lists, x outer, the cells with a differently indexed cell
// among their 8 neighbours. A foreign cell within the search radius of a
// region is always within that radius of one of the region's boundary cells.
func boundaryCells(g *core.Grid[int]) []core.Point {
	var out []core.Point
	for x := 0; x < g.W; x++ {
		for y := 0; y < g.H; y++ {
			idx := g.At(x, y)
		scan:
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					if g.InBounds(x+dx, y+dy) && g.At(x+dx, y+dy) != idx {
						out = append(out, core.Pt(x, y))
						break scan
					}
				}
			}
		}
	}
	return out
}

// merger tracks which region every original index has been folded into.
type merger struct {
	parent map[int]int
	size   map[int]int
}

func newMerger(sizes map[int]int) *merger {
	m := &merger{parent: make(map[int]int, len(sizes)), size: make(map[int]int, len(sizes))}
	for idx, n := range sizes {
		m.size[idx] = n
	}
	return m
}

func (m *merger) find(idx int) int {
	root := idx
	for {
		p, ok := m.parent[root]
		if !ok {
			break
		}
		root = p
	}
	for idx != root {
		next := m.parent[idx]
		m.parent[idx] = root
		idx = next
	}
	return root
}

// union folds region from into region into. Both must be roots.
func (m *merger) union(from, into int) {
	m.parent[from] = into
	m.size[into] += m.size[from]
	delete(m.size, from)
}

// search walks rings of growing radius around (x, y) and returns the first
// region other than own with at least MergeTargetMinSize cells. Within a
// ring the x offset is the outer loop.
func (m *merger) search(g *core.Grid[int], x, y, own int) (int, bool) {
	for r := 1; r <= MergeSearchRadius; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				nx, ny := x+dx, y+dy
				if !g.InBounds(nx, ny) {
					continue
				}
				idx := m.find(g.At(nx, ny))
				if idx != own && m.size[idx] >= MergeTargetMinSize {
					return idx, true
				}
			}
		}
	}
	return own, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Result bundles the outputs of a partition run.
type Result struct {
	Regions *core.Grid[int]
	Colors  *core.Grid[Color]
	Sizes   map[int]int
	// Raw holds the region grid before merging.
	Raw *core.Grid[int]
}

// Partition builds, merges and classifies a region grid.
func Partition(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	raw, err := BuildRegionGrid(cfg.Width, cfg.Height, cfg.Seed, cfg.Levels)
	if err != nil {
		return Result{}, err
	}
	merged := MergeSmallRegions(raw, ComputeRegionSizes(raw), cfg.MinRegionSize())
	colors := core.NewGrid[Color](cfg.Width, cfg.Height)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			colors.Set(x, y, ClassifyColor(merged.At(x, y), x, y, cfg.Width, cfg.Height, cfg.Probabilities, cfg.BorderRatio))
		}
	}
	return Result{
		Regions: merged,
		Colors:  colors,
		Sizes:   ComputeRegionSizes(merged),
		Raw:     raw,
	}, nil
}
