package voronoi

import (
	"slices"

	"mapgen/internal/core"
)

// Region summarises one region of a merged grid.
type Region struct {
	Index  int
	Size   int
	Center core.Point
	Cells  []core.Point
}

// RegionCenters groups the cells of g by region index and reports the mean
// cell position of each. Regions are ordered by index; cells keep row-major
// order.
func RegionCenters(g *core.Grid[int]) []Region {
	byIndex := make(map[int]*Region)
	var order []int
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			idx := g.At(x, y)
			r, ok := byIndex[idx]
			if !ok {
				r = &Region{Index: idx}
				byIndex[idx] = r
				order = append(order, idx)
			}
			r.Cells = append(r.Cells, core.Pt(x, y))
		}
	}
	slices.Sort(order)
	out := make([]Region, 0, len(order))
	for _, idx := range order {
		r := byIndex[idx]
		var sx, sy int
		for _, c := range r.Cells {
			sx += c.X
			sy += c.Y
		}
		r.Size = len(r.Cells)
		r.Center = core.Pt(sx/r.Size, sy/r.Size)
		out = append(out, *r)
	}
	return out
}
