package pipeline

import (
	"fmt"
	"strings"

	"mapgen/internal/features"
	"mapgen/internal/terrain"
	"mapgen/internal/voronoi"
)

// Summary condenses a run into counters suitable for logs and indexes.
type Summary struct {
	Seed          int64          `json:"seed"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	Regions       int            `json:"regions"`
	RawRegions    int            `json:"raw_regions"`
	Biomes        map[string]int `json:"biomes,omitempty"`
	WaterCells    int            `json:"water_cells"`
	Rivers        int            `json:"rivers"`
	TileCells     int            `json:"tile_cells"`
	TilesForced   int            `json:"tiles_forced"`
	TilesFailed   bool           `json:"tiles_failed"`
	Backtracks    int            `json:"backtracks"`
	Features      int            `json:"features"`
	FeatureCounts map[string]int `json:"feature_counts,omitempty"`
}

// Summarize reports the counters of a (possibly partial) run.
func Summarize(a *Artifacts) Summary {
	s := Summary{Seed: a.Seed}
	if a.Regions != nil {
		s.Width, s.Height = a.Regions.W, a.Regions.H
		s.Regions = len(a.RegionSizes)
		s.Biomes = make(map[string]int)
		for _, c := range a.Colors.Cells() {
			s.Biomes[c.String()]++
		}
	}
	if a.RawRegions != nil {
		s.RawRegions = len(voronoi.ComputeRegionSizes(a.RawRegions))
	}
	if a.Water != nil {
		if s.Width == 0 {
			s.Width, s.Height = a.Water.W, a.Water.H
		}
		s.WaterCells = terrain.WaterCells(a.Water)
		s.Rivers = len(a.Rivers)
	}
	if a.Tiles != nil {
		for _, c := range a.Tiles.Cells() {
			if c.Placed {
				s.TileCells++
			}
		}
		s.TilesForced = a.TileForced
		s.TilesFailed = a.TileFailed
		s.Backtracks = a.TileBacktracks
	}
	if len(a.Features) > 0 {
		s.Features = len(a.Features)
		s.FeatureCounts = make(map[string]int)
		for k, n := range features.Counts(a.Features) {
			s.FeatureCounts[k.String()] = n
		}
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "seed=%d size=%dx%d regions=%d/%d", s.Seed, s.Width, s.Height, s.Regions, s.RawRegions)
	fmt.Fprintf(&b, " water=%d rivers=%d", s.WaterCells, s.Rivers)
	fmt.Fprintf(&b, " tiles=%d forced=%d backtracks=%d", s.TileCells, s.TilesForced, s.Backtracks)
	if s.TilesFailed {
		b.WriteString(" FAILED")
	}
	fmt.Fprintf(&b, " features=%d", s.Features)
	return b.String()
}
