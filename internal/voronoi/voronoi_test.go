package voronoi

import (
	"errors"
	"slices"
	"testing"

	"mapgen/internal/core"
)

func TestBuildRegionGridDeterministic(t *testing.T) {
	levels := []int{4, 3, 2}
	a, err := BuildRegionGrid(64, 64, 42, levels)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := BuildRegionGrid(64, 64, 42, levels)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !core.EqualGrids(a, b) {
		t.Fatal("identical arguments produced different grids")
	}
	k := a.At(0, 0)
	if k < 0 || k >= 256 {
		t.Fatalf("region index %d outside [0,256)", k)
	}
	for _, idx := range a.Cells() {
		if idx < 0 || idx >= 256 {
			t.Fatalf("region index %d outside [0,256)", idx)
		}
	}
	if _, err := BuildRegionGrid(64, 64, 43, levels); err != nil {
		t.Fatalf("build seed 43: %v", err)
	}
}

func TestBuildRegionGridProducesSeveralRegions(t *testing.T) {
	g, err := BuildRegionGrid(64, 64, 42, []int{4, 3, 2})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if n := len(ComputeRegionSizes(g)); n < 4 {
		t.Fatalf("expected several regions on a 64x64 grid, got %d", n)
	}
}

func TestBuildRegionGridRejectsDegenerateInput(t *testing.T) {
	cases := []struct {
		name   string
		w, h   int
		levels []int
	}{
		{"zero width", 0, 8, []int{2}},
		{"zero height", 8, 0, []int{2}},
		{"no levels", 8, 8, nil},
		{"negative level", 8, 8, []int{-1}},
		{"level too coarse", 8, 8, []int{9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildRegionGrid(tc.w, tc.h, 1, tc.levels); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestComputeRegionSizes(t *testing.T) {
	g := core.GridFrom(3, 2, []int{1, 1, 2, 3, 3, 3})
	sizes := ComputeRegionSizes(g)
	if sizes[1] != 2 || sizes[2] != 1 || sizes[3] != 3 || len(sizes) != 3 {
		t.Fatalf("unexpected sizes %v", sizes)
	}
}

func filledGrid(w, h, v int) *core.Grid[int] {
	g := core.NewGrid[int](w, h)
	g.Fill(v)
	return g
}

func TestMergeSmallRegionsAbsorbsPatch(t *testing.T) {
	g := filledGrid(10, 10, 1)
	for _, p := range []core.Point{core.Pt(0, 0), core.Pt(1, 0), core.Pt(0, 1), core.Pt(1, 1), core.Pt(9, 9)} {
		g.Set(p.X, p.Y, 2)
	}
	before := g.Clone()
	merged := MergeSmallRegions(g, ComputeRegionSizes(g), 10)
	for i, v := range merged.Cells() {
		if v != 1 {
			t.Fatalf("cell %d kept index %d after merge", i, v)
		}
	}
	if !core.EqualGrids(g, before) {
		t.Fatal("merge modified its input grid")
	}
}

func TestMergeSmallRegionsAdjacentSmallPatches(t *testing.T) {
	g := filledGrid(10, 10, 1)
	g.Set(0, 0, 2)
	g.Set(1, 0, 3)
	merged := MergeSmallRegions(g, ComputeRegionSizes(g), 10)
	if merged.At(0, 0) != 1 || merged.At(1, 0) != 1 {
		t.Fatalf("adjacent small regions not merged: %d %d", merged.At(0, 0), merged.At(1, 0))
	}
}

func TestMergeSmallRegionsWithoutTargetIsNoop(t *testing.T) {
	g := core.GridFrom(3, 3, []int{0, 1, 2, 3, 4, 5, 6, 7, 8})
	merged := MergeSmallRegions(g, ComputeRegionSizes(g), 5)
	if !core.EqualGrids(g, merged) {
		t.Fatalf("expected unchanged grid, got %v", merged.Cells())
	}
}

// smallWithTarget returns a region below minSize that still has a different
// region of at least MergeTargetMinSize cells within the search radius.
func smallWithTarget(g *core.Grid[int], minSize int) (int, bool) {
	sizes := ComputeRegionSizes(g)
	for x := 0; x < g.W; x++ {
		for y := 0; y < g.H; y++ {
			own := g.At(x, y)
			if sizes[own] >= minSize {
				continue
			}
			for dx := -MergeSearchRadius; dx <= MergeSearchRadius; dx++ {
				for dy := -MergeSearchRadius; dy <= MergeSearchRadius; dy++ {
					if !g.InBounds(x+dx, y+dy) {
						continue
					}
					if idx := g.At(x+dx, y+dy); idx != own && sizes[idx] >= MergeTargetMinSize {
						return own, true
					}
				}
			}
		}
	}
	return 0, false
}

func TestMergeSmallRegionsPostCondition(t *testing.T) {
	for _, seed := range []int32{42, 7, -3} {
		cfg := DefaultConfig()
		cfg.Seed = seed
		res, err := Partition(cfg)
		if err != nil {
			t.Fatalf("seed %d: partition: %v", seed, err)
		}
		if idx, ok := smallWithTarget(res.Regions, cfg.MinRegionSize()); ok {
			t.Fatalf("seed %d: region %d of size %d survived next to a merge target",
				seed, idx, res.Sizes[idx])
		}
		raw := ComputeRegionSizes(res.Raw)
		for idx := range res.Sizes {
			if _, ok := raw[idx]; !ok {
				t.Fatalf("seed %d: merged grid holds unknown index %d", seed, idx)
			}
		}
	}
}

func TestMergeSmallRegionsFollowsChains(t *testing.T) {
	// Column 0 is region 3 (small), columns 1-5 region 2 (small but a
	// target), the rest region 1.
	g := filledGrid(40, 10, 1)
	for y := 0; y < 10; y++ {
		g.Set(0, y, 3)
		for x := 1; x < 6; x++ {
			g.Set(x, y, 2)
		}
	}
	merged := MergeSmallRegions(g, ComputeRegionSizes(g), 100)
	for i, v := range merged.Cells() {
		if v != 1 {
			t.Fatalf("cell %d ended in region %d, want 1", i, v)
		}
	}
}

func TestMergeSmallRegionsIgnoresOwnCells(t *testing.T) {
	// Region 2 is large enough to be a target but below minSize; its own
	// cells must not count as a neighbour.
	g := filledGrid(30, 30, 1)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			g.Set(x, y, 2)
		}
	}
	merged := MergeSmallRegions(g, ComputeRegionSizes(g), 50)
	if got := ComputeRegionSizes(merged); len(got) != 1 || got[1] != 900 {
		t.Fatalf("unexpected sizes after merge: %v", got)
	}
}

func TestClassifyColorBorderSuppressesFarmland(t *testing.T) {
	only := Probabilities{Yellow: 1}
	if c := ClassifyColor(4, 0, 0, 10, 10, only, 0.1); c != Unclassified {
		t.Fatalf("border cell with only farmland weight = %v, want unclassified", c)
	}
	if c := ClassifyColor(4, 5, 5, 10, 10, only, 0.1); c != Farmland {
		t.Fatalf("interior cell = %v, want farmland", c)
	}
}

func TestClassifyColorDrawsFromIndex(t *testing.T) {
	p := Probabilities{Red: 0.5, Gray: 0.5}
	for _, tc := range []struct {
		index int
		want  Color
	}{
		{0, Settlement},
		{3, Settlement},
		{13, Settlement},
		{5, Highland},
		{9, Highland},
		{-3, Highland},
	} {
		if got := ClassifyColor(tc.index, 0, 0, 10, 10, p, 0.1); got != tc.want {
			t.Fatalf("index %d: got %v want %v", tc.index, got, tc.want)
		}
	}
}

func TestClassifyColorCenterBoostsFarmland(t *testing.T) {
	p := Probabilities{Red: 0.2, Yellow: 0.2, Gray: 0.2}
	// Unboosted the farmland threshold is 0.4/0.6; at the centre it is 0.7/0.9.
	if c := ClassifyColor(7, 32, 32, 64, 64, p, 0.1); c != Farmland {
		t.Fatalf("centre cell = %v, want farmland", c)
	}
	if c := ClassifyColor(8, 32, 32, 64, 64, p, 0.1); c != Highland {
		t.Fatalf("centre cell draw 0.8 = %v, want highland", c)
	}
}

func TestPartitionDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height, cfg.Seed = 64, 64, 42
	res, err := Partition(cfg)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	total := 0
	for _, n := range res.Sizes {
		total += n
	}
	if total != 64*64 {
		t.Fatalf("sizes sum to %d", total)
	}
	raw, _ := BuildRegionGrid(64, 64, 42, cfg.Levels)
	if !core.EqualGrids(raw, res.Raw) {
		t.Fatal("raw grid differs from BuildRegionGrid")
	}
	for i, idx := range res.Regions.Cells() {
		x, y := i%64, i/64
		want := ClassifyColor(idx, x, y, 64, 64, cfg.Probabilities, cfg.BorderRatio)
		if res.Colors.Cells()[i] != want {
			t.Fatalf("color mismatch at (%d,%d)", x, y)
		}
	}
	again, _ := Partition(cfg)
	if !core.EqualGrids(res.Regions, again.Regions) || !core.EqualGrids(res.Colors, again.Colors) {
		t.Fatal("partition not deterministic")
	}
}

func TestRegionCenters(t *testing.T) {
	g := core.GridFrom(4, 2, []int{
		5, 5, 2, 2,
		5, 5, 2, 2,
	})
	regions := RegionCenters(g)
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}
	if regions[0].Index != 2 || regions[0].Size != 4 || regions[0].Center != core.Pt(2, 0) {
		t.Fatalf("unexpected first region %+v", regions[0])
	}
	if regions[1].Index != 5 || regions[1].Center != core.Pt(0, 0) {
		t.Fatalf("unexpected second region %+v", regions[1])
	}
	want := []core.Point{core.Pt(2, 0), core.Pt(3, 0), core.Pt(2, 1), core.Pt(3, 1)}
	if !slices.Equal(regions[0].Cells, want) {
		t.Fatalf("cells = %v, want %v", regions[0].Cells, want)
	}
}

func TestFromMap(t *testing.T) {
	c := FromMap(map[string]string{
		"w":            "32",
		"seed":         "-5",
		"levels":       "5,4",
		"border_ratio": "0.9",
		"red":          "nope",
	})
	if c.Width != 32 || c.Height != 256 || c.Seed != -5 {
		t.Fatalf("unexpected config %+v", c)
	}
	if !slices.Equal(c.Levels, []int{5, 4}) {
		t.Fatalf("levels = %v", c.Levels)
	}
	if c.BorderRatio != 0.1 || c.Probabilities.Red != 0.2 {
		t.Fatalf("invalid values should be ignored: %+v", c)
	}
	if bad := FromMap(map[string]string{"levels": "12"}); !slices.Equal(bad.Levels, []int{4, 3, 2}) {
		t.Fatalf("out of range levels accepted: %v", bad.Levels)
	}
	if p, ok := (core.ParameterSnapshot{Groups: []core.ParameterGroup{c.ParameterGroup()}}).Lookup("Voronoi", "levels"); !ok || p.Value != "5,4" {
		t.Fatalf("levels parameter = %+v", p)
	}
}
