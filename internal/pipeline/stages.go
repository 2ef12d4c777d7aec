package pipeline

import (
	"fmt"
	"log"
	"sort"

	"mapgen/internal/core"
	"mapgen/internal/features"
	"mapgen/internal/terrain"
	"mapgen/internal/tiles"
	"mapgen/internal/voronoi"
)

// Stage names.
const (
	StageVoronoi  = "voronoi"
	StageTiles    = "tiles"
	StageTerrain  = "terrain"
	StageFeatures = "features"
)

// Artifacts accumulates the grids produced by the stages of one run.
type Artifacts struct {
	Seed int64

	RawRegions  *core.Grid[int]
	Regions     *core.Grid[int]
	Colors      *core.Grid[voronoi.Color]
	RegionSizes map[int]int
	Centers     []voronoi.Region

	Height *core.Grid[float64]
	Water  *core.Grid[bool]
	Rivers []terrain.River

	TileRules      []tiles.Rule
	Tiles          *core.Grid[tiles.Cell]
	TileFailed     bool
	TileForced     int
	TileBacktracks int

	Features []features.Placement
}

// Clone returns a deep copy of the artifacts.
func (a *Artifacts) Clone() *Artifacts {
	if a == nil {
		return nil
	}
	out := *a
	out.RawRegions = a.RawRegions.Clone()
	out.Regions = a.Regions.Clone()
	out.Colors = a.Colors.Clone()
	if a.RegionSizes != nil {
		out.RegionSizes = make(map[int]int, len(a.RegionSizes))
		for k, v := range a.RegionSizes {
			out.RegionSizes[k] = v
		}
	}
	if a.Centers != nil {
		out.Centers = make([]voronoi.Region, len(a.Centers))
		for i, r := range a.Centers {
			r.Cells = append([]core.Point(nil), r.Cells...)
			out.Centers[i] = r
		}
	}
	out.Height = a.Height.Clone()
	out.Water = a.Water.Clone()
	out.Rivers = append([]terrain.River(nil), a.Rivers...)
	out.TileRules = append([]tiles.Rule(nil), a.TileRules...)
	out.Tiles = a.Tiles.Clone()
	out.Features = append([]features.Placement(nil), a.Features...)
	return &out
}

// Stage runs one generation step, reading and extending art.
type Stage func(cfg Config, logger *log.Logger, art *Artifacts) error

var stages = map[string]Stage{}

// Register adds a stage under the provided name.
func Register(name string, s Stage) {
	if name == "" || s == nil {
		return
	}
	stages[name] = s
}

// Stages lists the registered stage names in sorted order.
func Stages() []string {
	names := make([]string, 0, len(stages))
	for name := range stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(StageVoronoi, runVoronoi)
	Register(StageTiles, runTiles)
	Register(StageTerrain, runTerrain)
	Register(StageFeatures, runFeatures)
}

func runVoronoi(cfg Config, _ *log.Logger, art *Artifacts) error {
	res, err := voronoi.Partition(cfg.Voronoi)
	if err != nil {
		return err
	}
	art.RawRegions = res.Raw
	art.Regions = res.Regions
	art.Colors = res.Colors
	art.RegionSizes = res.Sizes
	art.Centers = voronoi.RegionCenters(res.Regions)
	return nil
}

func runTiles(cfg Config, logger *log.Logger, art *Artifacts) error {
	rs, err := ruleSet(cfg.Tiles.Rules)
	if err != nil {
		return err
	}
	res, err := tiles.Generate(cfg.Tiles, rs.Rules, logger)
	if err != nil {
		return err
	}
	if res.Failed {
		logger.Printf("tiles: generation failed for seed %d, keeping partial grid", cfg.Tiles.Seed)
	}
	art.TileRules = rs.Rules
	art.Tiles = res.Grid
	art.TileFailed = res.Failed
	art.TileForced = res.Forced
	art.TileBacktracks = res.Backtracks
	return nil
}

func ruleSet(path string) (tiles.RuleSet, error) {
	if path == "" {
		return tiles.DefaultRuleSet()
	}
	return tiles.LoadRuleSet(path)
}

func runTerrain(cfg Config, _ *log.Logger, art *Artifacts) error {
	res, err := terrain.Generate(cfg.Terrain)
	if err != nil {
		return err
	}
	art.Height = res.Height
	art.Water = res.Water
	art.Rivers = res.Rivers
	return nil
}

func runFeatures(cfg Config, _ *log.Logger, art *Artifacts) error {
	if art.Regions == nil || art.Colors == nil {
		return fmt.Errorf("features: no region grid")
	}
	ps, err := features.Plan(cfg.Features, art.Centers, art.Colors, art.Water)
	if err != nil {
		return err
	}
	art.Features = ps
	return nil
}
