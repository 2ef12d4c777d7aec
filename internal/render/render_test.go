package render

import (
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mapgen/internal/core"
	"mapgen/internal/features"
	"mapgen/internal/pipeline"
	"mapgen/internal/tiles"
	"mapgen/internal/voronoi"
)

func TestFillPaletteClampsAndClears(t *testing.T) {
	buf := make([]byte, 8)
	pal := []color.RGBA{{R: 1, A: 255}, {G: 2, A: 255}}
	fillPaletteRGBA(buf, []uint8{0, 9}, pal)
	if buf[0] != 1 || buf[5] != 2 {
		t.Fatalf("unexpected pixels %v", buf)
	}
	fillPaletteRGBA(buf, []uint8{0, 1}, nil)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d not cleared", i)
		}
	}
}

func TestRampEndpointsAndMidpoint(t *testing.T) {
	ramp := []Stop{{At: 0, Color: color.RGBA{A: 255}}, {At: 1, Color: color.RGBA{R: 200, A: 255}}}
	if c := rampAt(ramp, -1); c.R != 0 {
		t.Fatalf("below range = %v", c)
	}
	if c := rampAt(ramp, 2); c.R != 200 {
		t.Fatalf("above range = %v", c)
	}
	if c := rampAt(ramp, 0.5); c.R != 100 {
		t.Fatalf("midpoint = %v", c)
	}
}

func TestBiomeImageUsesPalette(t *testing.T) {
	g := core.NewGrid[voronoi.Color](2, 1)
	g.Set(0, 0, voronoi.Farmland)
	g.Set(1, 0, voronoi.Highland)
	img := BiomeImage(g, nil)
	if img.RGBAAt(0, 0) != BiomePalette[voronoi.Farmland] || img.RGBAAt(1, 0) != BiomePalette[voronoi.Highland] {
		t.Fatal("biome pixels do not follow the palette")
	}

	regions := core.GridFrom(2, 1, []int{1, 2})
	img = BiomeImage(g, regions)
	if img.RGBAAt(0, 0) == BiomePalette[voronoi.Farmland] {
		t.Fatal("region border should be darkened")
	}
	if img.RGBAAt(1, 0) != BiomePalette[voronoi.Highland] {
		t.Fatal("interior cell should keep its colour")
	}
}

func TestTerrainImageWaterAndSea(t *testing.T) {
	h := core.GridFrom(3, 1, []float64{0.01, 0.5, 0.9})
	w := core.GridFrom(3, 1, []bool{false, true, false})
	img := TerrainImage(h, w, 0.05)
	if img.RGBAAt(0, 0) != SeaColor {
		t.Fatalf("sea pixel = %v", img.RGBAAt(0, 0))
	}
	if img.RGBAAt(1, 0) != WaterColor {
		t.Fatalf("water pixel = %v", img.RGBAAt(1, 0))
	}
	if img.RGBAAt(2, 0) == WaterColor || img.RGBAAt(2, 0) == SeaColor {
		t.Fatal("land pixel painted as water")
	}
}

func TestTileImageEdgesAndForcedMark(t *testing.T) {
	rules := []tiles.Rule{{Name: "a", Weight: 1, Top: tiles.Signature{"x"}, Right: tiles.Signature{"y"}, Bottom: tiles.Signature{"x"}, Left: tiles.Signature{"y"}}}
	g := core.NewGrid[tiles.Cell](2, 1)
	g.Set(0, 0, tiles.Cell{Rule: 0, Placed: true})
	g.Set(1, 0, tiles.Cell{Rule: 0, Rotation: 90, Placed: true, Forced: true})
	img := TileImage(g, rules, 8)
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if img.RGBAAt(4, 0) != hashColor("x") {
		t.Fatal("top strip of the first tile should carry label x")
	}
	// A quarter turn brings the left signature to the top.
	if img.RGBAAt(12, 0) != hashColor("y") {
		t.Fatal("rotated tile should show label y on top")
	}
	if img.RGBAAt(12, 4) != ForcedColor {
		t.Fatal("forced tile lacks its centre mark")
	}
}

func TestScaleAndWritePNG(t *testing.T) {
	g := core.GridFrom(2, 2, []int{0, 1, 2, 3})
	img := Scale(RegionImage(g), 3)
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 6 {
		t.Fatalf("scaled bounds = %v", img.Bounds())
	}
	MarkFeatures(img, []features.Placement{{Kind: features.Village, Pos: core.Pt(1, 1)}}, 3)
	if img.RGBAAt(4, 4) != FeatureColor[features.Village] {
		t.Fatal("feature mark missing")
	}

	path := filepath.Join(t.TempDir(), "out", "regions.png")
	if err := WritePNG(path, img); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil || cfg.Width != 6 || cfg.Height != 6 {
		t.Fatalf("decoded %+v err=%v", cfg, err)
	}
}

func TestComposeLayers(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.Width, cfg.Height = 24, 24
	cfg.Tiles.Width, cfg.Tiles.Height = 3, 3
	cfg.Terrain.Octaves = 2
	cfg.Stages = []string{pipeline.StageVoronoi, pipeline.StageTiles}
	cfg.Normalize()
	a, err := pipeline.Generate(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	img, err := Compose(a, LayerBiomes, 2, 0)
	if err != nil || img.Bounds().Dx() != 48 {
		t.Fatalf("biomes: %v", err)
	}
	if img, err = Compose(a, LayerTiles, 2, 0); err != nil || img.Bounds().Dx() != 24 {
		t.Fatalf("tiles: %v", err)
	}
	if _, err := Compose(a, LayerTerrain, 1, 0); err == nil {
		t.Fatal("terrain layer without terrain stage should fail")
	}
}

func TestLayerNames(t *testing.T) {
	for _, l := range Layers() {
		got, err := ParseLayer(l.String())
		if err != nil || got != l {
			t.Fatalf("round trip of %s failed", l)
		}
	}
	if LayerTiles.Next() != LayerBiomes {
		t.Fatal("layers should wrap")
	}
	if _, err := ParseLayer("lava"); err == nil {
		t.Fatal("expected error for unknown layer")
	}
}
