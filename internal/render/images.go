// Package render turns generated grids into images. Every function here is
// headless; the ebiten painter lives behind the ebiten build tag.
package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	xdraw "golang.org/x/image/draw"

	"mapgen/internal/core"
	"mapgen/internal/features"
	"mapgen/internal/pipeline"
	"mapgen/internal/tiles"
	"mapgen/internal/voronoi"
)

// Layer selects which artifact an image shows.
type Layer int

const (
	LayerBiomes Layer = iota
	LayerRegions
	LayerTerrain
	LayerTiles
	layerCount
)

var layerNames = [...]string{"biomes", "regions", "terrain", "tiles"}

func (l Layer) String() string {
	if l < 0 || l >= layerCount {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// Next cycles to the following layer.
func (l Layer) Next() Layer { return (l + 1) % layerCount }

// Layers lists every layer in display order.
func Layers() []Layer { return []Layer{LayerBiomes, LayerRegions, LayerTerrain, LayerTiles} }

// ParseLayer resolves a layer by name.
func ParseLayer(name string) (Layer, error) {
	for i, n := range layerNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layer %q", name)
}

// BiomePalette is indexed by voronoi.Color.
var BiomePalette = []color.RGBA{
	voronoi.Unclassified: {R: 70, G: 128, B: 64, A: 255},
	voronoi.Settlement:   {R: 196, G: 72, B: 56, A: 255},
	voronoi.Farmland:     {R: 222, G: 198, B: 92, A: 255},
	voronoi.Highland:     {R: 128, G: 128, B: 136, A: 255},
}

var (
	WaterColor   = color.RGBA{R: 48, G: 104, B: 196, A: 255}
	SeaColor     = color.RGBA{R: 24, G: 56, B: 120, A: 255}
	ForcedColor  = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	FeatureColor = map[features.Kind]color.RGBA{
		features.Village:  {R: 255, G: 255, B: 255, A: 255},
		features.Farm:     {R: 120, G: 72, B: 24, A: 255},
		features.Mountain: {R: 24, G: 24, B: 24, A: 255},
	}
)

// HeightRamp colours land from shore to peak.
var HeightRamp = []Stop{
	{At: 0, Color: color.RGBA{R: 214, G: 202, B: 150, A: 255}},
	{At: 0.15, Color: color.RGBA{R: 96, G: 160, B: 72, A: 255}},
	{At: 0.5, Color: color.RGBA{R: 44, G: 104, B: 52, A: 255}},
	{At: 0.75, Color: color.RGBA{R: 132, G: 120, B: 108, A: 255}},
	{At: 1, Color: color.RGBA{R: 244, G: 244, B: 248, A: 255}},
}

// BiomeImage paints one pixel per cell from BiomePalette and darkens the
// cells on region borders when regions is non-nil.
func BiomeImage(colors *core.Grid[voronoi.Color], regions *core.Grid[int]) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, colors.W, colors.H))
	cells := make([]uint8, len(colors.Cells()))
	for i, c := range colors.Cells() {
		cells[i] = uint8(c)
	}
	fillPaletteRGBA(img.Pix, cells, BiomePalette)
	if regions != nil && regions.W == colors.W && regions.H == colors.H {
		outlineRegions(img, regions)
	}
	return img
}

// RegionImage paints every region index in its own colour.
func RegionImage(regions *core.Grid[int]) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, regions.W, regions.H))
	for i, idx := range regions.Cells() {
		setPixel(img.Pix, i, indexColor(idx))
	}
	outlineRegions(img, regions)
	return img
}

func outlineRegions(img *image.RGBA, regions *core.Grid[int]) {
	for y := 0; y < regions.H; y++ {
		for x := 0; x < regions.W; x++ {
			v := regions.At(x, y)
			if (x+1 < regions.W && regions.At(x+1, y) != v) || (y+1 < regions.H && regions.At(x, y+1) != v) {
				i := regions.Index(x, y)
				setPixel(img.Pix, i, shade(img.RGBAAt(x, y), 0.6))
			}
		}
	}
}

// TerrainImage maps heights through HeightRamp. Cells at or below seaLevel
// use SeaColor and water cells use WaterColor.
func TerrainImage(height *core.Grid[float64], water *core.Grid[bool], seaLevel float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, height.W, height.H))
	fillRampRGBA(img.Pix, height.Cells(), HeightRamp)
	for i, h := range height.Cells() {
		if h <= seaLevel {
			setPixel(img.Pix, i, SeaColor)
		}
	}
	if water != nil && water.W == height.W && water.H == height.H {
		for i, w := range water.Cells() {
			if w {
				setPixel(img.Pix, i, WaterColor)
			}
		}
	}
	return img
}

// TileImage draws each tile as a cellSize square: a body tinted by rule name
// and edge strips tinted by edge label, so agreeing neighbours show
// continuous strips. Forced tiles get a magenta centre mark.
func TileImage(grid *core.Grid[tiles.Cell], rules []tiles.Rule, cellSize int) *image.RGBA {
	if cellSize < 3 {
		cellSize = 3
	}
	img := image.NewRGBA(image.Rect(0, 0, grid.W*cellSize, grid.H*cellSize))
	strip := max(1, cellSize/4)
	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			c := grid.At(x, y)
			ox, oy := x*cellSize, y*cellSize
			if !c.Placed || c.Rule < 0 || c.Rule >= len(rules) {
				fillRect(img, image.Rect(ox, oy, ox+cellSize, oy+cellSize), color.RGBA{A: 255})
				continue
			}
			r := rules[c.Rule]
			fillRect(img, image.Rect(ox, oy, ox+cellSize, oy+cellSize), shade(hashColor(r.Name), 0.5))
			e := r.RotatedEdges(c.Rotation)
			drawEdge(img, e[tiles.Top], ox, oy, cellSize, strip, true)
			drawEdge(img, e[tiles.Bottom], ox, oy+cellSize-strip, cellSize, strip, true)
			drawEdge(img, e[tiles.Left], ox, oy, cellSize, strip, false)
			drawEdge(img, e[tiles.Right], ox+cellSize-strip, oy, cellSize, strip, false)
			if c.Forced {
				m := cellSize / 2
				fillRect(img, image.Rect(ox+m-strip/2, oy+m-strip/2, ox+m-strip/2+strip, oy+m-strip/2+strip), ForcedColor)
			}
		}
	}
	return img
}

// drawEdge splits an edge into one segment per label. Horizontal edges run
// west to east and vertical ones north to south, matching signature order.
func drawEdge(img *image.RGBA, sig tiles.Signature, ox, oy, length, thick int, horizontal bool) {
	n := len(sig)
	if n == 0 {
		return
	}
	for i, label := range sig {
		from, to := i*length/n, (i+1)*length/n
		var r image.Rectangle
		if horizontal {
			r = image.Rect(ox+from, oy, ox+to, oy+thick)
		} else {
			r = image.Rect(ox, oy+from, ox+thick, oy+to)
		}
		fillRect(img, r, hashColor(label))
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// MarkFeatures draws a small cross on img for every placement. Positions
// are in cell coordinates and are multiplied by scale.
func MarkFeatures(img *image.RGBA, ps []features.Placement, scale int) {
	if scale < 1 {
		scale = 1
	}
	for _, p := range ps {
		c, ok := FeatureColor[p.Kind]
		if !ok {
			continue
		}
		cx, cy := p.Pos.X*scale+scale/2, p.Pos.Y*scale+scale/2
		arm := max(1, scale)
		fillRect(img, image.Rect(cx-arm, cy, cx+arm+1, cy+1), c)
		fillRect(img, image.Rect(cx, cy-arm, cx+1, cy+arm+1), c)
	}
}

// Scale enlarges img by an integer factor with nearest-neighbour sampling.
func Scale(img *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Compose renders layer from a run at the given per-cell scale, overlaying
// feature marks on the map layers. It fails when the layer's stage did not
// run.
func Compose(a *pipeline.Artifacts, layer Layer, scale int, seaLevel float64) (*image.RGBA, error) {
	var img *image.RGBA
	switch layer {
	case LayerBiomes:
		if a.Colors == nil {
			return nil, fmt.Errorf("render: %s layer needs the voronoi stage", layer)
		}
		img = Scale(BiomeImage(a.Colors, a.Regions), scale)
	case LayerRegions:
		if a.Regions == nil {
			return nil, fmt.Errorf("render: %s layer needs the voronoi stage", layer)
		}
		img = Scale(RegionImage(a.Regions), scale)
	case LayerTerrain:
		if a.Height == nil {
			return nil, fmt.Errorf("render: %s layer needs the terrain stage", layer)
		}
		img = Scale(TerrainImage(a.Height, a.Water, seaLevel), scale)
	case LayerTiles:
		if a.Tiles == nil {
			return nil, fmt.Errorf("render: %s layer needs the tiles stage", layer)
		}
		return TileImage(a.Tiles, a.TileRules, max(3, scale*4)), nil
	default:
		return nil, fmt.Errorf("render: unknown layer %d", int(layer))
	}
	MarkFeatures(img, a.Features, max(1, scale))
	return img, nil
}
