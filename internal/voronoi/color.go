package voronoi

import "math"

// Color is the biome class assigned to a region.
type Color uint8

const (
	Unclassified Color = iota
	Settlement
	Farmland
	Highland
)

func (c Color) String() string {
	switch c {
	case Settlement:
		return "settlement"
	case Farmland:
		return "farmland"
	case Highland:
		return "highland"
	default:
		return "unclassified"
	}
}

const centerYellowBoost = 0.3

// ClassifyColor picks a biome for a cell of region index. The draw is
// (index mod 10)/10, so every cell of a region lands in the same bucket
// unless the border band or centre bias moves the thresholds under it.
func ClassifyColor(index, x, y, w, h int, p Probabilities, borderRatio float64) Color {
	red := p.Red
	yellow := p.Yellow + centerBias(x, y, w, h)*centerYellowBoost
	gray := p.Gray
	if nearBorder(x, y, w, h, borderRatio) {
		yellow = 0
	}
	total := red + yellow + gray
	if total <= 0 {
		return Unclassified
	}
	m := index % 10
	if m < 0 {
		m += 10
	}
	draw := float64(m) / 10
	switch {
	case draw < red/total:
		return Settlement
	case draw < (red+yellow)/total:
		return Farmland
	default:
		return Highland
	}
}

func centerBias(x, y, w, h int) float64 {
	cx := float64(w) / 2
	cy := float64(h) / 2
	maxDist := math.Hypot(cx, cy)
	if maxDist == 0 {
		return 0
	}
	return 1 - math.Hypot(float64(x)-cx, float64(y)-cy)/maxDist
}

func nearBorder(x, y, w, h int, ratio float64) bool {
	bx := int(float64(w) * ratio)
	by := int(float64(h) * ratio)
	return x < bx || x >= w-bx || y < by || y >= h-by
}
