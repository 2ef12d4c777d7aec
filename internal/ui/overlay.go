//go:build ebiten

package ui

import (
	"image/color"

	"mapgen/internal/core"
	"mapgen/internal/pipeline"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Overlay draws optional debugging marks on top of the map layer.
type Overlay struct {
	showCenters bool
	showRivers  bool
	showStarts  bool
	pixel       *ebiten.Image
}

// NewOverlay constructs a new overlay instance.
func NewOverlay() *Overlay {
	o := &Overlay{}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update toggles the marks: C region centres, V rivers, B river starts.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		o.showCenters = !o.showCenters
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		o.showRivers = !o.showRivers
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		o.showStarts = !o.showStarts
	}
}

// Flags lists the active marks for the status line.
func (o *Overlay) Flags() []string {
	var out []string
	if o.showCenters {
		out = append(out, "centres")
	}
	if o.showRivers {
		out = append(out, "rivers")
	}
	if o.showStarts {
		out = append(out, "starts")
	}
	return out
}

// Draw paints the enabled marks for a at scale pixels per cell.
func (o *Overlay) Draw(screen *ebiten.Image, a *pipeline.Artifacts, scale float64) {
	if a == nil {
		return
	}
	if o.showRivers {
		c := color.RGBA{R: 120, G: 200, B: 255, A: 200}
		for _, r := range a.Rivers {
			for _, p := range r.Cells {
				o.dot(screen, p, scale, scale, c)
			}
		}
	}
	if o.showStarts {
		c := color.RGBA{R: 255, G: 64, B: 64, A: 255}
		for _, r := range a.Rivers {
			o.dot(screen, r.Start, scale, max(3, scale), c)
		}
	}
	if o.showCenters {
		c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		for _, r := range a.Centers {
			o.dot(screen, r.Center, scale, max(3, scale), c)
		}
	}
}

func (o *Overlay) dot(screen *ebiten.Image, p core.Point, scale, size float64, c color.Color) {
	cx := (float64(p.X) + 0.5) * scale
	cy := (float64(p.Y) + 0.5) * scale
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(size, size)
	op.GeoM.Translate(cx-size/2, cy-size/2)
	op.ColorScale.ScaleWithColor(c)
	screen.DrawImage(o.pixel, op)
}
