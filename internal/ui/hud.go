//go:build ebiten

package ui

import (
	"image/color"

	"mapgen/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	panelPadding = 8
	lineHeight   = 15
	glyphWidth   = 7
)

// Source feeds the HUD.
type Source interface {
	Parameters() core.ParameterSnapshot
	Status() []string
}

// HUD renders the parameter panel to the right of the map view.
type HUD struct {
	src        Source
	width      int
	panel      *ebiten.Image
	lastHeight int
	lines      []Line
}

// NewHUD constructs a HUD for the provided source and panel width.
func NewHUD(src Source, width int) *HUD {
	if width < 0 {
		width = 0
	}
	return &HUD{src: src, width: width}
}

// Width reports the panel width in pixels.
func (h *HUD) Width() int {
	if h == nil {
		return 0
	}
	return h.width
}

// Update refreshes the cached rows from the source.
func (h *HUD) Update() {
	if h == nil || h.src == nil {
		return
	}
	cols := (h.width - 2*panelPadding) / glyphWidth
	h.lines = PanelLines(h.src.Status(), h.src.Parameters(), cols)
}

// Draw paints the HUD panel at offsetX with the given height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX, height int) {
	if h == nil || h.width <= 0 || height <= 0 {
		return
	}
	if h.panel == nil || h.lastHeight != height {
		h.panel = ebiten.NewImage(h.width, height)
		h.lastHeight = height
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})
	face := basicfont.Face7x13
	y := panelPadding + lineHeight
	for _, l := range h.lines {
		if y > height {
			break
		}
		fg := color.RGBA{R: 190, G: 190, B: 200, A: 255}
		if l.Header {
			fg = color.RGBA{R: 240, G: 240, B: 250, A: 255}
		}
		if l.Text != "" {
			text.Draw(h.panel, l.Text, face, panelPadding, y, fg)
		}
		y += lineHeight
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}
