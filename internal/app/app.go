//go:build ebiten

package app

import (
	"context"
	"image/color"
	"strings"
	"time"

	"mapgen/internal/core"
	"mapgen/internal/render"
	"mapgen/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

var layerKeys = map[ebiten.Key]render.Layer{
	ebiten.KeyDigit1: render.LayerBiomes,
	ebiten.KeyDigit2: render.LayerRegions,
	ebiten.KeyDigit3: render.LayerTerrain,
	ebiten.KeyDigit4: render.LayerTiles,
}

// Game adapts a Viewer to the ebiten.Game interface.
type Game struct {
	viewer  *Viewer
	painter *render.LayerPainter
	hud     *ui.HUD
	overlay *ui.Overlay
	scale   int
	ctx     context.Context
}

// New constructs a Game for the provided viewer.
func New(v *Viewer, scale, hudWidth int) *Game {
	g := &Game{viewer: v, overlay: ui.NewOverlay(), scale: scale, ctx: context.Background()}
	g.hud = ui.NewHUD(g, hudWidth)
	return g
}

// Parameters forwards the pipeline parameters to the HUD.
func (g *Game) Parameters() core.ParameterSnapshot { return g.viewer.Parameters() }

// Status forwards the viewer status and overlay flags to the HUD.
func (g *Game) Status() []string {
	rows := g.viewer.Status()
	if flags := g.overlay.Flags(); len(flags) > 0 {
		rows = append(rows, "marks "+strings.Join(flags, ","))
	}
	return rows
}

// Update handles per-frame input and advances the pipeline.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.viewer.TogglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.viewer.StepOnce()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.viewer.Reset(g.viewer.Seed())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.viewer.Reset(time.Now().UnixNano())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.viewer.SetLayer(g.viewer.Layer().Next())
	}
	for key, layer := range layerKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.viewer.SetLayer(layer)
		}
	}
	g.overlay.Update()
	g.viewer.Tick(g.ctx)
	g.hud.Update()
	return nil
}

// Draw renders the current layer, the overlay marks and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	w, h := g.viewer.Size()
	if img := g.viewer.Image(); img != nil {
		b := img.Bounds()
		if g.painter == nil {
			g.painter = render.NewLayerPainter(b.Dx(), b.Dy())
		} else if pw, ph := g.painter.Size(); pw != b.Dx() || ph != b.Dy() {
			g.painter = render.NewLayerPainter(b.Dx(), b.Dy())
		}
		fit := min(float64(w*g.scale)/float64(b.Dx()), float64(h*g.scale)/float64(b.Dy()))
		g.painter.Blit(screen, img, fit)
	}
	g.overlay.Draw(screen, g.viewer.Artifacts(), float64(g.scale))
	g.hud.Draw(screen, w*g.scale, h*g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := g.viewer.Size()
	return w*g.scale + g.hud.Width(), h * g.scale
}
