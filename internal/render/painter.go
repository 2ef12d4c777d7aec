//go:build ebiten

package render

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// LayerPainter uploads rendered layers into a reusable ebiten image.
type LayerPainter struct {
	w, h int
	img  *ebiten.Image
}

// NewLayerPainter allocates a painter for images of w*h pixels.
func NewLayerPainter(w, h int) *LayerPainter {
	return &LayerPainter{w: w, h: h, img: ebiten.NewImage(w, h)}
}

// Blit uploads src and draws it scaled onto dst. Images of another size
// are ignored.
func (lp *LayerPainter) Blit(dst *ebiten.Image, src *image.RGBA, scale float64) {
	if src == nil || src.Bounds().Dx() != lp.w || src.Bounds().Dy() != lp.h {
		return
	}
	lp.img.WritePixels(src.Pix)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	dst.DrawImage(lp.img, op)
}

// Size returns the dimensions of the underlying image.
func (lp *LayerPainter) Size() (int, int) { return lp.w, lp.h }
