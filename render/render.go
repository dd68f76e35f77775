// Package render rasterizes signs into transparent glyph images.
package render

import (
	"errors"
	"image"

	"github.com/signpair/signpair/fsw"
)

// ErrUnknownSymbol is returned when a renderer has no glyph for a symbol key.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Renderer draws a sign onto a transparent canvas spanning from the
// smallest symbol coordinate to the sign box.
type Renderer interface {
	Render(sign fsw.Sign) (*image.NRGBA, error)
}

// canvas returns the transparent canvas of a sign together with the
// coordinate mapped onto its origin. An empty sign yields a 1x1 canvas.
func canvas(sign fsw.Sign) (*image.NRGBA, fsw.Point) {
	if len(sign.Symbols) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1)), sign.Box
	}
	origin := sign.Min()
	w, h := sign.Box.X-origin.X, sign.Box.Y-origin.Y
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.NewNRGBA(image.Rect(0, 0, w, h)), origin
}
