// Package imop implements the compositing operations used to place rendered
// glyphs and illustrations on their training canvases.
//
// The image/draw core package implements the source and the
// source-over-destination Porter-Duff operators. This package selects
// between them depending on whether the pasted image carries transparency,
// so that only the opaque glyph pixels overwrite the backdrop, and adds the
// few pixel level helpers the pipeline needs on top of them.
package imop

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// The supported composite operations.
const (
	Copy    = "copy"
	SrcOver = "src_over"
)

// Composite holds the currently active composite operation.
type Composite struct {
	current string
	ops     []string
}

// InitOp returns a Composite using the source-over operator.
func InitOp() *Composite {
	return &Composite{
		current: SrcOver,
		ops:     []string{Copy, SrcOver},
	}
}

// Set activates one of the supported composite operations.
// Unknown operations are ignored.
func (op *Composite) Set(cop string) {
	for _, o := range op.ops {
		if o == cop {
			op.current = cop
			return
		}
	}
}

// Get returns the currently active composite operation.
func (op *Composite) Get() string {
	return op.current
}

// Draw places src on dst with the top left corner of src at pt, using the
// active operation. Parts of src outside dst are clipped.
func (op *Composite) Draw(dst draw.Image, src image.Image, pt image.Point) {
	sb := src.Bounds()
	r := image.Rectangle{Min: pt, Max: pt.Add(sb.Size())}

	switch op.current {
	case Copy:
		draw.Draw(dst, r, src, sb.Min, draw.Src)
	default:
		draw.Draw(dst, r, src, sb.Min, draw.Over)
	}
}

// Paste places src on dst at pt. A source carrying transparency is used as
// its own mask, an opaque source is copied as is.
func Paste(dst draw.Image, src image.Image, pt image.Point) {
	op := InitOp()
	if IsOpaque(src) {
		op.Set(Copy)
	}
	op.Draw(dst, src, pt)
}

// IsOpaque reports whether every pixel of img is fully opaque.
func IsOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

// Canvas returns a w x h image filled with c.
func Canvas(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

// Center returns the offset placing content in the middle of a target
// rectangle. Odd remainders are truncated towards the top left corner.
func Center(target, content image.Point) image.Point {
	return image.Pt((target.X-content.X)/2, (target.Y-content.Y)/2)
}

// Threshold binarizes every channel of src: values below level become 0,
// the rest 255. The alpha channel is binarized as well, which keeps glyph
// edges crisp after scaling.
func Threshold(src image.Image, level uint8) *image.NRGBA {
	dst := imaging.Clone(src)
	for i, v := range dst.Pix {
		if v < level {
			dst.Pix[i] = 0
		} else {
			dst.Pix[i] = 0xff
		}
	}
	return dst
}

// IsBlank reports whether every pixel of img equals c once both are
// converted to non-premultiplied colors.
func IsBlank(img image.Image, c color.Color) bool {
	want := color.NRGBAModel.Convert(c).(color.NRGBA)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA) != want {
				return false
			}
		}
	}
	return true
}

// SideBySide places left and right next to each other on a bg background.
// The result is as tall as the taller of the two.
func SideBySide(left, right image.Image, bg color.Color) *image.NRGBA {
	lb, rb := left.Bounds(), right.Bounds()
	h := lb.Dy()
	if rb.Dy() > h {
		h = rb.Dy()
	}
	dst := Canvas(lb.Dx()+rb.Dx(), h, bg)
	Paste(dst, left, image.Pt(0, 0))
	Paste(dst, right, image.Pt(lb.Dx(), 0))
	return dst
}
