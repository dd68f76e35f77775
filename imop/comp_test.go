package imop

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	white       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black       = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	cyan        = color.NRGBA{R: 33, G: 150, B: 243, A: 255}
	transparent = color.NRGBA{}
)

func TestComp_Basic(t *testing.T) {
	assert := assert.New(t)

	op := InitOp()
	assert.Equal(SrcOver, op.Get())

	op.Set(Copy)
	assert.Equal(Copy, op.Get())

	op.Set("unsupported_composite_operation")
	assert.Equal(Copy, op.Get())
}

func TestComp_Ops(t *testing.T) {
	assert := assert.New(t)
	op := InitOp()

	// A cyan square on a transparent 6x6 source.
	source := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	draw.Draw(source, image.Rect(2, 2, 4, 4), &image.Uniform{cyan}, image.Point{}, draw.Src)

	// SrcOver keeps the backdrop where the source is transparent.
	backdrop := Canvas(10, 10, white)
	op.Draw(backdrop, source, image.Pt(2, 2))

	assert.EqualValues(white, backdrop.At(2, 2))
	assert.EqualValues(cyan, backdrop.At(4, 4))
	assert.EqualValues(white, backdrop.At(9, 9))

	// Copy replaces the backdrop with the source, transparency included.
	backdrop = Canvas(10, 10, white)
	op.Set(Copy)
	op.Draw(backdrop, source, image.Pt(2, 2))

	assert.EqualValues(transparent, backdrop.At(2, 2))
	assert.EqualValues(cyan, backdrop.At(4, 4))
	assert.EqualValues(white, backdrop.At(9, 9))
}

func TestComp_PasteUsesAlphaAsMask(t *testing.T) {
	assert := assert.New(t)

	glyph := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	glyph.Set(1, 1, black)

	dst := Canvas(8, 8, white)
	Paste(dst, glyph, image.Pt(2, 2))

	assert.EqualValues(black, dst.At(3, 3))
	assert.EqualValues(white, dst.At(2, 2))
	assert.True(IsOpaque(dst))
}

func TestComp_PasteOpaqueSource(t *testing.T) {
	assert := assert.New(t)

	src := Canvas(2, 2, cyan)
	dst := Canvas(4, 4, white)
	Paste(dst, src, image.Pt(3, 3))

	assert.EqualValues(cyan, dst.At(3, 3))
	assert.EqualValues(white, dst.At(2, 2))
}

func TestComp_IsOpaque(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsOpaque(Canvas(3, 3, white)))
	assert.False(IsOpaque(image.NewNRGBA(image.Rect(0, 0, 3, 3))))
	assert.True(IsOpaque(image.NewGray(image.Rect(0, 0, 3, 3))))
}

func TestComp_Center(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(image.Pt(64, 0), Center(image.Pt(256, 256), image.Pt(128, 256)))
	assert.Equal(image.Pt(1, 2), Center(image.Pt(10, 10), image.Pt(7, 5)))

	for _, size := range []image.Point{{1, 1}, {255, 3}, {17, 256}, {256, 256}} {
		off := Center(image.Pt(256, 256), size)
		assert.LessOrEqual(off.X+size.X, 256)
		assert.LessOrEqual(off.Y+size.Y, 256)
		assert.GreaterOrEqual(off.X, 0)
		assert.GreaterOrEqual(off.Y, 0)
	}
}

func TestComp_Threshold(t *testing.T) {
	assert := assert.New(t)

	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 169, G: 170, B: 10, A: 200})
	src.Set(1, 0, color.NRGBA{R: 255, G: 0, B: 171, A: 100})

	dst := Threshold(src, 170)
	assert.EqualValues(color.NRGBA{R: 0, G: 255, B: 0, A: 255}, dst.At(0, 0))
	assert.EqualValues(color.NRGBA{R: 255, G: 0, B: 255, A: 0}, dst.At(1, 0))
}

func TestComp_IsBlank(t *testing.T) {
	assert := assert.New(t)

	img := Canvas(5, 5, white)
	assert.True(IsBlank(img, color.White))

	img.Set(4, 4, black)
	assert.False(IsBlank(img, color.White))
}

func TestComp_SideBySide(t *testing.T) {
	assert := assert.New(t)

	left := Canvas(3, 2, black)
	right := Canvas(4, 5, cyan)
	dst := SideBySide(left, right, white)

	assert.Equal(image.Rect(0, 0, 7, 5), dst.Bounds())
	assert.EqualValues(black, dst.At(0, 0))
	assert.EqualValues(white, dst.At(0, 4))
	assert.EqualValues(cyan, dst.At(3, 4))
}
