package signpair

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/signpair/signpair/fsw"
	"github.com/signpair/signpair/imop"
	"github.com/signpair/signpair/render"
	"github.com/signpair/signpair/utils"
)

// DefaultSize is the side length of the training images.
const DefaultSize = 256

var (
	// ErrTooLarge is returned when a rendered sign does not fit into half
	// of the target size.
	ErrTooLarge = errors.New("sign is too large")
	// ErrTooSmall is returned for illustrations smaller than the target size.
	ErrTooSmall = errors.New("illustration is too small")
)

// Compositor places glyphs and illustrations centred on opaque square
// canvases of a fixed size.
type Compositor struct {
	Size       int
	Background color.Color
	Renderer   render.Renderer
}

// NewCompositor returns a compositor with a white background.
func NewCompositor(size int, r render.Renderer) *Compositor {
	return &Compositor{
		Size:       size,
		Background: color.White,
		Renderer:   r,
	}
}

// FromFSW renders an FSW string and composes it with FromGlyph.
func (c *Compositor) FromFSW(s string) (*image.NRGBA, error) {
	if c.Renderer == nil {
		return nil, errors.New("no renderer configured")
	}
	sign, err := fsw.Parse(s)
	if err != nil {
		return nil, err
	}
	glyph, err := c.Renderer.Render(sign)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", s, err)
	}
	return c.FromGlyph(glyph)
}

// FromGlyph centres a rendered glyph on an opaque canvas of half the
// target size and upscales it two times with nearest neighbour sampling,
// which keeps the strokes crisp. Glyphs larger than half the target size
// are rejected with ErrTooLarge instead of being clipped.
func (c *Compositor) FromGlyph(glyph image.Image) (*image.NRGBA, error) {
	half := c.Size / 2
	size := glyph.Bounds().Size()
	if size.X > half || size.Y > half {
		return nil, fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, size.X, size.Y, half)
	}

	dst := imop.Canvas(half, half, c.background())
	imop.Paste(dst, glyph, imop.Center(image.Pt(half, half), size))
	return imaging.Resize(dst, c.Size, c.Size, imaging.NearestNeighbor), nil
}

// FromFile loads a pre-rendered sign image and composes it with FromImage.
func (c *Compositor) FromFile(path string) (*image.NRGBA, error) {
	img, err := decodeImg(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c.FromImage(img), nil
}

// FromImage doubles a pre-rendered sign with nearest neighbour sampling,
// shrinks it uniformly when it exceeds the target size and centres it on
// an opaque canvas. Transparent sources are pasted through their alpha.
func (c *Compositor) FromImage(img image.Image) *image.NRGBA {
	b := img.Bounds()
	sign := imaging.Resize(img, b.Dx()*2, b.Dy()*2, imaging.NearestNeighbor)

	w, h := sign.Bounds().Dx(), sign.Bounds().Dy()
	if w > c.Size || h > c.Size {
		w, h = fit(w, h, c.Size)
		sign = imaging.Resize(sign, w, h, imaging.NearestNeighbor)
	}

	dst := imop.Canvas(c.Size, c.Size, c.background())
	imop.Paste(dst, sign, imop.Center(image.Pt(c.Size, c.Size), sign.Bounds().Size()))
	return dst
}

// Illustration scales an illustration so that its larger side equals the
// target size and centres it on an opaque square canvas. Illustrations
// smaller than the target size on either side are rejected with ErrTooSmall.
func (c *Compositor) Illustration(img image.Image) (*image.NRGBA, error) {
	b := img.Bounds()
	if b.Dx() < c.Size || b.Dy() < c.Size {
		return nil, fmt.Errorf("%w: %dx%d < %d", ErrTooSmall, b.Dx(), b.Dy(), c.Size)
	}

	w, h := fit(b.Dx(), b.Dy(), c.Size)
	scaled := imaging.Resize(img, w, h, imaging.CatmullRom)

	dst := imop.Canvas(c.Size, c.Size, c.background())
	imop.Paste(dst, scaled, imop.Center(image.Pt(c.Size, c.Size), scaled.Bounds().Size()))
	return dst, nil
}

// Blank returns an opaque canvas of the target size in the background colour.
func (c *Compositor) Blank() *image.NRGBA {
	return Blank(c.Size, c.background())
}

// Blank returns an opaque size x size image filled with bg, used as the
// neutral conditioning image during validation.
func Blank(size int, bg color.Color) *image.NRGBA {
	if bg == nil {
		bg = color.White
	}
	c := color.NRGBAModel.Convert(bg).(color.NRGBA)
	c.A = 0xff
	return imop.Canvas(size, size, c)
}

// background returns the configured background with its alpha forced to
// opaque, so every composed image is opaque.
func (c *Compositor) background() color.Color {
	if c.Background == nil {
		return color.White
	}
	bg := color.NRGBAModel.Convert(c.Background).(color.NRGBA)
	bg.A = 0xff
	return bg
}

// fit scales w x h uniformly so that the larger side equals size.
// The smaller side is truncated and never drops below one pixel.
func fit(w, h, size int) (int, int) {
	if w >= h {
		return size, utils.Clamp(h*size/w, 1, size)
	}
	return utils.Clamp(w*size/h, 1, size), size
}
