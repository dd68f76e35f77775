package render

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/signpair/signpair/fsw"
)

func mustParse(t *testing.T, s string) fsw.Sign {
	t.Helper()

	sign, err := fsw.Parse(s)
	require.NoError(t, err)
	return sign
}

func TestRender_EmptySign(t *testing.T) {
	r := NewSymbolDir(t.TempDir())
	img, err := r.Render(mustParse(t, "M518x518"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 1), img.Bounds())
}

func TestRender_CanvasSpansFromTopLeftSymbol(t *testing.T) {
	img, origin := canvas(mustParse(t, "M561x534S10028472x500S10020516x469"))
	assert.Equal(t, fsw.Point{X: 472, Y: 469}, origin)
	assert.Equal(t, image.Rect(0, 0, 89, 65), img.Bounds())
}

func TestRender_SymbolDir(t *testing.T) {
	dir := t.TempDir()

	// 10 x 10 black square for S10028, a fallback bitmap for S2ff0*.
	square := imaging.New(10, 10, color.Black)
	require.NoError(t, imaging.Save(square, filepath.Join(dir, "10028.png")))
	require.NoError(t, imaging.Save(imaging.New(5, 5, color.Black), filepath.Join(dir, "2ff0.png")))

	r := NewSymbolDir(dir)
	img, err := r.Render(mustParse(t, "M540x540S10028500x500S2ff03520x520"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())

	// The square is scaled to 14 px and opaque black.
	assert.EqualValues(t, color.NRGBA{A: 255}, img.At(0, 0))
	assert.EqualValues(t, color.NRGBA{A: 255}, img.At(13, 13))
	assert.EqualValues(t, color.NRGBA{}, img.At(15, 15))
	assert.EqualValues(t, color.NRGBA{A: 255}, img.At(20, 20))
	assert.EqualValues(t, color.NRGBA{}, img.At(39, 39))
}

func TestRender_SymbolDirMissingSymbol(t *testing.T) {
	r := NewSymbolDir(t.TempDir())
	_, err := r.Render(mustParse(t, "M540x540S10028500x500"))
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestRender_FontRejectsInvalidData(t *testing.T) {
	_, err := NewFont([]byte("not a font"), goregular.TTF, 30)
	assert.Error(t, err)

	_, err = LoadFont(filepath.Join(t.TempDir(), "missing.ttf"), "", 30)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRender_FontUnknownSymbol(t *testing.T) {
	f, err := NewFont(goregular.TTF, goregular.TTF, 30)
	require.NoError(t, err)

	_, err = f.Render(mustParse(t, "M540x540S10028500x500"))
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestRender_FontDrawsGlyphs(t *testing.T) {
	f, err := NewFont(goregular.TTF, goregular.TTF, 30)
	require.NoError(t, err)

	// Map symbol id 1 (S10000) onto 'H' in both faces.
	f.LineBase = 'H' - 1
	f.FillBase = 'H' - 1

	img, err := f.Render(mustParse(t, "M540x540S10000500x500"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())

	var inked, clear int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			switch {
			case c.A == 0:
				clear++
			case c.A == 255 && c.R == 0:
				inked++
			}
		}
	}
	assert.Greater(t, inked, 0)
	assert.Greater(t, clear, 0)
}
