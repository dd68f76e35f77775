package render

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/signpair/signpair/fsw"
	"github.com/signpair/signpair/imop"
)

// Defaults of the per-symbol renderer.
const (
	DefaultSymbolScale = 1.42
	DefaultSymbolLevel = 170
)

// SymbolDir renders a sign from the per-symbol bitmaps that some layout
// exports ship next to their layout file, one <key>.png per symbol.
type SymbolDir struct {
	Dir string
	// Scale resizes every symbol bitmap before placement.
	Scale float64
	// Level binarizes the scaled bitmap; see imop.Threshold.
	Level uint8
}

var _ Renderer = (*SymbolDir)(nil)

// NewSymbolDir returns a renderer reading symbol bitmaps from dir.
func NewSymbolDir(dir string) *SymbolDir {
	return &SymbolDir{
		Dir:   dir,
		Scale: DefaultSymbolScale,
		Level: DefaultSymbolLevel,
	}
}

// Render places every symbol bitmap at its position relative to the top left symbol.
func (s *SymbolDir) Render(sign fsw.Sign) (*image.NRGBA, error) {
	img, origin := canvas(sign)

	for _, sym := range sign.Symbols {
		bitmap, err := s.open(sym.Key)
		if err != nil {
			return nil, err
		}
		if s.Scale > 0 && s.Scale != 1 {
			b := bitmap.Bounds()
			w := int(math.Trunc(float64(b.Dx()) * s.Scale))
			h := int(math.Trunc(float64(b.Dy()) * s.Scale))
			if w < 1 {
				w = 1
			}
			if h < 1 {
				h = 1
			}
			bitmap = imaging.Resize(bitmap, w, h, imaging.CatmullRom)
		}
		if s.Level > 0 {
			bitmap = imop.Threshold(bitmap, s.Level)
		}
		imop.Paste(img, bitmap, image.Pt(sym.X-origin.X, sym.Y-origin.Y))
	}
	return img, nil
}

// open loads <key>.png, falling back to the key without its rotation digit.
func (s *SymbolDir) open(key string) (image.Image, error) {
	candidates := []string{key}
	if len(key) > 1 {
		candidates = append(candidates, key[:len(key)-1])
	}
	for _, name := range candidates {
		img, err := imaging.Open(filepath.Join(s.Dir, name+".png"))
		if err == nil {
			return img, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("symbol S%s: %w", key, err)
		}
	}
	return nil, fmt.Errorf("%w: S%s in %s", ErrUnknownSymbol, key, s.Dir)
}
