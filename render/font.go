package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/signpair/signpair/fsw"
	"github.com/signpair/signpair/utils"
)

// Code point offsets of the symbol glyphs in the SignWriting fonts.
const (
	LineBase rune = 0x100000
	FillBase rune = 0xF0000
)

// DefaultFontSize is the pixel size the glyphs are drawn at.
const DefaultFontSize = 30

// Font renders signs with the two SignWriting TrueType fonts: the fill font
// paints the inside of every symbol, the line font its outline on top.
type Font struct {
	LineColor color.Color
	FillColor color.Color
	// LineBase and FillBase map a symbol id to its code point in each font.
	LineBase rune
	FillBase rune

	mu       sync.Mutex
	line     *truetype.Font
	fill     *truetype.Font
	lineFace font.Face
	fillFace font.Face
}

var _ Renderer = (*Font)(nil)

// NewFont parses the line and fill font data. The faces are rendered at
// size pixels.
func NewFont(lineTTF, fillTTF []byte, size float64) (*Font, error) {
	if size <= 0 {
		size = DefaultFontSize
	}
	line, err := truetype.Parse(lineTTF)
	if err != nil {
		return nil, fmt.Errorf("parsing line font: %w", err)
	}
	fill, err := truetype.Parse(fillTTF)
	if err != nil {
		return nil, fmt.Errorf("parsing fill font: %w", err)
	}

	opts := &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}
	return &Font{
		LineColor: color.Black,
		FillColor: color.White,
		LineBase:  LineBase,
		FillBase:  FillBase,
		line:      line,
		fill:      fill,
		lineFace:  truetype.NewFace(line, opts),
		fillFace:  truetype.NewFace(fill, opts),
	}, nil
}

// LoadFont reads the fonts from local paths or URLs.
func LoadFont(linePath, fillPath string, size float64) (*Font, error) {
	lineTTF, err := readFont(linePath)
	if err != nil {
		return nil, err
	}
	fillTTF, err := readFont(fillPath)
	if err != nil {
		return nil, err
	}
	return NewFont(lineTTF, fillTTF, size)
}

func readFont(path string) ([]byte, error) {
	if !utils.IsValidUrl(path) {
		return os.ReadFile(path)
	}

	log.WithField("url", path).Debug("downloading font")
	f, err := utils.Download(path, "font")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	return io.ReadAll(f)
}

// Render draws every symbol at its position relative to the top left
// symbol, fill first and line second.
func (f *Font) Render(sign fsw.Sign) (*image.NRGBA, error) {
	img, origin := canvas(sign)

	// Faces keep a glyph cache and are not safe for concurrent use.
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sym := range sign.Symbols {
		id, err := fsw.SymbolID(sym.Key)
		if err != nil {
			return nil, err
		}
		fillRune := f.FillBase + rune(id)
		lineRune := f.LineBase + rune(id)
		if f.line.Index(lineRune) == 0 {
			return nil, fmt.Errorf("%w: S%s", ErrUnknownSymbol, sym.Key)
		}

		x, y := sym.X-origin.X, sym.Y-origin.Y
		if f.fill.Index(fillRune) != 0 {
			f.drawGlyph(img, f.fillFace, f.FillColor, fillRune, x, y)
		}
		f.drawGlyph(img, f.lineFace, f.LineColor, lineRune, x, y)
	}
	return img, nil
}

// drawGlyph draws r with its ascent line at y, so that (x, y) is the top
// left corner of the glyph box.
func (f *Font) drawGlyph(dst *image.NRGBA, face font.Face, c color.Color, r rune, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(x),
			Y: fixed.I(y) + face.Metrics().Ascent,
		},
	}
	d.DrawString(string(r))
}
