package fsw

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Margin is added to the layout bounds and to every symbol position so
// that no coordinate of the resulting sign ends up near zero.
const Margin = 500

// LayoutFile is the name of the layout description inside a sample directory.
const LayoutFile = "layout.txt"

var (
	// ErrMalformedLayout is returned when the layout is not well formed
	// even after repair, or when a coordinate attribute is missing.
	ErrMalformedLayout = errors.New("malformed layout")
	// ErrMissingImage is returned for a sym element without an img child.
	ErrMissingImage = errors.New("layout symbol has no img element")
	// ErrMissingKey is returned when the img source carries no key parameter.
	ErrMissingKey = errors.New("layout symbol has no key")
	// ErrNoLayout is returned by ReadLayoutDir when the directory has no layout file.
	ErrNoLayout = errors.New("layout file not found")
)

// imgTag matches an img tag whether or not it is already self-closing.
var imgTag = regexp.MustCompile(`(?s)<img(\s[^>]*?)?/?>`)

// sizeFragment is a query fragment the exporter appends to image sources.
// The bare ampersand makes the document invalid XML.
const sizeFragment = "&size=.7"

// Layout is the decoded layout description.
type Layout struct {
	MaxX, MaxY int
	Symbols    []Symbol
}

type layoutDoc struct {
	MaxX string      `xml:"max_x,attr"`
	MaxY string      `xml:"max_y,attr"`
	Syms []layoutSym `xml:"sym"`
}

type layoutSym struct {
	Left string      `xml:"left,attr"`
	Top  string      `xml:"top,attr"`
	Imgs []layoutImg `xml:"img"`
}

type layoutImg struct {
	Src string `xml:"src,attr"`
}

// RepairLayout rewrites the exporter's HTML flavoured output into XML:
// every img tag becomes self-closing and the size fragment is removed.
// Nothing else is touched; anything still invalid fails in ParseLayout.
func RepairLayout(text string) string {
	text = imgTag.ReplaceAllString(text, "<img$1/>")
	return strings.ReplaceAll(text, sizeFragment, "")
}

// ParseLayout repairs and decodes a layout description.
func ParseLayout(text string) (*Layout, error) {
	dec := xml.NewDecoder(strings.NewReader(RepairLayout(text)))

	var doc layoutDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLayout, err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}

	maxX, err := coordinate("max_x", doc.MaxX)
	if err != nil {
		return nil, err
	}
	maxY, err := coordinate("max_y", doc.MaxY)
	if err != nil {
		return nil, err
	}

	layout := &Layout{MaxX: maxX, MaxY: maxY}
	for i, sym := range doc.Syms {
		if len(sym.Imgs) == 0 {
			return nil, fmt.Errorf("%w (sym %d)", ErrMissingImage, i)
		}
		key, ok := symbolKey(sym.Imgs[0].Src)
		if !ok {
			return nil, fmt.Errorf("%w (sym %d, src %q)", ErrMissingKey, i, sym.Imgs[0].Src)
		}
		left, err := coordinate("left", sym.Left)
		if err != nil {
			return nil, err
		}
		top, err := coordinate("top", sym.Top)
		if err != nil {
			return nil, err
		}
		layout.Symbols = append(layout.Symbols, Symbol{Key: key, Point: Point{X: left, Y: top}})
	}
	return layout, nil
}

// Sign converts the layout into a sign, shifting the box and every symbol by Margin.
func (l *Layout) Sign() Sign {
	sign := Sign{
		Lane: 'M',
		Box:  Point{X: l.MaxX + Margin, Y: l.MaxY + Margin},
	}
	for _, sym := range l.Symbols {
		sign.Symbols = append(sign.Symbols, Symbol{
			Key:   sym.Key,
			Point: Point{X: sym.X + Margin, Y: sym.Y + Margin},
		})
	}
	return sign
}

// LayoutToFSW converts a layout description into an FSW string.
func LayoutToFSW(text string) (string, error) {
	layout, err := ParseLayout(text)
	if err != nil {
		return "", err
	}
	return layout.Sign().String(), nil
}

// ReadLayoutDir reads the layout file of a sample directory and converts it to a sign.
func ReadLayoutDir(dir string) (Sign, error) {
	data, err := os.ReadFile(filepath.Join(dir, LayoutFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Sign{}, fmt.Errorf("%w: %s", ErrNoLayout, dir)
		}
		return Sign{}, err
	}
	layout, err := ParseLayout(string(data))
	if err != nil {
		return Sign{}, fmt.Errorf("%s: %w", dir, err)
	}
	return layout.Sign(), nil
}

// symbolKey returns the value following the first "key=" of an image source.
func symbolKey(src string) (string, bool) {
	_, after, found := strings.Cut(src, "key=")
	if !found {
		return "", false
	}
	key, _, _ := strings.Cut(after, "&")
	key = strings.TrimSpace(key)
	return key, key != ""
}

func coordinate(name, value string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %s=%q", ErrMalformedLayout, name, value)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative %s=%d", ErrMalformedLayout, name, v)
	}
	return v, nil
}

// expectEOF fails when anything but whitespace, comments or processing
// instructions follows the root element.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedLayout, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return fmt.Errorf("%w: trailing data after root element", ErrMalformedLayout)
			}
		case xml.Comment, xml.ProcInst:
		default:
			return fmt.Errorf("%w: trailing data after root element", ErrMalformedLayout)
		}
	}
}
