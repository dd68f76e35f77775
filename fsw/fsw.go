// Package fsw implements the Formal SignWriting (FSW) text encoding of a
// sign and the conversion of exported layout descriptions into FSW.
//
// An FSW string describes a sign as a bounding box followed by the symbols
// placed on it:
//
//	M561x534S10028472x500S10020516x469
//
// The box is the maximum coordinate of the sign, every symbol carries a
// five hex digit key and the coordinate of its top left corner.
package fsw

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidFSW is returned when a string does not follow the FSW grammar.
var ErrInvalidFSW = errors.New("invalid fsw string")

var (
	signPattern   = regexp.MustCompile(`^(?:A(?:S[123][0-9a-f]{2}[0-5][0-9a-f])+)?([BLMR])(\d+)x(\d+)((?:S[123][0-9a-f]{2}[0-5][0-9a-f]\d+x\d+)*)$`)
	symbolPattern = regexp.MustCompile(`S([123][0-9a-f]{2}[0-5][0-9a-f])(\d+)x(\d+)`)
)

// Point is a coordinate on the sign canvas.
type Point struct {
	X, Y int
}

// Symbol is a single placed glyph of a sign.
type Symbol struct {
	Key string
	Point
}

// Sign is the decoded form of an FSW string.
type Sign struct {
	Lane    byte
	Box     Point
	Symbols []Symbol
}

// String encodes the sign as FSW. Symbols keep their order.
func (s Sign) String() string {
	lane := s.Lane
	if lane == 0 {
		lane = 'M'
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%c%dx%d", lane, s.Box.X, s.Box.Y)
	for _, sym := range s.Symbols {
		fmt.Fprintf(&sb, "S%s%dx%d", sym.Key, sym.X, sym.Y)
	}
	return sb.String()
}

// Min returns the smallest symbol coordinate on each axis.
// An empty sign returns its box.
func (s Sign) Min() Point {
	if len(s.Symbols) == 0 {
		return s.Box
	}
	lo := s.Symbols[0].Point
	for _, sym := range s.Symbols[1:] {
		if sym.X < lo.X {
			lo.X = sym.X
		}
		if sym.Y < lo.Y {
			lo.Y = sym.Y
		}
	}
	return lo
}

// Parse decodes an FSW string. A leading sorting prefix (A...) is accepted
// and discarded.
func Parse(s string) (Sign, error) {
	m := signPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Sign{}, fmt.Errorf("%w: %q", ErrInvalidFSW, s)
	}

	sign := Sign{Lane: m[1][0]}
	sign.Box.X, _ = strconv.Atoi(m[2])
	sign.Box.Y, _ = strconv.Atoi(m[3])

	for _, sm := range symbolPattern.FindAllStringSubmatch(m[4], -1) {
		x, err := strconv.Atoi(sm[2])
		if err != nil {
			return Sign{}, fmt.Errorf("%w: %v", ErrInvalidFSW, err)
		}
		y, err := strconv.Atoi(sm[3])
		if err != nil {
			return Sign{}, fmt.Errorf("%w: %v", ErrInvalidFSW, err)
		}
		sign.Symbols = append(sign.Symbols, Symbol{Key: sm[1], Point: Point{X: x, Y: y}})
	}
	return sign, nil
}

// SymbolID returns the numeric identifier of a symbol key as used by the
// SignWriting fonts: base, fill and rotation packed into a single integer
// starting at 1.
func SymbolID(key string) (int, error) {
	key = strings.TrimPrefix(key, "S")
	if len(key) != 5 {
		return 0, fmt.Errorf("%w: symbol key %q", ErrInvalidFSW, key)
	}
	base, err := strconv.ParseInt(key[:3], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: symbol key %q", ErrInvalidFSW, key)
	}
	fill, err := strconv.ParseInt(key[3:4], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: symbol key %q", ErrInvalidFSW, key)
	}
	rotation, err := strconv.ParseInt(key[4:5], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: symbol key %q", ErrInvalidFSW, key)
	}
	if base < 0x100 || fill > 5 {
		return 0, fmt.Errorf("%w: symbol key %q", ErrInvalidFSW, key)
	}
	return int(base-0x100)*96 + int(fill)*16 + int(rotation) + 1, nil
}
