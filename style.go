package docstamp

import (
	"image/color"
	"strings"
)

// Color represents an ARGB color.
type Color struct {
	ARGB string // 8-character hex string, e.g., "FF000000" for black
}

// Predefined colors.
var (
	ColorBlack    = Color{ARGB: "FF000000"}
	ColorWhite    = Color{ARGB: "FFFFFFFF"}
	ColorDarkGray = Color{ARGB: "FF4D4D4D"}
)

// NewColor creates a new Color from an ARGB hex string.
// Accepts 6-char RGB (e.g. "FF0000") or 8-char ARGB (e.g. "FFFF0000").
// A leading "#" is stripped automatically.
func NewColor(argb string) Color {
	argb = strings.TrimPrefix(argb, "#")
	if len(argb) == 6 {
		argb = "FF" + argb
	}
	argb = strings.ToUpper(argb)
	if !isValidARGB(argb) {
		return ColorBlack
	}
	return Color{ARGB: argb}
}

// isValidARGB checks that s is exactly 8 hex characters.
func isValidARGB(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// GetRed returns the red component (0-255).
func (c Color) GetRed() uint8 {
	return parseHexByte(c.ARGB, 2)
}

// GetGreen returns the green component (0-255).
func (c Color) GetGreen() uint8 {
	return parseHexByte(c.ARGB, 4)
}

// GetBlue returns the blue component (0-255).
func (c Color) GetBlue() uint8 {
	return parseHexByte(c.ARGB, 6)
}

// GetAlpha returns the alpha component (0-255).
func (c Color) GetAlpha() uint8 {
	return parseHexByte(c.ARGB, 0)
}

// RGBA converts the color for use with image/draw. The result is
// premultiplied as color.RGBA requires.
func (c Color) RGBA() color.RGBA {
	a := uint16(c.GetAlpha())
	return color.RGBA{
		R: uint8(uint16(c.GetRed()) * a / 255),
		G: uint8(uint16(c.GetGreen()) * a / 255),
		B: uint8(uint16(c.GetBlue()) * a / 255),
		A: uint8(a),
	}
}

// RGBHex returns the 6-character RGB part, the form WordprocessingML
// expects in w:color attributes.
func (c Color) RGBHex() string {
	if len(c.ARGB) != 8 {
		return "000000"
	}
	return c.ARGB[2:]
}

// parseHexByte parses two hex characters at offset into a uint8.
// Returns 0 on any error (out of range, invalid chars).
func parseHexByte(s string, offset int) uint8 {
	if offset+2 > len(s) {
		return 0
	}
	h := hexVal(s[offset])
	l := hexVal(s[offset+1])
	if h < 0 || l < 0 {
		return 0
	}
	return uint8(h<<4 | l)
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return -1
	}
}

// Alignment is a paragraph justification (w:jc) value.
type Alignment string

const (
	AlignmentNone    Alignment = ""
	AlignmentLeft    Alignment = "left"
	AlignmentCenter  Alignment = "center"
	AlignmentRight   Alignment = "right"
	AlignmentJustify Alignment = "both"
)

// normalizeAlignment maps legacy and bidi-aware values onto the four
// basic alignments.
func normalizeAlignment(v string) Alignment {
	switch v {
	case "start", "left":
		return AlignmentLeft
	case "end", "right":
		return AlignmentRight
	case "center":
		return AlignmentCenter
	case "both", "distribute":
		return AlignmentJustify
	}
	return Alignment(v)
}

// BorderSide names one edge of a paragraph border box.
type BorderSide string

const (
	BorderTop    BorderSide = "top"
	BorderBottom BorderSide = "bottom"
	BorderLeft   BorderSide = "left"
	BorderRight  BorderSide = "right"
)

// BorderStyle represents the border line style.
type BorderStyle string

const (
	BorderNone   BorderStyle = "none"
	BorderSingle BorderStyle = "single"
	BorderDashed BorderStyle = "dashed"
	BorderDotted BorderStyle = "dotted"
)

// Border describes one paragraph border edge.
type Border struct {
	Style BorderStyle
	Size  int // in eighths of a point
	Space int // distance from text in points
	Color Color
}

// NewBorder creates a thin single-line border.
func NewBorder() Border {
	return Border{Style: BorderSingle, Size: 4, Space: 1, Color: ColorBlack}
}
