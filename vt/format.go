package vt

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Attr is a bitmap of the character attributes a cell can carry.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrFaint
	AttrItalic
	AttrBlink
	AttrReverse
	AttrStrike
	AttrInvisible
)

// attrCodes pairs each attribute with its SGR on code, in the order
// they are emitted when a rendition is serialized.
var attrCodes = []struct {
	a    Attr
	code int
}{
	{AttrBold, INTENSITY_BOLD},
	{AttrFaint, INTENSITY_FAINT},
	{AttrItalic, ITALIC_ON},
	{AttrBlink, BLINK_ON},
	{AttrReverse, REVERSED_ON},
	{AttrInvisible, INVISIBLE_ON},
	{AttrStrike, STRIKEOUT_ON},
}

type UnderlineStyle uint8

const (
	UnderlineNone UnderlineStyle = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineCurly
	UnderlineDotted
	UnderlineDashed
)

// rendition is the pen: the colors and attributes applied to every
// cell printed until the next SGR changes it.
type rendition struct {
	fg, bg, ul Color
	attrs      Attr
	underline  UnderlineStyle
}

var defRendition = rendition{}

func (r rendition) has(a Attr) bool {
	return r.attrs&a != 0
}

func (r *rendition) set(a Attr, val bool) {
	if val {
		r.attrs |= a
	} else {
		r.attrs &^= a
	}
}

// sgr serializes the rendition as SGR parameters that reproduce it
// from a reset pen.
func (r rendition) sgr() string {
	parts := []string{"0"}
	for _, ac := range attrCodes {
		if r.has(ac.a) {
			parts = append(parts, strconv.Itoa(ac.code))
		}
	}
	switch r.underline {
	case UnderlineNone:
	case UnderlineSingle:
		parts = append(parts, strconv.Itoa(UNDERLINE_ON))
	default:
		parts = append(parts, fmt.Sprintf("%d:%d", UNDERLINE_ON, r.underline))
	}
	if !r.fg.IsDefault() {
		parts = append(parts, r.fg.sgr(SET_FG))
	}
	if !r.bg.IsDefault() {
		parts = append(parts, r.bg.sgr(SET_BG))
	}
	switch r.ul.Kind {
	case ColorIndexed:
		parts = append(parts, fmt.Sprintf("%d;%d;%d", SET_UNDERLINE_COL, COLOR_INDEXED, r.ul.Index))
	case ColorRGB:
		parts = append(parts, fmt.Sprintf("%d;%d;%d;%d;%d", SET_UNDERLINE_COL, COLOR_RGB, r.ul.R, r.ul.G, r.ul.B))
	}
	return strings.Join(parts, ";")
}

func (r rendition) String() string {
	return fmt.Sprintf("fg: %s; bg: %s; attrs: %#x; underline: %d", r.fg, r.bg, r.attrs, r.underline)
}

// applySGR returns cur modified by the SGR parameters in p. Codes that
// aren't understood are skipped individually; the rest of the list is
// still applied.
func applySGR(cur rendition, p Params) rendition {
	if p.Len() == 0 {
		return defRendition
	}

	r := cur
	groups := p.Groups()
	for i := 0; i < len(groups); i++ {
		g := groups[i]
		code := g[0]
		switch {
		case code == RESET:
			r = defRendition
		case code == INTENSITY_BOLD:
			r.set(AttrBold, true)
		case code == INTENSITY_FAINT:
			r.set(AttrFaint, true)
		case code == INTENSITY_NORMAL:
			r.set(AttrBold|AttrFaint, false)
		case code == ITALIC_ON || code == ITALIC_OFF:
			r.set(AttrItalic, code < 10)
		case code == UNDERLINE_ON:
			r.underline = UnderlineSingle
			if len(g) > 1 {
				if g[1] <= int(UnderlineDashed) {
					r.underline = UnderlineStyle(g[1])
				} else {
					slog.Debug("unknown underline style", "style", g[1])
				}
			}
		case code == DOUBLE_UNDERLINE:
			r.underline = UnderlineDouble
		case code == UNDERLINE_OFF:
			r.underline = UnderlineNone
		case code == BLINK_ON || code == RAPID_BLINK_ON || code == BLINK_OFF:
			r.set(AttrBlink, code < 10)
		case code == REVERSED_ON || code == REVERSED_OFF:
			r.set(AttrReverse, code < 10)
		case code == INVISIBLE_ON || code == INVISIBLE_OFF:
			r.set(AttrInvisible, code < 10)
		case code == STRIKEOUT_ON || code == STRIKEOUT_OFF:
			r.set(AttrStrike, code < 10)
		case code >= FG_BLACK && code <= FG_WHITE:
			r.fg = IndexedColor(code - FG_BLACK)
		case code >= FG_BRIGHT_BLACK && code <= FG_BRIGHT_WHITE:
			r.fg = IndexedColor(8 + code - FG_BRIGHT_BLACK)
		case code == FG_DEF:
			r.fg = DefaultColor
		case code >= BG_BLACK && code <= BG_WHITE:
			r.bg = IndexedColor(code - BG_BLACK)
		case code >= BG_BRIGHT_BLACK && code <= BG_BRIGHT_WHITE:
			r.bg = IndexedColor(8 + code - BG_BRIGHT_BLACK)
		case code == BG_DEF:
			r.bg = DefaultColor
		case code == UNDERLINE_COL_DEF:
			r.ul = DefaultColor
		case code == SET_FG || code == SET_BG || code == SET_UNDERLINE_COL:
			var c Color
			var ok bool
			if len(g) > 1 {
				c, ok = colorFromSubParams(g[1:])
			} else {
				var used int
				c, used, ok = colorFromParams(groups[i+1:])
				i += used
			}
			if !ok {
				slog.Debug("invalid extended color", "code", code, "params", p)
				continue
			}
			switch code {
			case SET_FG:
				r.fg = c
			case SET_BG:
				r.bg = c
			default:
				r.ul = c
			}
		default:
			slog.Debug("unimplemented SGR option", "param", code)
		}
	}

	return r
}

// colorFromParams reads an extended color in the semicolon form
// (38;5;n or 38;2;r;g;b) from the groups following the 38/48/58. It
// returns the color, the number of groups consumed and whether the
// color was valid.
func colorFromParams(rest [][]int) (Color, int, bool) {
	if len(rest) == 0 {
		return Color{}, 0, false
	}

	switch rest[0][0] {
	case COLOR_INDEXED:
		if len(rest) < 2 {
			return Color{}, len(rest), false
		}
		n := rest[1][0]
		return IndexedColor(n), 2, n <= 255
	case COLOR_RGB:
		if len(rest) < 4 {
			return Color{}, len(rest), false
		}
		r, g, b := rest[1][0], rest[2][0], rest[3][0]
		if r > 255 || g > 255 || b > 255 {
			return Color{}, 4, false
		}
		return RGBColor(uint8(r), uint8(g), uint8(b)), 4, true
	}

	return Color{}, 1, false
}

// colorFromSubParams reads an extended color in the colon form:
// 38:5:n, 38:2:r:g:b or 38:2:cs:r:g:b (ITU T.416, with a color space
// id that we ignore).
func colorFromSubParams(sub []int) (Color, bool) {
	switch sub[0] {
	case COLOR_INDEXED:
		if len(sub) < 2 || sub[1] > 255 {
			return Color{}, false
		}
		return IndexedColor(sub[1]), true
	case COLOR_RGB:
		var rgb []int
		switch {
		case len(sub) >= 5:
			rgb = sub[2:5]
		case len(sub) == 4:
			rgb = sub[1:4]
		default:
			return Color{}, false
		}
		for _, v := range rgb {
			if v > 255 {
				return Color{}, false
			}
		}
		return RGBColor(uint8(rgb[0]), uint8(rgb[1]), uint8(rgb[2])), true
	}

	return Color{}, false
}
