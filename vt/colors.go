package vt

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

type ColorKind uint8

const (
	ColorDefault ColorKind = iota
	ColorIndexed
	ColorRGB
)

// Color is the color stored in a cell. Indexed colors are resolved
// against a Palette only when something needs real RGB values (a
// renderer, an OSC query), so palette changes recolor existing cells
// the way they do in xterm.
type Color struct {
	Kind    ColorKind
	Index   uint8
	R, G, B uint8
}

var DefaultColor = Color{}

func IndexedColor(n int) Color {
	return Color{Kind: ColorIndexed, Index: uint8(clamp(n, 0, 255))}
}

func RGBColor(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, R: r, G: g, B: b}
}

func (c Color) IsDefault() bool {
	return c.Kind == ColorDefault
}

// sgr returns the SGR parameter string selecting c. set is SET_FG or
// SET_BG and determines which family of codes is used.
func (c Color) sgr(set int) string {
	switch c.Kind {
	case ColorIndexed:
		base := FG_BLACK
		if set == SET_BG {
			base = BG_BLACK
		}
		switch {
		case c.Index < 8:
			return strconv.Itoa(base + int(c.Index))
		case c.Index < 16:
			return strconv.Itoa(base + 60 + int(c.Index) - 8)
		}
		return fmt.Sprintf("%d;%d;%d", set, COLOR_INDEXED, c.Index)
	case ColorRGB:
		return fmt.Sprintf("%d;%d;%d;%d;%d", set, COLOR_RGB, c.R, c.G, c.B)
	}

	if set == SET_BG {
		return strconv.Itoa(BG_DEF)
	}
	return strconv.Itoa(FG_DEF)
}

func (c Color) String() string {
	switch c.Kind {
	case ColorIndexed:
		return fmt.Sprintf("idx(%d)", c.Index)
	case ColorRGB:
		return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
	}
	return "default"
}

// Palette holds the 256 indexed colors plus the default foreground,
// background and cursor colors. The first 16 entries are the base
// (8 normal + 8 bright) colors and may be replaced by configuration or
// OSC 4.
type Palette struct {
	colors                         [256]colorful.Color
	Foreground, Background, Cursor colorful.Color
}

var (
	defNormal = [8]string{"#000000", "#800000", "#008000", "#808000", "#000080", "#800080", "#008080", "#c0c0c0"}
	defBright = [8]string{"#808080", "#ff0000", "#00ff00", "#ffff00", "#0000ff", "#ff00ff", "#00ffff", "#ffffff"}
	defFg     = "#ffffff"
	defBg     = "#000000"
	defCursor = "#ffffff"
)

// NewPalette returns the default palette: the base colors above, a 6x6x6
// color cube at 16-231 and a 24 step gray ramp at 232-255.
func NewPalette() *Palette {
	p := &Palette{}
	for i := range p.colors {
		p.colors[i] = defaultIndexed(i)
	}
	p.Foreground = mustHex(defFg)
	p.Background = mustHex(defBg)
	p.Cursor = mustHex(defCursor)
	return p
}

var cubeLevels = [6]uint8{0, 95, 135, 175, 215, 255}

func defaultIndexed(i int) colorful.Color {
	switch {
	case i < 8:
		return mustHex(defNormal[i])
	case i < 16:
		return mustHex(defBright[i-8])
	case i < 232:
		i -= 16
		return rgb255(cubeLevels[i/36], cubeLevels[(i/6)%6], cubeLevels[i%6])
	default:
		g := uint8(8 + 10*(i-232))
		return rgb255(g, g, g)
	}
}

func rgb255(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("bad built-in color %q: %v", s, err))
	}
	return c
}

func (p *Palette) clone() *Palette {
	np := *p
	return &np
}

// Index returns the RGB value of indexed color n, clamped to 0-255.
func (p *Palette) Index(n int) colorful.Color {
	return p.colors[clamp(n, 0, 255)]
}

func (p *Palette) setIndex(n int, c colorful.Color) {
	if n < 0 || n > 255 {
		slog.Debug("ignoring out of range palette index", "n", n)
		return
	}
	p.colors[n] = c
}

// resetIndex restores color n from base, the palette the terminal was
// configured with.
func (p *Palette) resetIndex(n int, base *Palette) {
	if n < 0 || n > 255 {
		return
	}
	p.colors[n] = base.colors[n]
}

// Resolve maps c to an RGB value. fg selects which default applies to
// ColorDefault.
func (p *Palette) Resolve(c Color, fg bool) colorful.Color {
	switch c.Kind {
	case ColorIndexed:
		return p.colors[c.Index]
	case ColorRGB:
		return rgb255(c.R, c.G, c.B)
	}
	if fg {
		return p.Foreground
	}
	return p.Background
}

// parseColorSpec understands the color forms xterm accepts in OSC 4,
// 10, 11 and 12: "#rgb", "#rrggbb" and "rgb:r/g/b" with 1-4 hex digits
// per component.
func parseColorSpec(s string) (colorful.Color, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		c, err := colorful.Hex(s)
		if err != nil {
			return colorful.Color{}, false
		}
		return c, true
	case strings.HasPrefix(s, "rgb:"):
		parts := strings.Split(s[4:], "/")
		if len(parts) != 3 {
			return colorful.Color{}, false
		}
		var v [3]float64
		for i, part := range parts {
			if len(part) < 1 || len(part) > 4 {
				return colorful.Color{}, false
			}
			n, err := strconv.ParseUint(part, 16, 16)
			if err != nil {
				return colorful.Color{}, false
			}
			full := uint64(1)<<(4*len(part)) - 1
			v[i] = float64(n) / float64(full)
		}
		return colorful.Color{R: v[0], G: v[1], B: v[2]}, true
	}
	return colorful.Color{}, false
}

// formatColorSpec renders c the way xterm answers color queries.
func formatColorSpec(c colorful.Color) string {
	r, g, b := c.Clamped().RGB255()
	return fmt.Sprintf("rgb:%02x%02x/%02x%02x/%02x%02x", r, r, g, g, b, b)
}
