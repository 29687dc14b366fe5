package vt

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// PaletteConfig overrides the default colors. Entries are hex strings
// ("#rrggbb"); empty entries keep the default.
type PaletteConfig struct {
	Foreground, Background, Cursor string
	Normal, Bright                 [8]string
}

// Config holds the settings a Terminal is created with.
type Config struct {
	Rows, Cols int
	// Scrollback is the number of history rows kept for the primary
	// screen. Zero disables history.
	Scrollback  int
	CursorShape CursorShape
	Palette     PaletteConfig
	// C1Controls enables recognition of 8-bit C1 control bytes. It
	// should stay off for UTF-8 streams.
	C1Controls bool
}

func DefaultConfig() Config {
	return Config{
		Rows:        DEF_ROWS,
		Cols:        DEF_COLS,
		Scrollback:  DEF_SCROLLBACK,
		CursorShape: CursorBlock,
	}
}

// normalize clamps dimensions and capacity to usable values.
func (c Config) normalize() Config {
	c.Rows = max(c.Rows, 1)
	c.Cols = max(c.Cols, 1)
	c.Scrollback = max(c.Scrollback, 0)
	return c
}

func (pc PaletteConfig) build() (*Palette, error) {
	p := NewPalette()

	apply := func(name, spec string, dest *colorful.Color) error {
		if spec == "" {
			return nil
		}
		c, err := colorful.Hex(spec)
		if err != nil {
			return fmt.Errorf("invalid %s color %q: %w", name, spec, err)
		}
		*dest = c
		return nil
	}

	if err := apply("foreground", pc.Foreground, &p.Foreground); err != nil {
		return nil, err
	}
	if err := apply("background", pc.Background, &p.Background); err != nil {
		return nil, err
	}
	if err := apply("cursor", pc.Cursor, &p.Cursor); err != nil {
		return nil, err
	}
	for i := range 8 {
		if err := apply(fmt.Sprintf("normal %d", i), pc.Normal[i], &p.colors[i]); err != nil {
			return nil, err
		}
		if err := apply(fmt.Sprintf("bright %d", i), pc.Bright[i], &p.colors[8+i]); err != nil {
			return nil, err
		}
	}

	return p, nil
}
