package vt

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// oscHandler gets everything after the first ';' and the byte that
// terminated the string, so replies can use the same terminator.
type oscHandler func(t *Terminal, arg string, term byte)

// https://invisible-island.net/xterm/ctlseqs/ctlseqs.html#h3-Operating-System-Commands
// is a good description of the options here. Many of them are legacy
// and aren't implemented until there's a use for them.
var oscTable map[int]oscHandler

func init() {
	oscTable = map[int]oscHandler{
		OSC_ICON_TITLE: func(t *Terminal, arg string, _ byte) {
			t.title = strings.ToValidUTF8(arg, "�")
			t.icon = t.title
		},
		OSC_ICON:  func(t *Terminal, arg string, _ byte) { t.icon = strings.ToValidUTF8(arg, "�") },
		OSC_TITLE: func(t *Terminal, arg string, _ byte) { t.title = strings.ToValidUTF8(arg, "�") },

		OSC_PALETTE:     (*Terminal).oscPalette,
		OSC_CWD:         (*Terminal).oscWorkingDir,
		OSC_HYPERLINK:   (*Terminal).oscHyperlink,
		OSC_FG:          func(t *Terminal, arg string, term byte) { t.oscDynamicColors(OSC_FG, arg, term) },
		OSC_BG:          func(t *Terminal, arg string, term byte) { t.oscDynamicColors(OSC_BG, arg, term) },
		OSC_CURSOR_COL:  func(t *Terminal, arg string, term byte) { t.oscDynamicColors(OSC_CURSOR_COL, arg, term) },
		OSC_PALETTE_RST: (*Terminal).oscPaletteReset,
		OSC_FG_RST:      func(t *Terminal, _ string, _ byte) { t.mutPalette().Foreground = t.basePalette.Foreground },
		OSC_BG_RST:      func(t *Terminal, _ string, _ byte) { t.mutPalette().Background = t.basePalette.Background },
		OSC_CURSOR_RST:  func(t *Terminal, _ string, _ byte) { t.mutPalette().Cursor = t.basePalette.Cursor },

		OSC_CLIPBOARD:    func(t *Terminal, _ string, _ byte) { slog.Debug("dropping clipboard request") },
		OSC_PROMPT_MARKS: func(t *Terminal, arg string, _ byte) { slog.Debug("dropping prompt mark", "arg", arg) },
	}
}

func (t *Terminal) handleOSC(ev Event) {
	data := string(ev.Payload)
	slog.Debug("handling OSC data", "data", data)

	num, arg, _ := strings.Cut(data, ";")
	code, err := strconv.Atoi(num)
	if err != nil {
		t.stats.Malformed++
		slog.Debug("malformed OSC", "data", data, "err", err)
		return
	}

	h, ok := oscTable[code]
	if !ok {
		t.unsupported("unknown OSC entity", "code", code, "data", data)
		return
	}
	h(t, arg, ev.Byte)
}

// oscReply answers a query using the terminator the query arrived
// with.
func (t *Terminal) oscReply(term byte, format string, args ...any) {
	body := fmt.Sprintf(format, args...)
	if term == CTRL_BEL {
		t.reply("%c%c%s%c", ESC, ESC_OSC, body, CTRL_BEL)
		return
	}
	t.reply("%c%c%s%c%c", ESC, ESC_OSC, body, ESC, ESC_ST)
}

// oscPalette handles OSC 4 ; n ; spec [; n ; spec ...]. A spec of "?"
// is a query.
func (t *Terminal) oscPalette(arg string, term byte) {
	parts := strings.Split(arg, ";")
	for i := 0; i+1 < len(parts); i += 2 {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 || n > 255 {
			slog.Debug("invalid palette index", "index", parts[i])
			continue
		}

		if parts[i+1] == "?" {
			t.oscReply(term, "%d;%d;%s", OSC_PALETTE, n, formatColorSpec(t.palette.Index(n)))
			continue
		}

		c, ok := parseColorSpec(parts[i+1])
		if !ok {
			slog.Debug("invalid color spec", "spec", parts[i+1])
			continue
		}
		t.mutPalette().setIndex(n, c)
	}
}

// oscPaletteReset handles OSC 104, with no argument resetting every
// entry.
func (t *Terminal) oscPaletteReset(arg string, _ byte) {
	p := t.mutPalette()
	if arg == "" {
		p.colors = t.basePalette.colors
		return
	}
	for _, s := range strings.Split(arg, ";") {
		n, err := strconv.Atoi(s)
		if err != nil {
			slog.Debug("invalid palette index", "index", s)
			continue
		}
		p.resetIndex(n, t.basePalette)
	}
}

// oscDynamicColors handles OSC 10, 11 and 12. Extra arguments carry on
// to the next color in sequence, so "OSC 10 ; fg ; bg" sets both.
func (t *Terminal) oscDynamicColors(code int, arg string, term byte) {
	for _, spec := range strings.Split(arg, ";") {
		if code > OSC_CURSOR_COL {
			break
		}

		if spec == "?" {
			t.oscReply(term, "%d;%s", code, formatColorSpec(*t.dynamicColor(t.palette, code)))
		} else if c, ok := parseColorSpec(spec); ok {
			*t.dynamicColor(t.mutPalette(), code) = c
		} else {
			slog.Debug("invalid color spec", "code", code, "spec", spec)
		}
		code++
	}
}

func (t *Terminal) dynamicColor(p *Palette, code int) *colorful.Color {
	switch code {
	case OSC_FG:
		return &p.Foreground
	case OSC_BG:
		return &p.Background
	}
	return &p.Cursor
}

// oscWorkingDir handles OSC 7 ; file://host/path. Anything that isn't
// a file URL is kept verbatim.
func (t *Terminal) oscWorkingDir(arg string, _ byte) {
	u, err := url.Parse(arg)
	if err != nil || u.Scheme != "file" {
		slog.Debug("non file url for working directory", "arg", arg, "err", err)
		t.cwd = arg
		return
	}
	t.cwd = u.Path
}

// oscHyperlink handles OSC 8 ; params ; uri. An empty uri ends the
// active link.
func (t *Terminal) oscHyperlink(arg string, _ byte) {
	_, uri, ok := strings.Cut(arg, ";")
	if !ok {
		slog.Debug("malformed hyperlink", "arg", arg)
		t.stats.Malformed++
		return
	}
	t.link = uri
}
