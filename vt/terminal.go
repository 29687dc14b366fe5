package vt

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// Stats counts what the terminal had to ignore. Protocol problems are
// never returned as errors; this is where they show up instead.
type Stats struct {
	Events      uint64 // parser events applied
	Unsupported uint64 // well formed sequences we don't implement
	Malformed   uint64 // invalid sequences and code points
}

// screen is one of the two screen buffers along with its own DECSC
// slot.
type screen struct {
	g     *grid
	saved savedCursor
}

type titlePair struct {
	title, icon string
}

// xterm keeps a title stack for XTWINOPS 22/23; we bound ours.
const maxTitleStack = 10

// Terminal applies parser events to a screen model. It is not safe for
// concurrent use: one goroutine owns it and publishes Snapshots for
// everyone else.
type Terminal struct {
	cfg Config
	p   *Parser

	primary, alt *screen
	history      *scrollback

	// State
	cur      cursor
	pen      rendition
	link     string // active OSC 8 hyperlink
	cs       charset
	modes    Modes
	tabs     []bool
	shape    CursorShape
	altSaved savedCursor // cursor saved by DECSET 1049

	title, icon, cwd string
	titles           []titlePair

	// palette is replaced, never modified in place, so snapshots can
	// share it.
	palette, basePalette *Palette
	bells                uint64

	lastPrinted rune // for REP
	dcs         *dcsCapture

	// Output
	replies bytes.Buffer
	version uint64
	dirty   bool
	stats   Stats
}

func NewTerminal(cfg Config) (*Terminal, error) {
	cfg = cfg.normalize()
	pal, err := cfg.Palette.build()
	if err != nil {
		return nil, fmt.Errorf("couldn't build palette: %w", err)
	}

	t := &Terminal{
		cfg:         cfg,
		p:           NewParser(cfg.C1Controls),
		history:     newScrollback(cfg.Scrollback),
		primary:     &screen{g: newGrid(cfg.Rows, cfg.Cols)},
		basePalette: pal,
	}
	t.reset()

	return t, nil
}

// Feed parses data and applies every resulting event in order.
func (t *Terminal) Feed(data []byte) {
	for ev := range t.p.Parse(data) {
		t.Apply(ev)
	}
}

// Apply applies a single parser event.
func (t *Terminal) Apply(ev Event) {
	t.stats.Events++
	t.dirty = true

	switch ev.Kind {
	case EventPrint:
		t.print(ev.Rune)
	case EventExecute:
		t.handleExecute(ev.Byte)
	case EventCSI:
		t.handleCSI(ev)
	case EventESC:
		t.handleESC(ev)
	case EventOSC:
		t.handleOSC(ev)
	case EventDCSHook:
		t.dcsHook(ev)
	case EventDCSPut:
		t.dcsPut(ev.Payload)
	case EventDCSUnhook:
		t.dcsUnhook(ev.Byte)
	default:
		slog.Debug("unhandled event", "event", ev)
	}
}

// Resize changes the screen dimensions. Values below 1 are clamped to
// 1. Content stays aligned to the top left; rows and columns that no
// longer fit are dropped. The scroll region resets to the full screen.
func (t *Terminal) Resize(rows, cols int) {
	rows, cols = max(rows, 1), max(cols, 1)
	if rows == t.rows() && cols == t.cols() {
		return
	}

	t.primary.g = t.primary.g.resize(rows, cols)
	if t.alt != nil {
		t.alt.g = t.alt.g.resize(rows, cols)
	}
	t.tabs = resizeTabs(t.tabs, cols)
	t.modes.ScrollTop, t.modes.ScrollBottom = 0, rows-1
	t.cursorMoveAbs(t.cur.row, t.cur.col)
	t.dirty = true

	slog.Debug("changed window size", "rows", rows, "cols", cols)
}

// Reset performs a full reset (RIS). History is kept.
func (t *Terminal) Reset() {
	t.reset()
}

// TakeReplies returns and clears the bytes the terminal wants sent
// back to the application (status reports, device attributes, color
// query answers).
func (t *Terminal) TakeReplies() []byte {
	if t.replies.Len() == 0 {
		return nil
	}
	b := bytes.Clone(t.replies.Bytes())
	t.replies.Reset()
	return b
}

// Changed reports whether anything was applied since the last
// Snapshot.
func (t *Terminal) Changed() bool {
	return t.dirty
}

// Modes returns the current modes, which input encoding depends on.
func (t *Terminal) Modes() Modes {
	return t.modes
}

func (t *Terminal) Stats() Stats {
	s := t.stats
	s.Malformed += t.p.Malformed()
	return s
}

func (t *Terminal) reply(format string, args ...any) {
	fmt.Fprintf(&t.replies, format, args...)
}

func (t *Terminal) unsupported(msg string, args ...any) {
	t.stats.Unsupported++
	slog.Warn(msg, args...)
}

func (t *Terminal) screen() *screen {
	if t.modes.AltScreen && t.alt != nil {
		return t.alt
	}
	return t.primary
}

func (t *Terminal) grid() *grid {
	return t.screen().g
}

func (t *Terminal) rows() int {
	return t.primary.g.rows
}

func (t *Terminal) cols() int {
	return t.primary.g.cols
}

func (t *Terminal) region() margin {
	return margin{top: t.modes.ScrollTop, bottom: t.modes.ScrollBottom}
}

func (t *Terminal) reset() {
	rows, cols := t.rows(), t.cols()
	t.primary = &screen{g: newGrid(rows, cols)}
	t.alt = nil
	t.cur = cursor{}
	t.pen = defRendition
	t.link = ""
	t.cs = charset{}
	t.modes = defaultModes(rows)
	t.tabs = makeTabs(cols)
	t.shape = t.cfg.CursorShape
	t.altSaved = savedCursor{}
	t.title, t.icon, t.cwd = "", "", ""
	t.titles = nil
	t.palette = t.basePalette
	t.lastPrinted = 0
	t.dcs = nil
	t.dirty = true
}

// softReset is DECSTR.
func (t *Terminal) softReset() {
	t.modes.Insert = false
	t.modes.Origin = false
	t.modes.Autowrap = true
	t.modes.CursorVisible = true
	t.modes.AppCursor = false
	t.modes.AppKeypad = false
	t.modes.ScrollTop, t.modes.ScrollBottom = 0, t.rows()-1
	t.pen = defRendition
	t.link = ""
	t.cs = charset{}
	t.screen().saved = savedCursor{}
	t.cur.wrapPending = false
}

// mutPalette returns a private copy of the palette for modification.
func (t *Terminal) mutPalette() *Palette {
	t.palette = t.palette.clone()
	return t.palette
}

func (t *Terminal) print(r rune) {
	r = t.cs.runeFor(r)
	w := runewidth.RuneWidth(r)
	if w == 0 {
		t.combine(r)
		return
	}

	g := t.grid()
	if w > g.cols {
		w = 1
	}

	if t.cur.wrapPending {
		if t.modes.Autowrap {
			t.cur.col = 0
			t.index()
		}
		t.cur.wrapPending = false
	}

	if t.cur.col+w > g.cols {
		// A wide glyph that doesn't fit in the last column.
		if t.modes.Autowrap {
			g.fill(t.cur.row, t.cur.col, g.cols, eraseCell(t.pen))
			t.cur.col = 0
			t.index()
		} else {
			t.cur.col = g.cols - w
		}
	}

	row, col := t.cur.row, t.cur.col
	if t.modes.Insert {
		g.insertCells(row, col, w, eraseCell(t.pen))
	}
	t.breakWide(row, col, w)
	g.setCell(row, col, newCell(r, w, t.pen, t.link))
	if w == 2 {
		g.setCell(row, col+1, continuationCell(t.pen, t.link))
	}
	t.lastPrinted = r

	if col+w >= g.cols {
		t.cur.col = g.cols - 1
		t.cur.wrapPending = t.modes.Autowrap
	} else {
		t.cur.col = col + w
	}
}

// breakWide blanks the far half of any wide glyph that a write of
// width w at (row, col) is about to split.
func (t *Terminal) breakWide(row, col, w int) {
	g := t.grid()
	if c := g.cell(row, col); c.IsContinuation() && col > 0 {
		h := g.cell(row, col-1)
		h.R, h.Width = ' ', 1
		g.setCell(row, col-1, h)
	}
	end := col + w - 1
	if c := g.cell(row, end); c.IsWide() && end+1 < g.cols {
		n := g.cell(row, end+1)
		n.R, n.Width = ' ', 1
		g.setCell(row, end+1, n)
	}
}

// combine folds a zero width rune into the glyph before the cursor.
func (t *Terminal) combine(r rune) {
	g := t.grid()
	row, col := t.cur.row, t.cur.col-1
	if t.cur.wrapPending {
		col = t.cur.col
	}
	if col < 0 {
		// Nothing to combine with; if we wrapped, the glyph
		// is on the previous line and we don't reach back.
		slog.Debug("punting on 0 width rune", "r", r)
		return
	}

	c := g.cell(row, col)
	if c.IsContinuation() && col > 0 {
		col--
		c = g.cell(row, col)
	}

	n := norm.NFC.String(string(c.R) + string(r))
	if utf8.RuneCountInString(n) != 1 {
		slog.Debug("no single rune composition", "base", string(c.R), "r", r)
		return
	}
	c.R, _ = utf8.DecodeRuneInString(n)
	g.setCell(row, col, c)
}

func (t *Terminal) handleExecute(b byte) {
	switch b {
	case CTRL_NUL, CTRL_ENQ:
		// Do nothing
	case CTRL_BEL:
		t.bells++
	case CTRL_BS:
		t.cursorMoveAbs(t.cur.row, t.cur.col-1)
	case CTRL_TAB:
		t.stepTabs(1)
	case CTRL_LF, CTRL_VT, CTRL_FF: // libvte treats lf and ff the same, so we do too
		t.lineFeed()
	case CTRL_CR:
		t.carriageReturn()
	case CTRL_SO:
		t.cs.shiftOut()
	case CTRL_SI:
		t.cs.shiftIn()
	case C1_IND:
		t.index()
	case C1_NEL:
		t.carriageReturn()
		t.index()
	case C1_HTS:
		t.setTab()
	case C1_RI:
		t.reverseIndex()
	default:
		slog.Debug("handleExecute: unhandled control", "b", b)
	}
}

func (t *Terminal) carriageReturn() {
	t.cur.col = 0
	t.cur.wrapPending = false
}

func (t *Terminal) lineFeed() {
	t.index()
	if t.modes.NewLine {
		t.cur.col = 0
	}
}

// index moves the cursor down a row, scrolling the region when the
// cursor is on its bottom row.
func (t *Terminal) index() {
	t.cur.wrapPending = false
	switch {
	case t.cur.row == t.modes.ScrollBottom:
		t.scrollUp(1)
	case t.cur.row < t.rows()-1:
		t.cur.row++
	}
}

// reverseIndex moves the cursor up a row, scrolling the region down
// when the cursor is on its top row.
func (t *Terminal) reverseIndex() {
	t.cur.wrapPending = false
	switch {
	case t.cur.row == t.modes.ScrollTop:
		t.scrollDown(1)
	case t.cur.row > 0:
		t.cur.row--
	}
}

// scrollUp scrolls the region up by n rows. Rows leaving the top of
// the primary screen go to history.
func (t *Terminal) scrollUp(n int) {
	evicted := t.grid().scrollUp(t.modes.ScrollTop, t.modes.ScrollBottom, n, eraseCell(t.pen))
	if t.modes.AltScreen {
		return
	}
	for _, row := range evicted {
		t.history.push(row)
	}
}

func (t *Terminal) scrollDown(n int) {
	t.grid().scrollDown(t.modes.ScrollTop, t.modes.ScrollBottom, n, eraseCell(t.pen))
}

func (t *Terminal) cursorState() savedCursor {
	return savedCursor{cur: t.cur, pen: t.pen, link: t.link, origin: t.modes.Origin, cs: t.cs, valid: true}
}

// applyCursorState restores a saved cursor. Restoring a slot that was
// never saved homes the cursor and resets the pen, as xterm does.
func (t *Terminal) applyCursorState(s savedCursor) {
	if !s.valid {
		t.pen = defRendition
		t.link = ""
		t.modes.Origin = false
		t.cs = charset{}
		t.cursorMoveAbs(0, 0)
		return
	}

	t.pen = s.pen
	t.link = s.link
	t.modes.Origin = s.origin
	t.cs = s.cs
	t.cursorMoveAbs(s.cur.row, s.cur.col)
	t.cur.wrapPending = s.cur.wrapPending && t.cur.col == t.cols()-1
}

func (t *Terminal) saveCursor() {
	t.screen().saved = t.cursorState()
}

func (t *Terminal) restoreCursor() {
	t.applyCursorState(t.screen().saved)
}

// switchScreen moves between the primary and alternate screens. The
// alternate screen is created blank on entry and thrown away on exit.
// With save set (DECSET 1049), the cursor is saved on entry and
// restored on exit.
func (t *Terminal) switchScreen(on, save bool) {
	if on == t.modes.AltScreen {
		return
	}

	if on {
		if save {
			t.altSaved = t.cursorState()
		}
		t.alt = &screen{g: newGrid(t.rows(), t.cols())}
		t.modes.AltScreen = true
		slog.Debug("switched to alternate screen", "save", save)
		return
	}

	t.modes.AltScreen = false
	t.alt = nil
	if save {
		t.applyCursorState(t.altSaved)
		t.altSaved = savedCursor{}
	}
	slog.Debug("switched to primary screen", "save", save)
}

// Snapshot returns an immutable copy of the visible state. The version
// increases whenever something changed since the previous snapshot.
func (t *Terminal) Snapshot() *Snapshot {
	if t.dirty || t.version == 0 {
		t.version++
		t.dirty = false
	}

	g := t.grid()
	return &Snapshot{
		Version: t.version,
		Rows:    g.rows,
		Cols:    g.cols,
		Cells:   slices.Clone(g.cells),
		Cursor: CursorState{
			Row:     t.cur.row,
			Col:     t.cur.col,
			Shape:   t.shape,
			Visible: t.modes.CursorVisible,
			Blink:   t.modes.CursorBlink,
		},
		Modes:         t.modes,
		Title:         t.title,
		Icon:          t.icon,
		WorkingDir:    t.cwd,
		Bells:         t.bells,
		Palette:       t.palette,
		ScrollbackLen: t.history.len(),
		history:       t.history.view(),
	}
}
