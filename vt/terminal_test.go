package vt

import (
	"slices"
	"strings"
	"testing"
)

func newTestTerminal(t *testing.T, rows, cols int) *Terminal {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Rows, cfg.Cols = rows, cols
	term, err := NewTerminal(cfg)
	if err != nil {
		t.Fatalf("NewTerminal(%d, %d): %v", rows, cols, err)
	}
	return term
}

func screenLines(term *Terminal) []string {
	g := term.grid()
	lines := make([]string, g.rows)
	for i := range g.rows {
		lines[i] = RowText(g.row(i))
	}
	return lines
}

func historyLines(term *Terminal) []string {
	var lines []string
	for _, row := range term.history.view() {
		lines = append(lines, RowText(row))
	}
	return lines
}

func TestRedHello(t *testing.T) {
	term := newTestTerminal(t, 24, 80)
	term.Feed([]byte("\x1b[31mHELLO\x1b[0m"))

	for i, r := range "HELLO" {
		c := term.grid().cell(0, i)
		if c.R != r || c.Fg != IndexedColor(1) || !c.Bg.IsDefault() {
			t.Errorf("%d: Got %s, want %q in red on default", i, c, r)
		}
	}
	if term.cur.row != 0 || term.cur.col != 5 {
		t.Errorf("Got cursor %s, want (0, 5)", term.cur)
	}
	if term.pen != defRendition {
		t.Errorf("Got pen %s, want default", term.pen)
	}

	term.Feed([]byte("x"))
	if c := term.grid().cell(0, 5); c.Fg != DefaultColor {
		t.Errorf("Got %s after reset, want default foreground", c)
	}
}

func TestCursorPositionScenario(t *testing.T) {
	term := newTestTerminal(t, 24, 80)
	term.Feed([]byte("\x1b[5;10H"))
	if term.cur.row != 4 || term.cur.col != 9 {
		t.Errorf("Got cursor %s, want (4, 9)", term.cur)
	}
}

func TestLineFeedScrollsToHistory(t *testing.T) {
	term := newTestTerminal(t, 10, 10)
	term.Feed([]byte("a\x1b[10;1Hz\x1b[44m\n"))

	if got := historyLines(term); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Got history %q, want [a]", got)
	}
	lines := screenLines(term)
	if lines[0] != "" || lines[8] != "z" || lines[9] != "" {
		t.Errorf("Got screen %q, want z on row 8 and the rest blank", lines)
	}
	for col := range 10 {
		if c := term.grid().cell(9, col); c.Bg != IndexedColor(4) {
			t.Errorf("%d: Got %s, want blue background on the new row", col, c)
		}
	}
	if term.cur.row != 9 || term.cur.col != 1 {
		t.Errorf("Got cursor %s, want (9, 1)", term.cur)
	}
}

func TestResizeClampsCursor(t *testing.T) {
	term := newTestTerminal(t, 24, 80)
	term.Feed([]byte("top\x1b[21;40H"))
	term.Resize(10, 80)

	if term.cur.row != 9 || term.cur.col != 39 {
		t.Errorf("Got cursor %s, want (9, 39)", term.cur)
	}
	if term.rows() != 10 || term.cols() != 80 {
		t.Errorf("Got %dx%d, want 10x80", term.rows(), term.cols())
	}
	if got := screenLines(term)[0]; got != "top" {
		t.Errorf("Got first row %q, want %q", got, "top")
	}
	if term.modes.ScrollTop != 0 || term.modes.ScrollBottom != 9 {
		t.Errorf("Got region (%d, %d), want (0, 9)", term.modes.ScrollTop, term.modes.ScrollBottom)
	}
	if term.history.len() != 0 {
		t.Errorf("Got %d history rows, want 0", term.history.len())
	}
}

func TestCursorPositionReport(t *testing.T) {
	term := newTestTerminal(t, 24, 80)
	term.Feed([]byte("\x1b[3;5H\x1b[6n"))
	if got, want := string(term.TakeReplies()), "\x1b[3;5R"; got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
	if got := term.TakeReplies(); got != nil {
		t.Errorf("Got %q after taking replies, want nil", got)
	}
}

func TestResize(t *testing.T) {
	cases := []struct {
		rows, cols         int
		wantRows, wantCols int
		wantLines          []string
	}{
		{2, 3, 2, 3, []string{"abc", "ghi"}},
		{4, 8, 4, 8, []string{"abcdef", "ghijkl", "", ""}},
		{0, -1, 1, 1, []string{"a"}},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 3, 6)
		term.Feed([]byte("abcdef\r\nghijkl\x1b[2;4r"))
		term.Resize(c.rows, c.cols)

		if term.rows() != c.wantRows || term.cols() != c.wantCols {
			t.Errorf("%d: Got %dx%d, want %dx%d", i, term.rows(), term.cols(), c.wantRows, c.wantCols)
		}
		if got := screenLines(term); !slices.Equal(got, c.wantLines) {
			t.Errorf("%d: Got %q, want %q", i, got, c.wantLines)
		}
		if len(term.tabs) != c.wantCols {
			t.Errorf("%d: Got %d tab stops, want %d", i, len(term.tabs), c.wantCols)
		}
		if term.modes.ScrollTop != 0 || term.modes.ScrollBottom != c.wantRows-1 {
			t.Errorf("%d: Got region (%d, %d), want full screen", i, term.modes.ScrollTop, term.modes.ScrollBottom)
		}
		if !term.grid().validPoint(term.cur.row, term.cur.col) {
			t.Errorf("%d: Got cursor %s outside the screen", i, term.cur)
		}
	}
}

func TestResizeSplitsWideGlyph(t *testing.T) {
	term := newTestTerminal(t, 1, 4)
	term.Feed([]byte("ab世"))
	term.Resize(1, 3)

	if c := term.grid().cell(0, 2); c.R != ' ' || c.Width != 1 {
		t.Errorf("Got %s, want the orphaned half blanked", c)
	}
}

func TestCursorAlwaysOnScreen(t *testing.T) {
	seqs := []string{
		"\x1b[999A", "\x1b[999B", "\x1b[999C", "\x1b[999D",
		"\x1b[999;999H", "\x1b[0;0H", "\x1b[999E", "\x1b[999F",
		"\x1b[999G", "\x1b[999d", "\x1b[999a", "\x1b[999e",
		"\x1b[999I", "\x1b[999Z", "\x1b[65535;65535f",
		"\x1b[2;4r\x1b[?6h\x1b[999;999H",
	}

	for i, s := range seqs {
		term := newTestTerminal(t, 10, 20)
		term.Feed([]byte("\x1b[5;5H" + s))
		if !term.grid().validPoint(term.cur.row, term.cur.col) {
			t.Errorf("%d: Got cursor %s outside the screen after %q", i, term.cur, s)
		}
	}
}

func TestCursorDefaults(t *testing.T) {
	cases := []struct {
		seq              string
		wantRow, wantCol int
	}{
		{"\x1b[H", 0, 0},
		{"\x1b[;5H", 0, 4},
		{"\x1b[7H", 6, 0},
		{"\x1b[A", 4, 5},
		{"\x1b[0A", 4, 5},
		{"\x1b[B", 6, 5},
		{"\x1b[C", 5, 6},
		{"\x1b[D", 5, 4},
		{"\x1b[3G", 5, 2},
		{"\x1b[E", 6, 0},
		{"\x1b[F", 4, 0},
		{"\x1b[2d", 1, 5},
		{"\x1b[f", 0, 0},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 10, 20)
		term.Feed([]byte("\x1b[6;6H" + c.seq))
		if term.cur.row != c.wantRow || term.cur.col != c.wantCol {
			t.Errorf("%d: Got %s, want (r: %d, c: %d)", i, term.cur, c.wantRow, c.wantCol)
		}
	}
}

func TestCursorMarginsStop(t *testing.T) {
	term := newTestTerminal(t, 10, 10)
	term.Feed([]byte("\x1b[3;6r\x1b[5;1H\x1b[20A"))
	if term.cur.row != 2 {
		t.Errorf("Got row %d, want 2 (top margin)", term.cur.row)
	}
	term.Feed([]byte("\x1b[20B"))
	if term.cur.row != 5 {
		t.Errorf("Got row %d, want 5 (bottom margin)", term.cur.row)
	}
	// Outside the region the margins don't apply.
	term.Feed([]byte("\x1b[9;1H\x1b[20B"))
	if term.cur.row != 9 {
		t.Errorf("Got row %d, want 9", term.cur.row)
	}
}

func TestPrintWrap(t *testing.T) {
	cases := []struct {
		input            string
		wantLines        []string
		wantRow, wantCol int
		wantPending      bool
	}{
		{"abcde", []string{"abcde", "", ""}, 0, 4, true},
		{"abcdefg", []string{"abcde", "fg", ""}, 1, 2, false},
		{"abcde\r", []string{"abcde", "", ""}, 0, 0, false},
		{"\x1b[?7labcdefg", []string{"abcdg", "", ""}, 0, 4, false},
		{"abcde\x1b[Dx", []string{"abcxe", "", ""}, 0, 4, false},
		{"abc世", []string{"abc世", "", ""}, 0, 4, true},
		{"abcd世", []string{"abcd", "世", ""}, 1, 2, false},
		{"abcdefghijklmnop", []string{"fghij", "klmno", "p"}, 2, 1, false},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 3, 5)
		term.Feed([]byte(c.input))
		if got := screenLines(term); !slices.Equal(got, c.wantLines) {
			t.Errorf("%d: Got %q, want %q", i, got, c.wantLines)
		}
		if term.cur.row != c.wantRow || term.cur.col != c.wantCol || term.cur.wrapPending != c.wantPending {
			t.Errorf("%d: Got %s, want (r: %d, c: %d, pending: %t)", i, term.cur, c.wantRow, c.wantCol, c.wantPending)
		}
	}
}

func TestPrintWide(t *testing.T) {
	term := newTestTerminal(t, 2, 6)
	term.Feed([]byte("a世b"))

	g := term.grid()
	if c := g.cell(0, 1); c.R != '世' || c.Width != 2 {
		t.Errorf("Got %s, want a wide 世", c)
	}
	if c := g.cell(0, 2); !c.IsContinuation() {
		t.Errorf("Got %s, want a continuation cell", c)
	}
	if c := g.cell(0, 3); c.R != 'b' {
		t.Errorf("Got %s, want b", c)
	}

	// Overwriting either half of the wide glyph blanks the other.
	term.Feed([]byte("\x1b[1;3Hx"))
	if c := g.cell(0, 1); c.R != ' ' || c.Width != 1 {
		t.Errorf("Got %s, want the head blanked", c)
	}
	term.Feed([]byte("\x1b[2;1H世\x1b[2;1Hy"))
	if c := g.cell(1, 1); c.R != ' ' || c.Width != 1 {
		t.Errorf("Got %s, want the tail blanked", c)
	}
}

func TestPrintCombining(t *testing.T) {
	term := newTestTerminal(t, 2, 5)
	term.Feed([]byte("e\u0301x"))
	if got, want := screenLines(term)[0], "\u00e9x"; got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
}

func TestInsertAndNewLineModes(t *testing.T) {
	cases := []struct {
		input     string
		wantLines []string
	}{
		{"abc\x1b[4h\x1b[1GX", []string{"Xabc", ""}},
		{"abc\x1b[4h\x1b[4l\x1b[1GX", []string{"Xbc", ""}},
		{"\x1b[20ha\nb", []string{"a", "b"}},
		{"a\nb", []string{"a", " b"}},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 2, 5)
		term.Feed([]byte(c.input))
		if got := screenLines(term); !slices.Equal(got, c.wantLines) {
			t.Errorf("%d: Got %q, want %q", i, got, c.wantLines)
		}
	}
}

func TestErase(t *testing.T) {
	cases := []struct {
		seq       string
		wantLines []string
	}{
		{"\x1b[J", []string{"abcde", "fg", ""}},
		{"\x1b[0J", []string{"abcde", "fg", ""}},
		{"\x1b[1J", []string{"", "   ij", "klmno"}},
		{"\x1b[2J", []string{"", "", ""}},
		{"\x1b[K", []string{"abcde", "fg", "klmno"}},
		{"\x1b[1K", []string{"abcde", "   ij", "klmno"}},
		{"\x1b[2K", []string{"abcde", "", "klmno"}},
		{"\x1b[?2K", []string{"abcde", "", "klmno"}},
		{"\x1b[9K", []string{"abcde", "fghij", "klmno"}},
		{"\x1b[2X", []string{"abcde", "fg  j", "klmno"}},
		{"\x1b[9X", []string{"abcde", "fg", "klmno"}},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 3, 5)
		term.Feed([]byte("abcdefghijklmno\x1b[2;3H" + c.seq))
		if got := screenLines(term); !slices.Equal(got, c.wantLines) {
			t.Errorf("%d: Got %q, want %q", i, got, c.wantLines)
		}
		if term.cur.row != 1 || term.cur.col != 2 {
			t.Errorf("%d: Got cursor %s, want (1, 2)", i, term.cur)
		}
	}
}

func TestEraseUsesPen(t *testing.T) {
	term := newTestTerminal(t, 2, 3)
	term.Feed([]byte("\x1b[1;44m\x1b[2J"))
	for i, c := range term.grid().cells {
		if c.R != ' ' || c.Bg != IndexedColor(4) || c.Attrs != AttrBold {
			t.Errorf("%d: Got %s, want a bold blank on blue", i, c)
		}
	}
}

func TestEraseScrollback(t *testing.T) {
	term := newTestTerminal(t, 2, 3)
	term.Feed([]byte("1\r\n2\r\n3\r\n4"))
	if term.history.len() != 2 {
		t.Fatalf("Got %d history rows, want 2", term.history.len())
	}
	term.Feed([]byte("\x1b[3J"))
	if term.history.len() != 0 {
		t.Errorf("Got %d history rows, want 0", term.history.len())
	}
	if got := screenLines(term); !slices.Equal(got, []string{"3", "4"}) {
		t.Errorf("Got %q, want the screen untouched", got)
	}
}

func TestEditCharacters(t *testing.T) {
	cases := []struct {
		seq      string
		wantLine string
	}{
		{"\x1b[@", "a bcd"},
		{"\x1b[2@", "a  bc"},
		{"\x1b[99@", "a"},
		{"\x1b[P", "acde"},
		{"\x1b[3P", "ae"},
		{"\x1b[99P", "a"},
		{"\x1b[X", "a cde"},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 1, 5)
		term.Feed([]byte("abcde\x1b[1;2H" + c.seq))
		if got := screenLines(term)[0]; got != c.wantLine {
			t.Errorf("%d: Got %q, want %q", i, got, c.wantLine)
		}
	}
}

func TestInsertDeleteLines(t *testing.T) {
	cases := []struct {
		seq       string
		wantLines []string
	}{
		{"\x1b[2;1H\x1b[L", []string{"1", "", "2", "3", "4"}},
		{"\x1b[2;1H\x1b[2L", []string{"1", "", "", "2", "3"}},
		{"\x1b[2;1H\x1b[M", []string{"1", "3", "4", "5", ""}},
		{"\x1b[2;1H\x1b[9M", []string{"1", "", "", "", ""}},
		{"\x1b[2;4r\x1b[2;1H\x1b[M", []string{"1", "3", "4", "", "5"}},
		{"\x1b[2;4r\x1b[2;1H\x1b[L", []string{"1", "", "2", "3", "5"}},
		// Outside the region IL and DL do nothing.
		{"\x1b[2;4r\x1b[5;1H\x1b[L", []string{"1", "2", "3", "4", "5"}},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 5, 3)
		term.Feed([]byte("1\r\n2\r\n3\r\n4\r\n5\x1b[3C" + c.seq))
		if got := screenLines(term); !slices.Equal(got, c.wantLines) {
			t.Errorf("%d: Got %q, want %q", i, got, c.wantLines)
		}
		if term.history.len() != 0 {
			t.Errorf("%d: Got %d history rows, want 0", i, term.history.len())
		}
		if term.cur.col != 0 {
			t.Errorf("%d: Got cursor %s, want column 0", i, term.cur)
		}
	}
}

func TestScrollRegion(t *testing.T) {
	term := newTestTerminal(t, 5, 3)
	term.Feed([]byte("1\r\n2\r\n3\r\n4\r\n5\x1b[2;4r"))
	if term.cur.row != 0 || term.cur.col != 0 {
		t.Errorf("Got cursor %s, want home after DECSTBM", term.cur)
	}

	term.Feed([]byte("\x1b[4;1H\nx"))
	want := []string{"1", "3", "4", "x", "5"}
	if got := screenLines(term); !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}
	if term.history.len() != 0 {
		t.Errorf("Got %d history rows, want 0 for a region below the top", term.history.len())
	}

	term.Feed([]byte("\x1b[2;1H\x1bM"))
	want = []string{"1", "", "3", "4", "5"}
	if got := screenLines(term); !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}

	term.Feed([]byte("\x1b[2S"))
	want = []string{"1", "4", "", "", "5"}
	if got := screenLines(term); !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}

	term.Feed([]byte("\x1b[T"))
	want = []string{"1", "", "4", "", "5"}
	if got := screenLines(term); !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}

	// An invalid region is ignored.
	term.Feed([]byte("\x1b[4;2r"))
	if term.modes.ScrollTop != 1 || term.modes.ScrollBottom != 3 {
		t.Errorf("Got region (%d, %d), want (1, 3)", term.modes.ScrollTop, term.modes.ScrollBottom)
	}
	term.Feed([]byte("\x1b[r"))
	if term.modes.ScrollTop != 0 || term.modes.ScrollBottom != 4 {
		t.Errorf("Got region (%d, %d), want (0, 4)", term.modes.ScrollTop, term.modes.ScrollBottom)
	}
}

func TestScrollbackFIFO(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Cols, cfg.Scrollback = 2, 4, 3
	term, err := NewTerminal(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 20 {
		if i > 0 {
			term.Feed([]byte("\r\n"))
		}
		term.Feed([]byte{byte('a' + i)})
		if term.history.len() > 3 {
			t.Fatalf("%d: Got %d history rows, capacity is 3", i, term.history.len())
		}
	}

	// 20 lines on a 2 row screen: 18 scrolled off, the last 3 kept.
	if got, want := historyLines(term), []string{"p", "q", "r"}; !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}
	if got, want := screenLines(term), []string{"s", "t"}; !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}
}

func TestScrollbackDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Cols, cfg.Scrollback = 2, 4, 0
	term, err := NewTerminal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	term.Feed([]byte("a\r\nb\r\nc\r\nd"))
	if term.history.len() != 0 {
		t.Errorf("Got %d history rows, want 0", term.history.len())
	}
}

func TestAltScreenRoundTrip(t *testing.T) {
	for _, mode := range []string{"1049", "1047", "47"} {
		term := newTestTerminal(t, 4, 6)
		term.Feed([]byte("\x1b[32mhello\r\nworld\x1b[3;4H"))
		before := slices.Clone(term.grid().cells)
		beforeCur, beforePen := term.cur, term.pen

		term.Feed([]byte("\x1b[?" + mode + "h"))
		if !term.modes.AltScreen {
			t.Errorf("%s: alternate screen not active", mode)
		}
		if got := screenLines(term); !slices.Equal(got, []string{"", "", "", ""}) {
			t.Errorf("%s: Got %q, want a blank alternate screen", mode, got)
		}
		term.Feed([]byte("\x1b[0mxyz\x1b[Hfoo\r\n\n\n\n\n\nbar"))

		term.Feed([]byte("\x1b[?" + mode + "l"))
		if term.modes.AltScreen {
			t.Errorf("%s: alternate screen still active", mode)
		}
		if !slices.Equal(term.grid().cells, before) {
			t.Errorf("%s: Got %q, want the primary screen restored", mode, screenLines(term))
		}
		if term.history.len() != 0 {
			t.Errorf("%s: Got %d history rows, want 0", mode, term.history.len())
		}
		if mode == "1049" && (term.cur != beforeCur || term.pen != beforePen) {
			t.Errorf("%s: Got cursor %s pen %s, want %s %s", mode, term.cur, term.pen, beforeCur, beforePen)
		}
	}
}

func TestAltScreenIsFresh(t *testing.T) {
	term := newTestTerminal(t, 2, 4)
	term.Feed([]byte("\x1b[?1049hjunk\x1b[?1049l\x1b[?1049h"))
	if got := screenLines(term); !slices.Equal(got, []string{"", ""}) {
		t.Errorf("Got %q, want a blank alternate screen", got)
	}
}

func TestSaveRestoreCursor(t *testing.T) {
	cases := []struct {
		input            string
		wantRow, wantCol int
		wantPen          rendition
	}{
		{"\x1b[31m\x1b[2;3H\x1b7\x1b[0m\x1b[H\x1b8", 1, 2, rendition{fg: IndexedColor(1)}},
		{"\x1b[31m\x1b[2;3H\x1b[s\x1b[0m\x1b[H\x1b[u", 1, 2, rendition{fg: IndexedColor(1)}},
		{"\x1b[31m\x1b[2;3H\x1b[?1048h\x1b[0m\x1b[H\x1b[?1048l", 1, 2, rendition{fg: IndexedColor(1)}},
		// Nothing saved: home with a default pen.
		{"\x1b[31m\x1b[2;3H\x1b8", 0, 0, defRendition},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 5, 5)
		term.Feed([]byte(c.input))
		if term.cur.row != c.wantRow || term.cur.col != c.wantCol {
			t.Errorf("%d: Got %s, want (r: %d, c: %d)", i, term.cur, c.wantRow, c.wantCol)
		}
		if term.pen != c.wantPen {
			t.Errorf("%d: Got pen %s, want %s", i, term.pen, c.wantPen)
		}
	}
}

func TestSaveCursorPerScreen(t *testing.T) {
	term := newTestTerminal(t, 5, 5)
	term.Feed([]byte("\x1b[2;2H\x1b7\x1b[?1047h\x1b[4;4H\x1b7\x1b[?1047l\x1b8"))
	if term.cur.row != 1 || term.cur.col != 1 {
		t.Errorf("Got %s, want the primary screen's saved cursor (1, 1)", term.cur)
	}
}

func TestOriginMode(t *testing.T) {
	term := newTestTerminal(t, 10, 10)
	term.Feed([]byte("\x1b[3;5r\x1b[?6h"))
	if term.cur.row != 2 || term.cur.col != 0 {
		t.Errorf("Got %s, want the region's top left", term.cur)
	}
	term.Feed([]byte("\x1b[10;1H"))
	if term.cur.row != 4 {
		t.Errorf("Got %s, want row clamped to the bottom margin", term.cur)
	}
	term.Feed([]byte("\x1b[2;2H\x1b[6n"))
	if got, want := string(term.TakeReplies()), "\x1b[2;2R"; got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
	term.Feed([]byte("\x1b[?6l"))
	if term.cur.row != 0 || term.cur.col != 0 {
		t.Errorf("Got %s, want home", term.cur)
	}
}

func TestTabs(t *testing.T) {
	cases := []struct {
		input   string
		wantCol int
	}{
		{"\t", 8},
		{"\t\t", 16},
		{"\t\t\t", 19},
		{"\x1b[2I", 16},
		{"\x1b[1;12H\x1b[Z", 8},
		{"\x1b[1;12H\x1b[5Z", 0},
		{"\x1b[3g\t", 19},
		{"\x1b[1;5H\x1bH\r\t", 4},
		{"\x1b[1;9H\x1b[g\r\t", 16},
		{"\x1b[1;5H\x1b[0g\x1b[1;9H\x1b[1;5H\x1b[3g\x1b[1;5H\x1bH\r\t\t", 19},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 2, 20)
		term.Feed([]byte(c.input))
		if term.cur.col != c.wantCol {
			t.Errorf("%d: Got col %d, want %d", i, term.cur.col, c.wantCol)
		}
	}
}

func TestCharsets(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"qx", "qx"},
		{"\x1b(0qx", "─│"},
		{"\x1b(0q\x1b(Bq", "─q"},
		{"\x1b)0q\x0eq\x0fq", "q─q"},
		{"\x1b(0\x1b[!pq", "q"},
	}

	for i, c := range cases {
		term := newTestTerminal(t, 1, 10)
		term.Feed([]byte(c.input))
		if got := screenLines(term)[0]; got != c.want {
			t.Errorf("%d: Got %q, want %q", i, got, c.want)
		}
	}
}

func TestRepeat(t *testing.T) {
	term := newTestTerminal(t, 2, 10)
	term.Feed([]byte("\x1b[3ba\x1b[3b"))
	if got := screenLines(term)[0]; got != "aaaa" {
		t.Errorf("Got %q, want %q", got, "aaaa")
	}
}

func TestScreenAlignment(t *testing.T) {
	term := newTestTerminal(t, 3, 4)
	term.Feed([]byte("\x1b[2;3r\x1b[3;3H\x1b#8"))
	for i, l := range screenLines(term) {
		if l != "EEEE" {
			t.Errorf("%d: Got %q, want EEEE", i, l)
		}
	}
	if term.cur.row != 0 || term.cur.col != 0 || term.modes.ScrollBottom != 2 {
		t.Errorf("Got cursor %s region (%d, %d), want home and a full region", term.cur, term.modes.ScrollTop, term.modes.ScrollBottom)
	}
}

func TestReset(t *testing.T) {
	term := newTestTerminal(t, 2, 5)
	term.Feed([]byte("a\r\nb\r\nc\x07\x1b[31m\x1b]2;title\x07\x1b[?1049h\x1b[?2004h"))
	term.Feed([]byte("\x1bc"))

	if got := screenLines(term); !slices.Equal(got, []string{"", ""}) {
		t.Errorf("Got %q, want a blank screen", got)
	}
	if term.modes != defaultModes(2) {
		t.Errorf("Got modes %+v, want defaults", term.modes)
	}
	if term.pen != defRendition || term.title != "" {
		t.Errorf("Got pen %s title %q, want defaults", term.pen, term.title)
	}
	if term.history.len() != 1 || term.bells != 1 {
		t.Errorf("Got %d history rows and %d bells, want both kept", term.history.len(), term.bells)
	}
}

func TestSoftReset(t *testing.T) {
	term := newTestTerminal(t, 4, 5)
	term.Feed([]byte("ab\x1b[2;3r\x1b[4h\x1b[?25l\x1b[1m\x1b[!p"))
	if term.modes.Insert || !term.modes.CursorVisible || term.pen != defRendition {
		t.Errorf("Got modes %+v pen %s, want them reset", term.modes, term.pen)
	}
	if term.modes.ScrollTop != 0 || term.modes.ScrollBottom != 3 {
		t.Errorf("Got region (%d, %d), want full screen", term.modes.ScrollTop, term.modes.ScrollBottom)
	}
	if got := screenLines(term)[0]; got != "ab" {
		t.Errorf("Got %q, want the screen untouched", got)
	}
}

func TestStats(t *testing.T) {
	term := newTestTerminal(t, 2, 5)
	term.Feed([]byte("a\x1b[5y\x1b]999;x\x07\x1b[?9999h\x1bP1zdata\x1b\\\x1b[1$$$p\xff"))

	s := term.Stats()
	if s.Unsupported != 4 {
		t.Errorf("Got %d unsupported, want 4", s.Unsupported)
	}
	if s.Malformed != 2 {
		t.Errorf("Got %d malformed, want 2", s.Malformed)
	}
	if s.Events == 0 {
		t.Errorf("Got no events counted")
	}
}

// Nothing the parser can produce may leave the screen unrenderable.
func TestGarbageInput(t *testing.T) {
	inputs := []string{
		"\x1b[" + strings.Repeat("9;", 100) + "m",
		"\x1b[?1049h\x1b[999;999r\x1b[999L\x1b[999M\x1b[999@",
		"\x1b]4;300;#ffffff\x07\x1b]4;1;garbage\x07\x1b]10;?;?;?;?\x07",
		"\x1b[38;5;999m\x1b[38;2;999;0;0mx\x1b[58:5:3m",
		"\x1bP\x1b\\\x1b]\x07\x1b[\x18\x1b\x1a",
		"世界世界世界\x1b[1;2H\x1b[@\x1b[P\x1b[1;1Hx",
		"\x1b[0 q\x1b[9 q\x1b[>0q\x1b[?15n\x1b[c\x1b[>c\x1b[=c",
		"\x1b[22t\x1b[22t\x1b[23t\x1b[23t\x1b[23t\x1b[18t",
	}

	for i, in := range inputs {
		term := newTestTerminal(t, 3, 4)
		term.Feed([]byte(in))
		term.Resize(2, 3)
		term.Feed([]byte(in))
		s := term.Snapshot()
		if len(s.Cells) != s.Rows*s.Cols {
			t.Errorf("%d: Got %d cells for %dx%d", i, len(s.Cells), s.Rows, s.Cols)
		}
		if s.Cursor.Row < 0 || s.Cursor.Row >= s.Rows || s.Cursor.Col < 0 || s.Cursor.Col >= s.Cols {
			t.Errorf("%d: Got cursor (%d, %d) outside %dx%d", i, s.Cursor.Row, s.Cursor.Col, s.Rows, s.Cols)
		}
	}
}

func TestNewTerminalBadPalette(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Palette.Normal[3] = "not a color"
	if _, err := NewTerminal(cfg); err == nil {
		t.Errorf("Got nil error for an invalid palette entry")
	}
}
