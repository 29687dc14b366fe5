package vt

import (
	"log/slog"
)

// seqKey identifies a control function by its private marker,
// intermediate bytes and final byte.
type seqKey struct {
	private byte
	inter   string
	final   byte
}

type csiHandler func(t *Terminal, p Params)

type escHandler func(t *Terminal)

var (
	csiTable map[seqKey]csiHandler
	escTable map[seqKey]escHandler
)

func csi(final byte) seqKey {
	return seqKey{final: final}
}

func csiPriv(private, final byte) seqKey {
	return seqKey{private: private, final: final}
}

func csiInter(inter string, final byte) seqKey {
	return seqKey{inter: inter, final: final}
}

func swallow(name string) csiHandler {
	return func(t *Terminal, p Params) {
		slog.Debug("swallowing CSI", "name", name, "params", p)
	}
}

func init() {
	csiTable = map[seqKey]csiHandler{
		csi(CSI_ICH): func(t *Terminal, p Params) { t.insertChars(p.Get(0, 1)) },
		csi(CSI_CUU): func(t *Terminal, p Params) { t.cursorUp(p.Get(0, 1)) },
		csi(CSI_CUD): func(t *Terminal, p Params) { t.cursorDown(p.Get(0, 1)) },
		csi(CSI_CUF): func(t *Terminal, p Params) { t.cursorForward(p.Get(0, 1)) },
		csi(CSI_CUB): func(t *Terminal, p Params) { t.cursorBack(p.Get(0, 1)) },
		csi(CSI_CNL): func(t *Terminal, p Params) { t.cursorCNL(p.Get(0, 1)) },
		csi(CSI_CPL): func(t *Terminal, p Params) { t.cursorCPL(p.Get(0, 1)) },
		csi(CSI_CHA): func(t *Terminal, p Params) { t.cursorCHAorHPA(p.Get(0, 1)) },
		csi(CSI_CUP): func(t *Terminal, p Params) { t.cursorCUPorHVP(p.Get(0, 1), p.Get(1, 1)) },
		csi(CSI_CHT): func(t *Terminal, p Params) { t.stepTabs(p.Get(0, 1)) },
		csi(CSI_ED):  func(t *Terminal, p Params) { t.eraseInDisplay(p.Raw(0)) },
		csi(CSI_EL):  func(t *Terminal, p Params) { t.eraseInLine(p.Raw(0)) },
		csi(CSI_IL):  func(t *Terminal, p Params) { t.insertLines(p.Get(0, 1)) },
		csi(CSI_DL):  func(t *Terminal, p Params) { t.deleteLines(p.Get(0, 1)) },
		csi(CSI_DCH): func(t *Terminal, p Params) { t.deleteChars(p.Get(0, 1)) },
		csi(CSI_SU):  func(t *Terminal, p Params) { t.scrollUp(p.Get(0, 1)) },
		csi(CSI_SD):  func(t *Terminal, p Params) { t.scrollDown(p.Get(0, 1)) },
		csi(CSI_ECH): func(t *Terminal, p Params) { t.eraseChars(p.Get(0, 1)) },
		csi(CSI_CBT): func(t *Terminal, p Params) { t.stepTabs(-p.Get(0, 1)) },
		csi(CSI_HPA): func(t *Terminal, p Params) { t.cursorCHAorHPA(p.Get(0, 1)) },
		csi(CSI_HPR): func(t *Terminal, p Params) { t.cursorHPR(p.Get(0, 1)) },
		csi(CSI_REP): func(t *Terminal, p Params) { t.repeatPrinted(p.Get(0, 1)) },
		csi(CSI_DA):  func(t *Terminal, p Params) { t.replyDeviceAttributes(0) },
		csi(CSI_VPA): func(t *Terminal, p Params) { t.cursorVPA(p.Get(0, 1)) },
		csi(CSI_VPR): func(t *Terminal, p Params) { t.cursorVPR(p.Get(0, 1)) },
		csi(CSI_HVP): func(t *Terminal, p Params) { t.cursorCUPorHVP(p.Get(0, 1), p.Get(1, 1)) },
		csi(CSI_TBC): func(t *Terminal, p Params) { t.clearTabs(p.Raw(0)) },
		csi(CSI_SGR): func(t *Terminal, p Params) { t.pen = applySGR(t.pen, p) },
		csi(CSI_DSR): func(t *Terminal, p Params) { t.handleDSR(p.Raw(0), false) },

		csi(CSI_MODE_SET):   func(t *Terminal, p Params) { t.setModes(p, false, true) },
		csi(CSI_MODE_RESET): func(t *Terminal, p Params) { t.setModes(p, false, false) },
		csi(CSI_DECSTBM):    func(t *Terminal, p Params) { t.setTopBottom(p) },
		csi(CSI_SCOSC):      func(t *Terminal, p Params) { t.saveCursor() },
		csi(CSI_SCORC):      func(t *Terminal, p Params) { t.restoreCursor() },
		csi(CSI_XTWINOPS):   func(t *Terminal, p Params) { t.xtwinops(p) },

		csiPriv('?', CSI_MODE_SET):   func(t *Terminal, p Params) { t.setModes(p, true, true) },
		csiPriv('?', CSI_MODE_RESET): func(t *Terminal, p Params) { t.setModes(p, true, false) },
		csiPriv('?', CSI_DSR):        func(t *Terminal, p Params) { t.handleDSR(p.Raw(0), true) },
		csiPriv('?', CSI_ED):         func(t *Terminal, p Params) { t.eraseInDisplay(p.Raw(0)) },
		csiPriv('?', CSI_EL):         func(t *Terminal, p Params) { t.eraseInLine(p.Raw(0)) },
		csiPriv('>', CSI_DA):         func(t *Terminal, p Params) { t.replyDeviceAttributes('>') },
		csiPriv('=', CSI_DA):         func(t *Terminal, p Params) { t.replyDeviceAttributes('=') },
		csiPriv('>', CSI_Q_MULTI):    func(t *Terminal, p Params) { t.replyVersion(p) },
		csiPriv('>', CSI_SGR):        swallow("xterm key modifier options"),
		csiPriv('>', CSI_DSR):        swallow("xterm disable key modifiers"),

		csiInter("!", CSI_DECSTR):  func(t *Terminal, p Params) { t.softReset() },
		csiInter(" ", CSI_Q_MULTI): func(t *Terminal, p Params) { t.setCursorStyle(p.Raw(0)) },
		csiInter("$", CSI_DECSTR):  func(t *Terminal, p Params) { t.reportMode(p.Raw(0), false) },
		{'?', "$", CSI_DECSTR}:     func(t *Terminal, p Params) { t.reportMode(p.Raw(0), true) },
		{'>', "", CSI_MODE_SET}:    swallow("xterm title modes"),
		{'>', "", CSI_MODE_RESET}:  swallow("xterm title modes"),
		{'?', "", CSI_SCORC}:       swallow("kitty keyboard query"),
		{'>', "", CSI_SCORC}:       swallow("kitty keyboard push"),
		{'<', "", CSI_SCORC}:       swallow("kitty keyboard pop"),
		{0, "\"", CSI_Q_MULTI}:     swallow("DECSCA"),
		{0, "\"", CSI_DECSTR}:      swallow("DECSCL"),
		{'?', "", CSI_SCOSC}:       swallow("XTSAVE"),
	}

	escTable = map[seqKey]escHandler{
		{final: ESC_DECSC}:              (*Terminal).saveCursor,
		{final: ESC_DECRC}:              (*Terminal).restoreCursor,
		{inter: "#", final: ESC_DECALN}: (*Terminal).screenAlignment,
		{final: ESC_IND}:                (*Terminal).index,
		{final: ESC_NEL}:                func(t *Terminal) { t.carriageReturn(); t.index() },
		{final: ESC_HTS}:                (*Terminal).setTab,
		{final: ESC_RI}:                 (*Terminal).reverseIndex,
		{final: ESC_RIS}:                (*Terminal).reset,
		{final: ESC_DECKPAM}:            func(t *Terminal) { t.modes.AppKeypad = true },
		{final: ESC_DECKPNM}:            func(t *Terminal) { t.modes.AppKeypad = false },
		{final: ESC_ST}:                 func(t *Terminal) {}, // terminates a string we already handled
	}
}

func (t *Terminal) handleCSI(ev Event) {
	h, ok := csiTable[seqKey{ev.Private, string(ev.Intermediates), ev.Final}]
	if !ok {
		t.unsupported("unsupported CSI sequence", "seq", ev)
		return
	}
	h(t, ev.Params)
}

func (t *Terminal) handleESC(ev Event) {
	if len(ev.Intermediates) == 1 {
		switch ev.Intermediates[0] {
		case '(', ')', '*', '+':
			if !t.cs.designate(ev.Intermediates[0], ev.Final) {
				slog.Debug("swallowing ESC character set command", "seq", ev)
			}
			return
		case '%', ' ':
			slog.Debug("swallowing ESC encoding/conformance command", "seq", ev)
			return
		}
	}

	h, ok := escTable[seqKey{inter: string(ev.Intermediates), final: ev.Final}]
	if !ok {
		t.unsupported("unsupported ESC sequence", "seq", ev)
		return
	}
	h(t)
}

func (t *Terminal) insertChars(n int) {
	t.grid().insertCells(t.cur.row, t.cur.col, n, eraseCell(t.pen))
	t.cur.wrapPending = false
}

func (t *Terminal) deleteChars(n int) {
	t.grid().deleteCells(t.cur.row, t.cur.col, n, eraseCell(t.pen))
	t.cur.wrapPending = false
}

func (t *Terminal) eraseChars(n int) {
	g := t.grid()
	g.fill(t.cur.row, t.cur.col, t.cur.col+n, eraseCell(t.pen))
	g.fixWide(t.cur.row)
	t.cur.wrapPending = false
}

// insertLines and deleteLines only act when the cursor is inside the
// scroll region; they leave the cursor in the first column.
func (t *Terminal) insertLines(n int) {
	if !t.region().contains(t.cur.row) {
		return
	}
	t.grid().scrollDown(t.cur.row, t.modes.ScrollBottom, n, eraseCell(t.pen))
	t.carriageReturn()
}

func (t *Terminal) deleteLines(n int) {
	if !t.region().contains(t.cur.row) {
		return
	}
	// Deleted lines never go to history.
	t.grid().scrollUp(t.cur.row, t.modes.ScrollBottom, n, eraseCell(t.pen))
	t.carriageReturn()
}

func (t *Terminal) eraseInLine(mode int) {
	g := t.grid()
	blank := eraseCell(t.pen)
	switch mode {
	case 0: // to end of line
		g.fill(t.cur.row, t.cur.col, g.cols, blank)
	case 1: // to start of line, inclusive
		g.fill(t.cur.row, 0, t.cur.col+1, blank)
	case 2: // entire line
		g.fill(t.cur.row, 0, g.cols, blank)
	default:
		slog.Debug("ignoring unknown EL mode", "mode", mode)
		return
	}
	g.fixWide(t.cur.row)
	slog.Debug("erase in line", "mode", mode, "row", t.cur.row, "col", t.cur.col)
}

func (t *Terminal) eraseInDisplay(mode int) {
	g := t.grid()
	blank := eraseCell(t.pen)
	switch mode {
	case 0: // active position to end of screen, inclusive
		t.eraseInLine(0)
		g.fillRows(t.cur.row+1, g.rows, blank)
	case 1: // start of screen to active position, inclusive
		g.fillRows(0, t.cur.row, blank)
		t.eraseInLine(1)
	case 2: // entire screen
		g.fillRows(0, g.rows, blank)
	case 3: // saved lines, an xterm extension
		t.history.clear()
	default:
		slog.Debug("ignoring unknown ED mode", "mode", mode)
		return
	}
	slog.Debug("erase in display", "mode", mode)
}

func (t *Terminal) repeatPrinted(n int) {
	if t.lastPrinted == 0 {
		return
	}
	// Repeating more than a screenful can't change the outcome.
	n = min(n, t.rows()*t.cols())
	for range n {
		t.print(t.lastPrinted)
	}
}

func (t *Terminal) setModes(p Params, private, val bool) {
	for _, g := range p.Groups() {
		k := modeKey{private: private, code: g[0]}
		h, ok := modeTable[k]
		if !ok {
			t.unsupported("unsupported mode", "mode", k, "set", val)
			continue
		}
		slog.Debug("setting mode", "mode", h.name, "set", val)
		h.set(t, val)
	}
}

// reportMode answers DECRQM.
func (t *Terminal) reportMode(code int, private bool) {
	state := 0 // not recognized
	if h, ok := modeTable[modeKey{private: private, code: code}]; ok {
		state = 2
		if h.get(t) {
			state = 1
		}
	}

	if private {
		t.reply("%c%c?%d;%d$y", ESC, ESC_CSI, code, state)
	} else {
		t.reply("%c%c%d;%d$y", ESC, ESC_CSI, code, state)
	}
}

func (t *Terminal) setTopBottom(p Params) {
	rows := t.rows()
	top := p.Get(0, 1)
	bottom := min(p.Get(1, rows), rows)

	m, ok := newMargin(top-1, bottom-1, rows)
	if !ok {
		return // matches xterm
	}

	// https://vt100.net/docs/vt510-rm/DECSTBM.html
	// STBM sets the cursor to 1,1 (0,0)
	t.modes.ScrollTop, t.modes.ScrollBottom = m.top, m.bottom
	slog.Debug("set top/bottom margin", "margin", m)
	t.cursorHome()
}

func (t *Terminal) setCursorStyle(n int) {
	shape, blink, ok := decscusr(n)
	if !ok {
		slog.Debug("invalid DECSCUSR", "n", n)
		return
	}
	t.shape = shape
	t.modes.CursorBlink = blink
}

func (t *Terminal) screenAlignment() {
	g := t.grid()
	fill := BlankCell()
	fill.R = 'E'
	g.fillRows(0, g.rows, fill)
	t.modes.ScrollTop, t.modes.ScrollBottom = 0, g.rows-1
	t.cursorMoveAbs(0, 0)
}

func (t *Terminal) xtwinops(p Params) {
	slog.Debug("handling xtwinops", "params", p)
	switch cmd := p.Raw(0); cmd {
	case 18: // report the text area size in characters
		t.reply("%c%c8;%d;%dt", ESC, ESC_CSI, t.rows(), t.cols())
	case 22: // save title and icon
		if len(t.titles) >= maxTitleStack {
			t.titles = t.titles[1:]
		}
		t.titles = append(t.titles, titlePair{t.title, t.icon})
	case 23: // restore title and icon
		if n := len(t.titles); n > 0 {
			tp := t.titles[n-1]
			t.titles = t.titles[:n-1]
			t.title, t.icon = tp.title, tp.icon
		}
	default:
		slog.Debug("ignoring xtwinops command", "cmd", cmd)
	}
}

func (t *Terminal) replyVersion(p Params) {
	if n := p.Raw(0); n != 0 {
		slog.Debug("invalid xterm_version query", "params", p)
		return
	}
	t.reply("%c%c>|vtcore(%s)%c%c", ESC, ESC_DCS, VTCORE_VT_VER, ESC, ESC_ST)
	slog.Debug("identifying as vtcore version", "ver", VTCORE_VT_VER)
}

func (t *Terminal) handleDSR(n int, private bool) {
	row := t.cur.row
	if t.modes.Origin {
		row -= t.modes.ScrollTop
	}

	switch {
	case !private && n == 5: // We always report OK (CSI 0 n)
		t.reply("%c%c0%c", ESC, ESC_CSI, CSI_DSR)
	case !private && n == 6: // Provide cursor location (CSI r ; c R)
		t.reply("%c%c%d;%dR", ESC, ESC_CSI, row+1, t.cur.col+1)
	case private && n == 6: // DEC variant (CSI ? r ; c R)
		t.reply("%c%c?%d;%dR", ESC, ESC_CSI, row+1, t.cur.col+1)
	case private && n == 15: // report printer status; always "not ready" (CSI ? 1 1 n)
		t.reply("%c%c?11%c", ESC, ESC_CSI, CSI_DSR)
	default:
		slog.Debug("swallowing DSR code", "n", n, "private", private)
	}
}

func (t *Terminal) replyDeviceAttributes(private byte) {
	switch private {
	case '=': // tertiary attributes
		slog.Debug("ignoring request for tertiary device attributes")
	case '>': // secondary attributes
		t.reply("\033[>1;10;0c") // vt220
		slog.Debug("identifying secondary attributes as a vt220")
	default: // primary attributes
		t.reply("\033[?62c") // vt220
		slog.Debug("identifying primary attributes as a vt220")
	}
}
