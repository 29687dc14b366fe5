package vt

import "fmt"

type MouseTracking uint8

const (
	MouseOff MouseTracking = iota
	MouseX10
	MouseNormal
	MouseButtonEvent
	MouseAnyEvent
)

type MouseEncoding uint8

const (
	MouseEncodingDefault MouseEncoding = iota
	MouseEncodingUTF8
	MouseEncodingSGR
)

// MouseReport is the coarse mouse reporting variant: whether mouse
// events are reported at all and in which family of encodings.
type MouseReport uint8

const (
	MouseReportOff MouseReport = iota
	MouseReportX10
	MouseReportNormal
	MouseReportSGR
)

// Modes is the set of terminal modes that affect how output is
// interpreted and how input must be encoded.
type Modes struct {
	Origin         bool // DECOM
	Autowrap       bool // DECAWM
	Insert         bool // IRM
	NewLine        bool // LNM
	AppCursor      bool // DECCKM
	AppKeypad      bool // DECKPAM/DECKPNM
	BracketedPaste bool
	ReverseVideo   bool // DECSCNM
	CursorVisible  bool // DECTCEM
	CursorBlink    bool
	FocusEvents    bool
	Mouse          MouseTracking
	MouseEncoding  MouseEncoding
	AltScreen      bool
	// The scroll region, 0 based and inclusive.
	ScrollTop, ScrollBottom int
}

func defaultModes(rows int) Modes {
	return Modes{
		Autowrap:      true,
		CursorVisible: true,
		ScrollBottom:  rows - 1,
	}
}

func (m Modes) MouseReport() MouseReport {
	switch {
	case m.Mouse == MouseOff:
		return MouseReportOff
	case m.MouseEncoding == MouseEncodingSGR:
		return MouseReportSGR
	case m.Mouse == MouseX10:
		return MouseReportX10
	}
	return MouseReportNormal
}

type modeKey struct {
	private bool
	code    int
}

func (k modeKey) String() string {
	if k.private {
		return fmt.Sprintf("?%d", k.code)
	}
	return fmt.Sprintf("%d", k.code)
}

type modeHandler struct {
	name string
	set  func(t *Terminal, on bool)
	get  func(t *Terminal) bool
}

// modeTable maps SM/RM (and DECSET/DECRST) codes to the state they
// control. DECRQM answers from the same table.
var modeTable map[modeKey]modeHandler

func boolMode(name string, f func(m *Modes) *bool) modeHandler {
	return modeHandler{
		name: name,
		set:  func(t *Terminal, on bool) { *f(&t.modes) = on },
		get:  func(t *Terminal) bool { return *f(&t.modes) },
	}
}

func mouseMode(name string, mt MouseTracking) modeHandler {
	return modeHandler{
		name: name,
		set: func(t *Terminal, on bool) {
			switch {
			case on:
				t.modes.Mouse = mt
			case t.modes.Mouse == mt:
				t.modes.Mouse = MouseOff
			}
		},
		get: func(t *Terminal) bool { return t.modes.Mouse == mt },
	}
}

func mouseEncodingMode(name string, me MouseEncoding) modeHandler {
	return modeHandler{
		name: name,
		set: func(t *Terminal, on bool) {
			switch {
			case on:
				t.modes.MouseEncoding = me
			case t.modes.MouseEncoding == me:
				t.modes.MouseEncoding = MouseEncodingDefault
			}
		},
		get: func(t *Terminal) bool { return t.modes.MouseEncoding == me },
	}
}

func init() {
	modeTable = map[modeKey]modeHandler{
		{false, IRM}: boolMode("IRM", func(m *Modes) *bool { return &m.Insert }),
		{false, LNM}: boolMode("LNM", func(m *Modes) *bool { return &m.NewLine }),

		{true, PRIV_DECCKM}:        boolMode("DECCKM", func(m *Modes) *bool { return &m.AppCursor }),
		{true, PRIV_DECSCNM}:       boolMode("DECSCNM", func(m *Modes) *bool { return &m.ReverseVideo }),
		{true, PRIV_DECAWM}:        boolMode("DECAWM", func(m *Modes) *bool { return &m.Autowrap }),
		{true, PRIV_BLINK_CURSOR}:  boolMode("BLINK_CURSOR", func(m *Modes) *bool { return &m.CursorBlink }),
		{true, PRIV_DECTCEM}:       boolMode("DECTCEM", func(m *Modes) *bool { return &m.CursorVisible }),
		{true, PRIV_FOCUS_EVENTS}:  boolMode("FOCUS_EVENTS", func(m *Modes) *bool { return &m.FocusEvents }),
		{true, PRIV_BRACKET_PASTE}: boolMode("BRACKET_PASTE", func(m *Modes) *bool { return &m.BracketedPaste }),

		{true, PRIV_DECOM}: {
			name: "DECOM",
			set: func(t *Terminal, on bool) {
				t.modes.Origin = on
				t.cursorHome()
			},
			get: func(t *Terminal) bool { return t.modes.Origin },
		},

		{true, PRIV_MOUSE_X10}:    mouseMode("MOUSE_X10", MouseX10),
		{true, PRIV_MOUSE_NORMAL}: mouseMode("MOUSE_NORMAL", MouseNormal),
		{true, PRIV_MOUSE_BUTTON}: mouseMode("MOUSE_BUTTON", MouseButtonEvent),
		{true, PRIV_MOUSE_ANY}:    mouseMode("MOUSE_ANY", MouseAnyEvent),
		{true, PRIV_MOUSE_UTF8}:   mouseEncodingMode("MOUSE_UTF8", MouseEncodingUTF8),
		{true, PRIV_MOUSE_SGR}:    mouseEncodingMode("MOUSE_SGR", MouseEncodingSGR),

		{true, PRIV_ALT_SCREEN}: {
			name: "ALT_SCREEN",
			set:  func(t *Terminal, on bool) { t.switchScreen(on, false) },
			get:  func(t *Terminal) bool { return t.modes.AltScreen },
		},
		{true, PRIV_ALT_SCREEN_CLR}: {
			name: "ALT_SCREEN_CLR",
			set:  func(t *Terminal, on bool) { t.switchScreen(on, false) },
			get:  func(t *Terminal) bool { return t.modes.AltScreen },
		},
		{true, PRIV_ALT_SCREEN_SAVE}: {
			name: "ALT_SCREEN_SAVE",
			set:  func(t *Terminal, on bool) { t.switchScreen(on, true) },
			get:  func(t *Terminal) bool { return t.modes.AltScreen },
		},
		{true, PRIV_SAVE_CURSOR}: {
			name: "SAVE_CURSOR",
			set: func(t *Terminal, on bool) {
				if on {
					t.saveCursor()
				} else {
					t.restoreCursor()
				}
			},
			get: func(t *Terminal) bool { return t.screen().saved.valid },
		},
	}
}
