package vt

// Reported as the version component of the XTVERSION reply (CSI > q).
// This is the version of the vt emulation, not of any binary built on
// top of it.
const VTCORE_VT_VER = "0.3"

const (
	// Like it's 1975 baby!
	DEF_ROWS       = 24
	DEF_COLS       = 80
	DEF_SCROLLBACK = 1000
)

const (
	MAX_PARAMS        = 32
	MAX_PARAM_VALUE   = 65535
	MAX_INTERMEDIATE  = 2
	MAX_STRING_LENGTH = 64 * 1024
)

// C0 controls
const (
	CTRL_NUL = 0x00
	CTRL_ENQ = 0x05
	CTRL_BEL = 0x07 // ^G Bell
	CTRL_BS  = 0x08 // ^H Backspace
	CTRL_TAB = 0x09 // ^I Tab \t
	CTRL_LF  = 0x0a // ^J Line feed \n
	CTRL_VT  = 0x0b // ^K Vertical tab \v
	CTRL_FF  = 0x0c // ^L Form feed \f
	CTRL_CR  = 0x0d // ^M Carriage return \r
	CTRL_SO  = 0x0e // ^N Switch to G1/alternate charset as default
	CTRL_SI  = 0x0f // ^O Switch to G0 charset as default
	CTRL_CAN = 0x18
	CTRL_SUB = 0x1a
	ESC      = 0x1b
	DEL      = 0x7f
)

// Final bytes for ESC sequences
const (
	ESC_DECSC   = '7' // DECSC - save cursor
	ESC_DECRC   = '8' // DECRC - restore cursor
	ESC_DECALN  = '8' // with '#' intermediate, screen alignment test
	ESC_IND     = 'D' // IND - index
	ESC_NEL     = 'E' // NEL - newline
	ESC_HTS     = 'H' // HTS - horizontal tab set
	ESC_RI      = 'M' // RI - reverse index
	ESC_DCS     = 'P'
	ESC_CSI     = '['
	ESC_ST      = '\\'
	ESC_OSC     = ']'
	ESC_SOS     = 'X'
	ESC_PM      = '^'
	ESC_APC     = '_'
	ESC_RIS     = 'c' // RIS - Full reset
	ESC_DECKPAM = '='
	ESC_DECKPNM = '>'
)

// C1 controls, only recognized when 8-bit controls are enabled.
const (
	C1_IND = 0x84
	C1_NEL = 0x85
	C1_HTS = 0x88
	C1_RI  = 0x8d
	C1_DCS = 0x90
	C1_SOS = 0x98
	C1_CSI = 0x9b
	C1_ST  = 0x9c
	C1_OSC = 0x9d
	C1_PM  = 0x9e
	C1_APC = 0x9f
)

// CSI final bytes
const (
	CSI_ICH        = '@' // insert blank characters
	CSI_CUU        = 'A' // cursor up
	CSI_CUD        = 'B' // cursor down
	CSI_CUF        = 'C' // cursor forward
	CSI_CUB        = 'D' // cursor back
	CSI_CNL        = 'E' // cursor next line
	CSI_CPL        = 'F' // cursor previous line
	CSI_CHA        = 'G' // cursor horizontal absolute
	CSI_CUP        = 'H' // cursor position
	CSI_CHT        = 'I' // cursor forward tabulation
	CSI_ED         = 'J' // erase in display
	CSI_EL         = 'K' // erase in line
	CSI_IL         = 'L' // insert line(s)
	CSI_DL         = 'M' // delete line(s)
	CSI_DCH        = 'P' // delete characters
	CSI_SU         = 'S' // scroll up
	CSI_SD         = 'T' // scroll down
	CSI_ECH        = 'X' // erase characters
	CSI_CBT        = 'Z' // cursor backward tabulation
	CSI_HPA        = '`' // character position absolute (column), default [row,1]
	CSI_HPR        = 'a' // character position relative (column), default [row,col+1]
	CSI_REP        = 'b' // repeat preceding graphic character
	CSI_DA         = 'c' // send device attributes
	CSI_VPA        = 'd' // line position absolute (row), default [1,col]
	CSI_VPR        = 'e' // line position relative (row), default [row+1,col]
	CSI_HVP        = 'f' // horizontal vertical position
	CSI_TBC        = 'g' // tab stop clear
	CSI_MODE_SET   = 'h' // h typically enables or activates something
	CSI_MODE_RESET = 'l' // l typically disables or deactivates something
	CSI_SGR        = 'm' // select graphic rendition
	CSI_DSR        = 'n' // device status report
	CSI_DECSTR     = 'p' // with '!' intermediate, soft reset; with '$', DECRQM
	CSI_Q_MULTI    = 'q' // overloaded: XTVERSION (>), DECSCUSR (SP)
	CSI_DECSTBM    = 'r' // set top and bottom margin
	CSI_SCOSC      = 's' // save cursor (SCO)
	CSI_XTWINOPS   = 't' // window manipulation, xterm/dtterm stuff mostly
	CSI_SCORC      = 'u' // restore cursor (SCO)
)

// CSI SGR format codes
const (
	RESET             = 0
	INTENSITY_BOLD    = 1
	INTENSITY_FAINT   = 2
	ITALIC_ON         = 3
	UNDERLINE_ON      = 4
	BLINK_ON          = 5
	RAPID_BLINK_ON    = 6
	REVERSED_ON       = 7
	INVISIBLE_ON      = 8
	STRIKEOUT_ON      = 9
	DOUBLE_UNDERLINE  = 21
	INTENSITY_NORMAL  = 22
	ITALIC_OFF        = 23
	UNDERLINE_OFF     = 24
	BLINK_OFF         = 25
	REVERSED_OFF      = 27
	INVISIBLE_OFF     = 28
	STRIKEOUT_OFF     = 29
	SET_UNDERLINE_COL = 58
	UNDERLINE_COL_DEF = 59
)

// CSI SGR color codes
const (
	FG_BLACK        = 30
	FG_RED          = 31
	FG_WHITE        = 37
	SET_FG          = 38
	FG_DEF          = 39
	BG_BLACK        = 40
	BG_WHITE        = 47
	SET_BG          = 48
	BG_DEF          = 49
	FG_BRIGHT_BLACK = 90
	FG_BRIGHT_WHITE = 97
	BG_BRIGHT_BLACK = 100
	BG_BRIGHT_WHITE = 107
)

// Extended color selectors following SET_FG/SET_BG
const (
	COLOR_RGB     = 2
	COLOR_INDEXED = 5
)

// ANSI mode parameter codes (CSI Pm h/l)
const (
	IRM = 4  // Insert/replace mode
	LNM = 20 // Line Feed/New Line Mode
)

// DEC private mode parameter codes (CSI ? Pm h/l)
const (
	PRIV_DECCKM          = 1    // DEC application cursor keys
	PRIV_DECSCNM         = 5    // Reverse video
	PRIV_DECOM           = 6    // Origin Mode
	PRIV_DECAWM          = 7    // DEC autowrap mode
	PRIV_MOUSE_X10       = 9    // X10 mouse reporting
	PRIV_BLINK_CURSOR    = 12   // Start blinking cursor
	PRIV_DECTCEM         = 25   // Show cursor
	PRIV_ALT_SCREEN      = 47   // Use alternate screen buffer
	PRIV_MOUSE_NORMAL    = 1000 // Send mouse X & Y on button press and release
	PRIV_MOUSE_BUTTON    = 1002 // Cell motion mouse tracking
	PRIV_MOUSE_ANY       = 1003 // All motion mouse tracking
	PRIV_FOCUS_EVENTS    = 1004 // Send FocusIn/FocusOut events
	PRIV_MOUSE_UTF8      = 1005 // UTF-8 mouse encoding
	PRIV_MOUSE_SGR       = 1006 // SGR mouse encoding
	PRIV_ALT_SCREEN_CLR  = 1047 // Alternate screen, cleared on exit
	PRIV_SAVE_CURSOR     = 1048 // Save/restore cursor as DECSC/DECRC
	PRIV_ALT_SCREEN_SAVE = 1049 // Save cursor, alternate screen, clear
	PRIV_BRACKET_PASTE   = 2004 // Bracketed paste, ala xterm
)

// OSC commands
const (
	OSC_ICON_TITLE   = 0
	OSC_ICON         = 1
	OSC_TITLE        = 2
	OSC_PALETTE      = 4
	OSC_CWD          = 7
	OSC_HYPERLINK    = 8
	OSC_FG           = 10
	OSC_BG           = 11
	OSC_CURSOR_COL   = 12
	OSC_CLIPBOARD    = 52
	OSC_PALETTE_RST  = 104
	OSC_FG_RST       = 110
	OSC_BG_RST       = 111
	OSC_CURSOR_RST   = 112
	OSC_PROMPT_MARKS = 133
)

// Modes for CSI_TBC
const (
	TBC_CUR = 0 // clear current tab stop
	TBC_ALL = 3 // clear all tab stops
)

const FMT_RESET = "\x1b[m"
