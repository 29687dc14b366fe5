// Package input turns keyboard, mouse and paste events into the byte
// sequences an application running under the terminal expects, taking
// the modes it has requested into account.
package input

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bdwalton/vtcore/vt"
)

// Mod is a set of keyboard modifiers. The bit values line up with the
// xterm modifier parameter, which is 1 plus the set bits.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModAlt
	ModCtrl
	ModSuper
)

type KeyCode uint8

const (
	KeyRune KeyCode = iota // a printable character in Key.Rune
	KeyEnter
	KeyTab
	KeyBackspace
	KeyEscape
	KeyInsert
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyKP0
	KeyKP1
	KeyKP2
	KeyKP3
	KeyKP4
	KeyKP5
	KeyKP6
	KeyKP7
	KeyKP8
	KeyKP9
	KeyKPEnter
	KeyKPPlus
	KeyKPMinus
	KeyKPMultiply
	KeyKPDivide
	KeyKPDecimal
)

var ErrBadBinding = errors.New("invalid key binding")

var keyNames = map[KeyCode]string{
	KeyEnter:      "Enter",
	KeyTab:        "Tab",
	KeyBackspace:  "Backspace",
	KeyEscape:     "Escape",
	KeyInsert:     "Insert",
	KeyDelete:     "Delete",
	KeyHome:       "Home",
	KeyEnd:        "End",
	KeyPageUp:     "PageUp",
	KeyPageDown:   "PageDown",
	KeyUp:         "Up",
	KeyDown:       "Down",
	KeyRight:      "Right",
	KeyLeft:       "Left",
	KeyKPEnter:    "KPEnter",
	KeyKPPlus:     "KPPlus",
	KeyKPMinus:    "KPMinus",
	KeyKPMultiply: "KPMultiply",
	KeyKPDivide:   "KPDivide",
	KeyKPDecimal:  "KPDecimal",
}

func init() {
	for i := range 12 {
		keyNames[KeyF1+KeyCode(i)] = fmt.Sprintf("F%d", i+1)
	}
	for i := range 10 {
		keyNames[KeyKP0+KeyCode(i)] = fmt.Sprintf("KP%d", i)
	}
}

var modNames = []struct {
	mod  Mod
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModSuper, "Super"},
}

type Key struct {
	Code KeyCode
	Rune rune
	Mods Mod
}

// RuneKey is a shortcut for a printable key with modifiers.
func RuneKey(r rune, mods Mod) Key {
	return Key{Code: KeyRune, Rune: r, Mods: mods}
}

// String renders k in the same "Ctrl+Alt+x" form ParseKeyBinding
// accepts.
func (k Key) String() string {
	var parts []string
	for _, m := range modNames {
		if k.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	if k.Code == KeyRune {
		parts = append(parts, string(k.Rune))
	} else {
		parts = append(parts, keyNames[k.Code])
	}
	return strings.Join(parts, "+")
}

// ParseKeyBinding parses strings like "Ctrl+Shift+C" or "Alt+F4".
// Names are case insensitive and single characters are taken in lower
// case.
func ParseKeyBinding(s string) (Key, error) {
	var k Key
	found := false

parts:
	for _, part := range strings.Split(s, "+") {
		lp := strings.ToLower(part)
		switch lp {
		case "ctrl":
			k.Mods |= ModCtrl
			continue
		case "alt":
			k.Mods |= ModAlt
			continue
		case "shift":
			k.Mods |= ModShift
			continue
		case "super", "cmd":
			k.Mods |= ModSuper
			continue
		}

		if utf8.RuneCountInString(lp) == 1 {
			r, _ := utf8.DecodeRuneInString(lp)
			k.Code, k.Rune, found = KeyRune, r, true
			continue
		}
		for code, name := range keyNames {
			if strings.EqualFold(name, lp) {
				k.Code, found = code, true
				continue parts
			}
		}
		return Key{}, fmt.Errorf("%w: unknown key %q in %q", ErrBadBinding, part, s)
	}

	if !found {
		return Key{}, fmt.Errorf("%w: no key in %q", ErrBadBinding, s)
	}
	return k, nil
}

// cursorFinals are the keys sent as CSI/SS3 followed by a letter.
var cursorFinals = map[KeyCode]byte{
	KeyUp:    'A',
	KeyDown:  'B',
	KeyRight: 'C',
	KeyLeft:  'D',
	KeyHome:  'H',
	KeyEnd:   'F',
	KeyF1:    'P',
	KeyF2:    'Q',
	KeyF3:    'R',
	KeyF4:    'S',
}

// tildeCodes are the keys sent as CSI n ~.
var tildeCodes = map[KeyCode]int{
	KeyInsert:   2,
	KeyDelete:   3,
	KeyPageUp:   5,
	KeyPageDown: 6,
	KeyF5:       15,
	KeyF6:       17,
	KeyF7:       18,
	KeyF8:       19,
	KeyF9:       20,
	KeyF10:      21,
	KeyF11:      23,
	KeyF12:      24,
}

// keypad holds the application mode final and the numeric mode
// character for each keypad key.
var keypad = map[KeyCode]struct {
	app     byte
	numeric string
}{
	KeyKP0:        {'p', "0"},
	KeyKP1:        {'q', "1"},
	KeyKP2:        {'r', "2"},
	KeyKP3:        {'s', "3"},
	KeyKP4:        {'t', "4"},
	KeyKP5:        {'u', "5"},
	KeyKP6:        {'v', "6"},
	KeyKP7:        {'w', "7"},
	KeyKP8:        {'x', "8"},
	KeyKP9:        {'y', "9"},
	KeyKPEnter:    {'M', "\r"},
	KeyKPPlus:     {'k', "+"},
	KeyKPMinus:    {'m', "-"},
	KeyKPMultiply: {'j', "*"},
	KeyKPDivide:   {'o', "/"},
	KeyKPDecimal:  {'n', "."},
}

// modParam is the xterm modifier parameter for mods, ignoring Super.
func modParam(mods Mod) int {
	return 1 + int(mods&(ModShift|ModAlt|ModCtrl))
}

// EncodeKey returns the bytes a key press sends given the current
// modes. Keys with no encoding return nil.
func EncodeKey(k Key, m vt.Modes) []byte {
	mods := k.Mods &^ ModSuper

	if f, ok := cursorFinals[k.Code]; ok {
		if mods != 0 {
			return fmt.Appendf(nil, "\x1b[1;%d%c", modParam(mods), f)
		}
		// F1-F4 always use SS3; the cursor keys only in application
		// mode.
		if m.AppCursor || k.Code >= KeyF1 {
			return []byte{0x1b, 'O', f}
		}
		return []byte{0x1b, '[', f}
	}

	if n, ok := tildeCodes[k.Code]; ok {
		if mods != 0 {
			return fmt.Appendf(nil, "\x1b[%d;%d~", n, modParam(mods))
		}
		return fmt.Appendf(nil, "\x1b[%d~", n)
	}

	if kp, ok := keypad[k.Code]; ok {
		if m.AppKeypad {
			return []byte{0x1b, 'O', kp.app}
		}
		if k.Code == KeyKPEnter && m.NewLine {
			return []byte("\r\n")
		}
		return []byte(kp.numeric)
	}

	var out []byte
	switch k.Code {
	case KeyRune:
		out = encodeRune(k.Rune, mods)
	case KeyEnter:
		out = []byte{'\r'}
		if m.NewLine {
			out = append(out, '\n')
		}
	case KeyTab:
		if mods&ModShift != 0 {
			return []byte("\x1b[Z")
		}
		out = []byte{'\t'}
	case KeyBackspace:
		out = []byte{0x7f}
		if mods&ModCtrl != 0 {
			out = []byte{0x08}
		}
	case KeyEscape:
		out = []byte{0x1b}
	default:
		return nil
	}

	if mods&ModAlt != 0 && out != nil {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

// encodeRune applies Ctrl to printable keys. Alt is handled by the
// caller.
func encodeRune(r rune, mods Mod) []byte {
	if mods&ModCtrl == 0 {
		return utf8.AppendRune(nil, r)
	}

	switch {
	case r >= 'a' && r <= 'z':
		return []byte{byte(r-'a') + 1}
	case r >= 'A' && r <= 'Z':
		return []byte{byte(r-'A') + 1}
	case r == '@' || r == ' ' || r == '2':
		return []byte{0}
	case r == '[' || r == '3':
		return []byte{0x1b}
	case r == '\\' || r == '4':
		return []byte{0x1c}
	case r == ']' || r == '5':
		return []byte{0x1d}
	case r == '^' || r == '6':
		return []byte{0x1e}
	case r == '_' || r == '7' || r == '/':
		return []byte{0x1f}
	case r == '?' || r == '8':
		return []byte{0x7f}
	}
	return utf8.AppendRune(nil, r)
}

func (m Mod) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, mn := range modNames {
		if m&mn.mod != 0 {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, "+")
}
