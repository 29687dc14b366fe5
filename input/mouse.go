package input

import (
	"fmt"
	"unicode/utf8"

	"github.com/bdwalton/vtcore/vt"
)

type MouseButton uint8

const (
	ButtonLeft MouseButton = iota
	ButtonMiddle
	ButtonRight
	ButtonNone // motion with nothing held
	WheelUp
	WheelDown
)

type MouseAction uint8

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseMotion
)

// MouseEvent is a mouse event at a 0 based screen position.
type MouseEvent struct {
	Button   MouseButton
	Action   MouseAction
	Row, Col int
	Mods     Mod
}

const (
	mouseMotionBit = 32
	// Largest coordinate the legacy encodings can carry.
	maxX10Coord  = 255 - 32
	maxUTF8Coord = 2047 - 32
)

// buttonCode is the Cb value for b before modifiers and motion are
// added.
func buttonCode(b MouseButton) int {
	switch b {
	case WheelUp:
		return 64
	case WheelDown:
		return 65
	}
	return int(b)
}

// reported decides whether the current tracking mode asks for ev.
func reported(ev MouseEvent, tracking vt.MouseTracking) bool {
	switch tracking {
	case vt.MouseX10:
		return ev.Action == MousePress
	case vt.MouseNormal:
		return ev.Action != MouseMotion
	case vt.MouseButtonEvent:
		return ev.Action != MouseMotion || ev.Button != ButtonNone
	case vt.MouseAnyEvent:
		return true
	}
	return false
}

// EncodeMouse returns the report for ev in the mouse protocol the
// application enabled, or nil when the event is not reported.
func EncodeMouse(ev MouseEvent, m vt.Modes) []byte {
	if !reported(ev, m.Mouse) {
		return nil
	}
	// Wheels have no release.
	if ev.Action == MouseRelease && (ev.Button == WheelUp || ev.Button == WheelDown) {
		return nil
	}

	cb := buttonCode(ev.Button)
	if m.Mouse != vt.MouseX10 {
		if ev.Mods&ModShift != 0 {
			cb |= 4
		}
		if ev.Mods&ModAlt != 0 {
			cb |= 8
		}
		if ev.Mods&ModCtrl != 0 {
			cb |= 16
		}
	}
	if ev.Action == MouseMotion {
		cb |= mouseMotionBit
	}

	col, row := max(ev.Col, 0)+1, max(ev.Row, 0)+1

	if m.MouseEncoding == vt.MouseEncodingSGR {
		final := 'M'
		if ev.Action == MouseRelease {
			final = 'm'
		}
		return fmt.Appendf(nil, "\x1b[<%d;%d;%d%c", cb, col, row, final)
	}

	// The legacy encodings can't say which button was released.
	if ev.Action == MouseRelease {
		cb = cb&^3 | 3
	}

	out := []byte("\x1b[M")
	if m.MouseEncoding == vt.MouseEncodingUTF8 {
		if col > maxUTF8Coord || row > maxUTF8Coord {
			return nil
		}
		for _, v := range []int{cb, col, row} {
			out = utf8.AppendRune(out, rune(32+v))
		}
		return out
	}

	if col > maxX10Coord || row > maxX10Coord {
		return nil
	}
	return append(out, byte(32+cb), byte(32+col), byte(32+row))
}
