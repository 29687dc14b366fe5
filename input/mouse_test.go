package input

import (
	"testing"

	"github.com/bdwalton/vtcore/vt"
)

func TestEncodeMouse(t *testing.T) {
	x10 := vt.Modes{Mouse: vt.MouseX10}
	normal := vt.Modes{Mouse: vt.MouseNormal}
	button := vt.Modes{Mouse: vt.MouseButtonEvent}
	anyEv := vt.Modes{Mouse: vt.MouseAnyEvent}
	sgr := vt.Modes{Mouse: vt.MouseNormal, MouseEncoding: vt.MouseEncodingSGR}
	utf := vt.Modes{Mouse: vt.MouseNormal, MouseEncoding: vt.MouseEncodingUTF8}

	press := MouseEvent{Button: ButtonLeft, Action: MousePress, Row: 4, Col: 9}
	release := MouseEvent{Button: ButtonLeft, Action: MouseRelease, Row: 4, Col: 9}
	drag := MouseEvent{Button: ButtonLeft, Action: MouseMotion, Row: 4, Col: 9}
	hover := MouseEvent{Button: ButtonNone, Action: MouseMotion, Row: 4, Col: 9}

	cases := []struct {
		ev    MouseEvent
		modes vt.Modes
		want  string
	}{
		{press, vt.Modes{}, ""},
		{press, x10, "\x1b[M *%"},
		{release, x10, ""},
		{MouseEvent{Button: ButtonRight, Action: MousePress, Mods: ModCtrl}, x10, "\x1b[M\"!!"},
		{press, normal, "\x1b[M *%"},
		{release, normal, "\x1b[M#*%"},
		{drag, normal, ""},
		{MouseEvent{Button: ButtonMiddle, Action: MousePress, Mods: ModShift | ModCtrl}, normal, "\x1b[M5!!"},
		{MouseEvent{Button: WheelUp, Action: MousePress}, normal, "\x1b[M`!!"},
		{MouseEvent{Button: WheelDown, Action: MouseRelease}, normal, ""},
		{drag, button, "\x1b[M@*%"},
		{hover, button, ""},
		{hover, anyEv, "\x1b[MC*%"},
		{press, sgr, "\x1b[<0;10;5M"},
		{release, sgr, "\x1b[<0;10;5m"},
		{MouseEvent{Button: ButtonRight, Action: MouseRelease, Mods: ModAlt}, sgr, "\x1b[<10;1;1m"},
		{MouseEvent{Button: ButtonLeft, Action: MousePress, Row: 0, Col: 300}, sgr, "\x1b[<0;301;1M"},
		{MouseEvent{Button: ButtonLeft, Action: MousePress, Row: 0, Col: 300}, normal, ""},
		{MouseEvent{Button: ButtonLeft, Action: MousePress, Row: 0, Col: 300}, utf, "\x1b[M ō!"},
	}

	for i, c := range cases {
		if got := string(EncodeMouse(c.ev, c.modes)); got != c.want {
			t.Errorf("%d: Got %q, want %q", i, got, c.want)
		}
	}
}
