package vt

import "log/slog"

// dcsCapture collects the payload of a DCS string we know how to
// answer until the string is terminated.
type dcsCapture struct {
	key  seqKey
	data []byte
}

type dcsHandler func(t *Terminal, data string)

var dcsTable map[seqKey]dcsHandler

func init() {
	dcsTable = map[seqKey]dcsHandler{
		{inter: "$", final: 'q'}: (*Terminal).decrqss,
	}
}

func (t *Terminal) dcsHook(ev Event) {
	k := seqKey{ev.Private, string(ev.Intermediates), ev.Final}
	if _, ok := dcsTable[k]; !ok {
		t.dcs = nil
		t.unsupported("unsupported DCS sequence", "seq", ev)
		return
	}
	t.dcs = &dcsCapture{key: k}
}

func (t *Terminal) dcsPut(data []byte) {
	if t.dcs == nil {
		return
	}
	room := MAX_STRING_LENGTH - len(t.dcs.data)
	if len(data) > room {
		data = data[:room]
	}
	t.dcs.data = append(t.dcs.data, data...)
}

func (t *Terminal) dcsUnhook(term byte) {
	d := t.dcs
	t.dcs = nil
	if d == nil {
		return
	}
	if term == CTRL_CAN || term == CTRL_SUB {
		slog.Debug("DCS cancelled", "key", d.key)
		return
	}
	dcsTable[d.key](t, string(d.data))
}

// decrqss answers DECRQSS for the settings we track. The reply is
// DCS 1 $ r <setting> ST when valid and DCS 0 $ r ST otherwise.
func (t *Terminal) decrqss(setting string) {
	switch setting {
	case "m":
		t.reply("%c%c1$r%sm%c%c", ESC, ESC_DCS, t.pen.sgr(), ESC, ESC_ST)
	case "r":
		t.reply("%c%c1$r%d;%dr%c%c", ESC, ESC_DCS, t.modes.ScrollTop+1, t.modes.ScrollBottom+1, ESC, ESC_ST)
	case " q":
		t.reply("%c%c1$r%d q%c%c", ESC, ESC_DCS, t.shape.decscusr(t.modes.CursorBlink), ESC, ESC_ST)
	default:
		slog.Debug("unsupported DECRQSS setting", "setting", setting)
		t.reply("%c%c0$r%c%c", ESC, ESC_DCS, ESC, ESC_ST)
	}
}
