package vt

import (
	"bytes"
	"slices"
	"testing"
)

func parseStrings(p *Parser, chunks ...string) []string {
	var got []string
	for _, c := range chunks {
		for ev := range p.Parse([]byte(c)) {
			got = append(got, ev.String())
		}
	}
	return got
}

func parseEvents(p *Parser, chunks ...string) []Event {
	var got []Event
	for _, c := range chunks {
		for ev := range p.Parse([]byte(c)) {
			got = append(got, ev)
		}
	}
	return got
}

func TestParseChunked(t *testing.T) {
	cases := []struct {
		chunks []string
		want   []string
	}{
		{[]string{"\x1b[31mA"}, []string{"csi_dispatch(31m)", "print('A')"}},
		{[]string{"\x1b", "[3", "1m", "A"}, []string{"csi_dispatch(31m)", "print('A')"}},
		{[]string{"\x1b[?10", "49h"}, []string{"csi_dispatch(?1049h)"}},
		{[]string{"\xe2\x82", "\xac"}, []string{"print('€')"}},
		{[]string{"\xe2", "\x82", "\xac"}, []string{"print('€')"}},
		{[]string{"a\x1b]0;ti", "tle\x07b"}, []string{"print('a')", `osc_dispatch("0;title")`, "print('b')"}},
		{[]string{"\x1b]2;x\x1b", "\\"}, []string{`osc_dispatch("2;x")`, `esc_dispatch(\)`}},
		{[]string{"\x1b(0"}, []string{"esc_dispatch((0)"}},
		{[]string{"\x1b#8"}, []string{"esc_dispatch(#8)"}},
		{[]string{"\x1b[ q"}, []string{"csi_dispatch( q)"}},
		{[]string{"\x1b[>c"}, []string{"csi_dispatch(>c)"}},
	}

	for i, c := range cases {
		p := NewParser(false)
		if got := parseStrings(p, c.chunks...); !slices.Equal(got, c.want) {
			t.Errorf("%d: Got %q, want %q", i, got, c.want)
		}
	}
}

// Feeding the same input byte by byte or all at once must produce the
// same events.
func TestParseSplitAnywhere(t *testing.T) {
	input := "hi\x1b[1;31m\xe4\xb8\x96\x1b]8;;http://x\x1b\\\x1bP$qm\x1b\\\x1b[38:2::1:2:3mZ"

	whole := parseStrings(NewParser(false), input)

	var bytewise []string
	p := NewParser(false)
	for i := range len(input) {
		bytewise = append(bytewise, parseStrings(p, input[i:i+1])...)
	}

	// DCS data arrives in one put per Parse call, so compare without
	// the puts.
	noPut := func(evs []string) []string {
		return slices.DeleteFunc(slices.Clone(evs), func(s string) bool {
			return len(s) > 7 && s[:7] == "dcs_put"
		})
	}
	if !slices.Equal(noPut(whole), noPut(bytewise)) {
		t.Errorf("Got %q, want %q", bytewise, whole)
	}
}

func TestParseAbort(t *testing.T) {
	cases := []struct {
		input         string
		want          []string
		wantMalformed uint64
	}{
		{"\x1b[31\x18A", []string{"print('A')"}, 1},
		{"\x1b[31\x1aA", []string{"print('A')"}, 1},
		{"\x1b]0;abc\x18A", []string{"print('A')"}, 1},
		{"\x1b[1$$$pA", []string{"print('A')"}, 1},
		{"\x1b[3\xc3\xa9", []string{"print('é')"}, 1},
		{"\xffA", []string{"print('�')", "print('A')"}, 1},
		{"\xe2A", []string{"print('�')", "print('A')"}, 1},
		{"\xe2\x82\x1b[mA", []string{"print('�')", "csi_dispatch(m)", "print('A')"}, 1},
		{"\x9bA", []string{"print('�')", "print('A')"}, 1},
		// ESC restarts a sequence without counting as malformed.
		{"\x1b[31\x1b[32m", []string{"csi_dispatch(32m)"}, 0},
	}

	for i, c := range cases {
		p := NewParser(false)
		got := parseStrings(p, c.input)
		if !slices.Equal(got, c.want) {
			t.Errorf("%d: Got %q, want %q", i, got, c.want)
		}
		if p.Malformed() != c.wantMalformed {
			t.Errorf("%d: Got %d malformed, want %d", i, p.Malformed(), c.wantMalformed)
		}
	}
}

func TestParseControlInCSI(t *testing.T) {
	evs := parseEvents(NewParser(false), "\x1b[1\n2H")
	if len(evs) != 2 {
		t.Fatalf("Got %d events (%v), want 2", len(evs), evs)
	}
	if evs[0].Kind != EventExecute || evs[0].Byte != CTRL_LF {
		t.Errorf("Got %s, want execute of LF", evs[0])
	}
	if evs[1].Kind != EventCSI || evs[1].Final != CSI_CUP || evs[1].Params.String() != "12" {
		t.Errorf("Got %s, want CUP 12", evs[1])
	}
}

func TestParseParams(t *testing.T) {
	cases := []struct {
		input      string
		wantParams string
		wantLen    int
	}{
		{"\x1b[m", "", 0},
		{"\x1b[;5H", "0;5", 2},
		{"\x1b[5;H", "5;0", 2},
		{"\x1b[:m", "0:0", 1},
		{"\x1b[:5:m", "0:5:0", 1},
		{"\x1b[38:2::10:20:30m", "38:2:0:10:20:30", 1},
		{"\x1b[4:3;38;5;1m", "4:3;38;5;1", 4},
		{"\x1b[99999999A", "65535", 1},
	}

	for i, c := range cases {
		evs := parseEvents(NewParser(false), c.input)
		if len(evs) != 1 || evs[0].Kind != EventCSI {
			t.Errorf("%d: Got %v, want one CSI event", i, evs)
			continue
		}
		if got := evs[0].Params.String(); got != c.wantParams {
			t.Errorf("%d: Got params %q, want %q", i, got, c.wantParams)
		}
		if got := evs[0].Params.Len(); got != c.wantLen {
			t.Errorf("%d: Got %d params, want %d", i, got, c.wantLen)
		}
	}
}

func TestParseParamsCap(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("\x1b[")
	for i := range 40 {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString("7")
	}
	b.WriteString("m")

	evs := parseEvents(NewParser(false), b.String())
	if len(evs) != 1 {
		t.Fatalf("Got %d events, want 1", len(evs))
	}
	if got := evs[0].Params.Len(); got != MAX_PARAMS {
		t.Errorf("Got %d params, want %d", got, MAX_PARAMS)
	}
}

func TestParseDCS(t *testing.T) {
	got := parseStrings(NewParser(false), "\x1bP$qm\x1b\\")
	want := []string{"dcs_hook($q)", `dcs_put("m")`, "dcs_unhook(0x1b)", `esc_dispatch(\)`}
	if !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}

	got = parseStrings(NewParser(false), "\x1bP1$rabc\x18")
	want = []string{"dcs_hook(1$r)", `dcs_put("abc")`, "dcs_unhook(0x18)"}
	if !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}
}

func TestParseC1(t *testing.T) {
	p := NewParser(true)
	got := parseStrings(p, "\x9b31m\x9d0;t\x9cA")
	want := []string{"csi_dispatch(31m)", `osc_dispatch("0;t")`, "print('A')"}
	if !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}

	evs := parseEvents(NewParser(true), "\x85")
	if len(evs) != 1 || evs[0].Kind != EventExecute || evs[0].Byte != C1_NEL {
		t.Errorf("Got %v, want execute of NEL", evs)
	}
}

func TestParseLongOSC(t *testing.T) {
	p := NewParser(false)
	in := "\x1b]2;" + string(bytes.Repeat([]byte{'a'}, MAX_STRING_LENGTH+100)) + "\x07"
	evs := parseEvents(p, in)
	if len(evs) != 1 || evs[0].Kind != EventOSC {
		t.Fatalf("Got %d events, want one OSC", len(evs))
	}
	if len(evs[0].Payload) != MAX_STRING_LENGTH {
		t.Errorf("Got payload of %d bytes, want %d", len(evs[0].Payload), MAX_STRING_LENGTH)
	}
	if p.Malformed() != 1 {
		t.Errorf("Got %d malformed, want 1", p.Malformed())
	}
}

func TestParseEarlyStop(t *testing.T) {
	p := NewParser(false)
	for ev := range p.Parse([]byte("ab\x1b[31m")) {
		if ev.Rune != 'a' {
			t.Errorf("Got %s, want print('a')", ev)
		}
		break
	}

	// The rest of the chunk was discarded; the parser is still in
	// ground and carries on with new input.
	got := parseStrings(p, "c")
	if want := []string{"print('c')"}; !slices.Equal(got, want) {
		t.Errorf("Got %q, want %q", got, want)
	}
}
