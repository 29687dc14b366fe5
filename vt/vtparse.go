package vt

import (
	"iter"
	"log/slog"
	"slices"
	"unicode/utf8"
)

// The parser follows the DEC/ECMA-48 state machine described at
// https://vt100.net/emu/dec_ansi_parser, with colon sub-parameters
// accepted in CSI and DCS parameters and UTF-8 decoded in the ground
// state.

type pState uint8

const (
	stateGround pState = iota
	stateEscape
	stateEscapeIntermediate
	stateCsiEntry
	stateCsiParam
	stateCsiIntermediate
	stateCsiIgnore
	stateDcsEntry
	stateDcsParam
	stateDcsIntermediate
	stateDcsPassthrough
	stateDcsIgnore
	stateOscString
	stateSosPmApcString
	numStates

	stateNone pState = 0x0F // no state change
)

var stateNames = [numStates]string{
	"ground",
	"escape",
	"escape_intermediate",
	"csi_entry",
	"csi_param",
	"csi_intermediate",
	"csi_ignore",
	"dcs_entry",
	"dcs_param",
	"dcs_intermediate",
	"dcs_passthrough",
	"dcs_ignore",
	"osc_string",
	"sos_pm_apc_string",
}

func (s pState) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return "none"
}

type pAction uint8

const (
	actionNone pAction = iota
	actionIgnore
	actionPrint
	actionExecute
	actionClear
	actionCollect
	actionPrivate
	actionParam
	actionEscDispatch
	actionCsiDispatch
	actionHook
	actionPut
	actionUnhook
	actionOscStart
	actionOscPut
	actionAbort // CAN/SUB: drop the sequence in progress
)

type transition uint8

func newTransition(a pAction, s pState) transition {
	return transition(uint8(a<<4) | uint8(s))
}

func (t transition) state() pState {
	return pState(t & 0x0F)
}

func (t transition) action() pAction {
	return pAction(t >> 4)
}

var (
	stateTable   [numStates][256]transition
	entryActions [numStates]pAction
	exitActions  [numStates]pAction
)

func init() {
	buildStateTable()
}

func buildStateTable() {
	set := func(s pState, from, to int, a pAction, next pState) {
		for b := from; b <= to; b++ {
			stateTable[s][b] = newTransition(a, next)
		}
	}

	// C0 controls execute in place everywhere except inside strings,
	// so that a stray LF in the middle of a CSI doesn't get lost.
	c0 := func(s pState, a pAction) {
		set(s, 0x00, 0x17, a, stateNone)
		set(s, 0x19, 0x19, a, stateNone)
		set(s, 0x1c, 0x1f, a, stateNone)
	}

	for s := pState(0); s < numStates; s++ {
		set(s, 0x00, 0xff, actionIgnore, stateNone)
	}

	c0(stateGround, actionExecute)
	set(stateGround, 0x20, 0x7e, actionPrint, stateNone)

	c0(stateEscape, actionExecute)
	set(stateEscape, 0x20, 0x2f, actionCollect, stateEscapeIntermediate)
	set(stateEscape, 0x30, 0x7e, actionEscDispatch, stateGround)
	set(stateEscape, ESC_CSI, ESC_CSI, actionNone, stateCsiEntry)
	set(stateEscape, ESC_OSC, ESC_OSC, actionNone, stateOscString)
	set(stateEscape, ESC_DCS, ESC_DCS, actionNone, stateDcsEntry)
	set(stateEscape, ESC_SOS, ESC_SOS, actionNone, stateSosPmApcString)
	set(stateEscape, ESC_PM, ESC_PM, actionNone, stateSosPmApcString)
	set(stateEscape, ESC_APC, ESC_APC, actionNone, stateSosPmApcString)

	c0(stateEscapeIntermediate, actionExecute)
	set(stateEscapeIntermediate, 0x20, 0x2f, actionCollect, stateNone)
	set(stateEscapeIntermediate, 0x30, 0x7e, actionEscDispatch, stateGround)

	c0(stateCsiEntry, actionExecute)
	set(stateCsiEntry, 0x20, 0x2f, actionCollect, stateCsiIntermediate)
	set(stateCsiEntry, 0x30, 0x3b, actionParam, stateCsiParam)
	set(stateCsiEntry, 0x3c, 0x3f, actionPrivate, stateCsiParam)
	set(stateCsiEntry, 0x40, 0x7e, actionCsiDispatch, stateGround)

	c0(stateCsiParam, actionExecute)
	set(stateCsiParam, 0x20, 0x2f, actionCollect, stateCsiIntermediate)
	set(stateCsiParam, 0x30, 0x3b, actionParam, stateNone)
	set(stateCsiParam, 0x3c, 0x3f, actionNone, stateCsiIgnore)
	set(stateCsiParam, 0x40, 0x7e, actionCsiDispatch, stateGround)

	c0(stateCsiIntermediate, actionExecute)
	set(stateCsiIntermediate, 0x20, 0x2f, actionCollect, stateNone)
	set(stateCsiIntermediate, 0x30, 0x3f, actionNone, stateCsiIgnore)
	set(stateCsiIntermediate, 0x40, 0x7e, actionCsiDispatch, stateGround)

	c0(stateCsiIgnore, actionExecute)
	set(stateCsiIgnore, 0x40, 0x7e, actionNone, stateGround)

	set(stateDcsEntry, 0x20, 0x2f, actionCollect, stateDcsIntermediate)
	set(stateDcsEntry, 0x30, 0x3b, actionParam, stateDcsParam)
	set(stateDcsEntry, 0x3c, 0x3f, actionPrivate, stateDcsParam)
	set(stateDcsEntry, 0x40, 0x7e, actionNone, stateDcsPassthrough)

	set(stateDcsParam, 0x20, 0x2f, actionCollect, stateDcsIntermediate)
	set(stateDcsParam, 0x30, 0x3b, actionParam, stateNone)
	set(stateDcsParam, 0x3c, 0x3f, actionNone, stateDcsIgnore)
	set(stateDcsParam, 0x40, 0x7e, actionNone, stateDcsPassthrough)

	set(stateDcsIntermediate, 0x20, 0x2f, actionCollect, stateNone)
	set(stateDcsIntermediate, 0x30, 0x3f, actionNone, stateDcsIgnore)
	set(stateDcsIntermediate, 0x40, 0x7e, actionNone, stateDcsPassthrough)

	c0(stateDcsPassthrough, actionPut)
	set(stateDcsPassthrough, 0x20, 0x7e, actionPut, stateNone)

	set(stateOscString, 0x20, 0x7f, actionOscPut, stateNone)
	// xterm accepts BEL as an OSC terminator
	set(stateOscString, CTRL_BEL, CTRL_BEL, actionNone, stateGround)

	// Transitions that apply from every state.
	for s := pState(0); s < numStates; s++ {
		set(s, CTRL_CAN, CTRL_CAN, actionAbort, stateGround)
		set(s, CTRL_SUB, CTRL_SUB, actionAbort, stateGround)
		set(s, ESC, ESC, actionNone, stateEscape)

		// 8-bit controls. Only consulted when the parser was
		// created with C1 recognition enabled.
		set(s, 0x80, 0x8f, actionExecute, stateGround)
		set(s, 0x91, 0x97, actionExecute, stateGround)
		set(s, 0x99, 0x9a, actionExecute, stateGround)
		set(s, C1_DCS, C1_DCS, actionNone, stateDcsEntry)
		set(s, C1_SOS, C1_SOS, actionNone, stateSosPmApcString)
		set(s, C1_CSI, C1_CSI, actionNone, stateCsiEntry)
		set(s, C1_ST, C1_ST, actionNone, stateGround)
		set(s, C1_OSC, C1_OSC, actionNone, stateOscString)
		set(s, C1_PM, C1_APC, actionNone, stateSosPmApcString)
	}

	entryActions[stateEscape] = actionClear
	entryActions[stateCsiEntry] = actionClear
	entryActions[stateDcsEntry] = actionClear
	entryActions[stateOscString] = actionOscStart
	entryActions[stateDcsPassthrough] = actionHook

	exitActions[stateDcsPassthrough] = actionUnhook
}

// utf8Decoder holds a partially received UTF-8 sequence between bytes
// and between calls to Parse.
type utf8Decoder struct {
	buf [utf8.UTFMax]byte
	n   int
}

// Parser turns a byte stream into Events. It keeps all of its state
// between calls to Parse, so input may be split at any byte boundary.
// A Parser is not safe for concurrent use.
type Parser struct {
	state pState
	c1    bool
	dec   utf8Decoder

	params     []int
	sub        []bool
	paramsFull bool
	inter      []byte
	private    byte
	ignoreSeq  bool // too many intermediates; drop at dispatch

	osc         []byte
	oscOverflow bool

	dcs     []byte
	dcsLen  int
	dcsDrop bool

	yield   func(Event) bool
	stopped bool

	malformed uint64
}

// NewParser returns a parser in the ground state. When c1 is set, the
// bytes 0x80-0x9f are treated as 8-bit control functions rather than
// as UTF-8 continuation bytes.
func NewParser(c1 bool) *Parser {
	return &Parser{
		state:  stateGround,
		c1:     c1,
		params: make([]int, 0, MAX_PARAMS),
		sub:    make([]bool, 0, MAX_PARAMS),
		inter:  make([]byte, 0, MAX_INTERMEDIATE),
	}
}

// Malformed returns how many sequences or code points were dropped or
// replaced because the input was invalid.
func (p *Parser) Malformed() uint64 {
	return p.malformed
}

// Parse returns the events produced by data, in order. The events are
// generated as the caller ranges over the sequence. If the caller
// stops early, the remaining bytes of data are discarded; the parser
// state reflects only the bytes consumed so far.
func (p *Parser) Parse(data []byte) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		p.yield = yield
		p.stopped = false
		defer func() { p.yield = nil }()

		for _, b := range data {
			p.step(b)
			if p.stopped {
				return
			}
		}
		p.flushPut()
	}
}

func (p *Parser) emit(e Event) {
	if p.stopped || p.yield == nil {
		return
	}
	if !p.yield(e) {
		p.stopped = true
	}
}

func (p *Parser) step(b byte) {
	if p.dec.n > 0 {
		if b >= 0x80 && b <= 0xbf && !(p.c1 && b <= 0x9f) {
			p.dec.buf[p.dec.n] = b
			p.dec.n++
			if !utf8.FullRune(p.dec.buf[:p.dec.n]) {
				return
			}
			r, size := utf8.DecodeRune(p.dec.buf[:p.dec.n])
			p.dec.n = 0
			if r == utf8.RuneError && size <= 1 {
				// The last byte made the sequence invalid.
				// The prefix is replaced and the byte gets
				// another look on its own.
				p.badUTF8()
				p.step(b)
				return
			}
			p.emit(Event{Kind: EventPrint, Rune: r})
			return
		}

		// Anything else interrupts the sequence.
		p.dec.n = 0
		p.badUTF8()
	}

	if b < 0x80 || (p.c1 && b < 0xa0) {
		p.transition(stateTable[p.state][b], b)
		return
	}

	p.highByte(b)
}

func (p *Parser) badUTF8() {
	p.malformed++
	p.emit(Event{Kind: EventPrint, Rune: utf8.RuneError})
}

// highByte handles 0x80-0xff when it isn't an 8-bit control.
func (p *Parser) highByte(b byte) {
	switch p.state {
	case stateGround:
		if b >= 0xc2 && b <= 0xf4 {
			p.dec.buf[0] = b
			p.dec.n = 1
			return
		}
		p.badUTF8()
	case stateOscString:
		p.oscPut(b)
	case stateDcsPassthrough:
		p.put(b)
	case stateCsiIgnore, stateDcsIgnore, stateSosPmApcString:
		// Do nothing
	default:
		slog.Debug("aborting sequence on high byte", "state", p.state, "b", b)
		p.malformed++
		p.state = stateGround
		p.highByte(b)
	}
}

func (p *Parser) transition(t transition, b byte) {
	next := t.state()
	act := t.action()

	if next == stateNone {
		p.action(act, b)
		return
	}

	if act == actionAbort {
		p.abort(b)
		p.state = next
		return
	}

	if exit := exitActions[p.state]; exit != actionNone {
		p.action(exit, b)
	}
	if p.state == stateOscString {
		p.oscEnd(b)
	}

	p.action(act, b)

	if enter := entryActions[next]; enter != actionNone {
		p.action(enter, b)
	}

	p.state = next
}

func (p *Parser) abort(b byte) {
	switch p.state {
	case stateGround:
		return
	case stateDcsPassthrough:
		p.unhook(b)
	case stateOscString:
		p.osc = p.osc[:0]
	}
	slog.Debug("sequence cancelled", "state", p.state, "b", b)
	p.malformed++
}

func (p *Parser) action(act pAction, b byte) {
	switch act {
	case actionNone, actionIgnore:
		// Do nothing
	case actionPrint:
		p.emit(Event{Kind: EventPrint, Rune: rune(b)})
	case actionExecute:
		p.emit(Event{Kind: EventExecute, Byte: b})
	case actionClear:
		p.clear()
	case actionCollect:
		if len(p.inter) >= MAX_INTERMEDIATE {
			p.ignoreSeq = true
			return
		}
		p.inter = append(p.inter, b)
	case actionPrivate:
		p.private = b
	case actionParam:
		p.param(b)
	case actionEscDispatch:
		if p.ignoreSeq {
			p.dropSeq(b)
			return
		}
		p.emit(Event{Kind: EventESC, Intermediates: cloneBytes(p.inter), Final: b})
	case actionCsiDispatch:
		if p.ignoreSeq {
			p.dropSeq(b)
			return
		}
		p.emit(Event{
			Kind:          EventCSI,
			Params:        p.takeParams(),
			Intermediates: cloneBytes(p.inter),
			Private:       p.private,
			Final:         b,
		})
	case actionHook:
		p.hook(b)
	case actionPut:
		p.put(b)
	case actionUnhook:
		p.unhook(b)
	case actionOscStart:
		p.osc = p.osc[:0]
		p.oscOverflow = false
	case actionOscPut:
		p.oscPut(b)
	default:
		slog.Error("unknown parser action", "action", act, "b", b)
	}
}

func (p *Parser) clear() {
	p.params = p.params[:0]
	p.sub = p.sub[:0]
	p.paramsFull = false
	p.inter = p.inter[:0]
	p.private = 0
	p.ignoreSeq = false
}

func (p *Parser) dropSeq(final byte) {
	slog.Debug("dropping sequence with too many intermediates", "intermediates", string(p.inter), "final", string(final))
	p.malformed++
}

func (p *Parser) param(b byte) {
	if p.paramsFull {
		return
	}
	if len(p.params) == 0 {
		p.params = append(p.params, 0)
		p.sub = append(p.sub, false)
	}

	switch b {
	case ';', ':':
		if len(p.params) >= MAX_PARAMS {
			p.paramsFull = true
			return
		}
		p.params = append(p.params, 0)
		p.sub = append(p.sub, b == ':')
	default:
		i := len(p.params) - 1
		p.params[i] = min(p.params[i]*10+int(b-'0'), MAX_PARAM_VALUE)
	}
}

func (p *Parser) takeParams() Params {
	if len(p.params) == 0 {
		return Params{}
	}
	return Params{vals: slices.Clone(p.params), sub: slices.Clone(p.sub)}
}

func (p *Parser) hook(final byte) {
	p.dcs = p.dcs[:0]
	p.dcsLen = 0
	p.dcsDrop = p.ignoreSeq
	if p.dcsDrop {
		p.dropSeq(final)
		return
	}
	p.emit(Event{
		Kind:          EventDCSHook,
		Params:        p.takeParams(),
		Intermediates: cloneBytes(p.inter),
		Private:       p.private,
		Final:         final,
	})
}

func (p *Parser) put(b byte) {
	if p.dcsDrop {
		return
	}
	if p.dcsLen >= MAX_STRING_LENGTH {
		if p.dcsLen == MAX_STRING_LENGTH {
			slog.Debug("DCS payload too long, dropping the rest")
			p.malformed++
			p.dcsLen++
		}
		return
	}
	p.dcsLen++
	p.dcs = append(p.dcs, b)
}

// flushPut hands buffered DCS data to the caller. It runs at the end
// of every Parse call so a long DCS is delivered in chunks rather than
// held until it ends.
func (p *Parser) flushPut() {
	if p.state != stateDcsPassthrough || len(p.dcs) == 0 || p.dcsDrop {
		return
	}
	p.emit(Event{Kind: EventDCSPut, Payload: cloneBytes(p.dcs)})
	p.dcs = p.dcs[:0]
}

func (p *Parser) unhook(b byte) {
	if p.dcsDrop {
		p.dcsDrop = false
		return
	}
	p.flushPut()
	p.emit(Event{Kind: EventDCSUnhook, Byte: b})
}

func (p *Parser) oscPut(b byte) {
	if len(p.osc) >= MAX_STRING_LENGTH {
		if !p.oscOverflow {
			slog.Debug("OSC payload too long, dropping the rest")
			p.malformed++
			p.oscOverflow = true
		}
		return
	}
	p.osc = append(p.osc, b)
}

func (p *Parser) oscEnd(b byte) {
	p.emit(Event{Kind: EventOSC, Payload: cloneBytes(p.osc), Byte: b})
	p.osc = p.osc[:0]
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return slices.Clone(b)
}
