package vt

import "fmt"

type EventKind uint8

const (
	EventPrint EventKind = iota
	EventExecute
	EventCSI
	EventESC
	EventOSC
	EventDCSHook
	EventDCSPut
	EventDCSUnhook
)

var eventNames = map[EventKind]string{
	EventPrint:     "print",
	EventExecute:   "execute",
	EventCSI:       "csi_dispatch",
	EventESC:       "esc_dispatch",
	EventOSC:       "osc_dispatch",
	EventDCSHook:   "dcs_hook",
	EventDCSPut:    "dcs_put",
	EventDCSUnhook: "dcs_unhook",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", k)
}

// Event is one unit of parser output. Which fields are meaningful
// depends on Kind:
//
//	EventPrint      Rune
//	EventExecute    Byte (the C0 or C1 control)
//	EventCSI        Params, Intermediates, Private, Final
//	EventESC        Intermediates, Final
//	EventOSC        Payload, Byte (the terminator: BEL, ESC or ST)
//	EventDCSHook    Params, Intermediates, Private, Final
//	EventDCSPut     Payload
//	EventDCSUnhook  Byte (the terminator; CAN or SUB mean aborted)
type Event struct {
	Kind          EventKind
	Rune          rune
	Byte          byte
	Params        Params
	Intermediates []byte
	Private       byte // '<', '=', '>' or '?' leading the parameters
	Final         byte
	Payload       []byte
}

func (e Event) String() string {
	switch e.Kind {
	case EventPrint:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Rune)
	case EventExecute, EventDCSUnhook:
		return fmt.Sprintf("%s(%#02x)", e.Kind, e.Byte)
	case EventCSI, EventDCSHook:
		return fmt.Sprintf("%s(%s%s%s%c)", e.Kind, privString(e.Private), e.Params, e.Intermediates, e.Final)
	case EventESC:
		return fmt.Sprintf("%s(%s%c)", e.Kind, e.Intermediates, e.Final)
	}
	return fmt.Sprintf("%s(%q)", e.Kind, e.Payload)
}

func privString(b byte) string {
	if b == 0 {
		return ""
	}
	return string(b)
}
