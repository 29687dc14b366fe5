package input

import (
	"bytes"

	"github.com/bdwalton/vtcore/vt"
)

var (
	pasteStart = []byte("\x1b[200~")
	pasteEnd   = []byte("\x1b[201~")
)

// EncodePaste prepares pasted text for the application. ESC bytes are
// removed so the text can't end a bracketed paste early or inject
// sequences, and line endings become carriage returns as if typed.
func EncodePaste(text []byte, m vt.Modes) []byte {
	clean := bytes.ReplaceAll(text, []byte{0x1b}, nil)
	clean = bytes.ReplaceAll(clean, []byte("\r\n"), []byte("\r"))
	clean = bytes.ReplaceAll(clean, []byte("\n"), []byte("\r"))

	if !m.BracketedPaste {
		return clean
	}
	out := make([]byte, 0, len(pasteStart)+len(clean)+len(pasteEnd))
	out = append(out, pasteStart...)
	out = append(out, clean...)
	return append(out, pasteEnd...)
}
