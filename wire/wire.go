// Package wire encodes snapshots as protobuf wire format frames for
// the snapshot feed. Scrollback is not carried.
package wire

import (
	"errors"
	"fmt"

	"github.com/bdwalton/vtcore/vt"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrTruncated = errors.New("truncated frame")
	ErrBadFrame  = errors.New("bad frame")
)

// Frame fields.
const (
	fVersion    protowire.Number = 1
	fRows       protowire.Number = 2
	fCols       protowire.Number = 3
	fCursor     protowire.Number = 4
	fTitle      protowire.Number = 5
	fIcon       protowire.Number = 6
	fModes      protowire.Number = 7
	fCell       protowire.Number = 8
	fBells      protowire.Number = 9
	fWorkingDir protowire.Number = 10
)

// Cursor fields.
const (
	fCurRow     protowire.Number = 1
	fCurCol     protowire.Number = 2
	fCurShape   protowire.Number = 3
	fCurVisible protowire.Number = 4
	fCurBlink   protowire.Number = 5
)

// Modes fields.
const (
	fModeFlags    protowire.Number = 1
	fModeMouse    protowire.Number = 2
	fModeEncoding protowire.Number = 3
	fModeTop      protowire.Number = 4
	fModeBottom   protowire.Number = 5
)

// Cell fields.
const (
	fCellRune      protowire.Number = 1
	fCellFg        protowire.Number = 2
	fCellBg        protowire.Number = 3
	fCellUl        protowire.Number = 4
	fCellAttrs     protowire.Number = 5
	fCellUnderline protowire.Number = 6
	fCellWidth     protowire.Number = 7
	fCellLink      protowire.Number = 8
)

// maxCells bounds how big a screen a frame may describe.
const maxCells = 1 << 20

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// Encode serializes s.
func Encode(s *vt.Snapshot) []byte {
	var b []byte
	b = appendVarint(b, fVersion, s.Version)
	b = appendVarint(b, fRows, uint64(s.Rows))
	b = appendVarint(b, fCols, uint64(s.Cols))
	b = appendMessage(b, fCursor, encodeCursor(s.Cursor))
	b = appendString(b, fTitle, s.Title)
	b = appendString(b, fIcon, s.Icon)
	b = appendMessage(b, fModes, encodeModes(s.Modes))
	for _, c := range s.Cells {
		b = appendMessage(b, fCell, encodeCell(c))
	}
	b = appendVarint(b, fBells, s.Bells)
	b = appendString(b, fWorkingDir, s.WorkingDir)
	return b
}

func boolVal(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func encodeCursor(c vt.CursorState) []byte {
	var b []byte
	b = appendVarint(b, fCurRow, uint64(c.Row))
	b = appendVarint(b, fCurCol, uint64(c.Col))
	b = appendVarint(b, fCurShape, uint64(c.Shape))
	b = appendVarint(b, fCurVisible, boolVal(c.Visible))
	b = appendVarint(b, fCurBlink, boolVal(c.Blink))
	return b
}

// modeFlags lists the boolean modes in bit order.
func modeFlags(m *vt.Modes) []*bool {
	return []*bool{
		&m.Origin, &m.Autowrap, &m.Insert, &m.NewLine, &m.AppCursor,
		&m.AppKeypad, &m.BracketedPaste, &m.ReverseVideo,
		&m.CursorVisible, &m.CursorBlink, &m.FocusEvents, &m.AltScreen,
	}
}

func encodeModes(m vt.Modes) []byte {
	var flags uint64
	for i, f := range modeFlags(&m) {
		if *f {
			flags |= 1 << i
		}
	}

	var b []byte
	b = appendVarint(b, fModeFlags, flags)
	b = appendVarint(b, fModeMouse, uint64(m.Mouse))
	b = appendVarint(b, fModeEncoding, uint64(m.MouseEncoding))
	b = appendVarint(b, fModeTop, uint64(m.ScrollTop))
	b = appendVarint(b, fModeBottom, uint64(m.ScrollBottom))
	return b
}

// colorVal packs a color as kind<<24 | payload.
func colorVal(c vt.Color) uint64 {
	switch c.Kind {
	case vt.ColorIndexed:
		return uint64(vt.ColorIndexed)<<24 | uint64(c.Index)
	case vt.ColorRGB:
		return uint64(vt.ColorRGB)<<24 | uint64(c.R)<<16 | uint64(c.G)<<8 | uint64(c.B)
	}
	return 0
}

func colorFromVal(v uint64) (vt.Color, error) {
	switch vt.ColorKind(v >> 24) {
	case vt.ColorDefault:
		return vt.DefaultColor, nil
	case vt.ColorIndexed:
		return vt.IndexedColor(int(v & 0xff)), nil
	case vt.ColorRGB:
		return vt.RGBColor(uint8(v>>16), uint8(v>>8), uint8(v)), nil
	}
	return vt.Color{}, fmt.Errorf("%w: unknown color %#x", ErrBadFrame, v)
}

func encodeCell(c vt.Cell) []byte {
	var b []byte
	b = appendVarint(b, fCellRune, uint64(c.R))
	b = appendVarint(b, fCellFg, colorVal(c.Fg))
	b = appendVarint(b, fCellBg, colorVal(c.Bg))
	b = appendVarint(b, fCellUl, colorVal(c.Ul))
	b = appendVarint(b, fCellAttrs, uint64(c.Attrs))
	b = appendVarint(b, fCellUnderline, uint64(c.Underline))
	b = appendVarint(b, fCellWidth, uint64(c.Width))
	b = appendString(b, fCellLink, c.Link)
	return b
}

// field is one decoded field: either a varint or a byte string.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	v     uint64
	bytes []byte
}

// fields walks the top level fields of b, calling fn for each varint
// and bytes field. Other wire types are skipped.
func fields(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrTruncated, num, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses a frame produced by Encode.
func Decode(b []byte) (*vt.Snapshot, error) {
	s := &vt.Snapshot{Palette: vt.NewPalette()}

	err := fields(b, func(f field) error {
		var err error
		switch f.num {
		case fVersion:
			s.Version = f.v
		case fRows:
			s.Rows = int(f.v)
		case fCols:
			s.Cols = int(f.v)
		case fCursor:
			s.Cursor, err = decodeCursor(f.bytes)
		case fTitle:
			s.Title = string(f.bytes)
		case fIcon:
			s.Icon = string(f.bytes)
		case fModes:
			s.Modes, err = decodeModes(f.bytes)
		case fCell:
			if len(s.Cells) >= maxCells {
				return fmt.Errorf("%w: more than %d cells", ErrBadFrame, maxCells)
			}
			var c vt.Cell
			c, err = decodeCell(f.bytes)
			s.Cells = append(s.Cells, c)
		case fBells:
			s.Bells = f.v
		case fWorkingDir:
			s.WorkingDir = string(f.bytes)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.Rows < 1 || s.Cols < 1 || s.Rows > maxCells || s.Cols > maxCells || s.Rows*s.Cols != len(s.Cells) {
		return nil, fmt.Errorf("%w: %dx%d screen with %d cells", ErrBadFrame, s.Rows, s.Cols, len(s.Cells))
	}
	if s.Cursor.Row >= s.Rows || s.Cursor.Col >= s.Cols {
		return nil, fmt.Errorf("%w: cursor (%d, %d) outside %dx%d screen", ErrBadFrame, s.Cursor.Row, s.Cursor.Col, s.Rows, s.Cols)
	}
	return s, nil
}

func decodeCursor(b []byte) (vt.CursorState, error) {
	var c vt.CursorState
	err := fields(b, func(f field) error {
		switch f.num {
		case fCurRow:
			c.Row = int(f.v)
		case fCurCol:
			c.Col = int(f.v)
		case fCurShape:
			c.Shape = vt.CursorShape(f.v)
		case fCurVisible:
			c.Visible = f.v != 0
		case fCurBlink:
			c.Blink = f.v != 0
		}
		return nil
	})
	return c, err
}

func decodeModes(b []byte) (vt.Modes, error) {
	var m vt.Modes
	err := fields(b, func(f field) error {
		switch f.num {
		case fModeFlags:
			for i, p := range modeFlags(&m) {
				*p = f.v&(1<<i) != 0
			}
		case fModeMouse:
			m.Mouse = vt.MouseTracking(f.v)
		case fModeEncoding:
			m.MouseEncoding = vt.MouseEncoding(f.v)
		case fModeTop:
			m.ScrollTop = int(f.v)
		case fModeBottom:
			m.ScrollBottom = int(f.v)
		}
		return nil
	})
	return m, err
}

func decodeCell(b []byte) (vt.Cell, error) {
	var c vt.Cell
	err := fields(b, func(f field) error {
		var err error
		switch f.num {
		case fCellRune:
			c.R = rune(f.v)
		case fCellFg:
			c.Fg, err = colorFromVal(f.v)
		case fCellBg:
			c.Bg, err = colorFromVal(f.v)
		case fCellUl:
			c.Ul, err = colorFromVal(f.v)
		case fCellAttrs:
			c.Attrs = vt.Attr(f.v)
		case fCellUnderline:
			c.Underline = vt.UnderlineStyle(f.v)
		case fCellWidth:
			if f.v > 2 {
				return fmt.Errorf("%w: cell width %d", ErrBadFrame, f.v)
			}
			c.Width = uint8(f.v)
		case fCellLink:
			c.Link = string(f.bytes)
		}
		return err
	})
	return c, err
}
