package vt

import (
	"fmt"
	"strings"
)

type CursorShape uint8

const (
	CursorBlock CursorShape = iota
	CursorUnderline
	CursorBar
)

var cursorShapeNames = map[CursorShape]string{
	CursorBlock:     "block",
	CursorUnderline: "underline",
	CursorBar:       "bar",
}

func (s CursorShape) String() string {
	if n, ok := cursorShapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("shape(%d)", s)
}

// ParseCursorShape maps a shape name (as used on the command line) to
// a CursorShape.
func ParseCursorShape(s string) (CursorShape, error) {
	for shape, n := range cursorShapeNames {
		if strings.EqualFold(s, n) {
			return shape, nil
		}
	}
	return CursorBlock, fmt.Errorf("unknown cursor shape %q", s)
}

// decscusr maps a DECSCUSR parameter to a shape and blink state.
// 0 and 1 are a blinking block, 2 a steady block, 3/4 underline and
// 5/6 bar.
func decscusr(n int) (CursorShape, bool, bool) {
	switch n {
	case 0, 1:
		return CursorBlock, true, true
	case 2:
		return CursorBlock, false, true
	case 3:
		return CursorUnderline, true, true
	case 4:
		return CursorUnderline, false, true
	case 5:
		return CursorBar, true, true
	case 6:
		return CursorBar, false, true
	}
	return CursorBlock, false, false
}

func (s CursorShape) decscusr(blink bool) int {
	n := 2
	switch s {
	case CursorUnderline:
		n = 4
	case CursorBar:
		n = 6
	}
	if blink {
		n--
	}
	return n
}

type cursor struct {
	row, col int
	// wrapPending is the DEC "last column flag": a glyph was just
	// written to the last column and the next one wraps first.
	wrapPending bool
}

func (c cursor) String() string {
	return fmt.Sprintf("(%d, %d)", c.row, c.col)
}

// savedCursor is what DECSC stores and DECRC brings back.
type savedCursor struct {
	cur    cursor
	pen    rendition
	link   string
	origin bool
	cs     charset
	valid  bool
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
