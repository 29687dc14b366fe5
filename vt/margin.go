package vt

import (
	"fmt"
	"log/slog"
)

// margin is the vertical scroll region, inclusive on both ends and
// 0 based. A margin covering the whole screen is the default.
type margin struct {
	top, bottom int
}

func fullMargin(rows int) margin {
	return margin{top: 0, bottom: rows - 1}
}

func newMargin(top, bottom, rows int) (margin, bool) {
	if top < 0 || bottom >= rows || top >= bottom {
		slog.Debug("invalid margin", "top", top, "bottom", bottom, "rows", rows)
		return margin{}, false
	}
	return margin{top: top, bottom: bottom}, true
}

func (m margin) contains(row int) bool {
	return m.top <= row && row <= m.bottom
}

func (m margin) isFull(rows int) bool {
	return m.top == 0 && m.bottom == rows-1
}

func (m margin) String() string {
	return fmt.Sprintf("(%d,%d)", m.top, m.bottom)
}
