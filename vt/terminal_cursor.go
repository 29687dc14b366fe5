package vt

import (
	"log/slog"
)

// cursorMoveAbs moves to (row, col) in screen coordinates. Anything out
// of bounds is clamped to the screen.
func (t *Terminal) cursorMoveAbs(row, col int) {
	t.cur.row = clamp(row, 0, t.rows()-1)
	t.cur.col = clamp(col, 0, t.cols()-1)
	t.cur.wrapPending = false
}

// cursorMoveOrigin moves to (row, col) relative to the origin. With
// DECOM set, rows count from the top of the scroll region and the
// cursor can't leave the region.
func (t *Terminal) cursorMoveOrigin(row, col int) {
	if t.modes.Origin {
		row = clamp(row+t.modes.ScrollTop, t.modes.ScrollTop, t.modes.ScrollBottom)
	}
	t.cursorMoveAbs(row, col)
}

func (t *Terminal) cursorHome() {
	t.cursorMoveOrigin(0, 0)
}

// Move to an absolute position. Params are 1 based, as received.
func (t *Terminal) cursorCUPorHVP(row, col int) {
	slog.Debug("horizontal vertical position/cursor position", "row", row, "col", col)
	t.cursorMoveOrigin(row-1, col-1)
}

func (t *Terminal) cursorCHAorHPA(col int) {
	slog.Debug("horizontal position absolute / horizontal attribute", "col", col)
	t.cursorMoveAbs(t.cur.row, col-1)
}

func (t *Terminal) cursorVPA(row int) {
	slog.Debug("vertical position absolute", "row", row)
	t.cursorMoveOrigin(row-1, t.cur.col)
}

func (t *Terminal) cursorHPR(n int) {
	t.cursorMoveAbs(t.cur.row, t.cur.col+n)
}

func (t *Terminal) cursorVPR(n int) {
	t.cursorMoveAbs(t.cur.row+n, t.cur.col)
}

// cursorUp stops at the top margin if the cursor starts inside the
// scroll region.
func (t *Terminal) cursorUp(n int) {
	row := t.cur.row - n
	if t.cur.row >= t.modes.ScrollTop {
		row = max(row, t.modes.ScrollTop)
	}
	t.cursorMoveAbs(row, t.cur.col)
}

// cursorDown stops at the bottom margin if the cursor starts inside
// the scroll region.
func (t *Terminal) cursorDown(n int) {
	row := t.cur.row + n
	if t.cur.row <= t.modes.ScrollBottom {
		row = min(row, t.modes.ScrollBottom)
	}
	t.cursorMoveAbs(row, t.cur.col)
}

func (t *Terminal) cursorForward(n int) {
	t.cursorMoveAbs(t.cur.row, t.cur.col+n)
}

func (t *Terminal) cursorBack(n int) {
	t.cursorMoveAbs(t.cur.row, t.cur.col-n)
}

func (t *Terminal) cursorCNL(n int) {
	t.cursorDown(n)
	t.cur.col = 0
}

func (t *Terminal) cursorCPL(n int) {
	t.cursorUp(n)
	t.cur.col = 0
}
