package vt

import "log/slog"

func makeTabs(cols int) []bool {
	tabs := make([]bool, cols)
	for i := range tabs {
		tabs[i] = (i%8 == 0)
	}
	return tabs
}

// resizeTabs keeps the stops that still fit and seeds any new columns
// with the default stop every 8 columns.
func resizeTabs(tabs []bool, cols int) []bool {
	nt := makeTabs(cols)
	copy(nt, tabs)
	return nt
}

func (t *Terminal) setTab() {
	t.tabs[t.cur.col] = true
}

func (t *Terminal) clearTabs(mode int) {
	switch mode {
	case TBC_CUR:
		t.tabs[t.cur.col] = false
	case TBC_ALL:
		for i := range t.tabs {
			t.tabs[i] = false
		}
	default:
		slog.Debug("ignoring unknown TBC mode", "mode", mode)
	}
}

// stepTabs moves the cursor across steps tab stops, forward when steps
// is positive and backward when negative. The cursor stops at the edge
// of the screen if it runs out of stops.
func (t *Terminal) stepTabs(steps int) {
	if steps == 0 {
		return
	}

	// column under consideration, step increment for next column,
	// count increment to know when we've tabbed enough.
	col, step, inc := t.cur.col+1, 1, -1
	if steps < 0 {
		col, step, inc = t.cur.col-1, -1, 1
	}

	last := t.cols() - 1
	t.cur.wrapPending = false
	for {
		switch {
		case col <= 0:
			t.cur.col = 0
			return
		case col >= last:
			t.cur.col = last
			return
		case t.tabs[col]:
			steps += inc
			if steps == 0 {
				t.cur.col = col
				return
			}
		}
		col += step
	}
}
