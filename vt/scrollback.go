package vt

import "slices"

// scrollback is a bounded FIFO of rows that scrolled off the top of
// the primary screen. Rows keep the width they had when they were
// evicted. Once pushed, a row is never modified, so snapshots share
// them.
type scrollback struct {
	buf        [][]Cell
	head, size int
}

func newScrollback(capacity int) *scrollback {
	return &scrollback{buf: make([][]Cell, max(capacity, 0))}
}

func (s *scrollback) capacity() int {
	return len(s.buf)
}

func (s *scrollback) len() int {
	return s.size
}

// push appends row as the newest entry, evicting the oldest row when
// the buffer is full. A zero capacity scrollback discards everything.
func (s *scrollback) push(row []Cell) {
	if len(s.buf) == 0 {
		return
	}
	idx := (s.head + s.size) % len(s.buf)
	s.buf[idx] = row
	if s.size < len(s.buf) {
		s.size++
	} else {
		s.head = (s.head + 1) % len(s.buf)
	}
}

// at returns the i'th row, oldest first.
func (s *scrollback) at(i int) []Cell {
	return s.buf[(s.head+i)%len(s.buf)]
}

// rows returns up to count rows ending offset rows back from the
// newest, ordered oldest to newest.
func (s *scrollback) rows(offset, count int) [][]Cell {
	return historyRange(s.view(), offset, count)
}

// view returns an immutable copy of the ring's row references.
func (s *scrollback) view() [][]Cell {
	out := make([][]Cell, s.size)
	for i := range out {
		out[i] = s.at(i)
	}
	return out
}

func (s *scrollback) clear() {
	clear(s.buf)
	s.head, s.size = 0, 0
}

// historyRange selects up to count rows of history (oldest first)
// ending offset rows back from the newest. Offsets and counts out of
// range are clamped.
func historyRange(history [][]Cell, offset, count int) [][]Cell {
	if len(history) == 0 || count <= 0 {
		return nil
	}
	offset = clamp(offset, 0, len(history)-1)
	end := len(history) - offset
	start := max(end-count, 0)
	out := make([][]Cell, 0, end-start)
	for _, row := range history[start:end] {
		out = append(out, slices.Clone(row))
	}
	return out
}
