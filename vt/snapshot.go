package vt

import (
	"slices"
	"strings"
)

// CursorState is the cursor as a renderer needs to see it.
type CursorState struct {
	Row, Col int
	Shape    CursorShape
	Visible  bool
	Blink    bool
}

// Snapshot is an immutable copy of the terminal's visible state. It
// is safe to share between goroutines once published.
type Snapshot struct {
	Version    uint64
	Rows, Cols int
	Cells      []Cell // row major, Rows*Cols long
	Cursor     CursorState
	Modes      Modes
	Title      string
	Icon       string
	WorkingDir string
	Bells      uint64
	// Palette must not be modified; the terminal replaces it rather
	// than changing it in place.
	Palette       *Palette
	ScrollbackLen int

	history [][]Cell
}

// Row returns a copy of row i of the visible screen, or nil if there
// is no such row.
func (s *Snapshot) Row(i int) []Cell {
	return slices.Clone(s.row(i))
}

func (s *Snapshot) row(i int) []Cell {
	if i < 0 || i >= s.Rows {
		return nil
	}
	return s.Cells[i*s.Cols : (i+1)*s.Cols]
}

func (s *Snapshot) Cell(row, col int) Cell {
	if row < 0 || row >= s.Rows || col < 0 || col >= s.Cols {
		return BlankCell()
	}
	return s.Cells[row*s.Cols+col]
}

// Scrollback returns up to count history rows, oldest first, ending
// offset rows back from the most recent one. Rows keep the width they
// had when they scrolled off. The rows are copies.
func (s *Snapshot) Scrollback(offset, count int) [][]Cell {
	return historyRange(s.history, offset, count)
}

// Text returns the visible screen as plain text, one line per row
// with trailing blanks removed.
func (s *Snapshot) Text() string {
	var sb strings.Builder
	for i := range s.Rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(RowText(s.row(i)))
	}
	return sb.String()
}

// RowText renders a row of cells as text without trailing blanks.
func RowText(row []Cell) string {
	var sb strings.Builder
	for _, c := range row {
		if c.IsContinuation() {
			continue
		}
		sb.WriteRune(c.R)
	}
	return strings.TrimRight(sb.String(), " ")
}

// ChangedRows lists the rows that differ from prev. Every row is
// reported when prev is nil or has different dimensions.
func (s *Snapshot) ChangedRows(prev *Snapshot) []int {
	var rows []int
	for i := range s.Rows {
		if prev == nil || prev.Rows != s.Rows || prev.Cols != s.Cols || !slices.Equal(s.row(i), prev.row(i)) {
			rows = append(rows, i)
		}
	}
	return rows
}
