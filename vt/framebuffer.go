package vt

import (
	"fmt"
	"slices"
)

// Cell is one position on the screen.
type Cell struct {
	R         rune
	Fg, Bg    Color
	Ul        Color // underline color, DefaultColor follows Fg
	Attrs     Attr
	Underline UnderlineStyle
	// Width is the number of columns the glyph occupies. The column
	// to the right of a wide glyph holds a continuation cell with
	// R == 0 and Width == 0.
	Width uint8
	Link  string // OSC 8 target, if any
}

func BlankCell() Cell {
	return Cell{R: ' ', Width: 1}
}

// eraseCell returns the blank left behind by erase, scroll and insert
// operations: a space carrying the pen's colors and attributes.
func eraseCell(r rendition) Cell {
	return Cell{R: ' ', Width: 1, Fg: r.fg, Bg: r.bg, Ul: r.ul, Attrs: r.attrs, Underline: r.underline}
}

func newCell(r rune, width int, pen rendition, link string) Cell {
	return Cell{R: r, Width: uint8(width), Fg: pen.fg, Bg: pen.bg, Ul: pen.ul, Attrs: pen.attrs, Underline: pen.underline, Link: link}
}

func continuationCell(pen rendition, link string) Cell {
	return newCell(0, 0, pen, link)
}

func (c Cell) IsContinuation() bool {
	return c.R == 0 && c.Width == 0
}

func (c Cell) IsWide() bool {
	return c.Width == 2
}

func (c Cell) sameStyle(other Cell) bool {
	return c.Fg == other.Fg && c.Bg == other.Bg && c.Ul == other.Ul && c.Attrs == other.Attrs && c.Underline == other.Underline && c.Link == other.Link
}

func (c Cell) String() string {
	return fmt.Sprintf("%q (fg: %s, bg: %s, attrs: %#x, w: %d)", c.R, c.Fg, c.Bg, c.Attrs, c.Width)
}

// grid is a rows x cols matrix of cells stored row-major in a single
// slice.
type grid struct {
	rows, cols int
	cells      []Cell
}

func newGrid(rows, cols int) *grid {
	rows, cols = max(rows, 1), max(cols, 1)
	g := &grid{rows: rows, cols: cols, cells: make([]Cell, rows*cols)}
	blank := BlankCell()
	for i := range g.cells {
		g.cells[i] = blank
	}
	return g
}

func (g *grid) validPoint(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

func (g *grid) cell(row, col int) Cell {
	if !g.validPoint(row, col) {
		return BlankCell()
	}
	return g.cells[row*g.cols+col]
}

func (g *grid) setCell(row, col int, c Cell) {
	if g.validPoint(row, col) {
		g.cells[row*g.cols+col] = c
	}
}

// row returns a view of row i. Writes through the view modify the
// grid.
func (g *grid) row(i int) []Cell {
	return g.cells[i*g.cols : (i+1)*g.cols]
}

// fill sets columns [from, to) of row to blank, clamped to the grid.
func (g *grid) fill(row, from, to int, blank Cell) {
	if row < 0 || row >= g.rows {
		return
	}
	from, to = max(from, 0), min(to, g.cols)
	r := g.row(row)
	for i := from; i < to; i++ {
		r[i] = blank
	}
}

func (g *grid) fillRows(from, to int, blank Cell) {
	for r := max(from, 0); r < min(to, g.rows); r++ {
		g.fill(r, 0, g.cols, blank)
	}
}

// scrollUp moves rows [top, bottom] up by n, filling the vacated rows
// at the bottom with blank. Rows scrolled off the top are returned
// (oldest first) when top is the first row of the grid, so the caller
// can keep them as history.
func (g *grid) scrollUp(top, bottom, n int, blank Cell) [][]Cell {
	if top < 0 || bottom >= g.rows || top > bottom || n < 1 {
		return nil
	}
	n = min(n, bottom-top+1)

	var evicted [][]Cell
	if top == 0 {
		evicted = make([][]Cell, n)
		for i := range n {
			evicted[i] = slices.Clone(g.row(i))
		}
	}

	copy(g.cells[top*g.cols:(bottom+1)*g.cols], g.cells[(top+n)*g.cols:(bottom+1)*g.cols])
	g.fillRows(bottom-n+1, bottom+1, blank)
	return evicted
}

// scrollDown moves rows [top, bottom] down by n, filling the vacated
// rows at the top with blank.
func (g *grid) scrollDown(top, bottom, n int, blank Cell) {
	if top < 0 || bottom >= g.rows || top > bottom || n < 1 {
		return
	}
	n = min(n, bottom-top+1)

	copy(g.cells[(top+n)*g.cols:(bottom+1)*g.cols], g.cells[top*g.cols:(bottom-n+1)*g.cols])
	g.fillRows(top, top+n, blank)
}

// insertCells shifts the cells at and right of col right by n,
// discarding what falls off the end of the row.
func (g *grid) insertCells(row, col, n int, blank Cell) {
	if !g.validPoint(row, col) || n < 1 {
		return
	}
	r := g.row(row)
	n = min(n, g.cols-col)
	copy(r[col+n:], r[col:g.cols-n])
	for i := col; i < col+n; i++ {
		r[i] = blank
	}
	g.fixWide(row)
}

// deleteCells removes n cells at col, shifting the rest of the row
// left and filling the end with blank.
func (g *grid) deleteCells(row, col, n int, blank Cell) {
	if !g.validPoint(row, col) || n < 1 {
		return
	}
	r := g.row(row)
	n = min(n, g.cols-col)
	copy(r[col:], r[col+n:])
	for i := g.cols - n; i < g.cols; i++ {
		r[i] = blank
	}
	g.fixWide(row)
}

// fixWide blanks any half of a wide glyph that lost its partner.
func (g *grid) fixWide(row int) {
	r := g.row(row)
	for i := range r {
		switch {
		case r[i].IsWide() && (i+1 >= len(r) || !r[i+1].IsContinuation()):
			r[i].R, r[i].Width, r[i].Link = ' ', 1, ""
		case r[i].IsContinuation() && (i == 0 || !r[i-1].IsWide()):
			r[i].R, r[i].Width, r[i].Link = ' ', 1, ""
		}
	}
}

// resize returns a new grid with the contents of g aligned to the top
// left. Rows and columns beyond the new bounds are dropped; new space
// is blank.
func (g *grid) resize(rows, cols int) *grid {
	ng := newGrid(rows, cols)
	for r := range min(g.rows, ng.rows) {
		copy(ng.row(r), g.row(r)[:min(g.cols, ng.cols)])
		if ng.cols < g.cols {
			ng.fixWide(r)
		}
	}
	return ng
}

func (g *grid) clone() *grid {
	return &grid{rows: g.rows, cols: g.cols, cells: slices.Clone(g.cells)}
}
