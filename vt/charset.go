package vt

// charset tracks the G0 and G1 designations and which of them is
// shifted in. Only US ASCII ('B') and DEC special graphics ('0') are
// supported; other designations fall back to ASCII.
type charset struct {
	shifted bool    // SO selected G1
	g       [2]bool // true means DEC special graphics
}

func (c charset) runeFor(r rune) rune {
	gs := 0
	if c.shifted {
		gs = 1
	}
	if c.g[gs] {
		if rr, ok := decGraphics[r]; ok {
			return rr
		}
	}
	return r
}

func (c *charset) shiftIn() {
	c.shifted = false
}

func (c *charset) shiftOut() {
	c.shifted = true
}

// designate handles ESC ( F and ESC ) F. It reports false for
// designations other than G0 and G1.
func (c *charset) designate(inter, final byte) bool {
	var gs int
	switch inter {
	case '(':
		gs = 0
	case ')':
		gs = 1
	default:
		return false
	}
	c.g[gs] = final == '0'
	return true
}

// decGraphics maps ASCII to the DEC special graphics (line drawing)
// set.
var decGraphics = map[rune]rune{
	'+': '→',
	',': '←',
	'-': '↑',
	'.': '↓',
	'0': '▮',
	'_': ' ',
	'`': '◆',
	'a': '▒',
	'b': '␉',
	'c': '␌',
	'd': '␍',
	'e': '␊',
	'f': '°',
	'g': '±',
	'h': '␤',
	'i': '␋',
	'j': '┘',
	'k': '┐',
	'l': '┌',
	'm': '└',
	'n': '┼',
	'o': '⎺',
	'p': '⎻',
	'q': '─',
	'r': '⎼',
	's': '⎽',
	't': '├',
	'u': '┤',
	'v': '┴',
	'w': '┬',
	'x': '│',
	'y': '≤',
	'z': '≥',
	'{': 'π',
	'|': '≠',
	'}': '£',
	'~': '·',
}
