package vt

import (
	"strconv"
	"strings"
)

// Params holds the numeric parameters of a CSI or DCS sequence. A
// parameter may carry colon separated sub-parameters (eg: 38:2::1:2:3),
// which are kept with the parameter they follow.
type Params struct {
	vals []int
	sub  []bool // sub[i] is true when vals[i] followed a ':'
}

// paramsFromInts builds semicolon separated parameters, mostly for
// tests and synthesized events.
func paramsFromInts(vals ...int) Params {
	return Params{vals: vals, sub: make([]bool, len(vals))}
}

// Len returns the number of parameters, not counting sub-parameters.
func (p Params) Len() int {
	n := 0
	for _, s := range p.sub {
		if !s {
			n++
		}
	}
	return n
}

func (p Params) group(i int) []int {
	n := -1
	for j := range p.vals {
		if p.sub[j] {
			continue
		}
		n++
		if n == i {
			k := j + 1
			for k < len(p.vals) && p.sub[k] {
				k++
			}
			return p.vals[j:k]
		}
	}
	return nil
}

// Raw returns parameter i as received, or 0 if it is absent.
func (p Params) Raw(i int) int {
	g := p.group(i)
	if len(g) == 0 {
		return 0
	}
	return g[0]
}

// Get returns parameter i, or def when it is absent or 0. This is the
// default rule for nearly every numeric parameter in the DEC/xterm
// vocabulary.
func (p Params) Get(i, def int) int {
	if v := p.Raw(i); v != 0 {
		return v
	}
	return def
}

// Groups returns every parameter with its sub-parameters.
func (p Params) Groups() [][]int {
	var gs [][]int
	for i := 0; i < len(p.vals); {
		k := i + 1
		for k < len(p.vals) && p.sub[k] {
			k++
		}
		gs = append(gs, p.vals[i:k])
		i = k
	}
	return gs
}

func (p Params) String() string {
	var sb strings.Builder
	for i, v := range p.vals {
		if i > 0 {
			if p.sub[i] {
				sb.WriteByte(':')
			} else {
				sb.WriteByte(';')
			}
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}
