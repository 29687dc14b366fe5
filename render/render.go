// Package render repaints snapshots onto a host terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/bdwalton/vtcore/vt"
	"github.com/muesli/termenv"
)

// Renderer turns snapshots into ANSI output, degrading colors to what
// the host terminal's profile supports.
type Renderer struct {
	profile termenv.Profile
}

func New(profile termenv.Profile) *Renderer {
	return &Renderer{profile: profile}
}

func csi(seq string, args ...any) string {
	return termenv.CSI + fmt.Sprintf(seq, args...)
}

// Frame repaints the whole screen.
func (r *Renderer) Frame(s *vt.Snapshot) []byte {
	var sb strings.Builder
	sb.WriteString(csi(termenv.HideCursorSeq))
	sb.WriteString(csi(termenv.EraseDisplaySeq, 2))
	for row := range s.Rows {
		r.writeRow(&sb, s, row)
	}
	if s.Title != "" {
		sb.WriteString(termenv.OSC + fmt.Sprintf(termenv.SetWindowTitleSeq, s.Title))
	}
	r.writeCursor(&sb, s)
	return []byte(sb.String())
}

// Diff returns what has to be written to turn a host showing prev into
// one showing cur. It falls back to a full frame when there is no
// previous frame or the size changed, and returns nil when nothing
// visible changed.
func (r *Renderer) Diff(prev, cur *vt.Snapshot) []byte {
	if prev == nil || prev.Rows != cur.Rows || prev.Cols != cur.Cols {
		return r.Frame(cur)
	}

	rows := cur.ChangedRows(prev)
	if len(rows) == 0 && prev.Cursor == cur.Cursor && prev.Title == cur.Title && prev.Bells == cur.Bells {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(csi(termenv.HideCursorSeq))
	for _, row := range rows {
		r.writeRow(&sb, cur, row)
	}
	if prev.Title != cur.Title {
		sb.WriteString(termenv.OSC + fmt.Sprintf(termenv.SetWindowTitleSeq, cur.Title))
	}
	if cur.Bells > prev.Bells {
		sb.WriteByte(termenv.BEL)
	}
	r.writeCursor(&sb, cur)
	return []byte(sb.String())
}

func (r *Renderer) writeCursor(sb *strings.Builder, s *vt.Snapshot) {
	sb.WriteString(csi(termenv.CursorPositionSeq, s.Cursor.Row+1, s.Cursor.Col+1))
	if s.Cursor.Visible {
		sb.WriteString(csi(termenv.ShowCursorSeq))
	}
}

func (r *Renderer) writeRow(sb *strings.Builder, s *vt.Snapshot, row int) {
	// Clear first: an erase after a full row would take out the last
	// column while the wrap is pending.
	sb.WriteString(csi(termenv.CursorPositionSeq, row+1, 1))
	sb.WriteString(csi(termenv.ResetSeq + "m"))
	sb.WriteString(csi(termenv.EraseEntireLineSeq))

	last := ""
	for _, c := range s.Row(row) {
		if c.IsContinuation() {
			continue
		}
		if st := r.style(c, s.Modes.ReverseVideo); st != last {
			sb.WriteString(st)
			last = st
		}
		sb.WriteRune(c.R)
	}
	sb.WriteString(csi(termenv.ResetSeq + "m"))
}

// style returns the SGR sequence selecting c's rendition from a reset
// pen.
func (r *Renderer) style(c vt.Cell, reverse bool) string {
	seq := []string{termenv.ResetSeq}
	if c.Attrs&vt.AttrBold != 0 {
		seq = append(seq, termenv.BoldSeq)
	}
	if c.Attrs&vt.AttrFaint != 0 {
		seq = append(seq, termenv.FaintSeq)
	}
	if c.Attrs&vt.AttrItalic != 0 {
		seq = append(seq, termenv.ItalicSeq)
	}
	if c.Underline != vt.UnderlineNone {
		seq = append(seq, termenv.UnderlineSeq)
	}
	if c.Attrs&vt.AttrBlink != 0 {
		seq = append(seq, termenv.BlinkSeq)
	}
	// DECSCNM flips every cell.
	if (c.Attrs&vt.AttrReverse != 0) != reverse {
		seq = append(seq, termenv.ReverseSeq)
	}
	if c.Attrs&vt.AttrInvisible != 0 {
		seq = append(seq, "8")
	}
	if c.Attrs&vt.AttrStrike != 0 {
		seq = append(seq, termenv.CrossOutSeq)
	}
	if fg := r.color(c.Fg).Sequence(false); fg != "" {
		seq = append(seq, fg)
	}
	if bg := r.color(c.Bg).Sequence(true); bg != "" {
		seq = append(seq, bg)
	}
	return termenv.CSI + strings.Join(seq, ";") + "m"
}

// color maps a cell color into the host profile. Indexed colors stay
// indexed so the host's own palette applies.
func (r *Renderer) color(c vt.Color) termenv.Color {
	switch c.Kind {
	case vt.ColorIndexed:
		if c.Index < 16 {
			return r.profile.Convert(termenv.ANSIColor(c.Index))
		}
		return r.profile.Convert(termenv.ANSI256Color(c.Index))
	case vt.ColorRGB:
		return r.profile.Convert(termenv.RGBColor(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)))
	}
	return termenv.NoColor{}
}
