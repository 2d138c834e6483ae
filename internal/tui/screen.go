package tui

import (
	"sort"

	"github.com/standardbeagle/bracketeer/internal/highlight"
	"github.com/standardbeagle/bracketeer/internal/types"
)

const (
	headerRows = 1
	footerRows = 1
)

// screen lays the buffer out in terminal rows. Widget offsets index the
// visible text, which is the buffer with folded ranges removed. A screen
// column is a byte of the row.
type screen struct {
	*highlight.Projection

	content    []byte
	visible    []byte
	lineStarts []int

	caret  int
	top    int
	width  int
	height int
	dirty  bool
}

func newScreen(content []byte) *screen {
	s := &screen{
		Projection: highlight.NewProjection(len(content)),
		width:      80,
		height:     24,
	}
	s.setContent(content)
	return s
}

// setContent replaces the buffer and drops every fold
func (s *screen) setContent(content []byte) {
	s.content = content
	s.Unfold(types.Range{Start: 0, End: len(content) + 1})
	s.SetLength(len(content))
	s.relayout()
}

// relayout rebuilds the visible text after folds change
func (s *screen) relayout() {
	s.visible = s.visible[:0]
	pos := 0
	for _, f := range s.Folds() {
		s.visible = append(s.visible, s.content[pos:f.Start]...)
		pos = f.End
	}
	s.visible = append(s.visible, s.content[pos:]...)

	s.lineStarts = append(s.lineStarts[:0], 0)
	for i, c := range s.visible {
		if c == '\n' {
			s.lineStarts = append(s.lineStarts, i+1)
		}
	}
	if s.caret > len(s.visible) {
		s.caret = len(s.visible)
	}
	s.dirty = true
}

func (s *screen) resize(width, height int) {
	s.width, s.height = width, height
	s.scrollToCaret()
	s.dirty = true
}

// rows is the number of text rows that fit
func (s *screen) rows() int {
	n := s.height - headerRows - footerRows
	if n < 1 {
		return 1
	}
	return n
}

func (s *screen) lineCount() int {
	return len(s.lineStarts)
}

// line returns the widget range of a row without its newline
func (s *screen) line(row int) types.Range {
	start := s.lineStarts[row]
	end := len(s.visible)
	if row+1 < len(s.lineStarts) {
		end = s.lineStarts[row+1] - 1
	}
	return types.Range{Start: start, End: end}
}

// rowOf returns the row holding a widget offset
func (s *screen) rowOf(offset int) int {
	return sort.Search(len(s.lineStarts), func(i int) bool {
		return s.lineStarts[i] > offset
	}) - 1
}

func (s *screen) caretPosition() (row, col int) {
	row = s.rowOf(s.caret)
	return row, s.caret - s.lineStarts[row]
}

// moveCaret moves by rows and columns, keeping the column within the row
func (s *screen) moveCaret(dRow, dCol int) {
	row, col := s.caretPosition()
	if dRow != 0 {
		row += dRow
		if row < 0 {
			row = 0
		}
		if row >= s.lineCount() {
			row = s.lineCount() - 1
		}
		l := s.line(row)
		if col > l.Len() {
			col = l.Len()
		}
		s.caret = l.Start + col
	}
	s.caret += dCol
	if s.caret < 0 {
		s.caret = 0
	}
	if s.caret > len(s.visible) {
		s.caret = len(s.visible)
	}
	s.scrollToCaret()
}

func (s *screen) setCaret(offset int) {
	s.caret = offset
	s.scrollToCaret()
}

func (s *screen) scrollToCaret() {
	row := s.rowOf(s.caret)
	if row < s.top {
		s.top = row
	}
	if row >= s.top+s.rows() {
		s.top = row - s.rows() + 1
	}
}

// Caret implements highlight.View
func (s *screen) Caret() int {
	return s.caret
}

// OffsetAt implements highlight.View
func (s *screen) OffsetAt(p highlight.Point) (int, bool) {
	row := s.top + p.Y - headerRows
	if p.Y < headerRows || row >= s.lineCount() || p.X < 0 {
		return 0, false
	}
	l := s.line(row)
	if p.X >= l.Len() {
		return 0, false
	}
	return l.Start + p.X, true
}

// Viewport implements highlight.View
func (s *screen) Viewport() types.Range {
	return s.rowsRange(s.top, s.top+s.rows())
}

// DamageRange implements highlight.View
func (s *screen) DamageRange(r highlight.Rect) (types.Range, bool) {
	if r.Height <= 0 {
		return types.Range{}, false
	}
	first := s.top + r.Y - headerRows
	if first < 0 {
		first = 0
	}
	last := s.top + r.Y + r.Height - headerRows
	if first >= s.lineCount() || last <= first {
		return types.Range{}, false
	}
	return s.rowsRange(first, last), true
}

// Redraw implements highlight.View. The program re-renders after every
// message, so this only marks the frame stale.
func (s *screen) Redraw() {
	s.dirty = true
}

// rowsRange covers rows [first, last) including their newlines
func (s *screen) rowsRange(first, last int) types.Range {
	if last > s.lineCount() {
		last = s.lineCount()
	}
	start := s.lineStarts[first]
	end := len(s.visible)
	if last < s.lineCount() {
		end = s.lineStarts[last]
	}
	return types.Range{Start: start, End: end}
}
