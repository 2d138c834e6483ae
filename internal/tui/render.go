package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/types"
)

type hintLabel struct {
	text  string
	style config.Style
}

// frame collects one paint pass keyed by widget offset
type frame struct {
	brackets map[int]config.Style
	hints    map[int][]hintLabel
}

func newFrame() *frame {
	return &frame{
		brackets: make(map[int]config.Style),
		hints:    make(map[int][]hintLabel),
	}
}

// PaintBracket implements highlight.Painter
func (f *frame) PaintBracket(widget types.Range, style config.Style) {
	for i := widget.Start; i < widget.End; i++ {
		f.brackets[i] = style
	}
}

// PaintHint implements highlight.Painter
func (f *frame) PaintHint(widget types.Range, label string, style config.Style) {
	f.hints[widget.Start] = append(f.hints[widget.Start], hintLabel{text: label, style: style})
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	footerStyle = lipgloss.NewStyle().Faint(true)
	caretStyle  = lipgloss.NewStyle().Reverse(true)
)

// lipglossStyle converts a configured style, leaving unset colors to the
// terminal
func lipglossStyle(s config.Style) lipgloss.Style {
	st := lipgloss.NewStyle()
	if s.Foreground.Set {
		st = st.Foreground(lipgloss.Color(s.Foreground.String()))
	}
	if s.Background.Set {
		st = st.Background(lipgloss.Color(s.Background.String()))
	}
	return st
}

// renderRow draws one row of visible text with its decorations, cropped to
// width columns
func renderRow(s *screen, row int, f *frame) string {
	var b strings.Builder
	l := s.line(row)
	col := 0

	for off := l.Start; off <= l.End && col < s.width; {
		var glyph string
		size := 1
		if off == l.End {
			// the caret may sit after the last character
			if off == s.caret {
				glyph = " "
			}
		} else {
			r, n := utf8.DecodeRune(s.visible[off:])
			size = n
			switch {
			case r == '\t':
				glyph = " "
			case r == utf8.RuneError || r < ' ':
				glyph = "?"
			default:
				glyph = string(r)
			}
		}

		switch style, painted := f.brackets[off]; {
		case glyph == "":
		case off == s.caret:
			b.WriteString(caretStyle.Render(glyph))
			col++
		case painted:
			b.WriteString(lipglossStyle(style).Render(glyph))
			col++
		default:
			b.WriteString(glyph)
			col++
		}

		for _, h := range f.hints[off] {
			label := " " + h.text
			if col+len(label) > s.width {
				label = label[:max(0, s.width-col)]
			}
			b.WriteString(lipglossStyle(h.style).Italic(true).Render(label))
			col += len(label)
		}
		off += size
	}
	return b.String()
}
