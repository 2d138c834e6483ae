package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/highlight"
	"github.com/standardbeagle/bracketeer/internal/types"
)

func TestScreen_Layout(t *testing.T) {
	s := newScreen([]byte("ab\ncd\n"))

	assert.Equal(t, 3, s.lineCount())
	assert.Equal(t, types.Range{Start: 3, End: 5}, s.line(1))
	assert.Equal(t, types.Range{Start: 6, End: 6}, s.line(2))
	assert.Equal(t, 1, s.rowOf(4))

	s.setCaret(4)
	row, col := s.caretPosition()
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, col)

	s.moveCaret(1, 5)
	assert.Equal(t, 6, s.caret)

	s.moveCaret(-10, -10)
	assert.Equal(t, 0, s.caret)

	off, ok := s.OffsetAt(highlight.Point{X: 1, Y: 2})
	require.True(t, ok)
	assert.Equal(t, 4, off)

	_, ok = s.OffsetAt(highlight.Point{X: 0, Y: 0})
	assert.False(t, ok, "header row")
	_, ok = s.OffsetAt(highlight.Point{X: 5, Y: 1})
	assert.False(t, ok, "past the end of the row")
}

func TestScreen_ViewportAndDamage(t *testing.T) {
	s := newScreen([]byte("a\nb\nc\nd\n"))
	s.resize(10, 4) // two text rows

	assert.Equal(t, types.Range{Start: 0, End: 4}, s.Viewport())

	s.setCaret(6)
	assert.Equal(t, 2, s.top)
	assert.Equal(t, types.Range{Start: 4, End: 8}, s.Viewport())

	r, ok := s.DamageRange(highlight.Rect{X: 0, Y: 1, Width: 10, Height: 1})
	require.True(t, ok)
	assert.Equal(t, types.Range{Start: 4, End: 6}, r)

	_, ok = s.DamageRange(highlight.Rect{Y: 1})
	assert.False(t, ok)
}

func TestScreen_FoldRelayout(t *testing.T) {
	s := newScreen([]byte("f(abc)\nx"))
	s.Fold(types.Range{Start: 2, End: 5})
	s.relayout()

	assert.Equal(t, "f()\nx", string(s.visible))
	assert.Equal(t, []int{0, 4}, s.lineStarts)

	s.setContent([]byte("f(abc)\nx"))
	assert.Empty(t, s.Folds())
	assert.Equal(t, "f(abc)\nx", string(s.visible))
}

func TestRenderRow_HintLabel(t *testing.T) {
	s := newScreen([]byte("{x}\ny"))
	s.setCaret(5)

	f := newFrame()
	f.PaintHint(types.Range{Start: 2, End: 3}, "if (a)", config.Style{})
	out := renderRow(s, 0, f)
	assert.Contains(t, out, "{x}")
	assert.Contains(t, out, " if (a)")

	s.resize(5, 10)
	out = renderRow(s, 0, f)
	assert.Contains(t, out, " i")
	assert.NotContains(t, out, " if")
}

func TestDispatcher_WakesProgram(t *testing.T) {
	msgs := make(chan tea.Msg, 1)
	d := &dispatcher{send: func(msg tea.Msg) { msgs <- msg }}

	ran := false
	d.Dispatch(func() { ran = true })

	select {
	case msg := <-msgs:
		assert.IsType(t, wakeMsg{}, msg)
	case <-time.After(time.Second):
		t.Fatal("no wake message")
	}
	assert.False(t, ran)
	d.drain()
	assert.True(t, ran)
}

const viewerSource = "f(a[b]c)"

// newViewer publishes the pairs of viewerSource the way a finished cycle
// would, without starting the coordinator
func newViewer(t *testing.T) *Model {
	t.Helper()
	m := NewModel("a.js", []byte(viewerSource), nil)
	m.Init()

	cy := m.coord.Container().Begin()
	cy.AddPair(types.NewPair(1, '(', 7, ')'))
	cy.AddPair(types.NewPair(3, '[', 5, ']'))
	require.True(t, cy.Publish().Any())

	m.Update(wakeMsg{})
	return m
}

func press(m *Model, keys ...tea.KeyType) {
	for _, k := range keys {
		m.Update(tea.KeyMsg{Type: k})
	}
}

func TestModel_CaretHighlightsSurrounding(t *testing.T) {
	m := newViewer(t)
	assert.Empty(t, m.engine.PairsToPaint())

	press(m, tea.KeyRight, tea.KeyRight, tea.KeyRight, tea.KeyRight)
	assert.Equal(t, 4, m.screen.caret)

	var offsets []int
	for _, b := range m.engine.PairsToPaint() {
		offsets = append(offsets, b.Position.Offset)
	}
	assert.ElementsMatch(t, []int{1, 3, 5, 7}, offsets)

	press(m, tea.KeyHome)
	assert.Equal(t, 0, m.screen.caret)
	assert.Empty(t, m.engine.PairsToPaint())

	press(m, tea.KeyEnd)
	assert.Equal(t, len(viewerSource), m.screen.caret)

	assert.Contains(t, m.View(), "a.js")
}

func TestModel_FoldAndUnfold(t *testing.T) {
	m := newViewer(t)
	m.screen.setCaret(4)

	press(m, tea.KeyCtrlF)
	assert.Equal(t, "f(a[]c)", string(m.screen.visible))
	assert.Equal(t, 4, m.screen.caret)
	assert.Equal(t, "folded 1 bytes", m.status)

	press(m, tea.KeyCtrlU)
	assert.Equal(t, viewerSource, string(m.screen.visible))
	assert.Equal(t, 5, m.screen.caret)
	assert.Equal(t, "unfolded", m.status)

	m.screen.setCaret(0)
	press(m, tea.KeyCtrlF)
	assert.Equal(t, "nothing to fold", m.status)
}

func TestModel_EditUpdatesStore(t *testing.T) {
	m := newViewer(t)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	doc, err := m.coord.Store().Current()
	require.NoError(t, err)
	assert.Equal(t, "x"+viewerSource, string(doc.Content))
	assert.Equal(t, 1, m.screen.caret)

	press(m, tea.KeyBackspace)
	doc, err = m.coord.Store().Current()
	require.NoError(t, err)
	assert.Equal(t, viewerSource, string(doc.Content))
	assert.Equal(t, 0, m.screen.caret)

	press(m, tea.KeyBackspace)
	assert.Equal(t, viewerSource, string(m.screen.content))
}

func TestModel_ToggleHints(t *testing.T) {
	m := newViewer(t)
	before := m.coord.Config()

	press(m, tea.KeyCtrlT)
	assert.Equal(t, "hints off", m.status)
	assert.False(t, m.coord.Config().Hints.Default.Enabled)
	assert.False(t, m.coord.Config().Hints.Enabled(types.HintIf))
	assert.True(t, before.Hints.Default.Enabled, "previous configuration is not mutated")

	press(m, tea.KeyCtrlT)
	assert.Equal(t, "hints on", m.status)
	assert.True(t, m.coord.Config().Hints.Enabled(types.HintIf))
}

func TestModel_HoverAfterRest(t *testing.T) {
	m := newViewer(t)

	// row 0 is drawn below the header
	over := highlight.Point{X: 3, Y: 1}
	_, cmd := m.Update(tea.MouseMsg{X: over.X, Y: over.Y, Action: tea.MouseActionMotion})
	assert.NotNil(t, cmd)
	seq := m.hoverSeq

	m.Update(hoverMsg{seq: seq - 1, at: over})
	assert.False(t, m.engine.Hovering(), "stale hover is ignored")

	m.Update(hoverMsg{seq: seq, at: over})
	assert.True(t, m.engine.Hovering())
	assert.NotEmpty(t, m.engine.PairsToPaint())

	far := highlight.Point{X: over.X + config.DefaultHoverDistance + 5, Y: 1}
	m.Update(tea.MouseMsg{X: far.X, Y: far.Y, Action: tea.MouseActionMotion})
	assert.False(t, m.engine.Hovering())
}

func TestModel_Quit(t *testing.T) {
	m := newViewer(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
