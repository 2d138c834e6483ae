// Package tui is a terminal viewer that hosts the highlighter: caret and
// mouse drive surrounding and hovered pairs, folds hide text, and edits
// are analysed in the background.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/container"
	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/highlight"
	"github.com/standardbeagle/bracketeer/internal/processing"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// hoverDelay is how long the pointer must rest before a hover starts
const hoverDelay = 400 * time.Millisecond

// wakeMsg makes the program drain work dispatched from other goroutines
type wakeMsg struct{}

// hoverMsg fires after the pointer rested; seq identifies the motion
type hoverMsg struct {
	seq int
	at  highlight.Point
}

// dispatcher queues work for the UI goroutine. Queued functions run at the
// end of the current Update, or on the next wake message.
type dispatcher struct {
	mu   sync.Mutex
	fns  []func()
	send func(tea.Msg)
}

// Dispatch implements highlight.Dispatcher
func (d *dispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	d.fns = append(d.fns, fn)
	send := d.send
	d.mu.Unlock()
	if send != nil {
		go send(wakeMsg{})
	}
}

func (d *dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.fns) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.fns[0]
		d.fns = d.fns[1:]
		d.mu.Unlock()
		fn()
	}
}

// Model is the Bubble Tea model of the viewer
type Model struct {
	path   string
	coord  *processing.Coordinator
	engine *highlight.Engine
	screen *screen
	queue  *dispatcher

	hoverSeq int
	status   string
	err      error
}

// NewModel creates a viewer over content. The coordinator starts with Run.
func NewModel(path string, content []byte, cfg *config.Config) *Model {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg = cfg.Clone()

	ctr := container.New()
	m := &Model{
		path:   path,
		coord:  processing.NewCoordinator(document.NewStore(path, content), ctr, nil, cfg),
		screen: newScreen(content),
		queue:  &dispatcher{},
	}
	m.engine = highlight.NewEngine(ctr, m.screen, m.queue, cfg)
	ctr.AddListener(m.engine)
	m.coord.OnConfigurationChanged(m.engine.ConfigurationChanged)
	m.coord.SetOnCycleComplete(func(r processing.CycleReport) {
		if r.Outcome == processing.OutcomeFailed {
			m.queue.Dispatch(func() { m.err = r.Err })
		}
	})
	return m
}

// Run loads path and shows it until the user quits or ctx is done
func Run(ctx context.Context, path string, cfg *config.Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	m := NewModel(path, content, cfg)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	m.queue.mu.Lock()
	m.queue.send = p.Send
	m.queue.mu.Unlock()

	if err := m.coord.Start(ctx); err != nil {
		return err
	}
	defer m.coord.Shutdown()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	m.engine.Init()
	return tea.SetWindowTitle("bracketeer " + filepath.Base(m.path))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.screen.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		var quit bool
		quit, cmd = m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}

	case tea.MouseMsg:
		cmd = m.handleMouse(msg)

	case hoverMsg:
		if msg.seq == m.hoverSeq {
			m.engine.MouseHover(msg.at)
		}

	case wakeMsg:
	}

	m.queue.drain()
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return true, nil
	case "up":
		m.screen.moveCaret(-1, 0)
	case "down":
		m.screen.moveCaret(1, 0)
	case "left":
		m.screen.moveCaret(0, -1)
	case "right":
		m.screen.moveCaret(0, 1)
	case "pgup":
		m.screen.moveCaret(-m.screen.rows(), 0)
	case "pgdown":
		m.screen.moveCaret(m.screen.rows(), 0)
	case "home":
		_, col := m.screen.caretPosition()
		m.screen.moveCaret(0, -col)
	case "end":
		row, col := m.screen.caretPosition()
		m.screen.moveCaret(0, m.screen.line(row).Len()-col)
	case "ctrl+f":
		m.foldAtCaret()
	case "ctrl+u":
		m.unfoldAll()
	case "ctrl+t":
		m.toggleHints()
		return false, nil
	case "enter":
		m.insert("\n")
	case "tab":
		m.insert("\t")
	case "backspace":
		m.deleteBefore()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.insert(string(msg.Runes))
		} else {
			return false, nil
		}
	}
	m.engine.CaretMoved()
	return false, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	at := highlight.Point{X: msg.X, Y: msg.Y}
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if off, ok := m.screen.OffsetAt(at); ok {
			m.screen.setCaret(off)
			m.engine.CaretMoved()
		}
		return nil

	case msg.Action == tea.MouseActionMotion:
		m.engine.MouseMove(at)
		m.hoverSeq++
		seq := m.hoverSeq
		return tea.Tick(hoverDelay, func(time.Time) tea.Msg {
			return hoverMsg{seq: seq, at: at}
		})
	}
	return nil
}

// modelCaret is the buffer offset of the caret
func (m *Model) modelCaret() int {
	off, ok := m.screen.WidgetToModel(m.screen.caret)
	if !ok {
		return len(m.screen.content)
	}
	return off
}

// foldAtCaret hides the inside of the innermost pair around the caret
func (m *Model) foldAtCaret() {
	pairs := highlight.SortPairs(m.coord.Container().PairsSurrounding(m.modelCaret() - 1))
	for _, p := range pairs {
		inner := types.Range{Start: p.Opening.Position.End(), End: p.Closing.Position.Offset}
		if inner.Empty() {
			continue
		}
		m.screen.Fold(inner)
		m.screen.relayout()
		if w, ok := m.screen.ModelToWidget(p.Closing.Position.Offset); ok {
			m.screen.setCaret(w)
		}
		m.status = fmt.Sprintf("folded %d bytes", inner.Len())
		return
	}
	m.status = "nothing to fold"
}

func (m *Model) unfoldAll() {
	caret := m.modelCaret()
	m.screen.Unfold(types.Range{Start: 0, End: len(m.screen.content) + 1})
	m.screen.relayout()
	if w, ok := m.screen.ModelToWidget(caret); ok {
		m.screen.setCaret(w)
	}
	m.status = "unfolded"
}

// toggleHints switches every hint kind on or off through the coordinator
// so configuration listeners see the change
func (m *Model) toggleHints() {
	cfg := m.coord.Config().Clone()
	enable := !cfg.Hints.Default.Enabled
	cfg.Hints.Default.Enabled = enable
	for kind, hs := range cfg.Hints.Kinds {
		hs.Enabled = enable
		cfg.Hints.Kinds[kind] = hs
	}
	m.coord.SetConfig(cfg)
	m.status = fmt.Sprintf("hints %s", map[bool]string{true: "on", false: "off"}[enable])
}

func (m *Model) insert(text string) {
	at := m.modelCaret()
	content := make([]byte, 0, len(m.screen.content)+len(text))
	content = append(content, m.screen.content[:at]...)
	content = append(content, text...)
	content = append(content, m.screen.content[at:]...)
	m.edit(content, at+len(text))
}

func (m *Model) deleteBefore() {
	at := m.modelCaret()
	if at == 0 {
		return
	}
	content := make([]byte, 0, len(m.screen.content)-1)
	content = append(content, m.screen.content[:at-1]...)
	content = append(content, m.screen.content[at:]...)
	m.edit(content, at-1)
}

// edit replaces the buffer, unfolds everything and hands the new content
// to the coordinator
func (m *Model) edit(content []byte, caret int) {
	m.screen.setContent(content)
	m.screen.setCaret(caret)
	m.coord.Update(content)
	m.status = ""
}

func (m *Model) View() string {
	f := newFrame()
	m.engine.Paint(nil, f)

	var b strings.Builder
	row, col := m.screen.caretPosition()
	header := fmt.Sprintf(" %s  %d:%d  %d lonely  %d hints ", filepath.Base(m.path), row+1, col+1,
		len(m.engine.Singles()), len(m.engine.Hints()))
	b.WriteString(headerStyle.Render(header))
	b.WriteByte('\n')

	last := m.screen.top + m.screen.rows()
	for r := m.screen.top; r < last; r++ {
		if r < m.screen.lineCount() {
			b.WriteString(renderRow(m.screen, r, f))
		}
		b.WriteByte('\n')
	}

	footer := "esc quit  ctrl+f fold  ctrl+u unfold  ctrl+t hints"
	switch {
	case m.err != nil:
		footer = "analysis failed: " + m.err.Error()
	case m.status != "":
		footer = m.status + "  |  " + footer
	}
	b.WriteString(footerStyle.Render(footer))
	m.screen.dirty = false
	return b.String()
}
