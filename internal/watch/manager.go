package watch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/container"
	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/parser"
	"github.com/standardbeagle/bracketeer/internal/processing"
	"github.com/standardbeagle/bracketeer/internal/security"
)

// Report is a finished cycle of one watched file
type Report struct {
	Path string
	processing.CycleReport
}

// Manager owns one coordinator per open file
type Manager struct {
	ctx    context.Context
	parser *parser.TreeSitterParser

	mu       sync.Mutex
	cfg      *config.Config
	coords   map[string]*processing.Coordinator
	onReport func(Report)
	closed   bool
}

// NewManager creates a manager whose coordinators run until ctx is done or
// Shutdown is called. Nil parser and config use the shared parser and the
// defaults.
func NewManager(ctx context.Context, p *parser.TreeSitterParser, cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Manager{
		ctx:    ctx,
		parser: p,
		cfg:    cfg.Clone(),
		coords: make(map[string]*processing.Coordinator),
	}
}

// SetOnReport sets the function called after each cycle of any file. It is
// called on coordinator goroutines and must not block.
func (m *Manager) SetOnReport(fn func(Report)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReport = fn
}

// Open starts analysing path, or re-reads it when already open
func (m *Manager) Open(path string) (*processing.Coordinator, error) {
	guard := security.Guard{MaxSize: MaxFileSize}
	_, content, err := guard.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("watch manager is shut down")
	}

	if c, ok := m.coords[path]; ok {
		c.Update(content)
		return c, nil
	}

	c := processing.NewCoordinator(document.NewStore(path, content), container.New(), m.parser, m.cfg)
	c.SetOnCycleComplete(func(r processing.CycleReport) {
		m.mu.Lock()
		fn := m.onReport
		m.mu.Unlock()
		if fn != nil {
			fn(Report{Path: path, CycleReport: r})
		}
	})
	if err := c.Start(m.ctx); err != nil {
		return nil, err
	}
	m.coords[path] = c
	debug.Log("WATCH", "opened %s\n", path)
	return c, nil
}

// Close stops analysing path
func (m *Manager) Close(path string) {
	m.mu.Lock()
	c, ok := m.coords[path]
	delete(m.coords, path)
	m.mu.Unlock()
	if ok {
		c.Shutdown()
		debug.Log("WATCH", "closed %s\n", path)
	}
}

// Handle applies a watcher event. It satisfies Handler.
func (m *Manager) Handle(path string, ev EventType) {
	switch ev {
	case EventRemove:
		m.Close(path)
	default:
		if _, err := m.Open(path); err != nil {
			debug.Log("WATCH", "%v\n", err)
		}
	}
}

// Coordinator returns the coordinator of an open file
func (m *Manager) Coordinator(path string) (*processing.Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coords[path]
	return c, ok
}

// Paths returns the open files in order
func (m *Manager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.coords))
	for p := range m.coords {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SetConfig hands a new configuration to every open file
func (m *Manager) SetConfig(cfg *config.Config) {
	m.mu.Lock()
	m.cfg = cfg.Clone()
	coords := make([]*processing.Coordinator, 0, len(m.coords))
	for _, c := range m.coords {
		coords = append(coords, c)
	}
	m.mu.Unlock()

	for _, c := range coords {
		c.SetConfig(cfg)
	}
}

// Shutdown stops every coordinator. Open fails afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	coords := m.coords
	m.coords = make(map[string]*processing.Coordinator)
	m.mu.Unlock()

	for _, c := range coords {
		c.Shutdown()
	}
}
