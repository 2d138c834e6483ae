// Package watch follows a directory tree and feeds file changes to
// per-file analysis coordinators.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/debug"
)

// MaxFileSize is the largest file the watcher hands out
const MaxFileSize = 4 << 20

// EventType is the kind of change seen for a path
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler receives debounced events
type Handler func(path string, ev EventType)

// Watcher monitors a directory tree and reports debounced file events
type Watcher struct {
	fsw       *fsnotify.Watcher
	cfg       config.Watch
	root      string
	filter    *Filter
	debouncer *eventDebouncer
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once

	existing []string

	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
	statsMu         sync.RWMutex
}

// New creates a watcher. A nil config uses the defaults.
func New(cfg *config.Config) (*Watcher, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = time.Duration(config.DefaultDebounceMs) * time.Millisecond
	}

	w := &Watcher{
		fsw:    fsw,
		cfg:    cfg.Watch,
		filter: NewFilter(cfg.Watch, ""),
		ctx:    ctx,
		cancel: cancel,
	}
	w.debouncer = newEventDebouncer(debounce, w)
	return w, nil
}

// SetHandler sets the function receiving flushed events. It must be called
// before Start.
func (w *Watcher) SetHandler(h Handler) {
	w.debouncer.handler = h
}

// Start adds watches for every directory under root that is not excluded
// and records the matching files already present
func (w *Watcher) Start(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	w.root = abs
	w.filter = NewFilter(w.cfg, abs)
	debug.Log("WATCH", "starting file watcher for directory: %s\n", abs)

	if err := w.addWatches(); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", abs, err)
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop closes the watcher and drops events that have not been flushed
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.cancel()
		w.debouncer.stop()
		err = w.fsw.Close()
		w.wg.Wait()
		debug.Log("WATCH", "file watcher stopped\n")
	})
	return err
}

// Existing returns the matching files found by Start
func (w *Watcher) Existing() []string {
	return append([]string(nil), w.existing...)
}

// Root returns the absolute directory being watched
func (w *Watcher) Root() string {
	return w.root
}

// addWatches walks root, watching directories and collecting files
func (w *Watcher) addWatches() error {
	return w.filter.Walk(func(dir string) {
		if err := w.fsw.Add(dir); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", dir, err)
		}
	}, func(file string) {
		w.existing = append(w.existing, file)
	})
}

// Matches reports whether a file under the watched root is analyzed
func (w *Watcher) Matches(path string) bool {
	return w.filter.Matches(path)
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.incrementStats(0, 1)
			log.Printf("File watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.Log("WATCH", "received %v for %s\n", event.Op, path)

	info, err := os.Stat(path)
	if err != nil {
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.Matches(path) {
			w.debouncer.addEvent(path, EventRemove)
		}
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.filter.IgnoreDirectory(path) {
			if err := w.fsw.Add(path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			}
		}
		return
	}

	if info.Size() > MaxFileSize {
		debug.Log("WATCH", "skipping oversized file %s (%d bytes)\n", path, info.Size())
		return
	}
	if !w.Matches(path) {
		return
	}

	var ev EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		ev = EventCreate
	case event.Op&fsnotify.Write != 0:
		ev = EventWrite
	case event.Op&fsnotify.Remove != 0:
		ev = EventRemove
	case event.Op&fsnotify.Rename != 0:
		ev = EventRename
	default:
		return
	}
	w.debouncer.addEvent(path, ev)
}

// eventDebouncer keeps the latest event per path and flushes them together
// once the tree has been quiet for the debounce interval
type eventDebouncer struct {
	events   map[string]EventType
	mutex    sync.Mutex
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	flushing sync.WaitGroup
	handler  Handler
	owner    *Watcher
}

func newEventDebouncer(debounce time.Duration, owner *Watcher) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]EventType),
		debounce: debounce,
		owner:    owner,
	}
}

func (d *eventDebouncer) addEvent(path string, ev EventType) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}

	d.events[path] = ev
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

// stop cancels the pending flush and waits for a running one
func (d *eventDebouncer) stop() {
	d.mutex.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.events = make(map[string]EventType)
	d.mutex.Unlock()
	d.flushing.Wait()
}

// flush delivers removals first, then changes, then creations
func (d *eventDebouncer) flush() {
	d.mutex.Lock()
	if d.stopped {
		d.mutex.Unlock()
		return
	}
	events := d.events
	d.events = make(map[string]EventType)
	handler := d.handler
	d.flushing.Add(1)
	d.mutex.Unlock()
	defer d.flushing.Done()

	if len(events) == 0 || handler == nil {
		return
	}
	debug.Log("WATCH", "processing %d debounced file events\n", len(events))

	var creates, removes, changes []string
	for path, ev := range events {
		switch ev {
		case EventCreate:
			creates = append(creates, path)
		case EventRemove:
			removes = append(removes, path)
		case EventWrite, EventRename:
			changes = append(changes, path)
		}
	}

	for _, path := range removes {
		handler(path, EventRemove)
	}
	for _, path := range changes {
		handler(path, EventWrite)
	}
	for _, path := range creates {
		handler(path, EventCreate)
	}
	d.owner.incrementStats(int64(len(events)), 0)
}

func (w *Watcher) incrementStats(events, errors int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.eventsProcessed += events
	w.errorCount += errors
	w.lastEventTime = time.Now()
}

// Stats returns watch statistics
func (w *Watcher) Stats() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return Stats{
		EventsProcessed: w.eventsProcessed,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.ctx.Err() == nil,
	}
}

// Stats contains statistics about file watching
type Stats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}
