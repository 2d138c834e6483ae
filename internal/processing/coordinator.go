package processing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/container"
	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/document"
	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/parser"
)

// Reason tells why a cycle was requested
type Reason string

const (
	ReasonInitial       Reason = "initial"
	ReasonBufferChanged Reason = "buffer-changed"
	ReasonConfigChanged Reason = "config-changed"
	ReasonForced        Reason = "forced"
)

// Outcome is how a cycle ended
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// CycleReport is passed to the cycle-complete hook
type CycleReport struct {
	Version  uint64 // document version analyzed
	Reason   Reason
	Outcome  Outcome
	Changes  container.Changes
	Result   *Result
	Err      error
	Duration time.Duration
}

// Stats are cumulative cycle counters
type Stats struct {
	Cycles       int64
	Published    int64
	Cancelled    int64
	Failed       int64
	Skipped      int64
	LastDuration time.Duration
}

// Coordinator owns the background analysis of one buffer. A single worker
// goroutine runs cycles one at a time; Trigger cancels the running cycle
// and schedules a new one after the debounce delay.
type Coordinator struct {
	store     *document.Store
	container *container.Container
	parser    *parser.TreeSitterParser

	// cancel is shared with the scanner and extractor of the running cycle
	cancel atomic.Bool
	wake   chan struct{}

	mu              sync.Mutex
	processor       *Processor
	debounce        time.Duration
	timer           *time.Timer
	pending         Reason
	force           bool
	configDirty     bool
	lastHash        uint64
	analyzed        bool
	stats           Stats
	onCycleComplete func(CycleReport)
	configListeners []func(*config.Config)

	started  atomic.Bool
	stop     context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

// NewCoordinator creates a coordinator publishing into ctr. A nil parser
// uses the shared one and a nil config the defaults.
func NewCoordinator(store *document.Store, ctr *container.Container, p *parser.TreeSitterParser, cfg *config.Config) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg = cfg.Clone()
	return &Coordinator{
		store:     store,
		container: ctr,
		parser:    p,
		wake:      make(chan struct{}, 1),
		processor: NewProcessor(p, cfg),
		debounce:  debounceFor(cfg),
	}
}

func debounceFor(cfg *config.Config) time.Duration {
	if cfg.Performance.DebounceMs <= 0 {
		return 0
	}
	return time.Duration(cfg.Performance.DebounceMs) * time.Millisecond
}

// Container returns the container results are published to
func (c *Coordinator) Container() *container.Container {
	return c.container
}

// Store returns the buffer store analyzed by the coordinator
func (c *Coordinator) Store() *document.Store {
	return c.store
}

// Config returns the active configuration
func (c *Coordinator) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processor.Config()
}

// Start launches the worker and requests the initial cycle
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("coordinator already started")
	}
	ctx, c.stop = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.run(ctx)

	c.request(ReasonInitial, false, 0)
	return nil
}

// Shutdown cancels the running cycle and waits for the worker to exit
func (c *Coordinator) Shutdown() {
	c.shutdown.Do(func() {
		c.cancel.Store(true)

		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		c.mu.Unlock()

		if c.stop != nil {
			c.stop()
		}
		c.wg.Wait()
		debug.LogCycle("coordinator for %s stopped\n", c.path())
	})
}

// Trigger cancels the running cycle and schedules a new one
func (c *Coordinator) Trigger(reason Reason) {
	c.mu.Lock()
	delay := c.debounce
	c.mu.Unlock()
	c.request(reason, false, delay)
}

// ForceCycle runs a cycle without debounce, even if nothing changed
func (c *Coordinator) ForceCycle() {
	c.request(ReasonForced, true, 0)
}

// Update stores new buffer content and triggers a cycle when it differs
func (c *Coordinator) Update(content []byte) *document.Document {
	before, _ := c.store.Current()
	doc := c.store.Update(content)
	if doc != before {
		c.Trigger(ReasonBufferChanged)
	}
	return doc
}

// SetConfig swaps the configuration, notifies configuration listeners and
// triggers a cycle
func (c *Coordinator) SetConfig(cfg *config.Config) {
	cfg = cfg.Clone()

	c.mu.Lock()
	c.processor = NewProcessor(c.parser, cfg)
	c.debounce = debounceFor(cfg)
	c.configDirty = true
	listeners := append([]func(*config.Config){}, c.configListeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(cfg)
	}
	c.Trigger(ReasonConfigChanged)
}

// OnConfigurationChanged registers fn to run after each SetConfig
func (c *Coordinator) OnConfigurationChanged(fn func(*config.Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configListeners = append(c.configListeners, fn)
}

// SetOnCycleComplete sets a callback invoked on the worker after every cycle
func (c *Coordinator) SetOnCycleComplete(fn func(CycleReport)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCycleComplete = fn
}

// Stats returns a copy of the cycle counters
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// request records the reason, cancels the running cycle and wakes the
// worker after delay
func (c *Coordinator) request(reason Reason, force bool, delay time.Duration) {
	c.cancel.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == "" || reason == ReasonForced {
		c.pending = reason
	}
	c.force = c.force || force

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if delay <= 0 {
		c.signal()
		return
	}
	c.timer = time.AfterFunc(delay, c.signal)
}

func (c *Coordinator) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}
		c.cycle(ctx)
	}
}

// cycle runs one analysis on the worker goroutine
func (c *Coordinator) cycle(ctx context.Context) {
	c.cancel.Store(false)

	c.mu.Lock()
	reason := c.pending
	force := c.force
	configDirty := c.configDirty
	processor := c.processor
	c.pending, c.force, c.configDirty = "", false, false
	c.mu.Unlock()
	if reason == "" {
		reason = ReasonBufferChanged
	}

	start := time.Now()
	report := CycleReport{Reason: reason}

	doc, err := c.store.Current()
	if err != nil {
		report.Outcome, report.Err = OutcomeFailed, err
		c.finish(report, start, 0)
		return
	}
	report.Version = doc.Version

	c.mu.Lock()
	unchanged := c.analyzed && doc.FastHash == c.lastHash
	c.mu.Unlock()
	if unchanged && !force && !configDirty {
		report.Outcome = OutcomeSkipped
		c.finish(report, start, 0)
		return
	}

	cy := c.container.Begin()
	res, err := processor.Process(ctx, doc, cy, &c.cancel)
	report.Result = res
	switch {
	case err == nil:
		report.Changes = cy.Publish()
		report.Outcome = OutcomePublished
		c.finish(report, start, doc.FastHash)
		return
	case errors.Is(err, bterrors.ErrCancelled), errors.Is(err, context.Canceled):
		cy.Discard()
		report.Outcome = OutcomeCancelled
		// a cancelled config change still has to be applied
		if configDirty {
			c.mu.Lock()
			c.configDirty = true
			c.mu.Unlock()
		}
	default:
		cy.Discard()
		report.Outcome, report.Err = OutcomeFailed, err
		debug.LogCycle("cycle for %s failed: %v\n", doc.Path, err)
	}
	c.finish(report, start, 0)
}

func (c *Coordinator) finish(report CycleReport, start time.Time, hash uint64) {
	report.Duration = time.Since(start)

	c.mu.Lock()
	c.stats.Cycles++
	c.stats.LastDuration = report.Duration
	switch report.Outcome {
	case OutcomePublished:
		c.stats.Published++
		c.lastHash, c.analyzed = hash, true
	case OutcomeCancelled:
		c.stats.Cancelled++
	case OutcomeFailed:
		c.stats.Failed++
	case OutcomeSkipped:
		c.stats.Skipped++
	}
	hook := c.onCycleComplete
	c.mu.Unlock()

	debug.LogCycle("cycle v%d %s: %s in %v\n", report.Version, report.Reason, report.Outcome, report.Duration)
	if hook != nil {
		hook(report)
	}
}

func (c *Coordinator) path() string {
	doc, err := c.store.Current()
	if err != nil || doc == nil {
		return ""
	}
	return doc.Path
}
