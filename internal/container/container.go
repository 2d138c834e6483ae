package container

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/standardbeagle/bracketeer/internal/types"
)

// Listener receives a notification after each publish that changed
// at least one collection. It runs on the publishing goroutine.
type Listener interface {
	ContainerUpdated(pairsChanged, singlesChanged, hintsChanged bool)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(pairsChanged, singlesChanged, hintsChanged bool)

func (f ListenerFunc) ContainerUpdated(p, s, h bool) { f(p, s, h) }

// Snapshot is one complete, internally consistent result set. Pairs are
// ordered by opening offset, singles and hints by start offset.
type Snapshot struct {
	Version uint64
	Pairs   []types.BracketsPair
	Singles []types.SingleBracket
	Hints   []types.Hint
}

var emptySnapshot = &Snapshot{}

// Changes reports which collections differ from the previous snapshot
type Changes struct {
	Pairs   bool
	Singles bool
	Hints   bool
}

// Any reports whether anything changed
func (c Changes) Any() bool {
	return c.Pairs || c.Singles || c.Hints
}

// Container is the double-buffered result store. Readers always see the
// last published snapshot and never wait on a cycle being built.
type Container struct {
	published atomic.Pointer[Snapshot]

	// writeMu is held from Begin until Publish or Discard
	writeMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []subscription
	nextID      int
}

type subscription struct {
	id int
	l  Listener
}

// New creates an empty container
func New() *Container {
	c := &Container{}
	c.published.Store(emptySnapshot)
	return c
}

// AddListener subscribes l to change events and returns a function that
// removes the subscription
func (c *Container) AddListener(l Listener) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, subscription{id: id, l: l})
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		for i, sub := range c.listeners {
			if sub.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the last published snapshot
func (c *Container) Snapshot() *Snapshot {
	return c.published.Load()
}

// PairsSurrounding returns pairs whose span encloses offset, in opening order.
// The offset is the character preceding the caret, so a pair encloses it
// from its opening bracket up to, not including, its closing bracket.
func (c *Container) PairsSurrounding(offset int) []types.BracketsPair {
	snap := c.published.Load()
	var out []types.BracketsPair
	for _, p := range snap.Pairs {
		if p.Opening.Position.Offset > offset {
			break
		}
		if p.Encloses(offset) {
			out = append(out, p)
		}
	}
	return out
}

// MatchingPairs returns pairs with at least one bracket overlapping
// [offset, offset+length)
func (c *Container) MatchingPairs(offset, length int) []types.BracketsPair {
	snap := c.published.Load()
	var out []types.BracketsPair
	for _, p := range snap.Pairs {
		if p.OverlapsWindow(offset, length) {
			out = append(out, p)
		}
	}
	return out
}

// AllSingles returns every lonely bracket of the published snapshot
func (c *Container) AllSingles() []types.SingleBracket {
	return c.published.Load().Singles
}

// AllHints returns every hint of the published snapshot
func (c *Container) AllHints() []types.Hint {
	return c.published.Load().Hints
}

// Begin opens the in-progress build area. Only one cycle may be open at a
// time; Begin blocks until the previous cycle is published or discarded.
func (c *Container) Begin() *Cycle {
	c.writeMu.Lock()
	return &Cycle{
		c:        c,
		pairKeys: make(map[pairKey]struct{}),
	}
}

type pairKey struct {
	open, close int
}

// Cycle is the in-progress build area of one analysis cycle. It is owned by
// the worker that called Begin and is never visible to readers.
type Cycle struct {
	c        *Container
	pairs    []types.BracketsPair
	pairKeys map[pairKey]struct{}
	singles  []types.SingleBracket
	hints    []types.Hint
	done     bool
}

// AddPair records a matched pair. A pair already recorded from its other
// bracket is ignored.
func (cy *Cycle) AddPair(p types.BracketsPair) {
	key := pairKey{p.Opening.Position.Offset, p.Closing.Position.Offset}
	if _, dup := cy.pairKeys[key]; dup {
		return
	}
	cy.pairKeys[key] = struct{}{}
	cy.pairs = append(cy.pairs, p)
}

// AddSingle records a lonely bracket
func (cy *Cycle) AddSingle(b types.SingleBracket) {
	cy.singles = append(cy.singles, b)
}

// AddHint records a scope hint
func (cy *Cycle) AddHint(h types.Hint) {
	cy.hints = append(cy.hints, h)
}

// Counts returns the number of entities collected so far
func (cy *Cycle) Counts() (pairs, singles, hints int) {
	return len(cy.pairs), len(cy.singles), len(cy.hints)
}

// Publish swaps the built collections in as one snapshot and notifies
// listeners when something changed.
func (cy *Cycle) Publish() Changes {
	if cy.done {
		return Changes{}
	}
	cy.done = true

	sort.SliceStable(cy.pairs, func(i, j int) bool {
		return cy.pairs[i].Opening.Position.Offset < cy.pairs[j].Opening.Position.Offset
	})
	sort.SliceStable(cy.singles, func(i, j int) bool {
		return cy.singles[i].Position.Offset < cy.singles[j].Position.Offset
	})
	sort.SliceStable(cy.hints, func(i, j int) bool {
		return cy.hints[i].Start < cy.hints[j].Start
	})

	prev := cy.c.published.Load()
	next := &Snapshot{
		Version: prev.Version + 1,
		Pairs:   cy.pairs,
		Singles: cy.singles,
		Hints:   cy.hints,
	}
	changes := Changes{
		Pairs:   !slices.Equal(prev.Pairs, next.Pairs),
		Singles: !slices.Equal(prev.Singles, next.Singles),
		Hints:   !slices.Equal(prev.Hints, next.Hints),
	}
	cy.c.published.Store(next)
	cy.c.writeMu.Unlock()

	if changes.Any() {
		cy.c.notify(changes)
	}
	return changes
}

// Discard drops the in-progress collections without publishing
func (cy *Cycle) Discard() {
	if cy.done {
		return
	}
	cy.done = true
	cy.pairs, cy.singles, cy.hints = nil, nil, nil
	cy.c.writeMu.Unlock()
}

func (c *Container) notify(ch Changes) {
	c.listenersMu.RLock()
	listeners := append([]subscription(nil), c.listeners...)
	c.listenersMu.RUnlock()

	for _, sub := range listeners {
		sub.l.ContainerUpdated(ch.Pairs, ch.Singles, ch.Hints)
	}
}
