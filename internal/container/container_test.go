package container

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bracketeer/internal/types"
)

func pair(open, close int) types.BracketsPair {
	return types.NewPair(open, '{', close, '}')
}

func publishPairs(c *Container, pairs ...types.BracketsPair) Changes {
	cy := c.Begin()
	for _, p := range pairs {
		cy.AddPair(p)
	}
	return cy.Publish()
}

func TestContainer_EmptySnapshot(t *testing.T) {
	c := New()
	assert.Empty(t, c.PairsSurrounding(3))
	assert.Empty(t, c.AllSingles())
	assert.Empty(t, c.AllHints())
	assert.Equal(t, uint64(0), c.Snapshot().Version)
}

func TestContainer_PairsSurrounding(t *testing.T) {
	c := New()
	publishPairs(c, pair(0, 10), pair(2, 8), pair(4, 6), pair(11, 14))

	got := c.PairsSurrounding(5)
	assert.Equal(t, []types.BracketsPair{pair(0, 10), pair(2, 8), pair(4, 6)}, got)

	assert.Equal(t, []types.BracketsPair{pair(0, 10), pair(2, 8), pair(4, 6)}, c.PairsSurrounding(4),
		"the character right after an opening bracket is inside the pair")
	assert.Equal(t, []types.BracketsPair{pair(0, 10), pair(2, 8)}, c.PairsSurrounding(6),
		"the closing bracket offset is outside the pair")
	assert.Empty(t, c.PairsSurrounding(10))
}

func TestContainer_MatchingPairs(t *testing.T) {
	c := New()
	publishPairs(c, pair(0, 10), pair(2, 8), pair(4, 6), pair(20, 30))

	// Hover window around O=7 is [5, 9)
	got := c.MatchingPairs(7-2, 4)
	assert.Equal(t, []types.BracketsPair{pair(2, 8), pair(4, 6)}, got)

	assert.Empty(t, c.MatchingPairs(11, 4), "no bracket inside the window")
	assert.Equal(t, []types.BracketsPair{pair(20, 30)}, c.MatchingPairs(29, 1))
}

func TestCycle_DeduplicatesPairs(t *testing.T) {
	c := New()
	cy := c.Begin()
	cy.AddPair(types.NewPair(2, '(', 5, ')'))
	cy.AddPair(types.NewPair(5, ')', 2, '('))
	pairs, _, _ := cy.Counts()
	assert.Equal(t, 1, pairs)
	cy.Publish()

	assert.Len(t, c.Snapshot().Pairs, 1)
}

func TestCycle_PublishChangeFlags(t *testing.T) {
	c := New()
	var events []Changes
	c.AddListener(ListenerFunc(func(p, s, h bool) {
		events = append(events, Changes{p, s, h})
	}))

	cy := c.Begin()
	cy.AddPair(pair(1, 4))
	cy.AddSingle(types.NewSingleBracket(7, '(', true))
	ch := cy.Publish()
	assert.Equal(t, Changes{Pairs: true, Singles: true}, ch)

	cy = c.Begin()
	cy.AddPair(pair(1, 4))
	cy.AddSingle(types.NewSingleBracket(7, '(', true))
	cy.AddHint(types.Hint{Kind: types.HintIf, Start: 1, End: 4, Label: "if( a )"})
	ch = cy.Publish()
	assert.Equal(t, Changes{Hints: true}, ch)

	cy = c.Begin()
	cy.AddPair(pair(1, 4))
	cy.AddSingle(types.NewSingleBracket(7, '(', true))
	cy.AddHint(types.Hint{Kind: types.HintIf, Start: 1, End: 4, Label: "if( a )"})
	ch = cy.Publish()
	assert.False(t, ch.Any(), "identical cycle changes nothing")

	assert.Equal(t, []Changes{{Pairs: true, Singles: true}, {Hints: true}}, events)
	assert.Equal(t, uint64(3), c.Snapshot().Version)
}

func TestCycle_DiscardKeepsPreviousSnapshot(t *testing.T) {
	c := New()
	publishPairs(c, pair(0, 3))
	before := c.Snapshot()

	notified := false
	c.AddListener(ListenerFunc(func(bool, bool, bool) { notified = true }))

	cy := c.Begin()
	cy.AddPair(pair(5, 9))
	cy.AddHint(types.Hint{Kind: types.HintFor, Start: 5, End: 9})
	cy.Discard()
	cy.Discard()

	assert.Same(t, before, c.Snapshot())
	assert.False(t, notified)

	// The writer lock was released
	publishPairs(c, pair(1, 2))
	assert.Equal(t, []types.BracketsPair{pair(1, 2)}, c.Snapshot().Pairs)
}

func TestCycle_ReplacesNotMerges(t *testing.T) {
	c := New()
	publishPairs(c, pair(0, 3), pair(4, 8))
	publishPairs(c, pair(10, 12))
	assert.Equal(t, []types.BracketsPair{pair(10, 12)}, c.Snapshot().Pairs)
}

func TestContainer_RemoveListener(t *testing.T) {
	c := New()
	count := 0
	remove := c.AddListener(ListenerFunc(func(bool, bool, bool) { count++ }))
	publishPairs(c, pair(0, 1))
	remove()
	publishPairs(c, pair(0, 2))
	assert.Equal(t, 1, count)
}

func TestContainer_ReadersSeeCompleteSnapshots(t *testing.T) {
	c := New()
	const cycles = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= cycles; i++ {
			cy := c.Begin()
			for j := 0; j < i%7+1; j++ {
				cy.AddPair(pair(j, 100-j))
				cy.AddHint(types.Hint{Kind: types.HintFor, Start: j, End: 100 - j})
			}
			cy.Publish()
		}
	}()

	for i := 0; i < cycles; i++ {
		snap := c.Snapshot()
		require.Equal(t, len(snap.Pairs), len(snap.Hints), "pairs and hints come from the same cycle")
	}
	wg.Wait()
}
