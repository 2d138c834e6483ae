package scanner

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/container"
	"github.com/standardbeagle/bracketeer/internal/document"
	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/types"
)

type recordingSink struct {
	pairs   []types.BracketsPair
	singles []types.SingleBracket
}

func (r *recordingSink) AddPair(p types.BracketsPair)     { r.pairs = append(r.pairs, p) }
func (r *recordingSink) AddSingle(b types.SingleBracket) { r.singles = append(r.singles, b) }

func newScanner(doc *document.Document, inactive *RangeSet) *Scanner {
	brackets := config.Default().Brackets
	parts := LexicalPartitions(doc.Content, CLikeSyntax)
	return New(NewDefaultPairMatcher(brackets, parts, inactive), parts, inactive, brackets.Lonely)
}

func pairOffsets(pairs []types.BracketsPair) [][2]int {
	seen := map[[2]int]bool{}
	var out [][2]int
	for _, p := range pairs {
		k := [2]int{p.Opening.Position.Offset, p.Closing.Position.Offset}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func TestScanner_Pairs(t *testing.T) {
	doc := document.FromString("a(b[c]{d})")
	sink := &recordingSink{}
	require.NoError(t, newScanner(doc, nil).Scan(doc, sink, nil))

	assert.ElementsMatch(t, [][2]int{{1, 9}, {3, 5}, {6, 8}}, pairOffsets(sink.pairs))
	assert.Empty(t, sink.singles)
	assert.Len(t, sink.pairs, 6, "each pair is found from both brackets")

	for _, p := range sink.pairs {
		assert.NoError(t, p.Validate())
		assert.Less(t, p.Opening.Position.Offset, p.Closing.Position.Offset)
	}
}

func TestScanner_LonelyBrackets(t *testing.T) {
	doc := document.FromString("f(a; } x[1]")
	sink := &recordingSink{}
	require.NoError(t, newScanner(doc, nil).Scan(doc, sink, nil))

	require.Len(t, sink.singles, 2)
	assert.Equal(t, types.NewSingleBracket(1, '(', true), sink.singles[0])
	assert.Equal(t, types.NewSingleBracket(5, '}', false), sink.singles[1])
	assert.ElementsMatch(t, [][2]int{{8, 10}}, pairOffsets(sink.pairs))
}

func TestScanner_LonelyExcludedInStringsAndComments(t *testing.T) {
	src := "s = \"(\"; c = '{'; // [\n/* ) */ t(1);"
	doc := document.FromString(src)
	sink := &recordingSink{}
	require.NoError(t, newScanner(doc, nil).Scan(doc, sink, nil))

	assert.Empty(t, sink.singles)
	open := strings.LastIndexByte(src, '(')
	assert.ElementsMatch(t, [][2]int{{open, open + 2}}, pairOffsets(sink.pairs))
}

func TestScanner_LonelyExcludedInInactiveCode(t *testing.T) {
	src := "#if 0\nf(\n#endif\ng("
	doc := document.FromString(src)
	inactive := NewRangeSet([]types.Range{{Start: 6, End: 9}})
	sink := &recordingSink{}
	require.NoError(t, newScanner(doc, inactive).Scan(doc, sink, nil))

	require.Len(t, sink.singles, 1)
	assert.Equal(t, len(src)-1, sink.singles[0].Position.Offset)
}

func TestScanner_AngleHeuristic(t *testing.T) {
	src := "List<Map<K, V>> x; if (a < b && c > d) {}"
	doc := document.FromString(src)
	sink := &recordingSink{}
	require.NoError(t, newScanner(doc, nil).Scan(doc, sink, nil))

	got := pairOffsets(sink.pairs)
	assert.Contains(t, got, [2]int{4, 14})
	assert.Contains(t, got, [2]int{8, 13})
	for _, p := range got {
		assert.False(t, p[0] > 20 && src[p[0]] == '<', "comparison operators are not paired")
	}
	assert.Empty(t, sink.singles, "angle brackets are never lonely")
}

func TestScanner_AngleHeuristicDisabled(t *testing.T) {
	doc := document.FromString("List<T> x;")
	brackets := config.Default().Brackets
	brackets.Angle.Enabled = false
	s := New(NewDefaultPairMatcher(brackets, nil, nil), nil, nil, brackets.Lonely)

	sink := &recordingSink{}
	require.NoError(t, s.Scan(doc, sink, nil))
	assert.Empty(t, sink.pairs)
	assert.Empty(t, sink.singles)
}

type fixedMatcher struct {
	at    int
	match Match
}

func (f fixedMatcher) Match(_ document.Buffer, offset int) (Match, bool, error) {
	if offset == f.at {
		return f.match, true, nil
	}
	return Match{}, false, nil
}

func TestScanner_NormalizesRightAnchor(t *testing.T) {
	doc := document.FromString("(xy)")
	m := fixedMatcher{at: 4, match: Match{Region: types.Position{Offset: 0, Length: 4}, Anchor: AnchorRight}}
	sink := &recordingSink{}
	require.NoError(t, New(m, nil, nil, "()").Scan(doc, sink, nil))

	require.Len(t, sink.pairs, 1)
	assert.Equal(t, types.NewPair(0, '(', 3, ')'), sink.pairs[0])
	require.Len(t, sink.singles, 1, "the opening bracket is not matched by this matcher")
}

func TestScanner_ZeroLengthRegionAborts(t *testing.T) {
	doc := document.FromString("(x)")
	m := fixedMatcher{at: 1, match: Match{Region: types.Position{Offset: 0, Length: 0}}}
	err := New(m, nil, nil, "()").Scan(doc, &recordingSink{}, nil)

	var ie *bterrors.InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "scanner", ie.Component)
}

type cancellingMatcher struct {
	inner  PairMatcher
	after  int
	calls  int
	cancel *atomic.Bool
}

func (c *cancellingMatcher) Match(buf document.Buffer, offset int) (Match, bool, error) {
	c.calls++
	if c.calls == c.after {
		c.cancel.Store(true)
	}
	return c.inner.Match(buf, offset)
}

func TestScanner_CancelMidScanPublishesNothing(t *testing.T) {
	c := container.New()
	prev := c.Begin()
	prev.AddPair(types.NewPair(0, '(', 1, ')'))
	prev.Publish()
	before := c.Snapshot()

	doc := document.FromString("{ ( [ ] ) } ( ) { }")
	var cancel atomic.Bool
	m := &cancellingMatcher{
		inner:  NewDefaultPairMatcher(config.Default().Brackets, nil, nil),
		after:  5,
		cancel: &cancel,
	}

	cy := c.Begin()
	err := New(m, nil, nil, "(){}[]").Scan(doc, cy, &cancel)
	require.ErrorIs(t, err, bterrors.ErrCancelled)
	cy.Discard()

	assert.Equal(t, 5, m.calls, "the flag is observed on the next iteration")
	assert.Same(t, before, c.Snapshot())
	assert.Equal(t, []types.BracketsPair{types.NewPair(0, '(', 1, ')')}, c.PairsSurrounding(0))
}

func TestLonelyPairs(t *testing.T) {
	assert.Equal(t, "(){}[]", lonelyPairs("()[]{}"))
	assert.Equal(t, "()[]", lonelyPairs("(["))
	assert.Equal(t, "", lonelyPairs(""))
}
