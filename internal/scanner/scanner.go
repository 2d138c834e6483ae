package scanner

import (
	"strings"
	"sync/atomic"

	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/document"
	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// Sink receives the scanner's results
type Sink interface {
	AddPair(types.BracketsPair)
	AddSingle(types.SingleBracket)
}

// preparer is implemented by matchers that load the buffer once per scan
type preparer interface {
	Prepare(buf document.Buffer) error
}

// Scanner finds matched pairs and lonely brackets in one buffer snapshot
type Scanner struct {
	Matcher    PairMatcher
	Partitions Partitioner
	Inactive   *RangeSet
	// Lonely lists the bracket families reported when unmatched. Angle
	// brackets are left out by default since their matching is heuristic.
	Lonely Alphabet
}

// New creates a scanner reporting lonely brackets from the lonely alphabet
func New(matcher PairMatcher, partitions Partitioner, inactive *RangeSet, lonely string) *Scanner {
	return &Scanner{
		Matcher:    matcher,
		Partitions: partitions,
		Inactive:   inactive,
		Lonely:     NewAlphabet(lonelyPairs(lonely)),
	}
}

// lonelyPairs accepts either pair-ordered input ("()[]") or loose characters
// ("([") and returns the full families they touch.
func lonelyPairs(s string) string {
	const families = "(){}[]<>"
	var b strings.Builder
	for i := 0; i < len(families); i += 2 {
		if strings.IndexByte(s, families[i]) >= 0 || strings.IndexByte(s, families[i+1]) >= 0 {
			b.WriteString(families[i : i+2])
		}
	}
	return b.String()
}

// Scan visits offsets 1..N, looking at the character before each offset.
// It polls cancel on every iteration and returns ErrCancelled when set.
// A matcher reporting an empty region aborts the scan with an InvariantError.
func (s *Scanner) Scan(buf document.Buffer, sink Sink, cancel *atomic.Bool) error {
	if p, ok := s.Matcher.(preparer); ok {
		if err := p.Prepare(buf); err != nil {
			return err
		}
	}

	n := buf.Len()
	pairs, singles := 0, 0
	for offset := 1; offset <= n; offset++ {
		if cancel != nil && cancel.Load() {
			debug.LogScan("cancelled at offset %d of %d\n", offset, n)
			return bterrors.ErrCancelled
		}

		m, ok, err := s.Matcher.Match(buf, offset)
		if err != nil {
			return err
		}
		if ok {
			pair, err := s.pairFromMatch(buf, offset, m)
			if err != nil {
				return err
			}
			sink.AddPair(pair)
			pairs++
			continue
		}

		i := offset - 1
		c, err := buf.CharAt(i)
		if err != nil {
			return err
		}
		if !s.Lonely.Contains(c) {
			continue
		}
		if s.Partitions != nil && s.Partitions.Excluded(i) {
			continue
		}
		if s.Inactive.Contains(i) {
			continue
		}
		sink.AddSingle(types.NewSingleBracket(i, c, s.Lonely.IsOpening(c)))
		singles++
	}

	debug.LogScan("scanned %d bytes: %d pair hits, %d lonely\n", n, pairs, singles)
	return nil
}

// pairFromMatch normalizes a match to opening-first whichever side anchored it
func (s *Scanner) pairFromMatch(buf document.Buffer, offset int, m Match) (types.BracketsPair, error) {
	if m.Region.Length <= 1 {
		return types.BracketsPair{}, bterrors.NewInvariantError("scanner",
			"matcher returned a region of length %d at offset %d", m.Region.Length, offset)
	}

	var openOffset, closeOffset int
	if m.Anchor == AnchorLeft {
		openOffset = offset - 1
		closeOffset = m.Region.End() - 1
	} else {
		openOffset = m.Region.Offset
		closeOffset = offset - 1
	}

	openChar, err := buf.CharAt(openOffset)
	if err != nil {
		return types.BracketsPair{}, err
	}
	closeChar, err := buf.CharAt(closeOffset)
	if err != nil {
		return types.BracketsPair{}, err
	}
	return types.NewPair(openOffset, openChar, closeOffset, closeChar), nil
}
