package scanner

import (
	"strings"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// Anchor tells which side of a matched region the search started from
type Anchor int

const (
	// AnchorLeft means the bracket before the seed offset is the opening one
	AnchorLeft Anchor = iota
	// AnchorRight means the bracket before the seed offset is the closing one
	AnchorRight
)

// Match is a region spanning both brackets of a pair, inclusive
type Match struct {
	Region types.Position
	Anchor Anchor
}

// PairMatcher finds the partner of the bracket just before offset
type PairMatcher interface {
	Match(buf document.Buffer, offset int) (Match, bool, error)
}

// DefaultPairMatcher pairs brackets of the same family by nesting count,
// ignoring brackets in excluded partitions and inactive code. Angle
// brackets go through a heuristic since '<' and '>' are usually operators.
type DefaultPairMatcher struct {
	Alphabet   Alphabet
	Partitions Partitioner
	Inactive   *RangeSet
	Angle      config.AngleHeuristic

	content []byte
}

// NewDefaultPairMatcher creates a matcher for the configured alphabet
func NewDefaultPairMatcher(cfg config.Brackets, partitions Partitioner, inactive *RangeSet) *DefaultPairMatcher {
	return &DefaultPairMatcher{
		Alphabet:   NewAlphabet(cfg.Alphabet),
		Partitions: partitions,
		Inactive:   inactive,
		Angle:      cfg.Angle,
	}
}

// Match implements PairMatcher
func (m *DefaultPairMatcher) Match(buf document.Buffer, offset int) (Match, bool, error) {
	i := offset - 1
	if i < 0 || i >= buf.Len() {
		return Match{}, false, nil
	}
	text, err := m.text(buf)
	if err != nil {
		return Match{}, false, err
	}

	c := text[i]
	partner, ok := m.Alphabet.Partner(c)
	if !ok || m.skip(i) {
		return Match{}, false, nil
	}

	if c == '<' || c == '>' {
		return m.matchAngle(text, i)
	}

	if m.Alphabet.IsOpening(c) {
		j, found := m.forward(text, i, c, partner)
		if !found {
			return Match{}, false, nil
		}
		return Match{Region: types.Position{Offset: i, Length: j - i + 1}, Anchor: AnchorLeft}, true, nil
	}

	j, found := m.backward(text, i, partner, c)
	if !found {
		return Match{}, false, nil
	}
	return Match{Region: types.Position{Offset: j, Length: i - j + 1}, Anchor: AnchorRight}, true, nil
}

// Prepare loads the bytes of the buffer about to be scanned
func (m *DefaultPairMatcher) Prepare(buf document.Buffer) error {
	text, err := bufferBytes(buf)
	if err != nil {
		return err
	}
	m.content = text
	return nil
}

func (m *DefaultPairMatcher) text(buf document.Buffer) ([]byte, error) {
	if d, ok := buf.(*document.Document); ok {
		return d.Content, nil
	}
	if m.content != nil && len(m.content) == buf.Len() {
		return m.content, nil
	}
	return bufferBytes(buf)
}

func bufferBytes(buf document.Buffer) ([]byte, error) {
	if d, ok := buf.(*document.Document); ok {
		return d.Content, nil
	}
	s, err := buf.Text(0, buf.Len())
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (m *DefaultPairMatcher) skip(i int) bool {
	if m.Partitions != nil && m.Partitions.Excluded(i) {
		return true
	}
	return m.Inactive.Contains(i)
}

func (m *DefaultPairMatcher) forward(text []byte, i int, open, close byte) (int, bool) {
	depth := 0
	for k := i + 1; k < len(text); k++ {
		ch := text[k]
		if ch != open && ch != close {
			continue
		}
		if m.skip(k) {
			continue
		}
		if ch == open {
			depth++
			continue
		}
		if depth == 0 {
			return k, true
		}
		depth--
	}
	return 0, false
}

func (m *DefaultPairMatcher) backward(text []byte, i int, open, close byte) (int, bool) {
	depth := 0
	for k := i - 1; k >= 0; k-- {
		ch := text[k]
		if ch != open && ch != close {
			continue
		}
		if m.skip(k) {
			continue
		}
		if ch == close {
			depth++
			continue
		}
		if depth == 0 {
			return k, true
		}
		depth--
	}
	return 0, false
}

func (m *DefaultPairMatcher) matchAngle(text []byte, i int) (Match, bool, error) {
	if !m.Angle.Enabled {
		return Match{}, false, nil
	}
	if text[i] == '<' {
		if !genericOpenAt(text, i) {
			return Match{}, false, nil
		}
		j, ok := m.forwardAngle(text, i)
		if !ok {
			return Match{}, false, nil
		}
		return Match{Region: types.Position{Offset: i, Length: j - i + 1}, Anchor: AnchorLeft}, true, nil
	}

	if !genericCloseAt(text, i) {
		return Match{}, false, nil
	}
	j, ok := m.backwardAngle(text, i)
	if !ok {
		return Match{}, false, nil
	}
	return Match{Region: types.Position{Offset: j, Length: i - j + 1}, Anchor: AnchorRight}, true, nil
}

// forwardAngle looks for the '>' closing a generic argument list. Anything
// that cannot appear in a type expression ends the search.
func (m *DefaultPairMatcher) forwardAngle(text []byte, i int) (int, bool) {
	depth, parens := 0, 0
	limit := m.limit(i, len(text), 1)
	for k := i + 1; k < limit; k++ {
		if m.skip(k) {
			continue
		}
		ch := text[k]
		switch {
		case m.stops(text, k):
			return 0, false
		case ch == '(' || ch == '[':
			parens++
		case ch == ')' || ch == ']':
			parens--
			if parens < 0 {
				return 0, false
			}
		case ch == '<':
			if !genericOpenAt(text, k) {
				return 0, false
			}
			depth++
		case ch == '>':
			if !genericCloseAt(text, k) {
				return 0, false
			}
			if depth == 0 {
				return k, true
			}
			depth--
		}
	}
	return 0, false
}

func (m *DefaultPairMatcher) backwardAngle(text []byte, i int) (int, bool) {
	depth, parens := 0, 0
	limit := m.limit(i, len(text), -1)
	for k := i - 1; k > limit; k-- {
		if m.skip(k) {
			continue
		}
		ch := text[k]
		switch {
		case m.stops(text, k):
			return 0, false
		case ch == ')' || ch == ']':
			parens++
		case ch == '(' || ch == '[':
			parens--
			if parens < 0 {
				return 0, false
			}
		case ch == '>':
			if !genericCloseAt(text, k) {
				return 0, false
			}
			depth++
		case ch == '<':
			if !genericOpenAt(text, k) {
				return 0, false
			}
			if depth == 0 {
				return k, true
			}
			depth--
		}
	}
	return 0, false
}

// limit returns the exclusive bound of an angle search in direction dir
func (m *DefaultPairMatcher) limit(i, n, dir int) int {
	span := m.Angle.MaxSpan
	if span <= 0 {
		span = config.DefaultAngleMaxSpan
	}
	if dir > 0 {
		if i+span+1 < n {
			return i + span + 1
		}
		return n
	}
	if i-span-1 > -1 {
		return i - span - 1
	}
	return -1
}

func (m *DefaultPairMatcher) stops(text []byte, k int) bool {
	ch := text[k]
	if strings.IndexByte(m.Angle.StopChars, ch) >= 0 {
		return true
	}
	// && and || only appear in expressions
	if (ch == '&' || ch == '|') && k+1 < len(text) && text[k+1] == ch {
		return true
	}
	return false
}

// genericOpenAt reports whether the '<' at i can start a generic argument
// list: it follows an identifier and is not part of <<, <= or <-.
func genericOpenAt(text []byte, i int) bool {
	if i+1 < len(text) {
		if next := text[i+1]; next == '<' || next == '=' || next == '-' {
			return false
		}
	}
	if i > 0 && text[i-1] == '<' {
		return false
	}
	p := i - 1
	for p >= 0 && (text[p] == ' ' || text[p] == '\t') {
		p--
	}
	return p >= 0 && isIdentByte(text[p])
}

// genericCloseAt rejects the '>' of ->, =>, >= and >>=
func genericCloseAt(text []byte, i int) bool {
	if i > 0 {
		if prev := text[i-1]; prev == '-' || prev == '=' {
			return false
		}
	}
	if i+1 < len(text) && text[i+1] == '=' {
		return false
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
