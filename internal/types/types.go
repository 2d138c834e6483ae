package types

import "fmt"

// Position is a span in a buffer snapshot. Offsets are byte offsets.
type Position struct {
	Offset int
	Length int
}

// End returns the offset one past the last byte of the position
func (p Position) End() int {
	return p.Offset + p.Length
}

// Overlaps reports whether the position intersects [offset, offset+length)
func (p Position) Overlaps(offset, length int) bool {
	return p.Offset < offset+length && offset < p.Offset+p.Length
}

// Contains reports whether offset lies inside the position
func (p Position) Contains(offset int) bool {
	return offset >= p.Offset && offset < p.End()
}

func (p Position) String() string {
	return fmt.Sprintf("%d+%d", p.Offset, p.Length)
}

// SingleBracket is one bracket glyph, matched or not.
type SingleBracket struct {
	Position Position
	Char     byte
	Opening  bool
}

// NewSingleBracket creates a bracket of length one at offset
func NewSingleBracket(offset int, ch byte, opening bool) SingleBracket {
	return SingleBracket{Position: Position{Offset: offset, Length: 1}, Char: ch, Opening: opening}
}

func (b SingleBracket) String() string {
	return fmt.Sprintf("%c@%d", b.Char, b.Position.Offset)
}

// BracketsPair is an opening bracket and the closing bracket that matches it.
// Opening always precedes Closing.
type BracketsPair struct {
	Opening SingleBracket
	Closing SingleBracket
}

// NewPair builds a pair from two bracket locations, ordering them so the
// earlier offset becomes the opening bracket.
func NewPair(openOffset int, openChar byte, closeOffset int, closeChar byte) BracketsPair {
	if closeOffset < openOffset {
		openOffset, closeOffset = closeOffset, openOffset
		openChar, closeChar = closeChar, openChar
	}
	return BracketsPair{
		Opening: NewSingleBracket(openOffset, openChar, true),
		Closing: NewSingleBracket(closeOffset, closeChar, false),
	}
}

// Validate checks the ordering and orientation invariants of the pair
func (p BracketsPair) Validate() error {
	if p.Opening.Position.Offset >= p.Closing.Position.Offset {
		return fmt.Errorf("pair %s/%s: opening does not precede closing", p.Opening, p.Closing)
	}
	if !p.Opening.Opening || p.Closing.Opening {
		return fmt.Errorf("pair %s/%s: bracket orientation is inverted", p.Opening, p.Closing)
	}
	return nil
}

// Brackets returns both brackets, opening first
func (p BracketsPair) Brackets() [2]SingleBracket {
	return [2]SingleBracket{p.Opening, p.Closing}
}

// Encloses reports whether offset falls between the opening bracket
// (inclusive) and the closing bracket (exclusive).
func (p BracketsPair) Encloses(offset int) bool {
	return p.Opening.Position.Offset <= offset && offset < p.Closing.Position.Offset
}

// OverlapsWindow reports whether either bracket intersects [offset, offset+length)
func (p BracketsPair) OverlapsWindow(offset, length int) bool {
	return p.Opening.Position.Overlaps(offset, length) || p.Closing.Position.Overlaps(offset, length)
}

func (p BracketsPair) String() string {
	return fmt.Sprintf("(%s,%s)", p.Opening, p.Closing)
}

// Range is a half-open byte range [Start, End)
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes covered
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether offset lies in [Start, End)
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Overlaps reports whether two ranges share at least one byte
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Empty reports whether the range covers nothing
func (r Range) Empty() bool {
	return r.End <= r.Start
}
