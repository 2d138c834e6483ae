package scanner

import "strings"

// Alphabet is a set of bracket families written as adjacent opening and
// closing characters, e.g. "(){}[]<>".
type Alphabet struct {
	chars   string
	partner [256]byte
	opening [256]bool
}

// NewAlphabet parses pairs of characters. A trailing odd character is ignored.
func NewAlphabet(pairs string) Alphabet {
	a := Alphabet{}
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		open, close := pairs[i], pairs[i+1]
		a.partner[open] = close
		a.partner[close] = open
		a.opening[open] = true
		b.WriteByte(open)
		b.WriteByte(close)
	}
	a.chars = b.String()
	return a
}

// Contains reports whether c belongs to any family
func (a *Alphabet) Contains(c byte) bool {
	return a.partner[c] != 0
}

// IsOpening reports whether c opens a family
func (a *Alphabet) IsOpening(c byte) bool {
	return a.opening[c]
}

// Partner returns the other character of c's family
func (a *Alphabet) Partner(c byte) (byte, bool) {
	p := a.partner[c]
	return p, p != 0
}

func (a *Alphabet) String() string {
	return a.chars
}
