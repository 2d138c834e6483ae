package highlight

import (
	"github.com/standardbeagle/bracketeer/internal/types"
)

// SortPairs orders pairs innermost first: descending by opening offset.
// Among pairs from one nesting chain this puts the closest enclosing pair
// at index 0. The input slice is reordered in place.
func SortPairs(pairs []types.BracketsPair) []types.BracketsPair {
	for i := 1; i < len(pairs); i++ {
		p := pairs[i]
		j := i
		for j > 0 && pairs[j-1].Opening.Position.Offset < p.Opening.Position.Offset {
			pairs[j] = pairs[j-1]
			j--
		}
		pairs[j] = p
	}
	return pairs
}

// equalPairs reports whether the brackets of pairs occupy exactly the
// positions in current, in any order
func equalPairs(pairs []types.BracketsPair, current []PaintableBracket) bool {
	if 2*len(pairs) != len(current) {
		return false
	}
	seen := positionSet(current)
	for _, p := range pairs {
		for _, b := range p.Brackets() {
			if !seen[b.Position] {
				return false
			}
		}
	}
	return true
}

func equalSingles(singles []types.SingleBracket, current []PaintableBracket) bool {
	if len(singles) != len(current) {
		return false
	}
	seen := positionSet(current)
	for _, b := range singles {
		if !seen[b.Position] {
			return false
		}
	}
	return true
}

func equalHints(a, b []PaintableHint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func positionSet(list []PaintableBracket) map[types.Position]bool {
	out := make(map[types.Position]bool, len(list))
	for _, b := range list {
		out[b.Position] = true
	}
	return out
}
