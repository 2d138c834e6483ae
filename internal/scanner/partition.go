package scanner

import (
	"sort"
	"strings"

	"github.com/standardbeagle/bracketeer/internal/types"
)

// Partitioner classifies offsets that lie in comments, strings or character
// literals. Brackets there are neither matched nor reported as lonely.
type Partitioner interface {
	Excluded(offset int) bool
}

// RangeSet is a sorted set of non-overlapping half-open ranges
type RangeSet struct {
	ranges []types.Range
}

// NewRangeSet sorts and merges ranges. Empty ranges are dropped.
func NewRangeSet(ranges []types.Range) *RangeSet {
	sorted := make([]types.Range, 0, len(ranges))
	for _, r := range ranges {
		if !r.Empty() {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := sorted[:0]
	for _, r := range sorted {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return &RangeSet{ranges: merged}
}

// Contains reports whether offset lies in any range. A nil set is empty.
func (s *RangeSet) Contains(offset int) bool {
	if s == nil || len(s.ranges) == 0 {
		return false
	}
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].End > offset })
	return i < len(s.ranges) && s.ranges[i].Start <= offset
}

// Excluded implements Partitioner
func (s *RangeSet) Excluded(offset int) bool {
	return s.Contains(offset)
}

// Ranges returns the merged ranges
func (s *RangeSet) Ranges() []types.Range {
	if s == nil {
		return nil
	}
	return s.ranges
}

// Len returns the number of merged ranges
func (s *RangeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ranges)
}

type quoteRule struct {
	quote     byte
	escapes   bool
	multiline bool
}

// LexicalSyntax describes comment and string delimiters for buffers that
// have no syntax tree.
type LexicalSyntax struct {
	LineComments  []string
	BlockComments [][2]string
	quotes        []quoteRule
}

var (
	// CLikeSyntax covers C, C++, Java, C# and friends
	CLikeSyntax = LexicalSyntax{
		LineComments:  []string{"//"},
		BlockComments: [][2]string{{"/*", "*/"}},
		quotes:        []quoteRule{{'"', true, false}, {'\'', true, false}},
	}
	// GoSyntax adds raw backtick strings
	GoSyntax = LexicalSyntax{
		LineComments:  []string{"//"},
		BlockComments: [][2]string{{"/*", "*/"}},
		quotes:        []quoteRule{{'"', true, false}, {'\'', true, false}, {'`', false, true}},
	}
	// ScriptSyntax covers JavaScript and TypeScript template literals
	ScriptSyntax = LexicalSyntax{
		LineComments:  []string{"//"},
		BlockComments: [][2]string{{"/*", "*/"}},
		quotes:        []quoteRule{{'"', true, false}, {'\'', true, false}, {'`', true, true}},
	}
	// HashSyntax covers Python, shell and similar
	HashSyntax = LexicalSyntax{
		LineComments: []string{"#"},
		quotes:       []quoteRule{{'"', true, false}, {'\'', true, false}},
	}
)

// LexicalSyntaxFor picks delimiters by file extension
func LexicalSyntaxFor(ext string) LexicalSyntax {
	switch strings.ToLower(ext) {
	case ".go":
		return GoSyntax
	case ".js", ".jsx", ".mjs", ".ts", ".tsx":
		return ScriptSyntax
	case ".py", ".sh", ".rb", ".pl", ".yaml", ".yml", ".toml":
		return HashSyntax
	default:
		return CLikeSyntax
	}
}

// LexicalPartitions finds comment and string ranges with a small lexer.
// Unterminated single-line strings stop at the end of the line.
func LexicalPartitions(content []byte, syn LexicalSyntax) *RangeSet {
	var ranges []types.Range
	n := len(content)
	i := 0

next:
	for i < n {
		for _, lc := range syn.LineComments {
			if hasPrefixAt(content, i, lc) {
				end := i
				for end < n && content[end] != '\n' {
					end++
				}
				ranges = append(ranges, types.Range{Start: i, End: end})
				i = end
				continue next
			}
		}
		for _, bc := range syn.BlockComments {
			if hasPrefixAt(content, i, bc[0]) {
				end := indexFrom(content, i+len(bc[0]), bc[1])
				if end < 0 {
					end = n
				} else {
					end += len(bc[1])
				}
				ranges = append(ranges, types.Range{Start: i, End: end})
				i = end
				continue next
			}
		}
		for _, q := range syn.quotes {
			if content[i] != q.quote {
				continue
			}
			end := i + 1
			for end < n {
				c := content[end]
				if q.escapes && c == '\\' {
					end += 2
					continue
				}
				if c == '\n' && !q.multiline {
					break
				}
				end++
				if c == q.quote {
					break
				}
			}
			if end > n {
				end = n
			}
			ranges = append(ranges, types.Range{Start: i, End: end})
			i = end
			continue next
		}
		i++
	}
	return NewRangeSet(ranges)
}

func hasPrefixAt(content []byte, i int, prefix string) bool {
	if i+len(prefix) > len(content) {
		return false
	}
	return string(content[i:i+len(prefix)]) == prefix
}

func indexFrom(content []byte, from int, sep string) int {
	if from > len(content) {
		return -1
	}
	idx := strings.Index(string(content[from:]), sep)
	if idx < 0 {
		return -1
	}
	return from + idx
}
