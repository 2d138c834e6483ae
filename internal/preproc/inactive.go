package preproc

import (
	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/syntax"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// group is one open #if ... #endif nesting level
type group struct {
	// outerInactive is set when the whole group sits in compiled-out code
	outerInactive bool
	// taken is set once a branch of the group is known to be active
	taken bool
}

// InactiveRegions returns the compiled-out ranges for directives in source
// order. A region starts at the line of the directive opening it. It ends
// before the line of a branch that becomes active, or after the #endif
// closing it. A group left open runs to the end of the buffer.
func InactiveRegions(buf document.Buffer, directives []syntax.Directive, eval *Evaluator) []types.Range {
	var (
		regions  []types.Range
		stack    []*group
		inactive bool
		start    int
	)

	begin := func(offset int) {
		inactive = true
		start = lineStart(buf, offset)
	}
	end := func(offset int) {
		inactive = false
		if offset > start {
			regions = append(regions, types.Range{Start: start, End: offset})
		}
	}

	for _, d := range directives {
		switch d.Kind {
		case syntax.DirectiveIf, syntax.DirectiveIfdef, syntax.DirectiveIfndef:
			g := &group{outerInactive: inactive}
			stack = append(stack, g)
			if inactive {
				continue
			}
			switch eval.Directive(d) {
			case NotTaken:
				begin(d.Start)
			case Taken:
				g.taken = true
			}

		case syntax.DirectiveElif, syntax.DirectiveElse:
			if len(stack) == 0 {
				continue
			}
			g := stack[len(stack)-1]
			if g.outerInactive {
				continue
			}
			if g.taken {
				if !inactive {
					begin(d.Start)
				}
				continue
			}
			r := eval.Directive(d)
			if r == NotTaken {
				if !inactive {
					begin(d.Start)
				}
				continue
			}
			g.taken = r == Taken
			if inactive {
				end(lineStart(buf, d.Start))
			}

		case syntax.DirectiveEndif:
			if len(stack) == 0 {
				continue
			}
			g := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !g.outerInactive && inactive {
				end(min(d.End, buf.Len()))
			}
		}
	}

	if inactive {
		end(buf.Len())
	}
	debug.Log("PREPROC", "%d directives, %d inactive regions\n", len(directives), len(regions))
	return regions
}

// lineStart aligns offset to the start of its line
func lineStart(buf document.Buffer, offset int) int {
	line, err := buf.LineOfOffset(offset)
	if err != nil {
		return offset
	}
	start, err := buf.LineOffset(line)
	if err != nil {
		return offset
	}
	return start
}
