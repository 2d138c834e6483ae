package hints

import (
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/document"
	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/syntax"
	"github.com/standardbeagle/bracketeer/internal/types"
)

var eolBackslash = regexp.MustCompile(`\\(\s*[\r\n])`)

// stripEOLBackslash removes line-continuation backslashes from a condition
func stripEOLBackslash(s string) string {
	return eolBackslash.ReplaceAllString(s, "$1")
}

type condInfo struct {
	label string
	start int
}

// PreprocessorVisitor emits preprocess hints for conditional directive
// groups. It keeps its own stack, independent of the tree walk.
type PreprocessorVisitor struct {
	buf   document.Buffer
	sink  Sink
	stack []condInfo
}

// NewPreprocessorVisitor creates a visitor writing into sink
func NewPreprocessorVisitor(buf document.Buffer, sink Sink) *PreprocessorVisitor {
	return &PreprocessorVisitor{buf: buf, sink: sink}
}

// Visit processes directives in source order. #elif, #else and #endif close
// the group opened before them; #elif and #else open the next one. A closing
// directive with nothing open is ignored.
func (v *PreprocessorVisitor) Visit(directives []syntax.Directive, cancel *atomic.Bool) error {
	for _, d := range directives {
		if cancel != nil && cancel.Load() {
			return bterrors.ErrCancelled
		}

		switch d.Kind {
		case syntax.DirectiveIf:
			v.push("if( "+stripEOLBackslash(d.Cond)+" )", d.Start)
		case syntax.DirectiveIfdef:
			v.push("if_defined( "+stripEOLBackslash(d.Cond)+" )", d.Start)
		case syntax.DirectiveIfndef:
			v.push("if_not_defined( "+stripEOLBackslash(d.Cond)+" )", d.Start)
		case syntax.DirectiveElif:
			if _, err := v.closeGroup(d); err != nil {
				return fail(err, cancel)
			}
			v.push("if( "+stripEOLBackslash(d.Cond)+" )", d.Start)
		case syntax.DirectiveElse:
			prev, err := v.closeGroup(d)
			if err != nil {
				return fail(err, cancel)
			}
			v.push("else_of_"+prev, d.Start)
		case syntax.DirectiveEndif:
			if _, err := v.closeGroup(d); err != nil {
				return fail(err, cancel)
			}
		}
	}
	debug.LogHints("preprocessor: %d directives, %d groups left open\n", len(directives), len(v.stack))
	return nil
}

// fail sets the cancel flag for a positional failure and returns err
func fail(err error, cancel *atomic.Bool) error {
	if cancel != nil {
		cancel.Store(true)
	}
	return err
}

// Depth returns the number of open directive groups
func (v *PreprocessorVisitor) Depth() int {
	return len(v.stack)
}

func (v *PreprocessorVisitor) push(label string, start int) {
	v.stack = append(v.stack, condInfo{label: strings.TrimSpace(label), start: start})
}

// closeGroup pops the open group and emits its hint, returning its label
func (v *PreprocessorVisitor) closeGroup(d syntax.Directive) (string, error) {
	if len(v.stack) == 0 {
		return "", nil
	}
	cond := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]

	end := d.End - 1
	if cond.start < 0 || end < cond.start || end >= v.buf.Len() {
		return "", bterrors.NewLocationError("preprocess hint", end, errSpan(cond.start, end, v.buf.Len()))
	}
	v.sink.AddHint(types.Hint{Kind: types.HintPreprocess, Start: cond.start, End: end, Label: cond.label})
	return cond.label, nil
}
