// Package hints derives scope labels from a syntax tree. The extractor keeps a
// stack of open labeled scopes so break and continue statements can be tied
// back to the loop or case they leave.
package hints

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/document"
	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/syntax"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// Sink receives hints and the synthetic pairs found for generic parameter lists
type Sink interface {
	AddHint(types.Hint)
	AddPair(types.BracketsPair)
}

// ScopeInfo is one open labeled scope
type ScopeInfo struct {
	Label  string
	Anchor int
	Node   *syntax.Node
}

// Extractor walks one syntax tree and emits hints into a sink
type Extractor struct {
	buf    document.Buffer
	sink   Sink
	cancel *atomic.Bool

	stack []ScopeInfo
	// outer holds the stacks of enclosing functions while a nested one is walked
	outer [][]ScopeInfo

	diagnostics []error
	err         error
	hints       int
}

// NewExtractor creates an extractor. cancel may be nil.
func NewExtractor(buf document.Buffer, sink Sink, cancel *atomic.Bool) *Extractor {
	return &Extractor{buf: buf, sink: sink, cancel: cancel}
}

// Walk visits the tree depth first. It returns ErrCancelled when the cancel
// flag is observed, and a LocationError (after setting the flag) when a
// position lookup fails. Scope desynchronization never aborts the walk; see
// Diagnostics.
func (e *Extractor) Walk(root *syntax.Node) error {
	if root == nil {
		return bterrors.ErrNoTree
	}
	e.visit(root)
	debug.LogHints("walk done: %d hints, depth %d, %d diagnostics\n", e.hints, len(e.stack), len(e.diagnostics))
	return e.err
}

// Depth returns the number of open scopes
func (e *Extractor) Depth() int {
	return len(e.stack)
}

// Diagnostics returns the recoverable scope errors seen so far
func (e *Extractor) Diagnostics() []error {
	return e.diagnostics
}

func (e *Extractor) visit(n *syntax.Node) {
	if e.stopped() {
		return
	}

	descend, err := e.enter(n)
	e.record(err)
	if e.err != nil {
		return
	}
	if descend {
		for _, c := range n.Children {
			e.visit(c)
			if e.err != nil {
				return
			}
		}
	}
	e.record(e.leave(n))
}

func (e *Extractor) stopped() bool {
	if e.err == nil && e.cancel != nil && e.cancel.Load() {
		e.err = bterrors.ErrCancelled
	}
	return e.err != nil
}

// record sorts a visit result into a diagnostic or a walk-ending error
func (e *Extractor) record(err error) {
	if err == nil {
		return
	}
	var ste *bterrors.ScopeTraceError
	if errors.As(err, &ste) && ste.IsRecoverable() {
		debug.LogHints("%v\n", err)
		e.diagnostics = append(e.diagnostics, err)
		return
	}
	var le *bterrors.LocationError
	if errors.As(err, &le) && e.cancel != nil {
		e.cancel.Store(true)
	}
	e.err = err
}

func (e *Extractor) enter(n *syntax.Node) (bool, error) {
	switch n.Kind {
	case syntax.KindIf:
		return true, e.visitIf(n)
	case syntax.KindFor, syntax.KindForeach, syntax.KindWhile, syntax.KindDoWhile:
		return true, e.visitLoop(n)
	case syntax.KindSwitch:
		return true, e.visitSwitch(n)
	case syntax.KindCase, syntax.KindDefault:
		return true, e.visitCase(n)
	case syntax.KindBreak, syntax.KindContinue:
		return true, e.visitBreak(n)
	case syntax.KindFunction:
		return true, e.visitFunction(n)
	case syntax.KindType:
		return true, e.visitType(n)
	case syntax.KindSynchronized:
		return true, e.visitSynchronized(n)
	case syntax.KindTypeArguments:
		return true, e.addAngles(n)
	}
	return true, nil
}

func (e *Extractor) leave(n *syntax.Node) error {
	switch n.Kind {
	case syntax.KindFor, syntax.KindForeach, syntax.KindWhile, syntax.KindDoWhile:
		return e.pop(n)
	case syntax.KindSwitch:
		if top, ok := e.peek(); ok && (top.Node.Is(syntax.KindCase) || top.Node.Is(syntax.KindDefault)) {
			e.stack = e.stack[:len(e.stack)-1]
		}
		return e.pop(n)
	case syntax.KindFunction:
		var err error
		if len(e.stack) != 0 {
			err = bterrors.NewScopeTraceError("function", n.Start,
				fmt.Sprintf("%d scopes left open at function end", len(e.stack)))
		}
		last := len(e.outer) - 1
		e.stack = e.outer[last]
		e.outer = e.outer[:last]
		return err
	}
	return nil
}

func (e *Extractor) visitIf(n *syntax.Node) error {
	then, els := n.Then, n.Else
	if then == nil {
		return nil
	}
	cond := e.text(n.Cond)

	showIf := els == nil
	end := -1
	if !showIf {
		elseLine, err := e.line(els.Start)
		if err != nil {
			return err
		}
		thenLine, err := e.line(then.End)
		if err != nil {
			return err
		}
		if elseLine != thenLine {
			showIf = true
		}
		// "} else {" on one line: show the hint on the else's opening
		if !showIf && !els.Is(syntax.KindIf) {
			end = els.Start
			showIf = true
		}
	}
	if showIf && !then.Is(syntax.KindBlock) {
		showIf = false
	}

	if showIf {
		if end == -1 {
			end = then.End - 1
		}
		if err := e.emit(types.HintIf, n.Start, end, "if( "+cond+" )"); err != nil {
			return err
		}
	}

	if els.Is(syntax.KindBlock) {
		return e.emit(types.HintIf, els.Start, els.End-1, "else_of_if( "+cond+" )")
	}
	return nil
}

var loopHints = map[syntax.Kind]types.HintKind{
	syntax.KindFor:     types.HintFor,
	syntax.KindForeach: types.HintForeach,
	syntax.KindWhile:   types.HintWhile,
}

func (e *Extractor) visitLoop(n *syntax.Node) error {
	label := n.Kind.String() + "( " + e.text(n.Cond) + " )"
	e.push(label, n.Start, n)

	// do-while bodies only surface through the breaks inside them
	kind, ok := loopHints[n.Kind]
	if !ok || !n.Body.Is(syntax.KindBlock) {
		return nil
	}
	return e.emit(kind, n.Start, n.Body.End-1, label)
}

func (e *Extractor) visitSwitch(n *syntax.Node) error {
	label := "switch( " + e.text(n.Cond) + " )"
	e.push(label, n.Start, n)

	end := n.End - 1
	if n.Body != nil {
		end = n.Body.End - 1
	}
	return e.emit(types.HintSwitch, n.Start, end, label)
}

func (e *Extractor) visitCase(n *syntax.Node) error {
	top, ok := e.peek()
	if !ok {
		return bterrors.NewScopeTraceError("case", n.Start, "case label with an empty scope stack")
	}
	if !top.Node.Is(syntax.KindSwitch) {
		if !top.Node.Is(syntax.KindCase) && !top.Node.Is(syntax.KindDefault) {
			return bterrors.NewScopeTraceError("case", n.Start, "case label inside "+top.Node.Kind.String())
		}
		e.stack = e.stack[:len(e.stack)-1]
		top, ok = e.peek()
		if !ok || !top.Node.Is(syntax.KindSwitch) {
			return bterrors.NewScopeTraceError("case", n.Start, "case label without an enclosing switch")
		}
	}

	suffix := " - default"
	if n.Kind == syntax.KindCase {
		suffix = " - case: " + e.text(n.Cond)
	}
	e.push(top.Label+suffix, n.Start, n)
	return nil
}

var breakHints = map[syntax.Kind]types.HintKind{
	syntax.KindFor:     types.HintBreakFor,
	syntax.KindForeach: types.HintBreakForeach,
	syntax.KindWhile:   types.HintBreakWhile,
	syntax.KindDoWhile: types.HintBreakDo,
	syntax.KindCase:    types.HintBreakCase,
	syntax.KindDefault: types.HintBreakCase,
}

func (e *Extractor) visitBreak(n *syntax.Node) error {
	top, ok := e.peek()
	if !ok {
		return bterrors.NewScopeTraceError(n.Kind.String(), n.Start, "no enclosing scope")
	}
	// Labeled jumps target an outer scope and are left unresolved
	if n.Label != nil {
		return nil
	}
	kind, ok := breakHints[top.Node.Kind]
	if !ok {
		return bterrors.NewScopeTraceError(n.Kind.String(), n.Start,
			"unexpected enclosing scope "+top.Node.Kind.String())
	}
	return e.emit(kind, top.Anchor, n.End-1, top.Label)
}

func (e *Extractor) visitFunction(n *syntax.Node) error {
	// A function starts a fresh scope universe; the enclosing one comes back on leave
	e.outer = append(e.outer, e.stack)
	e.stack = nil

	if n.Name == nil || n.Body == nil {
		return nil
	}
	params := make([]string, 0, len(n.Params))
	for _, p := range n.Params {
		params = append(params, e.text(p))
	}
	label := e.text(n.Name) + "( " + strings.Join(params, ", ") + " )"
	return e.emit(types.HintFunction, n.Name.Start, n.Body.End-1, label)
}

func (e *Extractor) visitType(n *syntax.Node) error {
	if n.Name == nil || n.Body == nil {
		return nil
	}
	if err := e.emit(types.HintType, n.Name.Start, n.End-1, e.text(n.Name)); err != nil {
		return err
	}
	return e.addAngles(n.TypeParams)
}

func (e *Extractor) visitSynchronized(n *syntax.Node) error {
	end := n.End - 1
	if n.Body != nil {
		end = n.Body.End - 1
	}
	return e.emit(types.HintSynchronized, n.Start, end, "synchronized( "+e.text(n.Cond)+" )")
}

// addAngles emits the pair delimiting a generic parameter or argument list.
// Lists delimited by anything other than angle brackets are left to the scanner.
func (e *Extractor) addAngles(n *syntax.Node) error {
	if n == nil || n.Len() < 2 {
		return nil
	}
	opening, err := e.charAt(n.Start)
	if err != nil {
		return err
	}
	closing, err := e.charAt(n.End - 1)
	if err != nil {
		return err
	}
	if opening != '<' || closing != '>' {
		return nil
	}
	e.sink.AddPair(types.NewPair(n.Start, opening, n.End-1, closing))
	return nil
}

func (e *Extractor) push(label string, anchor int, n *syntax.Node) {
	e.stack = append(e.stack, ScopeInfo{Label: label, Anchor: anchor, Node: n})
}

func (e *Extractor) peek() (ScopeInfo, bool) {
	if len(e.stack) == 0 {
		return ScopeInfo{}, false
	}
	return e.stack[len(e.stack)-1], true
}

// pop removes the innermost scope, which should belong to n
func (e *Extractor) pop(n *syntax.Node) error {
	top, ok := e.peek()
	if !ok {
		return bterrors.NewScopeTraceError("leave", n.Start, "empty scope stack leaving "+n.Kind.String())
	}
	e.stack = e.stack[:len(e.stack)-1]
	if top.Node.Kind != n.Kind {
		return bterrors.NewScopeTraceError("leave", n.Start,
			fmt.Sprintf("lost track of scope, expected %s but was %s", top.Node.Kind, n.Kind))
	}
	return nil
}

func (e *Extractor) emit(kind types.HintKind, start, end int, label string) error {
	if start < 0 || end < start || end >= e.buf.Len() {
		return bterrors.NewLocationError("hint", end, errSpan(start, end, e.buf.Len()))
	}
	e.sink.AddHint(types.Hint{Kind: kind, Start: start, End: end, Label: label})
	e.hints++
	return nil
}

// text returns the trimmed source of n, or "" when it cannot be read
func (e *Extractor) text(n *syntax.Node) string {
	if n == nil {
		return ""
	}
	s, err := e.buf.Text(n.Start, n.Len())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (e *Extractor) line(offset int) (int, error) {
	line, err := e.buf.LineOfOffset(offset)
	if err != nil {
		return 0, asLocationError("lineOfOffset", offset, err)
	}
	return line, nil
}

func (e *Extractor) charAt(offset int) (byte, error) {
	c, err := e.buf.CharAt(offset)
	if err != nil {
		return 0, asLocationError("charAt", offset, err)
	}
	return c, nil
}

func errSpan(start, end, size int) error {
	return fmt.Errorf("span %d..%d outside buffer of %d bytes", start, end, size)
}

func asLocationError(op string, offset int, err error) error {
	var le *bterrors.LocationError
	if errors.As(err, &le) {
		return err
	}
	return bterrors.NewLocationError(op, offset, err)
}
