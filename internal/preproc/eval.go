// Package preproc decides which conditional preprocessor groups are compiled
// out and reports them as inactive regions.
package preproc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr/ast"
	expr_parser "github.com/expr-lang/expr/parser"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/syntax"
)

// Result is the tri-state outcome of a directive condition
type Result uint8

const (
	// Unknown conditions are treated as taken
	Unknown Result = iota
	Taken
	NotTaken
)

func (r Result) String() string {
	switch r {
	case Taken:
		return "taken"
	case NotTaken:
		return "not-taken"
	}
	return "unknown"
}

// maxMacroDepth bounds macro value expansion
const maxMacroDepth = 8

var (
	definedBare  = regexp.MustCompile(`\bdefined\s+([A-Za-z_]\w*)`)
	intLiteral   = regexp.MustCompile(`\b(0[xX][0-9a-fA-F]+|[0-9]+)[uUlL]*\b`)
	lineComment  = regexp.MustCompile(`//.*$`)
	blockComment = regexp.MustCompile(`/\*.*?\*/`)
	continued    = regexp.MustCompile(`\\\s*\r?\n`)
)

// Evaluator evaluates #if conditions against the configured macro set.
// Macros that are neither defined nor undefined make a condition Unknown
// unless the outcome does not depend on them.
type Evaluator struct {
	defines   map[string]string
	undefines map[string]bool
}

// NewEvaluator creates an evaluator for the given preprocessor settings
func NewEvaluator(cfg config.Preprocessor) *Evaluator {
	e := &Evaluator{
		defines:   make(map[string]string, len(cfg.Defines)),
		undefines: make(map[string]bool, len(cfg.Undefines)),
	}
	for k, v := range cfg.Defines {
		e.defines[k] = v
	}
	for _, name := range cfg.Undefines {
		e.undefines[name] = true
	}
	return e
}

// Directive evaluates an opening or #elif directive. #else is always Taken.
func (e *Evaluator) Directive(d syntax.Directive) Result {
	switch d.Kind {
	case syntax.DirectiveIfdef:
		return e.Eval("defined(" + strings.TrimSpace(d.Cond) + ")")
	case syntax.DirectiveIfndef:
		return e.Eval("!defined(" + strings.TrimSpace(d.Cond) + ")")
	case syntax.DirectiveIf, syntax.DirectiveElif:
		return e.Eval(d.Cond)
	case syntax.DirectiveElse:
		return Taken
	}
	return Unknown
}

// Eval evaluates a condition expression
func (e *Evaluator) Eval(cond string) Result {
	v := e.evalText(cond, 0)
	if !v.known {
		return Unknown
	}
	if v.n != 0 {
		return Taken
	}
	return NotTaken
}

// value is an integer that may be unknown
type value struct {
	n     int64
	known bool
}

var unknown = value{}

func known(n int64) value {
	return value{n: n, known: true}
}

func truth(b bool) value {
	if b {
		return known(1)
	}
	return known(0)
}

func (e *Evaluator) evalText(cond string, depth int) value {
	src := normalize(cond)
	if src == "" {
		return unknown
	}
	tree, err := expr_parser.Parse(src)
	if err != nil {
		debug.Log("PREPROC", "unsupported condition %q: %v\n", cond, err)
		return unknown
	}
	return e.eval(tree.Node, depth)
}

// normalize rewrites C condition syntax into something the expression
// parser accepts: comments and continuations removed, "defined X" given
// parentheses and integer literals converted to plain decimal.
func normalize(cond string) string {
	s := continued.ReplaceAllString(cond, " ")
	s = blockComment.ReplaceAllString(s, " ")
	s = lineComment.ReplaceAllString(s, "")
	s = definedBare.ReplaceAllString(s, "defined($1)")
	s = intLiteral.ReplaceAllStringFunc(s, func(lit string) string {
		digits := strings.TrimRight(lit, "uUlL")
		n, err := strconv.ParseUint(digits, 0, 64)
		if err != nil {
			return digits
		}
		return strconv.FormatUint(n, 10)
	})
	return strings.TrimSpace(s)
}

func (e *Evaluator) eval(node ast.Node, depth int) value {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return known(int64(n.Value))
	case *ast.BoolNode:
		return truth(n.Value)
	case *ast.StringNode:
		// character literal
		if len(n.Value) == 1 {
			return known(int64(n.Value[0]))
		}
		return unknown
	case *ast.IdentifierNode:
		return e.macro(n.Value, depth)
	case *ast.CallNode:
		return e.call(n)
	case *ast.UnaryNode:
		v := e.eval(n.Node, depth)
		if !v.known {
			return unknown
		}
		switch n.Operator {
		case "!", "not":
			return truth(v.n == 0)
		case "-":
			return known(-v.n)
		case "+":
			return v
		}
		return unknown
	case *ast.BinaryNode:
		return e.binary(n, depth)
	case *ast.ConditionalNode:
		c := e.eval(n.Cond, depth)
		if c.known {
			if c.n != 0 {
				return e.eval(n.Exp1, depth)
			}
			return e.eval(n.Exp2, depth)
		}
		a, b := e.eval(n.Exp1, depth), e.eval(n.Exp2, depth)
		if a.known && b.known && a.n == b.n {
			return a
		}
		return unknown
	}
	return unknown
}

// macro resolves an identifier. An explicitly undefined macro is 0, as the
// C preprocessor does for every unknown identifier.
func (e *Evaluator) macro(name string, depth int) value {
	if e.undefines[name] {
		return known(0)
	}
	val, ok := e.defines[name]
	if !ok {
		return unknown
	}
	if strings.TrimSpace(val) == "" {
		return known(1)
	}
	if depth >= maxMacroDepth {
		return unknown
	}
	return e.evalText(val, depth+1)
}

func (e *Evaluator) call(n *ast.CallNode) value {
	callee, ok := n.Callee.(*ast.IdentifierNode)
	if !ok || callee.Value != "defined" || len(n.Arguments) != 1 {
		return unknown
	}
	arg, ok := n.Arguments[0].(*ast.IdentifierNode)
	if !ok {
		return unknown
	}
	if _, ok := e.defines[arg.Value]; ok {
		return known(1)
	}
	if e.undefines[arg.Value] {
		return known(0)
	}
	return unknown
}

func (e *Evaluator) binary(n *ast.BinaryNode, depth int) value {
	l := e.eval(n.Left, depth)

	switch n.Operator {
	case "&&", "and":
		if l.known && l.n == 0 {
			return known(0)
		}
		r := e.eval(n.Right, depth)
		if r.known && r.n == 0 {
			return known(0)
		}
		if l.known && r.known {
			return known(1)
		}
		return unknown
	case "||", "or":
		if l.known && l.n != 0 {
			return known(1)
		}
		r := e.eval(n.Right, depth)
		if r.known && r.n != 0 {
			return known(1)
		}
		if l.known && r.known {
			return known(0)
		}
		return unknown
	}

	r := e.eval(n.Right, depth)
	if !l.known || !r.known {
		return unknown
	}
	switch n.Operator {
	case "==":
		return truth(l.n == r.n)
	case "!=":
		return truth(l.n != r.n)
	case "<":
		return truth(l.n < r.n)
	case "<=":
		return truth(l.n <= r.n)
	case ">":
		return truth(l.n > r.n)
	case ">=":
		return truth(l.n >= r.n)
	case "+":
		return known(l.n + r.n)
	case "-":
		return known(l.n - r.n)
	case "*":
		return known(l.n * r.n)
	case "/":
		if r.n == 0 {
			return unknown
		}
		return known(l.n / r.n)
	case "%":
		if r.n == 0 {
			return unknown
		}
		return known(l.n % r.n)
	}
	// "^" and "**" mean power to the expression parser, not xor
	return unknown
}
