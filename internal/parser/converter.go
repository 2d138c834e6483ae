package parser

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/bracketeer/internal/syntax"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// converter walks a tree-sitter tree once and builds the syntax model,
// collecting excluded spans and preprocessor directives on the way.
type converter struct {
	kinds  *kindTable
	src    []byte
	cancel *atomic.Bool
	byID   map[uintptr]*syntax.Node

	cancelled  bool
	nodes      int
	excluded   []types.Range
	directives []syntax.Directive
}

func newConverter(kinds *kindTable, src []byte, cancel *atomic.Bool) *converter {
	return &converter{
		kinds:  kinds,
		src:    src,
		cancel: cancel,
		byID:   make(map[uintptr]*syntax.Node),
	}
}

func (c *converter) convert(ts *tree_sitter.Node) *syntax.Node {
	if ts == nil {
		return nil
	}
	if c.cancel != nil && c.cancel.Load() {
		c.cancelled = true
		return nil
	}
	c.nodes++

	kind := ts.Kind()
	start, end := int(ts.StartByte()), int(ts.EndByte())
	n := &syntax.Node{Kind: c.kinds.kinds[kind], Start: start, End: end}
	c.byID[ts.Id()] = n

	if c.kinds.excluded[kind] {
		c.excluded = append(c.excluded, types.Range{Start: start, End: end})
		return n
	}
	if c.kinds.directives {
		c.collectDirective(ts, kind, start, end)
	}

	childCount := ts.ChildCount()
	for i := uint(0); i < childCount; i++ {
		child := ts.Child(i)
		if child == nil {
			continue
		}
		// Punctuation and keywords carry nothing the extractor needs
		if !child.IsNamed() && child.ChildCount() == 0 {
			if c.kinds.directives {
				c.collectDirective(child, child.Kind(), int(child.StartByte()), int(child.EndByte()))
			}
			continue
		}
		cn := c.convert(child)
		if c.cancelled {
			return nil
		}
		n.Children = append(n.Children, cn)
	}

	c.refine(ts, n)
	return n
}

// refine reclassifies grammar-specific shapes and fills role fields
func (c *converter) refine(ts *tree_sitter.Node, n *syntax.Node) {
	switch n.Kind {
	case syntax.KindFor:
		if c.childOfKind(ts, "range_clause") != nil {
			n.Kind = syntax.KindForeach
		}
	case syntax.KindCase:
		if bytes.HasPrefix(bytes.TrimSpace(c.src[n.Start:n.End]), []byte("default")) {
			n.Kind = syntax.KindDefault
		}
	}

	switch n.Kind {
	case syntax.KindIf:
		n.Cond = c.cond(ts)
		n.Then = c.field(ts, "consequence", "body")
		n.Else = c.elseBranch(ts.ChildByFieldName("alternative"))
	case syntax.KindFor, syntax.KindForeach, syntax.KindWhile, syntax.KindDoWhile,
		syntax.KindSwitch, syntax.KindSynchronized:
		n.Cond = c.cond(ts)
		n.Body = c.field(ts, "body")
	case syntax.KindCase:
		n.Cond = c.field(ts, "value", "pattern", "type", "communication")
		if n.Cond == nil {
			if first := c.firstNamed(ts, nil); first != nil {
				n.Cond = c.role(first)
			}
		}
	case syntax.KindBreak, syntax.KindContinue:
		n.Label = c.field(ts, "label")
		if n.Label == nil && c.kinds.labels != nil {
			for i := uint(0); i < ts.NamedChildCount(); i++ {
				if ch := ts.NamedChild(i); ch != nil && c.kinds.labels[ch.Kind()] {
					n.Label = c.role(ch)
					break
				}
			}
		}
	case syntax.KindFunction:
		n.Name = c.functionName(ts)
		n.Params = c.params(ts)
		n.Body = c.field(ts, "body")
	case syntax.KindType:
		n.Name = c.field(ts, "name")
		n.Body = c.field(ts, "body")
		if n.Body == nil && c.kinds.typeBodies != nil {
			if t := ts.ChildByFieldName("type"); t != nil && c.kinds.typeBodies[t.Kind()] {
				n.Body = c.role(t)
			}
		}
		n.TypeParams = c.field(ts, "type_parameters")
	}
}

// role returns the converted node for ts, or a bare span when ts was not
// converted (punctuation, or the inside of an excluded literal)
func (c *converter) role(ts *tree_sitter.Node) *syntax.Node {
	if ts == nil {
		return nil
	}
	if n, ok := c.byID[ts.Id()]; ok {
		return n
	}
	return &syntax.Node{Start: int(ts.StartByte()), End: int(ts.EndByte())}
}

// field returns the role for the first field name present on ts
func (c *converter) field(ts *tree_sitter.Node, names ...string) *syntax.Node {
	for _, name := range names {
		if ch := ts.ChildByFieldName(name); ch != nil {
			return c.role(ch)
		}
	}
	return nil
}

func (c *converter) childOfKind(ts *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < ts.NamedChildCount(); i++ {
		if ch := ts.NamedChild(i); ch != nil && ch.Kind() == kind {
			return ch
		}
	}
	return nil
}

// firstNamed returns the first named child that is not a comment and not skip
func (c *converter) firstNamed(ts *tree_sitter.Node, skip *tree_sitter.Node) *tree_sitter.Node {
	for i := uint(0); i < ts.NamedChildCount(); i++ {
		ch := ts.NamedChild(i)
		if ch == nil || strings.Contains(ch.Kind(), "comment") {
			continue
		}
		if skip != nil && ch.Id() == skip.Id() {
			continue
		}
		return ch
	}
	return nil
}

// cond finds the controlling expression of a statement
func (c *converter) cond(ts *tree_sitter.Node) *syntax.Node {
	for _, name := range []string{"condition", "value", "right"} {
		if ch := ts.ChildByFieldName(name); ch != nil {
			return c.unwrapCond(ch)
		}
	}

	// Clauses without field names
	if fc := c.childOfKind(ts, "for_clause"); fc != nil {
		if cond := fc.ChildByFieldName("condition"); cond != nil {
			return c.unwrapCond(cond)
		}
		return nil
	}
	if rc := c.childOfKind(ts, "range_clause"); rc != nil {
		if right := rc.ChildByFieldName("right"); right != nil {
			return c.unwrapCond(right)
		}
		return nil
	}

	body := ts.ChildByFieldName("body")
	first := c.firstNamed(ts, body)
	if first == nil {
		return nil
	}
	if k := c.kinds.kinds[first.Kind()]; k == syntax.KindBlock {
		return nil
	}
	return c.unwrapCond(first)
}

// unwrapCond drops one level of parentheses and a trailing statement
// terminator so labels read "if( a )" rather than "if( (a) )"
func (c *converter) unwrapCond(ts *tree_sitter.Node) *syntax.Node {
	for {
		switch ts.Kind() {
		case "parenthesized_expression", "condition_clause":
			if ts.NamedChildCount() == 1 {
				ts = ts.NamedChild(0)
				continue
			}
			start, end := int(ts.StartByte()), int(ts.EndByte())
			if end-start >= 2 && c.src[start] == '(' && c.src[end-1] == ')' {
				return &syntax.Node{Start: start + 1, End: end - 1}
			}
		case "expression_statement":
			if ts.NamedChildCount() == 1 {
				ts = ts.NamedChild(0)
				continue
			}
		}
		return c.role(ts)
	}
}

func (c *converter) elseBranch(alt *tree_sitter.Node) *syntax.Node {
	if alt == nil {
		return nil
	}
	if c.kinds.elseWraps[alt.Kind()] {
		inner := alt.ChildByFieldName("body")
		if inner == nil {
			inner = c.firstNamed(alt, nil)
		}
		return c.role(inner)
	}
	return c.role(alt)
}

// functionName follows C declarator chains down to the declared name
func (c *converter) functionName(ts *tree_sitter.Node) *syntax.Node {
	if name := ts.ChildByFieldName("name"); name != nil {
		return c.role(name)
	}
	d := ts.ChildByFieldName("declarator")
	if d == nil {
		return nil
	}
	for {
		next := d.ChildByFieldName("declarator")
		if next == nil {
			break
		}
		d = next
	}
	if !identifierKinds[d.Kind()] {
		return nil
	}
	return c.role(d)
}

func (c *converter) params(ts *tree_sitter.Node) []*syntax.Node {
	list := ts.ChildByFieldName("parameters")
	for d := ts.ChildByFieldName("declarator"); list == nil && d != nil; d = d.ChildByFieldName("declarator") {
		list = d.ChildByFieldName("parameters")
	}
	if list == nil {
		return nil
	}
	// A single bare parameter, as in x => x + 1
	if identifierKinds[list.Kind()] {
		return []*syntax.Node{c.role(list)}
	}

	var names []*syntax.Node
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		if p == nil || strings.Contains(p.Kind(), "comment") {
			continue
		}
		names = append(names, c.paramNames(p, 0)...)
	}
	return names
}

func (c *converter) paramNames(p *tree_sitter.Node, depth int) []*syntax.Node {
	if identifierKinds[p.Kind()] {
		return []*syntax.Node{c.role(p)}
	}
	if depth > 4 {
		return nil
	}

	if c.kinds.multiNameParams {
		var names []*syntax.Node
		for i := uint(0); i < p.NamedChildCount(); i++ {
			if ch := p.NamedChild(i); ch != nil && ch.Kind() == "identifier" {
				names = append(names, c.role(ch))
			}
		}
		if len(names) > 0 {
			return names
		}
	}

	for _, name := range []string{"name", "pattern", "left", "declarator"} {
		if ch := p.ChildByFieldName(name); ch != nil {
			return c.paramNames(ch, depth+1)
		}
	}
	for i := uint(0); i < p.NamedChildCount(); i++ {
		if ch := p.NamedChild(i); ch != nil && identifierKinds[ch.Kind()] {
			return []*syntax.Node{c.role(ch)}
		}
	}
	// self, variadic markers and other leaf parameters
	if p.NamedChildCount() == 0 {
		return []*syntax.Node{c.role(p)}
	}
	return nil
}

// collectDirective records C preprocessor conditionals. kind is the node
// kind of ts; the #endif keyword arrives as an anonymous token.
func (c *converter) collectDirective(ts *tree_sitter.Node, kind string, start, end int) {
	switch kind {
	case "preproc_if":
		c.addDirective(syntax.DirectiveIf, ts, ts.ChildByFieldName("condition"), "")
	case "preproc_ifdef":
		dk := syntax.DirectiveIfdef
		if first := ts.Child(0); first != nil && first.Kind() == "#ifndef" {
			dk = syntax.DirectiveIfndef
		}
		c.addDirective(dk, ts, ts.ChildByFieldName("name"), "")
	case "preproc_elif":
		c.addDirective(syntax.DirectiveElif, ts, ts.ChildByFieldName("condition"), "")
	case "preproc_elifdef":
		name := ts.ChildByFieldName("name")
		if name == nil {
			return
		}
		format := "defined(%s)"
		if first := ts.Child(0); first != nil && first.Kind() == "#elifndef" {
			format = "!defined(%s)"
		}
		c.addDirective(syntax.DirectiveElif, ts, name, fmt.Sprintf(format, c.text(name)))
	case "preproc_else":
		c.addDirective(syntax.DirectiveElse, ts, nil, "")
	case "#endif":
		c.directives = append(c.directives, syntax.Directive{Kind: syntax.DirectiveEndif, Start: start, End: end})
	}
}

func (c *converter) addDirective(kind syntax.DirectiveKind, ts, cond *tree_sitter.Node, condText string) {
	d := syntax.Directive{Kind: kind, Start: int(ts.StartByte())}
	switch {
	case cond != nil:
		d.End = int(cond.EndByte())
		if condText == "" {
			condText = c.text(cond)
		}
	default:
		d.End = d.Start
		if kw := ts.Child(0); kw != nil {
			d.End = int(kw.EndByte())
		}
	}
	d.Cond = condText
	c.directives = append(c.directives, d)
}

func (c *converter) text(ts *tree_sitter.Node) string {
	start, end := int(ts.StartByte()), int(ts.EndByte())
	if start < 0 || end > len(c.src) || start > end {
		return ""
	}
	return strings.TrimSpace(string(c.src[start:end]))
}
