// Package syntax is the language-neutral tree the hint extractor walks.
// Parsers classify their nodes into the few categories hints care about and
// expose role children (condition, branches, body, name) by pointer.
package syntax

import (
	"strings"

	"github.com/standardbeagle/bracketeer/internal/types"
)

// Kind classifies a node for scope-hint extraction
type Kind uint8

const (
	KindOther Kind = iota
	KindBlock
	KindIf
	KindFor
	KindForeach
	KindWhile
	KindDoWhile
	KindSwitch
	KindCase
	KindDefault
	KindBreak
	KindContinue
	KindFunction
	KindType
	KindSynchronized
	KindTypeArguments
)

var kindNames = [...]string{
	KindOther:         "other",
	KindBlock:         "block",
	KindIf:            "if",
	KindFor:           "for",
	KindForeach:       "foreach",
	KindWhile:         "while",
	KindDoWhile:       "do_while",
	KindSwitch:        "switch",
	KindCase:          "case",
	KindDefault:       "default",
	KindBreak:         "break",
	KindContinue:      "continue",
	KindFunction:      "function",
	KindType:          "type",
	KindSynchronized:  "synchronized",
	KindTypeArguments: "type_arguments",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsLoop reports whether nodes of this kind open a breakable loop scope
func (k Kind) IsLoop() bool {
	switch k {
	case KindFor, KindForeach, KindWhile, KindDoWhile:
		return true
	}
	return false
}

// Node is one element of the syntax tree. Start and End are byte offsets,
// End exclusive. Role fields point into Children; traversal only follows
// Children so every node is visited once.
type Node struct {
	Kind  Kind
	Start int
	End   int

	Cond       *Node
	Then       *Node
	Else       *Node
	Body       *Node
	Name       *Node
	Params     []*Node
	TypeParams *Node
	Label      *Node

	Children []*Node
}

// Len returns the byte length of the node
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return n.End - n.Start
}

// Is reports whether n is non-nil and of kind k
func (n *Node) Is(k Kind) bool {
	return n != nil && n.Kind == k
}

// Text returns the node's source with surrounding whitespace trimmed.
// A nil node or a span outside src yields "".
func (n *Node) Text(src []byte) string {
	if n == nil || n.Start < 0 || n.End > len(src) || n.Start > n.End {
		return ""
	}
	return strings.TrimSpace(string(src[n.Start:n.End]))
}

// Append adds children in order and returns n
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Walk visits n and its descendants depth first. enter returning false
// skips the node's children; leave runs after the children either way.
func Walk(n *Node, enter func(*Node) bool, leave func(*Node)) {
	if n == nil {
		return
	}
	if enter(n) {
		for _, c := range n.Children {
			Walk(c, enter, leave)
		}
	}
	if leave != nil {
		leave(n)
	}
}

// DirectiveKind is the kind of a conditional preprocessor directive
type DirectiveKind uint8

const (
	DirectiveIf DirectiveKind = iota
	DirectiveIfdef
	DirectiveIfndef
	DirectiveElif
	DirectiveElse
	DirectiveEndif
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveIf:
		return "#if"
	case DirectiveIfdef:
		return "#ifdef"
	case DirectiveIfndef:
		return "#ifndef"
	case DirectiveElif:
		return "#elif"
	case DirectiveElse:
		return "#else"
	case DirectiveEndif:
		return "#endif"
	default:
		return "#?"
	}
}

// Opens reports whether the directive starts a new conditional group
func (k DirectiveKind) Opens() bool {
	return k == DirectiveIf || k == DirectiveIfdef || k == DirectiveIfndef
}

// Directive is one conditional preprocessor line. Start..End covers the
// directive text up to the end of its condition, End exclusive.
type Directive struct {
	Kind  DirectiveKind
	Start int
	End   int
	Cond  string
}

// Tree is a parsed snapshot
type Tree struct {
	Root     *Node
	Language string
	// Excluded holds comment, string and character literal spans
	Excluded []types.Range
	// Directives lists conditional preprocessor directives in source order
	Directives []Directive
}
