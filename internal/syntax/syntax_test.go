package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNode_Text(t *testing.T) {
	src := []byte("if ( a > b ) {}")
	n := &Node{Start: 4, End: 11}
	assert.Equal(t, "a > b", n.Text(src))

	var nilNode *Node
	assert.Equal(t, "", nilNode.Text(src))
	assert.Equal(t, "", (&Node{Start: 10, End: 99}).Text(src))
	assert.Zero(t, nilNode.Len())
}

func TestWalk_Order(t *testing.T) {
	leafA := &Node{Kind: KindBreak}
	leafB := &Node{Kind: KindContinue}
	loop := (&Node{Kind: KindFor}).Append(leafA)
	root := (&Node{Kind: KindBlock}).Append(loop, leafB)

	var entered, left []Kind
	Walk(root, func(n *Node) bool {
		entered = append(entered, n.Kind)
		return true
	}, func(n *Node) {
		left = append(left, n.Kind)
	})

	assert.Equal(t, []Kind{KindBlock, KindFor, KindBreak, KindContinue}, entered)
	assert.Equal(t, []Kind{KindBreak, KindFor, KindContinue, KindBlock}, left)
}

func TestWalk_SkipChildren(t *testing.T) {
	root := (&Node{Kind: KindFunction}).Append(&Node{Kind: KindIf})
	var seen []Kind
	Walk(root, func(n *Node) bool {
		seen = append(seen, n.Kind)
		return false
	}, nil)
	assert.Equal(t, []Kind{KindFunction}, seen)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "do_while", KindDoWhile.String())
	assert.Equal(t, "unknown", Kind(200).String())
	assert.True(t, KindForeach.IsLoop())
	assert.False(t, KindSwitch.IsLoop())
	assert.True(t, DirectiveIfndef.Opens())
	assert.False(t, DirectiveElse.Opens())
	assert.Equal(t, "#elif", DirectiveElif.String())
}
