package parser

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/syntax"
)

func parse(t *testing.T, path, src string) *syntax.Tree {
	t.Helper()
	tree, err := GetSharedParser().Parse(context.Background(), path, []byte(src), nil)
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree
}

func nodesOfKind(tree *syntax.Tree, kind syntax.Kind) []*syntax.Node {
	var out []*syntax.Node
	syntax.Walk(tree.Root, func(n *syntax.Node) bool {
		if n.Kind == kind {
			out = append(out, n)
		}
		return true
	}, nil)
	return out
}

func texts(src string, nodes []*syntax.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Text([]byte(src)))
	}
	return out
}

func TestParse_JavaRoles(t *testing.T) {
	src := `class Box<T> {
  void fill(int a, String b) {
    for (int i = 0; i < n; i++) {
      if (x) { break; }
    }
    synchronized (lock) { }
  }
}`
	tree := parse(t, "Box.java", src)
	assert.Equal(t, "java", tree.Language)

	typ := nodesOfKind(tree, syntax.KindType)
	require.Len(t, typ, 1)
	assert.Equal(t, "Box", typ[0].Name.Text([]byte(src)))
	assert.Equal(t, "<T>", typ[0].TypeParams.Text([]byte(src)))
	require.NotNil(t, typ[0].Body)

	fn := nodesOfKind(tree, syntax.KindFunction)
	require.Len(t, fn, 1)
	assert.Equal(t, "fill", fn[0].Name.Text([]byte(src)))
	assert.Equal(t, []string{"a", "b"}, texts(src, fn[0].Params))
	assert.True(t, fn[0].Body.Is(syntax.KindBlock))

	loop := nodesOfKind(tree, syntax.KindFor)
	require.Len(t, loop, 1)
	assert.Equal(t, "i < n", loop[0].Cond.Text([]byte(src)))
	assert.True(t, loop[0].Body.Is(syntax.KindBlock))

	ifs := nodesOfKind(tree, syntax.KindIf)
	require.Len(t, ifs, 1)
	assert.Equal(t, "x", ifs[0].Cond.Text([]byte(src)))
	assert.True(t, ifs[0].Then.Is(syntax.KindBlock))
	assert.Nil(t, ifs[0].Else)

	assert.Len(t, nodesOfKind(tree, syntax.KindBreak), 1)

	locks := nodesOfKind(tree, syntax.KindSynchronized)
	require.Len(t, locks, 1)
	assert.Equal(t, "lock", locks[0].Cond.Text([]byte(src)))
}

func TestParse_JavaSwitchLabels(t *testing.T) {
	src := `class S { void f(int v) { switch (v) { case 1: break; default: break; } } }`
	tree := parse(t, "S.java", src)

	sw := nodesOfKind(tree, syntax.KindSwitch)
	require.Len(t, sw, 1)
	assert.Equal(t, "v", sw[0].Cond.Text([]byte(src)))

	cases := nodesOfKind(tree, syntax.KindCase)
	require.Len(t, cases, 1)
	assert.Equal(t, "1", cases[0].Cond.Text([]byte(src)))
	assert.Len(t, nodesOfKind(tree, syntax.KindDefault), 1)
}

func TestParse_ScriptElseUnwrapped(t *testing.T) {
	src := "if (a) { x(); } else { y(); }"
	tree := parse(t, "main.js", src)

	ifs := nodesOfKind(tree, syntax.KindIf)
	require.Len(t, ifs, 1)
	assert.Equal(t, "a", ifs[0].Cond.Text([]byte(src)))
	require.NotNil(t, ifs[0].Else)
	assert.True(t, ifs[0].Else.Is(syntax.KindBlock))
	assert.Equal(t, strings.Index(src, "{ y"), ifs[0].Else.Start)
}

func TestParse_GoRangeAndParams(t *testing.T) {
	src := `package p

func sum(a, b int, xs []int) int {
	for _, x := range xs {
		a += x
	}
	return a
}
`
	tree := parse(t, "p.go", src)

	assert.Empty(t, nodesOfKind(tree, syntax.KindFor))
	loops := nodesOfKind(tree, syntax.KindForeach)
	require.Len(t, loops, 1)
	assert.Equal(t, "xs", loops[0].Cond.Text([]byte(src)))

	fn := nodesOfKind(tree, syntax.KindFunction)
	require.Len(t, fn, 1)
	assert.Equal(t, []string{"a", "b", "xs"}, texts(src, fn[0].Params))
}

func TestParse_ExcludedSpans(t *testing.T) {
	src := "package p\n\nvar s = \"(\" // )\n"
	tree := parse(t, "p.go", src)

	open := strings.Index(src, "\"(\"")
	comment := strings.Index(src, "//")
	var starts []int
	for _, r := range tree.Excluded {
		starts = append(starts, r.Start)
	}
	assert.Contains(t, starts, open)
	assert.Contains(t, starts, comment)
}

func TestParse_CDirectives(t *testing.T) {
	src := "#ifndef GUARD\n#if A > 1\nint a;\n#elif B\nint b;\n#else\nint c;\n#endif\n#endif\n"
	tree := parse(t, "x.h", src)

	var kinds []syntax.DirectiveKind
	var conds []string
	for _, d := range tree.Directives {
		kinds = append(kinds, d.Kind)
		conds = append(conds, d.Cond)
		assert.LessOrEqual(t, d.Start, d.End)
	}
	assert.Equal(t, []syntax.DirectiveKind{
		syntax.DirectiveIfndef, syntax.DirectiveIf, syntax.DirectiveElif,
		syntax.DirectiveElse, syntax.DirectiveEndif, syntax.DirectiveEndif,
	}, kinds)
	assert.Equal(t, []string{"GUARD", "A > 1", "B", "", "", ""}, conds)
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := GetSharedParser().Parse(context.Background(), "notes.txt", []byte("(x"), nil)
	assert.ErrorIs(t, err, bterrors.ErrNoTree)
	assert.False(t, GetSharedParser().Supports("notes.txt"))
	assert.True(t, GetSharedParser().Supports("Main.JAVA"))
}

func TestParse_Cancelled(t *testing.T) {
	var cancel atomic.Bool
	cancel.Store(true)
	_, err := GetSharedParser().Parse(context.Background(), "a.go", []byte("package a"), &cancel)
	assert.ErrorIs(t, err, bterrors.ErrCancelled)
}

func TestParse_Concurrent(t *testing.T) {
	p := NewTreeSitterParser()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, err := p.Parse(context.Background(), "c.c", []byte("int f(int x) { while (x) { x--; } return x; }"), nil)
			assert.NoError(t, err)
			if tree != nil {
				assert.Len(t, nodesOfKind(tree, syntax.KindWhile), 1)
			}
		}()
	}
	wg.Wait()
}

func TestGetLanguageFromExtension(t *testing.T) {
	tests := map[string]string{
		".go":    "go",
		".TSX":   "typescript",
		".hpp":   "cpp",
		".cs":    "csharp",
		".zig":   "zig",
		".phtml": "php",
		".txt":   "",
	}
	for ext, want := range tests {
		assert.Equal(t, want, GetLanguageFromExtension(ext), ext)
	}
}
