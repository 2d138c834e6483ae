package processing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bracketeer/internal/document"
)

func TestAnalyze_Report(t *testing.T) {
	a, err := Analyze(context.Background(), document.New("main.js", []byte(scriptSource), 1), nil)
	require.NoError(t, err)

	assert.Equal(t, "main.js", a.Path)
	assert.Equal(t, "javascript", a.Language)
	assert.True(t, a.HasTree)
	require.Len(t, a.Singles, 1)
	assert.Equal(t, ")", a.Singles[0].Char)
	assert.Equal(t, 8, a.Singles[0].Line)

	require.NotEmpty(t, a.Pairs)
	assert.Equal(t, "()", a.Pairs[0].Brackets)
	assert.Equal(t, 1, a.Pairs[0].OpenLine)

	var labels []string
	for _, h := range a.Hints {
		labels = append(labels, h.Label)
	}
	assert.Contains(t, labels, "if( a )")
}

func TestAnalysis_Surrounding(t *testing.T) {
	src := "f(a, [b, {c}])"
	a, err := Analyze(context.Background(), document.New("x.txt", []byte(src), 1), nil)
	require.NoError(t, err)

	got := a.Surrounding(10, -1)
	require.Len(t, got, 3)
	assert.Equal(t, "{}", got[0].Brackets)
	assert.Equal(t, "[]", got[1].Brackets)
	assert.Equal(t, "()", got[2].Brackets)

	assert.Len(t, a.Surrounding(10, 1), 1)
	assert.Empty(t, a.Surrounding(0, -1))
}

func TestAnalysis_Keep(t *testing.T) {
	src := "f(a) [b }"
	a, err := Analyze(context.Background(), document.New("x.txt", []byte(src), 1), nil)
	require.NoError(t, err)
	require.NotEmpty(t, a.Pairs)
	require.NotEmpty(t, a.Singles)

	require.NoError(t, a.Keep(nil))
	assert.NotEmpty(t, a.Pairs)

	require.NoError(t, a.Keep([]string{" Singles "}))
	assert.Empty(t, a.Pairs)
	assert.NotEmpty(t, a.Singles)
	assert.Empty(t, a.Surrounding(2, -1))

	err = a.Keep([]string{"pairs", "everything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown section")
}
