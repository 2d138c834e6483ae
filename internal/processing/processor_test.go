package processing

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/document"
	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/types"
)

type recordingSink struct {
	pairs   []types.BracketsPair
	singles []types.SingleBracket
	hints   []types.Hint
}

func (r *recordingSink) AddPair(p types.BracketsPair)     { r.pairs = append(r.pairs, p) }
func (r *recordingSink) AddSingle(b types.SingleBracket) { r.singles = append(r.singles, b) }
func (r *recordingSink) AddHint(h types.Hint)             { r.hints = append(r.hints, h) }

func (r *recordingSink) labels() []string {
	out := make([]string, 0, len(r.hints))
	for _, h := range r.hints {
		out = append(out, h.Label)
	}
	return out
}

const scriptSource = `function f(a) {
  if (a) {
    return [1, 2];
  } else {
    x();
  }
}
)`

func process(t *testing.T, path, src string) (*Result, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	res, err := NewProcessor(nil, nil).Process(context.Background(), document.New(path, []byte(src), 1), sink, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res, sink
}

func TestProcessor_ScriptBuffer(t *testing.T) {
	res, sink := process(t, "main.js", scriptSource)

	assert.True(t, res.HasTree)
	assert.Equal(t, "javascript", res.Language)
	assert.Empty(t, res.Diagnostics)

	labels := sink.labels()
	assert.Contains(t, labels, "f( a )")
	assert.Contains(t, labels, "if( a )")
	assert.Contains(t, labels, "else_of_if( a )")

	require.Len(t, sink.singles, 1)
	assert.Equal(t, len(scriptSource)-1, sink.singles[0].Position.Offset)
	assert.Equal(t, byte(')'), sink.singles[0].Char)

	for _, p := range sink.pairs {
		assert.NoError(t, p.Validate())
	}
}

func TestProcessor_NoTreeStillScans(t *testing.T) {
	src := "(a [b) // ]"
	res, sink := process(t, "notes.txt", src)

	assert.False(t, res.HasTree)
	assert.Empty(t, sink.hints)
	require.Len(t, sink.singles, 1)
	assert.Equal(t, strings.Index(src, "["), sink.singles[0].Position.Offset)
	require.NotEmpty(t, sink.pairs)
	assert.Equal(t, types.NewPair(0, '(', strings.Index(src, ")"), ')'), sink.pairs[0])
}

func TestProcessor_InactiveCode(t *testing.T) {
	src := "int f(void) {\n#if 0\n  while (x) {\n#endif\n  return 0;\n}\n"
	res, sink := process(t, "f.c", src)

	require.Len(t, res.Inactive, 1)
	assert.Equal(t, strings.Index(src, "#if"), res.Inactive[0].Start)
	assert.Empty(t, sink.singles, "the brace inside #if 0 is not lonely")
	assert.Contains(t, sink.labels(), "if( 0 )")
}

func TestProcessor_ConfiguredDefines(t *testing.T) {
	src := "#ifdef DEBUG\nvoid f(void) { (\n#endif\n"
	cfg := config.Default()
	cfg.Preprocessor.Undefines = []string{"DEBUG"}

	sink := &recordingSink{}
	res, err := NewProcessor(nil, cfg).Process(context.Background(), document.New("d.c", []byte(src), 1), sink, nil)
	require.NoError(t, err)
	require.Len(t, res.Inactive, 1)
	assert.Empty(t, sink.singles)

	sink = &recordingSink{}
	res, err = NewProcessor(nil, nil).Process(context.Background(), document.New("d.c", []byte(src), 1), sink, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Inactive, "unknown macros leave code active")
	assert.NotEmpty(t, sink.singles)
}

func TestProcessor_Cancelled(t *testing.T) {
	var cancel atomic.Bool
	cancel.Store(true)
	_, err := NewProcessor(nil, nil).Process(context.Background(), document.New("main.js", []byte(scriptSource), 1), &recordingSink{}, &cancel)
	assert.ErrorIs(t, err, bterrors.ErrCancelled)
}
