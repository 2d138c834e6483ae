package preproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/syntax"
	"github.com/standardbeagle/bracketeer/internal/types"
)

func regions(t *testing.T, src string, cfg config.Preprocessor) []types.Range {
	t.Helper()
	dirs := ScanDirectives([]byte(src), nil)
	return InactiveRegions(document.FromString(src), dirs, NewEvaluator(cfg))
}

func endOf(src, s string) int {
	return strings.Index(src, s) + len(s)
}

func TestInactiveRegions(t *testing.T) {
	undefX := config.Preprocessor{Undefines: []string{"X"}}

	tests := []struct {
		name string
		src  string
		cfg  config.Preprocessor
		want func(src string) []types.Range
	}{
		{
			name: "if 0 covers through endif",
			src:  "a\n#if 0\nb\n#endif\nc\n",
			want: func(src string) []types.Range {
				return []types.Range{{Start: strings.Index(src, "#if"), End: endOf(src, "#endif")}}
			},
		},
		{
			name: "else after a taken branch",
			src:  "#if 1\na\n#else\nb\n#endif\n",
			want: func(src string) []types.Range {
				return []types.Range{{Start: strings.Index(src, "#else"), End: endOf(src, "#endif")}}
			},
		},
		{
			name: "taken elif ends the region before its line",
			src:  "#if 0\na\n  #elif 1\nb\n#endif\n",
			want: func(src string) []types.Range {
				return []types.Range{{Start: 0, End: strings.Index(src, "  #elif")}}
			},
		},
		{
			name: "nested groups inside inactive code",
			src:  "#if 0\n#if 1\nx\n#endif\n#else\ny\n#endif\n",
			want: func(src string) []types.Range {
				return []types.Range{{Start: 0, End: strings.Index(src, "#else")}}
			},
		},
		{
			name: "unterminated group runs to the end",
			src:  "int a;\n#ifdef X\nb\n",
			cfg:  undefX,
			want: func(src string) []types.Range {
				return []types.Range{{Start: strings.Index(src, "#ifdef"), End: len(src)}}
			},
		},
		{
			name: "indented directive aligns to line start",
			src:  "x\n   #if 0\ny\n#endif",
			want: func(src string) []types.Range {
				return []types.Range{{Start: 2, End: len(src)}}
			},
		},
		{
			name: "unknown conditions stay active",
			src:  "#ifdef FOO\na\n#elif BAR > 2\nb\n#endif\n",
			want: func(string) []types.Range { return nil },
		},
		{
			name: "stray endif is ignored",
			src:  "#endif\n#if 0\n#endif\n",
			want: func(src string) []types.Range {
				return []types.Range{{Start: strings.Index(src, "#if"), End: len(src) - 1}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want(tt.src), regions(t, tt.src, tt.cfg))
		})
	}
}

func TestInactiveRegions_TreeDirectives(t *testing.T) {
	src := "#ifndef GUARD\nint a;\n#endif\n"
	dirs := []syntax.Directive{
		{Kind: syntax.DirectiveIfndef, Start: 0, End: len("#ifndef GUARD"), Cond: "GUARD"},
		{Kind: syntax.DirectiveEndif, Start: strings.Index(src, "#endif"), End: endOf(src, "#endif")},
	}
	got := InactiveRegions(document.FromString(src), dirs,
		NewEvaluator(config.Preprocessor{Defines: map[string]string{"GUARD": ""}}))
	require.Len(t, got, 1)
	assert.Equal(t, types.Range{Start: 0, End: endOf(src, "#endif")}, got[0])
}
