package preproc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/syntax"
)

func testEvaluator() *Evaluator {
	return NewEvaluator(config.Preprocessor{
		Defines: map[string]string{
			"A":    "",
			"ONE":  "1",
			"V":    "0x0200",
			"LOOP": "LOOP",
		},
		Undefines: []string{"B"},
	})
}

func TestEvaluator_Eval(t *testing.T) {
	tests := []struct {
		cond string
		want Result
	}{
		{"1", Taken},
		{"0", NotTaken},
		{"(1)", Taken},
		{"defined(A)", Taken},
		{"defined A", Taken},
		{"defined(B)", NotTaken},
		{"!defined(B)", Taken},
		{"defined(C)", Unknown},
		{"C", Unknown},
		{"C > 1", Unknown},
		{"B", NotTaken},
		{"ONE", Taken},
		{"A", Taken},
		{"V >= 0x0100UL", Taken},
		{"V > 1024", NotTaken},
		{"C && B", NotTaken},
		{"C || A", Taken},
		{"C ? 1 : 1", Taken},
		{"ONE ? 0 : 1", NotTaken},
		{"'A' == 65", Taken},
		{"2 / 0", Unknown},
		{"1 /* note */ && 1", Taken},
		{"1 // note", Taken},
		{"defined(A) && \\\n ONE", Taken},
		{"LOOP", Unknown},
		{"", Unknown},
		{"__has_include(<x.h>)", Unknown},
	}
	e := testEvaluator()
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Eval(tt.cond), "got %s", e.Eval(tt.cond))
		})
	}
}

func TestEvaluator_Directive(t *testing.T) {
	e := testEvaluator()
	assert.Equal(t, Taken, e.Directive(syntax.Directive{Kind: syntax.DirectiveIfdef, Cond: "A"}))
	assert.Equal(t, NotTaken, e.Directive(syntax.Directive{Kind: syntax.DirectiveIfndef, Cond: " A "}))
	assert.Equal(t, Unknown, e.Directive(syntax.Directive{Kind: syntax.DirectiveIfdef, Cond: "C"}))
	assert.Equal(t, NotTaken, e.Directive(syntax.Directive{Kind: syntax.DirectiveElif, Cond: "B"}))
	assert.Equal(t, Taken, e.Directive(syntax.Directive{Kind: syntax.DirectiveElse}))
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "taken", Taken.String())
	assert.Equal(t, "not-taken", NotTaken.String())
	assert.Equal(t, "unknown", Unknown.String())
}
