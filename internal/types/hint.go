package types

import "fmt"

// HintKind tags what kind of scope a hint annotates
type HintKind string

const (
	HintIf           HintKind = "if"
	HintFor          HintKind = "for"
	HintForeach      HintKind = "foreach"
	HintWhile        HintKind = "while"
	HintSwitch       HintKind = "switch"
	HintFunction     HintKind = "function"
	HintType         HintKind = "type"
	HintPreprocess   HintKind = "preprocess"
	HintSynchronized HintKind = "synchronized"

	HintBreakFor     HintKind = "break-for"
	HintBreakForeach HintKind = "break-foreach"
	HintBreakWhile   HintKind = "break-while"
	HintBreakDo      HintKind = "break-do"
	HintBreakCase    HintKind = "break-case"
)

// AllHintKinds lists every kind the extractor can emit
func AllHintKinds() []HintKind {
	return []HintKind{
		HintIf, HintFor, HintForeach, HintWhile, HintSwitch,
		HintFunction, HintType, HintPreprocess, HintSynchronized,
		HintBreakFor, HintBreakForeach, HintBreakWhile, HintBreakDo, HintBreakCase,
	}
}

// Hint is a label anchored at Start (usually a scope header) and displayed at
// End (usually the closing delimiter of the scope). End is inclusive.
type Hint struct {
	Kind  HintKind
	Start int
	End   int
	Label string
}

// Target is the position the hint is rendered against
func (h Hint) Target() Position {
	return Position{Offset: h.End, Length: 1}
}

// Validate checks Start <= End
func (h Hint) Validate() error {
	if h.Start > h.End {
		return fmt.Errorf("hint %s %q: start %d after end %d", h.Kind, h.Label, h.Start, h.End)
	}
	return nil
}

func (h Hint) String() string {
	return fmt.Sprintf("%s[%d..%d] %s", h.Kind, h.Start, h.End, h.Label)
}
