package processing

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/standardbeagle/bracketeer/internal/container"
	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// Analysis is a one-shot result in a form suitable for reports. Lines are
// 1-based; offsets are byte offsets.
type Analysis struct {
	Path        string         `json:"path" yaml:"path"`
	Language    string         `json:"language,omitempty" yaml:"language,omitempty"`
	HasTree     bool           `json:"has_tree" yaml:"has_tree"`
	Pairs       []PairReport   `json:"pairs" yaml:"pairs"`
	Singles     []SingleReport `json:"singles" yaml:"singles"`
	Hints       []HintReport   `json:"hints" yaml:"hints"`
	Inactive    []RangeReport  `json:"inactive,omitempty" yaml:"inactive,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	DurationMs  float64        `json:"duration_ms" yaml:"duration_ms"`

	pairs []types.BracketsPair
}

type PairReport struct {
	Open      int    `json:"open" yaml:"open"`
	Close     int    `json:"close" yaml:"close"`
	Brackets  string `json:"brackets" yaml:"brackets"`
	OpenLine  int    `json:"open_line" yaml:"open_line"`
	CloseLine int    `json:"close_line" yaml:"close_line"`
}

type SingleReport struct {
	Offset  int    `json:"offset" yaml:"offset"`
	Char    string `json:"char" yaml:"char"`
	Opening bool   `json:"opening" yaml:"opening"`
	Line    int    `json:"line" yaml:"line"`
}

type HintReport struct {
	Kind    string `json:"kind" yaml:"kind"`
	Label   string `json:"label" yaml:"label"`
	Start   int    `json:"start" yaml:"start"`
	End     int    `json:"end" yaml:"end"`
	EndLine int    `json:"end_line" yaml:"end_line"`
}

type RangeReport struct {
	Start     int `json:"start" yaml:"start"`
	End       int `json:"end" yaml:"end"`
	StartLine int `json:"start_line" yaml:"start_line"`
	EndLine   int `json:"end_line" yaml:"end_line"`
}

// Analyze runs one complete cycle over doc outside of any coordinator
func Analyze(ctx context.Context, doc *document.Document, proc *Processor) (*Analysis, error) {
	if proc == nil {
		proc = NewProcessor(nil, nil)
	}
	start := time.Now()

	ctr := container.New()
	cy := ctr.Begin()
	res, err := proc.Process(ctx, doc, cy, nil)
	if err != nil {
		cy.Discard()
		return nil, err
	}
	cy.Publish()
	snap := ctr.Snapshot()

	a := &Analysis{
		Path:       doc.Path,
		Language:   res.Language,
		HasTree:    res.HasTree,
		Pairs:      make([]PairReport, 0, len(snap.Pairs)),
		Singles:    make([]SingleReport, 0, len(snap.Singles)),
		Hints:      make([]HintReport, 0, len(snap.Hints)),
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		pairs:      snap.Pairs,
	}
	for _, p := range snap.Pairs {
		a.Pairs = append(a.Pairs, PairReport{
			Open:      p.Opening.Position.Offset,
			Close:     p.Closing.Position.Offset,
			Brackets:  string([]byte{p.Opening.Char, p.Closing.Char}),
			OpenLine:  lineOf(doc, p.Opening.Position.Offset),
			CloseLine: lineOf(doc, p.Closing.Position.Offset),
		})
	}
	for _, b := range snap.Singles {
		a.Singles = append(a.Singles, SingleReport{
			Offset:  b.Position.Offset,
			Char:    string(b.Char),
			Opening: b.Opening,
			Line:    lineOf(doc, b.Position.Offset),
		})
	}
	for _, h := range snap.Hints {
		a.Hints = append(a.Hints, HintReport{
			Kind:    string(h.Kind),
			Label:   h.Label,
			Start:   h.Start,
			End:     h.End,
			EndLine: lineOf(doc, h.End),
		})
	}
	for _, r := range res.Inactive {
		a.Inactive = append(a.Inactive, RangeReport{
			Start:     r.Start,
			End:       r.End,
			StartLine: lineOf(doc, r.Start),
			EndLine:   lineOf(doc, r.End),
		})
	}
	for _, d := range res.Diagnostics {
		a.Diagnostics = append(a.Diagnostics, d.Error())
	}
	return a, nil
}

// Surrounding returns up to count pairs enclosing offset, innermost first.
// A negative count returns all of them.
func (a *Analysis) Surrounding(offset, count int) []PairReport {
	var idx []int
	for i, p := range a.pairs {
		if p.Encloses(offset) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return a.pairs[idx[i]].Opening.Position.Offset > a.pairs[idx[j]].Opening.Position.Offset
	})
	if count >= 0 && len(idx) > count {
		idx = idx[:count]
	}
	out := make([]PairReport, 0, len(idx))
	for _, i := range idx {
		out = append(out, a.Pairs[i])
	}
	return out
}

// Sections are the report parts Keep accepts
var Sections = []string{"pairs", "singles", "hints", "inactive"}

// Keep clears the report sections not named in sections. An empty list
// keeps everything.
func (a *Analysis) Keep(sections []string) error {
	if len(sections) == 0 {
		return nil
	}
	keep := make(map[string]bool, len(sections))
	for _, s := range sections {
		s = strings.ToLower(strings.TrimSpace(s))
		if !slices.Contains(Sections, s) {
			return fmt.Errorf("unknown section %q: use %s", s, strings.Join(Sections, ", "))
		}
		keep[s] = true
	}
	if !keep["pairs"] {
		a.Pairs = nil
		a.pairs = nil
	}
	if !keep["singles"] {
		a.Singles = nil
	}
	if !keep["hints"] {
		a.Hints = nil
	}
	if !keep["inactive"] {
		a.Inactive = nil
	}
	return nil
}

func lineOf(doc *document.Document, offset int) int {
	line, err := doc.LineOfOffset(offset)
	if err != nil {
		return 0
	}
	return line + 1
}
