// Package highlight turns published analysis results into what an editor
// paints: surrounding or hovered pairs, lonely brackets and scope hints.
// Everything except ContainerUpdated and ConfigurationChanged must be called
// on the UI goroutine.
package highlight

import (
	"math"
	"strings"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// Source is the read side of the analysis container
type Source interface {
	PairsSurrounding(offset int) []types.BracketsPair
	MatchingPairs(offset, length int) []types.BracketsPair
	AllSingles() []types.SingleBracket
	AllHints() []types.Hint
}

// Point is a screen location in device units
type Point struct {
	X, Y int
}

// Rect is a screen rectangle in device units
type Rect struct {
	X, Y, Width, Height int
}

// Mapping translates between buffer and widget offsets. *Projection
// implements it.
type Mapping interface {
	WidgetToModel(offset int) (int, bool)
	WidgetRangeToModel(r types.Range) (types.Range, bool)
	ModelRangeToWidget(r types.Range) (types.Range, bool)
}

// View is the editor widget the engine decorates
type View interface {
	Mapping
	// Caret returns the caret's widget offset
	Caret() int
	// OffsetAt returns the widget offset under a screen point
	OffsetAt(p Point) (int, bool)
	// Viewport returns the visible widget range
	Viewport() types.Range
	// DamageRange returns the widget range covered by a damaged rectangle
	DamageRange(r Rect) (types.Range, bool)
	// Redraw repaints the whole view
	Redraw()
}

// Dispatcher runs fn on the UI goroutine after the current event handler
// has returned
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to Dispatcher
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Painter draws decorations at widget ranges
type Painter interface {
	PaintBracket(widget types.Range, style config.Style)
	PaintHint(widget types.Range, label string, style config.Style)
}

// PaintableBracket is one bracket with the style it is drawn in
type PaintableBracket struct {
	Position types.Position
	Style    config.Style
}

// PaintableHint is a hint with its style; it is drawn after the hint's target
type PaintableHint struct {
	Hint  types.Hint
	Style config.Style
}

// Engine keeps the paint sets of one view up to date
type Engine struct {
	source     Source
	view       View
	dispatcher Dispatcher
	cfg        *config.Config

	// caret is the buffer offset of the character before the caret
	caret int

	hovered     []PaintableBracket
	surrounding []PaintableBracket
	singles     []PaintableBracket
	hints       []PaintableHint

	hoverEntry *Point
}

// NewEngine creates an engine. A nil config uses the defaults.
func NewEngine(source Source, view View, dispatcher Dispatcher, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{
		source:     source,
		view:       view,
		dispatcher: dispatcher,
		cfg:        cfg,
		caret:      -1,
	}
}

// Init computes every paint set from the current container state
func (e *Engine) Init() {
	e.caret = e.currentCaret()
	e.rebuild(true, true, true, false)
}

// ContainerUpdated implements container.Listener. It runs on the publishing
// goroutine and hands the rebuild to the UI goroutine.
func (e *Engine) ContainerUpdated(pairsChanged, singlesChanged, hintsChanged bool) {
	e.dispatcher.Dispatch(func() {
		e.rebuild(pairsChanged, singlesChanged, hintsChanged, false)
	})
}

// ConfigurationChanged swaps the configuration and re-derives every paint
// set on the UI goroutine
func (e *Engine) ConfigurationChanged(cfg *config.Config) {
	e.dispatcher.Dispatch(func() {
		if cfg != nil {
			e.cfg = cfg
		}
		updated := e.clearSurrounding()
		updated = e.clearSingles() || updated
		e.rebuild(true, true, true, updated)
	})
}

// CaretMoved recomputes the surrounding pairs for the current caret
func (e *Engine) CaretMoved() {
	e.caret = e.currentCaret()
	e.caretMovedTo(e.caret)
}

// MouseHover highlights the pairs next to the hovered offset
func (e *Engine) MouseHover(p Point) {
	widget, ok := e.view.OffsetAt(p)
	if !ok {
		return
	}
	offset, ok := e.view.WidgetToModel(widget)
	if !ok {
		return
	}
	if e.hoverAt(offset) {
		entry := p
		e.hoverEntry = &entry
	}
}

// MouseMove ends a hover once the pointer has travelled far enough from
// where it started
func (e *Engine) MouseMove(p Point) {
	if e.hoverEntry == nil {
		return
	}
	if distance(p, *e.hoverEntry) > e.cfg.Hovering.Distance {
		e.caretMovedTo(e.currentCaret())
		e.hoverEntry = nil
	}
}

// Hovering reports whether a hover is in progress
func (e *Engine) Hovering() bool {
	return e.hoverEntry != nil
}

// PairsToPaint returns the hovered pairs when there are any, else the
// surrounding pairs
func (e *Engine) PairsToPaint() []PaintableBracket {
	if len(e.hovered) > 0 {
		return e.hovered
	}
	return e.surrounding
}

// Singles returns the lonely brackets to paint
func (e *Engine) Singles() []PaintableBracket {
	return e.singles
}

// Hints returns the hints to paint
func (e *Engine) Hints() []PaintableHint {
	return e.hints
}

// Paint submits every decoration overlapping the damaged area. A nil
// damage rectangle paints the whole viewport. Decorations whose buffer
// position is folded away are skipped.
func (e *Engine) Paint(damage *Rect, painter Painter) {
	region, ok := e.clippingRegion(damage)
	if !ok {
		return
	}

	paintBrackets := func(list []PaintableBracket) {
		for _, b := range list {
			if !b.Position.Overlaps(region.Start, region.Len()) {
				continue
			}
			if widget, ok := e.view.ModelRangeToWidget(rangeOf(b.Position)); ok {
				painter.PaintBracket(widget, b.Style)
			}
		}
	}
	paintBrackets(e.singles)
	paintBrackets(e.PairsToPaint())

	for _, h := range e.hints {
		target := h.Hint.Target()
		if !target.Overlaps(region.Start, region.Len()) {
			continue
		}
		if widget, ok := e.view.ModelRangeToWidget(rangeOf(target)); ok {
			painter.PaintHint(widget, h.Hint.Label, h.Style)
		}
	}
}

// clippingRegion returns the buffer range covered by damage or the viewport
func (e *Engine) clippingRegion(damage *Rect) (types.Range, bool) {
	widget := e.view.Viewport()
	if damage != nil {
		var ok bool
		if widget, ok = e.view.DamageRange(*damage); !ok {
			return types.Range{}, false
		}
	}
	return e.view.WidgetRangeToModel(widget)
}

// rebuild re-derives the touched paint sets and requests at most one redraw
func (e *Engine) rebuild(pairsTouched, singlesTouched, hintsTouched, alwaysRedraw bool) {
	update := alwaysRedraw
	if pairsTouched {
		update = e.updateSurrounding(e.caret) || update
		update = e.clearHovered() || update
	}
	if singlesTouched {
		update = e.updateSingles() || update
	}
	if hintsTouched {
		update = e.updateHints() || update
	}
	if update {
		e.requestRedraw()
	}
}

func (e *Engine) caretMovedTo(offset int) {
	update := e.updateSurrounding(offset)
	update = e.clearHovered() || update
	if update {
		e.requestRedraw()
	}
}

func (e *Engine) requestRedraw() {
	debug.LogHighlight("redraw: %d surrounding, %d hovered, %d singles, %d hints\n",
		len(e.surrounding)/2, len(e.hovered)/2, len(e.singles), len(e.hints))
	e.dispatcher.Dispatch(e.view.Redraw)
}

// currentCaret returns the buffer offset of the character before the caret
func (e *Engine) currentCaret() int {
	caret := e.view.Caret()
	if model, ok := e.view.WidgetToModel(caret); ok {
		caret = model
	}
	return caret - 1
}

func (e *Engine) updateSurrounding(offset int) bool {
	if !e.cfg.Surrounding.Enabled {
		return e.clearSurrounding()
	}

	included := e.cfg.Surrounding.Include
	var pairs []types.BracketsPair
	for _, p := range e.source.PairsSurrounding(offset) {
		if strings.IndexByte(included, p.Opening.Char) >= 0 && strings.IndexByte(included, p.Closing.Char) >= 0 {
			pairs = append(pairs, p)
		}
	}
	pairs = SortPairs(pairs)
	if n := e.cfg.Surrounding.Count; n >= 0 && len(pairs) > n {
		pairs = pairs[:n]
	}

	if equalPairs(pairs, e.surrounding) {
		return false
	}
	e.surrounding = e.paintablePairs(pairs)
	return true
}

// hoverAt reports whether there is anything to hover at offset
func (e *Engine) hoverAt(offset int) bool {
	if !e.cfg.Hovering.Enabled {
		return false
	}
	pairs := SortPairs(e.source.MatchingPairs(offset-2, 4))
	if len(pairs) == 0 {
		return false
	}
	if equalPairs(pairs, e.hovered) {
		return true
	}
	e.hovered = e.paintablePairs(pairs)
	e.requestRedraw()
	return true
}

func (e *Engine) updateSingles() bool {
	singles := e.source.AllSingles()
	if equalSingles(singles, e.singles) {
		return false
	}
	out := make([]PaintableBracket, 0, len(singles))
	for _, b := range singles {
		out = append(out, PaintableBracket{Position: b.Position, Style: e.cfg.Highlights.Missing})
	}
	e.singles = out
	return true
}

func (e *Engine) updateHints() bool {
	var out []PaintableHint
	for _, h := range e.source.AllHints() {
		hs := e.cfg.Hints.For(h.Kind)
		if !hs.Enabled {
			continue
		}
		out = append(out, PaintableHint{Hint: h, Style: hs.Style})
	}
	if equalHints(out, e.hints) {
		return false
	}
	e.hints = out
	return true
}

// paintablePairs styles both brackets of each pair, stepping through the
// palette once per pair
func (e *Engine) paintablePairs(pairs []types.BracketsPair) []PaintableBracket {
	out := make([]PaintableBracket, 0, 2*len(pairs))
	for i, p := range pairs {
		style := e.cfg.Highlights.PairStyle(i)
		for _, b := range p.Brackets() {
			out = append(out, PaintableBracket{Position: b.Position, Style: style})
		}
	}
	return out
}

func (e *Engine) clearHovered() bool {
	if len(e.hovered) == 0 {
		return false
	}
	e.hovered = nil
	return true
}

func (e *Engine) clearSurrounding() bool {
	if len(e.surrounding) == 0 {
		return false
	}
	e.surrounding = nil
	return true
}

func (e *Engine) clearSingles() bool {
	if len(e.singles) == 0 {
		return false
	}
	e.singles = nil
	return true
}

func rangeOf(p types.Position) types.Range {
	return types.Range{Start: p.Offset, End: p.End()}
}

func distance(a, b Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
