package highlight

import (
	"sort"
	"sync"

	"github.com/standardbeagle/bracketeer/internal/types"
)

// Projection maps buffer offsets to widget offsets for a view that hides
// folded ranges. Folded bytes have no widget offset.
type Projection struct {
	mu     sync.RWMutex
	length int
	folds  []types.Range
}

// NewProjection creates a projection over a buffer of length bytes
func NewProjection(length int) *Projection {
	return &Projection{length: length}
}

// SetLength updates the buffer length and drops folds beyond it
func (p *Projection) SetLength(length int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.length = length
	kept := p.folds[:0]
	for _, f := range p.folds {
		if f.End <= length {
			kept = append(kept, f)
		}
	}
	p.folds = kept
}

// Fold hides r. Overlapping folds are merged.
func (p *Projection) Fold(r types.Range) {
	if r.Empty() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	folds := append(p.folds, r)
	sort.Slice(folds, func(i, j int) bool { return folds[i].Start < folds[j].Start })
	merged := folds[:0]
	for _, f := range folds {
		if n := len(merged); n > 0 && f.Start <= merged[n-1].End {
			if f.End > merged[n-1].End {
				merged[n-1].End = f.End
			}
			continue
		}
		merged = append(merged, f)
	}
	p.folds = merged
}

// Unfold removes every fold overlapping r
func (p *Projection) Unfold(r types.Range) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.folds[:0]
	for _, f := range p.folds {
		if !f.Overlaps(r) {
			kept = append(kept, f)
		}
	}
	p.folds = kept
}

// Folds returns the hidden ranges in order
func (p *Projection) Folds() []types.Range {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]types.Range(nil), p.folds...)
}

// WidgetLength is the number of visible bytes
func (p *Projection) WidgetLength() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := p.length
	for _, f := range p.folds {
		n -= f.Len()
	}
	return n
}

// ModelToWidget maps a buffer offset. Offsets inside a fold are hidden.
func (p *Projection) ModelToWidget(offset int) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if offset < 0 || offset > p.length {
		return 0, false
	}
	hidden := 0
	for _, f := range p.folds {
		if f.Start > offset {
			break
		}
		if f.Contains(offset) {
			return 0, false
		}
		hidden += f.Len()
	}
	return offset - hidden, true
}

// WidgetToModel maps a widget offset back into the buffer
func (p *Projection) WidgetToModel(offset int) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if offset < 0 {
		return 0, false
	}
	model := offset
	for _, f := range p.folds {
		if f.Start > model {
			break
		}
		model += f.Len()
	}
	if model > p.length {
		return 0, false
	}
	return model, true
}

// ModelRangeToWidget maps a buffer range whose first and last bytes are
// both visible. A range touching a fold at either end is hidden.
func (p *Projection) ModelRangeToWidget(r types.Range) (types.Range, bool) {
	start, ok := p.ModelToWidget(r.Start)
	if !ok {
		return types.Range{}, false
	}
	if r.Empty() {
		return types.Range{Start: start, End: start}, true
	}
	last, ok := p.ModelToWidget(r.End - 1)
	if !ok {
		return types.Range{}, false
	}
	return types.Range{Start: start, End: last + 1}, true
}

// WidgetRangeToModel maps a widget range to the buffer range it displays,
// folded bytes in between included
func (p *Projection) WidgetRangeToModel(r types.Range) (types.Range, bool) {
	start, ok := p.WidgetToModel(r.Start)
	if !ok {
		return types.Range{}, false
	}
	if r.Empty() {
		return types.Range{Start: start, End: start}, true
	}
	last, ok := p.WidgetToModel(r.End - 1)
	if !ok {
		return types.Range{}, false
	}
	return types.Range{Start: start, End: last + 1}, true
}
