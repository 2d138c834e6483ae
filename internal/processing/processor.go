// Package processing runs analysis cycles: one buffer snapshot in, one
// complete set of pairs, lonely brackets and hints out.
package processing

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/document"
	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/hints"
	"github.com/standardbeagle/bracketeer/internal/parser"
	"github.com/standardbeagle/bracketeer/internal/preproc"
	"github.com/standardbeagle/bracketeer/internal/scanner"
	"github.com/standardbeagle/bracketeer/internal/syntax"
	"github.com/standardbeagle/bracketeer/internal/types"
)

// Sink collects everything one cycle finds. *container.Cycle implements it.
type Sink interface {
	AddPair(types.BracketsPair)
	AddSingle(types.SingleBracket)
	AddHint(types.Hint)
}

// Result describes a finished Process call
type Result struct {
	Language string
	HasTree  bool
	Inactive []types.Range
	// Diagnostics holds recoverable scope errors from hint extraction
	Diagnostics []error
	Duration    time.Duration
}

// Processor runs the analysis steps for one snapshot. It holds no per-cycle
// state and may be shared by coordinators.
type Processor struct {
	parser *parser.TreeSitterParser
	cfg    *config.Config
}

// NewProcessor creates a processor. A nil parser uses the shared one.
func NewProcessor(p *parser.TreeSitterParser, cfg *config.Config) *Processor {
	if p == nil {
		p = parser.GetSharedParser()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Processor{parser: p, cfg: cfg}
}

// Config returns the configuration the processor was built with
func (p *Processor) Config() *config.Config {
	return p.cfg
}

// Process parses doc, computes inactive code and partitions, scans for
// brackets and extracts hints into sink. Without a syntax tree the scan
// still runs over lexical partitions and hint extraction is skipped.
// ErrCancelled is returned as soon as cancel is observed; the caller must
// then discard whatever reached sink.
func (p *Processor) Process(ctx context.Context, doc *document.Document, sink Sink, cancel *atomic.Bool) (*Result, error) {
	start := time.Now()
	res := &Result{Language: parser.GetLanguageFromExtension(doc.Extension())}

	tree, err := p.parser.Parse(ctx, doc.Path, doc.Content, cancel)
	switch {
	case err == nil:
		res.HasTree = true
	case errors.Is(err, bterrors.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		// ErrNoTree and parse failures fall back to lexical analysis
		debug.LogCycle("no syntax tree for %s: %v\n", doc.Path, err)
		tree = nil
	}

	var partitions *scanner.RangeSet
	if tree != nil {
		partitions = scanner.NewRangeSet(tree.Excluded)
	} else {
		partitions = scanner.LexicalPartitions(doc.Content, scanner.LexicalSyntaxFor(doc.Extension()))
	}

	directives := p.directives(doc, tree, partitions)
	res.Inactive = preproc.InactiveRegions(doc, directives, preproc.NewEvaluator(p.cfg.Preprocessor))
	inactive := scanner.NewRangeSet(res.Inactive)

	if cancelled(cancel) {
		return nil, bterrors.ErrCancelled
	}

	matcher := scanner.NewDefaultPairMatcher(p.cfg.Brackets, partitions, inactive)
	sc := scanner.New(matcher, partitions, inactive, p.cfg.Brackets.Lonely)
	if err := sc.Scan(doc, sink, cancel); err != nil {
		return nil, err
	}

	if tree != nil {
		ex := hints.NewExtractor(doc, sink, cancel)
		if err := ex.Walk(tree.Root); err != nil {
			return nil, err
		}
		res.Diagnostics = ex.Diagnostics()
	}

	if len(directives) > 0 {
		if err := hints.NewPreprocessorVisitor(doc, sink).Visit(directives, cancel); err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	debug.LogCycle("processed %s (%s): tree=%v inactive=%d diagnostics=%d in %v\n",
		doc.Path, res.Language, res.HasTree, len(res.Inactive), len(res.Diagnostics), res.Duration)
	return res, nil
}

// directives prefers the ones found by the parser and falls back to a
// line scan for preprocessed languages when the tree has none, or lost some
// to error recovery
func (p *Processor) directives(doc *document.Document, tree *syntax.Tree, partitions *scanner.RangeSet) []syntax.Directive {
	if tree != nil && len(tree.Directives) > 0 && balanced(tree.Directives) {
		return tree.Directives
	}
	if !preprocessed[doc.Extension()] {
		return nil
	}
	return preproc.ScanDirectives(doc.Content, partitions)
}

var preprocessed = map[string]bool{
	".c": true, ".h": true, ".cc": true, ".cpp": true, ".cxx": true,
	".hh": true, ".hpp": true, ".cs": true,
}

// balanced reports whether every group opened is closed
func balanced(dirs []syntax.Directive) bool {
	depth := 0
	for _, d := range dirs {
		switch {
		case d.Kind.Opens():
			depth++
		case d.Kind == syntax.DirectiveEndif:
			depth--
		}
		if depth < 0 {
			return false
		}
	}
	return depth == 0
}

func cancelled(cancel *atomic.Bool) bool {
	return cancel != nil && cancel.Load()
}
