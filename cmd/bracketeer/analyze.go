package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/processing"
	"github.com/standardbeagle/bracketeer/internal/security"
	"github.com/standardbeagle/bracketeer/internal/watch"
)

// styles holds the color formatters of the text report
type styles struct {
	path    *color.Color
	lonely  *color.Color
	pair    *color.Color
	hint    *color.Color
	muted   *color.Color
	summary *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		path:    color.New(color.Bold, color.FgHiWhite),
		lonely:  color.New(color.Bold, color.FgHiRed),
		pair:    color.New(color.FgHiGreen),
		hint:    color.New(color.FgHiBlue),
		muted:   color.New(color.Faint),
		summary: color.New(color.Bold),
	}
	if !enabled {
		for _, c := range []*color.Color{s.path, s.lonely, s.pair, s.hint, s.muted, s.summary} {
			c.DisableColor()
		}
	}
	return s
}

// colorEnabled resolves the --color flag; auto follows the terminal and
// NO_COLOR as detected by the color package
func colorEnabled(mode string) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		return !color.NoColor, nil
	default:
		return false, fmt.Errorf("invalid color mode %q: use auto, always or never", mode)
	}
}

func analyzeCommand(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	switch format {
	case "text", "json", "yaml":
	default:
		return cli.Exit(fmt.Sprintf("invalid format %q: use text, json or yaml", format), 2)
	}
	useColor, err := colorEnabled(c.String("color"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	paths := c.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"."}
	}
	cfg, err := loadConfig(c, paths[0])
	if err != nil {
		return err
	}

	files, err := watch.Collect(cfg.Watch, paths)
	if err != nil {
		return err
	}

	include := c.StringSlice("include")
	if len(include) == 0 && format == "text" {
		include = []string{"singles", "hints", "inactive"}
	}

	jobs := c.Int("jobs")
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	proc := processing.NewProcessor(nil, cfg)
	guard := &security.Guard{}
	results := make([]*processing.Analysis, len(files))
	skipped := make([]error, len(files))

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			_, content, err := guard.ReadFile(path)
			if errors.Is(err, security.ErrBinary) || errors.Is(err, security.ErrTooLarge) {
				skipped[i] = err
				return nil
			}
			if err != nil {
				return err
			}
			a, err := processing.Analyze(ctx, document.New(path, content, 1), proc)
			if err != nil {
				return fmt.Errorf("failed to analyze %s: %w", path, err)
			}
			if err := a.Keep(include); err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, err := range skipped {
		if err != nil {
			fmt.Fprintf(c.App.ErrWriter, "skipping %v\n", err)
		}
	}
	results = slices.DeleteFunc(results, func(a *processing.Analysis) bool { return a == nil })

	out := c.App.Writer
	switch format {
	case "json":
		err = writeJSON(out, results)
	case "yaml":
		err = writeYAML(out, results)
	default:
		writeText(out, results, newStyles(useColor))
	}
	if err != nil {
		return err
	}

	if c.Bool("fail-on-lonely") && countLonely(results) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func countLonely(results []*processing.Analysis) int {
	n := 0
	for _, a := range results {
		n += len(a.Singles)
	}
	return n
}

func writeJSON(w io.Writer, results []*processing.Analysis) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func writeYAML(w io.Writer, results []*processing.Analysis) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(results); err != nil {
		return err
	}
	return encoder.Close()
}

// writeText prints one block per file: lonely brackets first, then hints
// and inactive regions, then pairs when they were asked for
func writeText(w io.Writer, results []*processing.Analysis, s *styles) {
	for _, a := range results {
		lang := a.Language
		if lang == "" {
			lang = "plain"
		}
		s.path.Fprint(w, a.Path)
		s.muted.Fprintf(w, " (%s, %.1fms)\n", lang, a.DurationMs)

		for _, b := range a.Singles {
			s.lonely.Fprintf(w, "  lonely %s", b.Char)
			fmt.Fprintf(w, " at line %d, offset %d\n", b.Line, b.Offset)
		}
		for _, h := range a.Hints {
			s.hint.Fprintf(w, "  %-14s", h.Kind)
			fmt.Fprintf(w, " line %d: %s\n", h.EndLine, h.Label)
		}
		for _, r := range a.Inactive {
			s.muted.Fprintf(w, "  inactive lines %d-%d\n", r.StartLine, r.EndLine)
		}
		for _, p := range a.Pairs {
			s.pair.Fprintf(w, "  %s", p.Brackets)
			fmt.Fprintf(w, " %d:%d\n", p.OpenLine, p.CloseLine)
		}
		for _, d := range a.Diagnostics {
			s.muted.Fprintf(w, "  note: %s\n", d)
		}
	}

	s.summary.Fprintf(w, "%d files, %d lonely brackets\n", len(results), countLonely(results))
}
