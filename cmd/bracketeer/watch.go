package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/bracketeer/internal/processing"
	"github.com/standardbeagle/bracketeer/internal/watch"
)

// watchEvent is the JSON line written for each finished cycle
type watchEvent struct {
	Path       string  `json:"path"`
	Version    uint64  `json:"version"`
	Reason     string  `json:"reason"`
	Outcome    string  `json:"outcome"`
	Pairs      int     `json:"pairs"`
	Singles    int     `json:"singles"`
	Hints      int     `json:"hints"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}

func watchCommand(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if format != "text" && format != "json" {
		return cli.Exit(fmt.Sprintf("invalid format %q: use text or json", format), 2)
	}

	root := "."
	if c.NArg() > 0 {
		root = c.Args().First()
	}
	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	w, err := watch.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	mgr := watch.NewManager(ctx, nil, cfg)
	defer mgr.Shutdown()

	var mu sync.Mutex
	out := c.App.Writer
	mgr.SetOnReport(func(r watch.Report) {
		if r.Outcome == processing.OutcomeCancelled || r.Outcome == processing.OutcomeSkipped {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		writeReport(out, format, newWatchEvent(mgr, r))
	})

	w.SetHandler(mgr.Handle)
	if err := w.Start(root); err != nil {
		return err
	}
	defer w.Stop()

	for _, path := range w.Existing() {
		if _, err := mgr.Open(path); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", err)
		}
	}
	fmt.Fprintf(c.App.ErrWriter, "watching %s (%d files), press Ctrl+C to stop\n", w.Root(), len(w.Existing()))

	<-ctx.Done()
	return nil
}

func newWatchEvent(mgr *watch.Manager, r watch.Report) watchEvent {
	ev := watchEvent{
		Path:       r.Path,
		Version:    r.Version,
		Reason:     string(r.Reason),
		Outcome:    string(r.Outcome),
		DurationMs: float64(r.Duration.Microseconds()) / 1000,
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	if coord, ok := mgr.Coordinator(r.Path); ok {
		snap := coord.Container().Snapshot()
		ev.Pairs, ev.Singles, ev.Hints = len(snap.Pairs), len(snap.Singles), len(snap.Hints)
	}
	return ev
}

func writeReport(w io.Writer, format string, ev watchEvent) {
	if format == "json" {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintln(w, string(data))
		return
	}
	if ev.Error != "" {
		fmt.Fprintf(w, "%s v%d %s: %s\n", ev.Path, ev.Version, ev.Outcome, ev.Error)
		return
	}
	fmt.Fprintf(w, "%s v%d %s: %d pairs, %d lonely, %d hints (%.1fms)\n",
		ev.Path, ev.Version, ev.Reason, ev.Pairs, ev.Singles, ev.Hints, ev.DurationMs)
}
