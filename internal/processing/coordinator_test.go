package processing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/container"
	"github.com/standardbeagle/bracketeer/internal/document"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	coord   *Coordinator
	reports chan CycleReport
}

func newHarness(t *testing.T, path, src string, cfg *config.Config) *harness {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
		cfg.Performance.DebounceMs = 5
	}
	h := &harness{
		coord:   NewCoordinator(document.NewStore(path, []byte(src)), container.New(), nil, cfg),
		reports: make(chan CycleReport, 64),
	}
	h.coord.SetOnCycleComplete(func(r CycleReport) {
		select {
		case h.reports <- r:
		default:
		}
	})
	require.NoError(t, h.coord.Start(context.Background()))
	t.Cleanup(h.coord.Shutdown)
	return h
}

// await returns the first report with the wanted outcome
func (h *harness) await(t *testing.T, want Outcome) CycleReport {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-h.reports:
			if r.Outcome == want {
				return r
			}
		case <-deadline:
			t.Fatalf("timeout waiting for a %s cycle", want)
			return CycleReport{}
		}
	}
}

func TestCoordinator_InitialCycle(t *testing.T) {
	h := newHarness(t, "main.js", scriptSource, nil)

	r := h.await(t, OutcomePublished)
	assert.Equal(t, ReasonInitial, r.Reason)
	assert.True(t, r.Changes.Any())
	require.NotNil(t, r.Result)
	assert.True(t, r.Result.HasTree)

	ctr := h.coord.Container()
	assert.NotEmpty(t, ctr.AllHints())
	assert.Len(t, ctr.AllSingles(), 1)
	assert.EqualValues(t, 1, h.coord.Stats().Published)
}

func TestCoordinator_UpdateRepublishes(t *testing.T) {
	h := newHarness(t, "main.js", "f(a);", nil)
	h.await(t, OutcomePublished)
	assert.Empty(t, h.coord.Container().AllSingles())

	h.coord.Update([]byte("f(a;"))
	r := h.await(t, OutcomePublished)
	assert.Equal(t, ReasonBufferChanged, r.Reason)
	assert.True(t, r.Changes.Pairs)
	assert.True(t, r.Changes.Singles)
	assert.Len(t, h.coord.Container().AllSingles(), 1)
}

func TestCoordinator_UnchangedBufferIsSkipped(t *testing.T) {
	h := newHarness(t, "main.js", "f(a);", nil)
	first := h.await(t, OutcomePublished)

	h.coord.Update([]byte("f(a);"))
	h.coord.Trigger(ReasonBufferChanged)
	h.await(t, OutcomeSkipped)
	assert.EqualValues(t, 1, h.coord.Stats().Published)

	h.coord.ForceCycle()
	r := h.await(t, OutcomePublished)
	assert.Equal(t, ReasonForced, r.Reason)
	assert.False(t, r.Changes.Any(), "same content publishes the same collections")
	assert.Equal(t, first.Version, r.Version)
}

func TestCoordinator_SetConfig(t *testing.T) {
	h := newHarness(t, "main.js", "f(a);", nil)
	h.await(t, OutcomePublished)

	var notified atomic.Int32
	h.coord.OnConfigurationChanged(func(cfg *config.Config) {
		assert.Equal(t, "()", cfg.Brackets.Lonely)
		notified.Add(1)
	})

	cfg := config.Default()
	cfg.Brackets.Lonely = "()"
	h.coord.SetConfig(cfg)

	r := h.await(t, OutcomePublished)
	assert.Equal(t, ReasonConfigChanged, r.Reason)
	assert.EqualValues(t, 1, notified.Load())
	assert.Equal(t, "()", h.coord.Config().Brackets.Lonely)
}

func TestCoordinator_LatestContentWins(t *testing.T) {
	h := newHarness(t, "main.js", "f(a);", nil)
	h.await(t, OutcomePublished)

	for i := 0; i < 20; i++ {
		h.coord.Update([]byte("g([" + string(rune('a'+i)) + "]);"))
	}
	h.coord.Update([]byte("h((x);"))

	require.Eventually(t, func() bool {
		singles := h.coord.Container().AllSingles()
		return len(singles) == 1 && singles[0].Position.Offset == 1
	}, 5*time.Second, 10*time.Millisecond)

	st := h.coord.Stats()
	assert.Equal(t, st.Cycles, st.Published+st.Cancelled+st.Skipped+st.Failed)
	assert.Zero(t, st.Failed)
}

func TestCoordinator_StartTwice(t *testing.T) {
	h := newHarness(t, "main.js", "f(a);", nil)
	assert.Error(t, h.coord.Start(context.Background()))
	h.coord.Shutdown()
	h.coord.Shutdown()
}

func TestCoordinator_ListenersSeePublishedSnapshot(t *testing.T) {
	store := document.NewStore("main.js", []byte("f(a);"))
	ctr := container.New()
	var updates atomic.Int32
	remove := ctr.AddListener(container.ListenerFunc(func(p, s, hh bool) {
		updates.Add(1)
	}))
	defer remove()

	coord := NewCoordinator(store, ctr, nil, nil)
	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()

	require.Eventually(t, func() bool { return updates.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, ctr.Snapshot().Pairs, 1)
}
