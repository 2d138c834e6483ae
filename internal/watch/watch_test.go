package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/processing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Watch.DebounceMs = 10
	cfg.Performance.DebounceMs = 5
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFilter_Matches(t *testing.T) {
	cfg := testConfig()
	f := NewFilter(cfg.Watch, "/repo")

	assert.True(t, f.Matches("/repo/src/main.go"))
	assert.True(t, f.Matches("/repo/lib/a.c"))
	assert.False(t, f.Matches("/repo/README.md"), "no include patterns: only supported languages")
	assert.False(t, f.Matches("/repo/node_modules/x/index.js"))
	assert.True(t, f.IgnoreDirectory("/repo/.git"))
	assert.True(t, f.IgnoreDirectory("/repo/sub/vendor"))
	assert.False(t, f.IgnoreDirectory("/repo/src"))

	cfg.Watch.Include = []string{"**/*.md"}
	f = NewFilter(cfg.Watch, "/repo")
	assert.True(t, f.Matches("/repo/docs/guide.md"))
	assert.False(t, f.Matches("/repo/src/main.go"))
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.js"), "f(a);")
	writeFile(t, filepath.Join(dir, "pkg", "b.go"), "package b")
	writeFile(t, filepath.Join(dir, "vendor", "c.go"), "package c")
	writeFile(t, filepath.Join(dir, "notes.txt"), "(")

	files, err := Collect(testConfig().Watch, []string{dir, filepath.Join(dir, "notes.txt"), filepath.Join(dir, "a.js")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.js"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "pkg", "b.go"),
	}, files)

	_, err = Collect(testConfig().Watch, []string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "create", EventCreate.String())
	assert.Equal(t, "remove", EventRemove.String())
	assert.Equal(t, "unknown", EventType(42).String())
}

func TestWatcher_StartCollectsExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.js"), "f(a);")
	writeFile(t, filepath.Join(dir, "pkg", "b.go"), "package b")
	writeFile(t, filepath.Join(dir, "node_modules", "c.js"), "c()")
	writeFile(t, filepath.Join(dir, "notes.txt"), "(")

	w, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, w.Start(dir))
	defer w.Stop()

	root := w.Root()
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.js"),
		filepath.Join(root, "pkg", "b.go"),
	}, w.Existing())
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := New(testConfig())
	require.NoError(t, err)

	events := make(chan string, 16)
	w.SetHandler(func(path string, ev EventType) {
		events <- filepath.Base(path) + ":" + ev.String()
	})
	require.NoError(t, w.Start(dir))
	defer w.Stop()

	path := filepath.Join(w.Root(), "main.js")
	writeFile(t, path, "f(")
	writeFile(t, path, "f()")

	select {
	case got := <-events:
		assert.Contains(t, []string{"main.js:create", "main.js:write"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		select {
		case got := <-events:
			return got == "main.js:remove"
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Positive(t, w.Stats().EventsProcessed)
}

func TestManager_FollowsFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.js")
	writeFile(t, path, "f(a);")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager(ctx, nil, testConfig())
	defer m.Shutdown()

	reports := make(chan Report, 64)
	m.SetOnReport(func(r Report) {
		select {
		case reports <- r:
		default:
		}
	})

	c, err := m.Open(path)
	require.NoError(t, err)
	awaitPublished(t, reports, path)
	assert.Empty(t, c.Container().AllSingles())
	assert.Equal(t, []string{path}, m.Paths())

	writeFile(t, path, "f(a;")
	m.Handle(path, EventWrite)
	awaitPublished(t, reports, path)
	assert.Len(t, c.Container().AllSingles(), 1)

	cfg := testConfig()
	cfg.Brackets.Lonely = ""
	m.SetConfig(cfg)
	awaitPublished(t, reports, path)
	assert.Empty(t, c.Container().AllSingles())

	m.Handle(path, EventRemove)
	_, ok := m.Coordinator(path)
	assert.False(t, ok)
	assert.Empty(t, m.Paths())
}

func TestManager_OpenMissingAndAfterShutdown(t *testing.T) {
	m := NewManager(context.Background(), nil, testConfig())
	_, err := m.Open(filepath.Join(t.TempDir(), "missing.js"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "a.js")
	writeFile(t, path, "x")
	m.Shutdown()
	_, err = m.Open(path)
	assert.Error(t, err)
}

func awaitPublished(t *testing.T, reports <-chan Report, path string) Report {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-reports:
			if r.Path == path && r.Outcome == processing.OutcomePublished {
				return r
			}
		case <-deadline:
			t.Fatalf("no published cycle for %s", path)
			return Report{}
		}
	}
}
