package debug

import (
	"bytes"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate resets the package switches for one test and restores them after
func isolate(t *testing.T) *bytes.Buffer {
	t.Helper()
	originalDebug, originalMode := EnableDebug, MCPMode
	state.mu.Lock()
	originalOut, originalFile, originalForced := state.out, state.file, state.forced
	state.mu.Unlock()
	t.Cleanup(func() {
		EnableDebug, MCPMode = originalDebug, originalMode
		state.mu.Lock()
		state.out, state.file, state.forced = originalOut, originalFile, originalForced
		state.mu.Unlock()
	})

	t.Setenv("DEBUG", "")
	t.Setenv(EnvVar, "")
	EnableDebug, MCPMode = "false", false
	var buf bytes.Buffer
	SetDebugOutput(&buf)
	return &buf
}

func TestIsDebugEnabled(t *testing.T) {
	isolate(t)
	assert.False(t, IsDebugEnabled())

	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())

	MCPMode = true
	assert.False(t, IsDebugEnabled(), "MCP mode always silences debug output")
}

func TestIsDebugEnabled_Environment(t *testing.T) {
	isolate(t)

	t.Setenv(EnvVar, "1")
	assert.True(t, IsDebugEnabled())

	t.Setenv(EnvVar, "")
	t.Setenv("DEBUG", "true")
	assert.True(t, IsDebugEnabled())
}

func TestLog_ComponentPrefixes(t *testing.T) {
	buf := isolate(t)
	EnableDebug = "true"

	LogScan("scanned %d offsets\n", 10)
	LogHints("desync at %d\n", 4)
	LogCycle("published\n")
	LogHighlight("redraw\n")
	Printf("plain\n")

	out := buf.String()
	for _, pattern := range []string{
		`\[DEBUG:SCAN\] \+\d+ms scanned 10 offsets`,
		`\[DEBUG:HINTS\] \+\d+ms desync at 4`,
		`\[DEBUG:CYCLE\] \+\d+ms published`,
		`\[DEBUG:HIGHLIGHT\] \+\d+ms redraw`,
		`\[DEBUG\] \+\d+ms plain`,
	} {
		assert.Regexp(t, regexp.MustCompile(pattern), out)
	}
}

func TestLog_ComponentFilter(t *testing.T) {
	buf := isolate(t)
	t.Setenv(EnvVar, "scan, cycle")

	LogScan("kept\n")
	LogCycle("kept too\n")
	LogHints("dropped\n")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG:SCAN]")
	assert.Contains(t, out, "[DEBUG:CYCLE]")
	assert.NotContains(t, out, "dropped")
	assert.True(t, IsDebugEnabled())
}

func TestLog_NoWriter(t *testing.T) {
	isolate(t)
	EnableDebug = "true"
	SetDebugOutput(nil)
	assert.NotPanics(t, func() { Log("TEST", "nothing %d", 1) })
}

func TestLog_MCPMode(t *testing.T) {
	buf := isolate(t)
	EnableDebug = "true"
	SetMCPMode(true)
	LogMCP("tool call\n")
	assert.Empty(t, buf.String())
}

func TestInitDebugLogFile(t *testing.T) {
	isolate(t)

	path, err := InitDebugLogFile()
	require.NoError(t, err)
	defer os.Remove(path)

	Log("TEST", "to file\n")
	require.NoError(t, CloseDebugLog())
	assert.False(t, IsDebugEnabled(), "closing the file ends forced logging")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG:TEST]")
	assert.Contains(t, string(data), "to file")
	assert.NoError(t, CloseDebugLog())
}
