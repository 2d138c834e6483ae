// Package debug is the component-tagged debug log. Output is off unless a
// writer is configured and debugging is enabled by build flag, environment
// or an explicit log file.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// EnableDebug turns debugging on for every component when set to "true":
// go build -ldflags "-X github.com/standardbeagle/bracketeer/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode silences all output; stdout carries the protocol
var MCPMode = false

// EnvVar selects components: 1, true or all for everything, or a comma
// separated list such as "scan,cycle"
const EnvVar = "BRACKETEER_DEBUG"

type sink struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	start time.Time
	// forced is set while a log file is open
	forced bool
}

var state = &sink{start: time.Now()}

// SetMCPMode enables or disables MCP mode
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetDebugOutput replaces the writer. nil disables output.
func SetDebugOutput(w io.Writer) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.out = w
}

// InitDebugLogFile opens a timestamped log under the temp directory and
// enables every component until CloseDebugLog.
func InitDebugLogFile() (string, error) {
	dir := filepath.Join(os.TempDir(), "bracketeer-debug-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}
	path := filepath.Join(dir, "debug-"+time.Now().Format("2006-01-02T150405")+".log")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	state.file, state.out, state.forced = f, f, true
	return path, nil
}

// CloseDebugLog closes the log file opened by InitDebugLogFile, if any
func CloseDebugLog() error {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.file == nil {
		return nil
	}
	err := state.file.Close()
	state.file, state.out, state.forced = nil, nil, false
	return err
}

// IsDebugEnabled reports whether any component may log
func IsDebugEnabled() bool {
	return componentEnabled("")
}

// componentEnabled checks the switches for one component; "" asks whether
// any component is on
func componentEnabled(component string) bool {
	if MCPMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	state.mu.Lock()
	forced := state.forced
	state.mu.Unlock()
	if forced {
		return true
	}

	value := strings.ToLower(strings.TrimSpace(os.Getenv(EnvVar)))
	if value == "" {
		value = strings.ToLower(os.Getenv("DEBUG"))
	}
	switch value {
	case "":
		return false
	case "1", "true", "all":
		return true
	}
	if component == "" {
		return true
	}
	for _, name := range strings.Split(value, ",") {
		if strings.TrimSpace(name) == strings.ToLower(component) {
			return true
		}
	}
	return false
}

func (s *sink) write(prefix, format string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return
	}
	elapsed := time.Since(s.start).Milliseconds()
	fmt.Fprintf(s.out, "%s +%dms "+format, append([]any{prefix, elapsed}, args...)...)
}

// Printf writes an untagged line when debugging is on
func Printf(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	state.write("[DEBUG]", format, args)
}

// Log writes a line tagged with component
func Log(component, format string, args ...any) {
	if !componentEnabled(component) {
		return
	}
	state.write("[DEBUG:"+component+"]", format, args)
}

// LogScan logs bracket scanner activity
func LogScan(format string, args ...any) {
	Log("SCAN", format, args...)
}

// LogHints logs scope-hint extraction, including scope-trace diagnostics
func LogHints(format string, args ...any) {
	Log("HINTS", format, args...)
}

// LogCycle logs coordinator cycle scheduling, publishing and discarding
func LogCycle(format string, args ...any) {
	Log("CYCLE", format, args...)
}

// LogHighlight logs highlighter paint-set changes
func LogHighlight(format string, args ...any) {
	Log("HIGHLIGHT", format, args...)
}

// LogMCP logs MCP requests; it is silent while serving over stdio
func LogMCP(format string, args ...any) {
	Log("MCP", format, args...)
}
