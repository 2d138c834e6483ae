package version

import (
	"runtime/debug"
)

// Version information for bracketeer
const (
	// Version is the current semantic version
	Version = "0.1.0"

	// BuildDate is set during build time (use -ldflags)
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags)
	GitCommit = "unknown"
)

// Info returns the version string
func Info() string {
	return Version
}

// FullInfo returns detailed version information
func FullInfo() string {
	return "bracketeer " + Version + " (commit: " + commit() + ", built: " + BuildDate + ")"
}

// commit prefers the VCS revision embedded by the go tool
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			return s.Value[:12]
		}
	}
	return GitCommit
}
