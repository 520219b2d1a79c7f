// Package version exposes build metadata stamped in at link time.
package version

// These variables are set via -ldflags at build time.
var (
	// Version is the semantic version of the build
	Version = "dev"
	// Commit is the git commit hash of the build
	Commit = "unknown"
	// BuildTime is the timestamp of the build
	BuildTime = "unknown"
)
