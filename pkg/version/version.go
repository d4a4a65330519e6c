// Package version provides build version information.
package version

import "runtime"

var (
	// Version is the semantic version, set via -ldflags at build time.
	Version = "dev"

	// GitCommit is the git commit hash, set via -ldflags at build time.
	GitCommit = "unknown"

	// BuildDate is the build timestamp, set via -ldflags at build time.
	BuildDate = "unknown"

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)
