// Package version carries build information injected with -ldflags.
package version

import "fmt"

var (
	// Version is the program version written to the parameter manifest.
	Version = "1.0"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("wasp version %s (commit: %s, built: %s)", Version, GitSHA, BuildTime)
}
