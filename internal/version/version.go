package version

import "fmt"

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X github.com/jpdna/utils/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `pathtimer --version`.
func String() string {
	return fmt.Sprintf("pathtimer %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
