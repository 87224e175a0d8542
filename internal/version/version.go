// Package version holds build-time version information for the plugmind
// binary. The variables are populated via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/plugmind-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/plugmind-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/plugmind-go/internal/version.BuildDate=2026-01-01"
//
// Without ldflags the values fall back to "dev" and "unknown".
package version

import "fmt"

var (
	// Version is the semantic version of the binary.
	Version = "dev"
	// Commit is the short git SHA the binary was built from.
	Commit = "unknown"
	// BuildDate is the UTC build date.
	BuildDate = "unknown"
)

// String renders the version line printed by `plugmind version` and
// reported by the health endpoint.
func String() string {
	return fmt.Sprintf("plugmind %s (commit %s, built %s)", Version, Commit, BuildDate)
}
