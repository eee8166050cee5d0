// Package version holds build metadata injected via ldflags:
//
//	-X github.com/kailas-cloud/attachments/internal/version.Version=v1.2.0
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the version with its commit and build date.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}

// UserAgent is the default User-Agent for outbound fetches.
func UserAgent() string {
	return "attachments/" + Version
}
