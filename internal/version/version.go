// Package version holds build metadata injected with -ldflags -X.
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build information for -version output and startup logs.
func String() string {
	return fmt.Sprintf("add-markers %s (%s, built %s)", Version, GitSHA, BuildTime)
}
