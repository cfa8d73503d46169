// Package version carries build metadata stamped in at link time.
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
