// Package buildinfo holds values stamped in at link time.
package buildinfo

// Set with -ldflags "-X github.com/modoterra/logcap/internal/buildinfo.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
