// Package version carries build identification stamped in by the
// release pipeline (-ldflags "-X ...").
package version

//nolint:revive // Overwritten at link time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
