// Package version holds build metadata, overridden at link time with -ldflags "-X".
package version

var (
	Version = "dev"
	Commit  = "none"
)
