// Package version carries the build metadata stamped into the candy
// binary. Release builds override these variables with -ldflags; a
// plain source build reports the -dev defaults.
package version

var (
	// Version is the semantic version of this build.
	Version = "0.1.0-dev"

	// GitCommit is the hash of the commit the binary was built from,
	// empty when the build was not stamped.
	GitCommit = ""

	// BuildDate is the build timestamp in ISO-8601, empty when the
	// build was not stamped.
	BuildDate = ""
)
