// Package version holds build version information, set via -ldflags.
package version

// Version is the SDK CLI version.
var Version = "0.1.0"

// GitCommit is the commit the binary was built from.
var GitCommit = ""

// String returns Version with the commit appended when known.
func String() string {
	if GitCommit == "" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}
