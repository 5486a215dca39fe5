// Package version exposes build metadata injected at link time.
package version

//nolint:gochecknoglobals // Values are overridden with -ldflags "-X" at build time.
var (
	// Version is the semantic version of the binary.
	Version = "0.1.0"
	// Commit is the git commit the binary was built from.
	Commit = "none"
	// BuildTime is the time the binary was built.
	BuildTime = "unknown"
)

// Short returns the version only.
func Short() string {
	return Version
}

// Full returns the version together with the commit and build time.
func Full() string {
	return "version: " + Version + ", commit: " + Commit + ", built at: " + BuildTime
}
