// Package version carries build information. Variables are set at build time
// via ldflags.
package version

var (
	// Version is the semantic version of the worker. YAML signatures may
	// constrain it with a "requires" expression.
	Version = "0.4.0"

	// CommitHash is the git commit hash when the binary was built.
	CommitHash = "dev"
)
