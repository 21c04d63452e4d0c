// Package version executes and returns the version string
// for the currently running process.
package version

import (
	"fmt"
	"runtime"
)

// The value of these vars are set through linker options.
var gitCommit = "Local build"
var buildDate = "Moments ago"

// GetVersion returns the version string of this build.
func GetVersion() string {
	return fmt.Sprintf("%s. Built at: %s with %s", gitCommit, buildDate, runtime.Version())
}
