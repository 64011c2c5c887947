// Package version carries the build version stamped in via ldflags.
package version

var version = "v0.0.0"

// Get returns the build version.
func Get() string {
	return version
}
