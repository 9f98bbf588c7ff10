//go:build !linux

package safefileio

import "os"

// openNoFollow opens absPath read-only without following symlinks. Without
// openat2 the portable two-phase method is the best available.
func openNoFollow(absPath string) (*os.File, error) {
	return openNoFollowPortable(absPath)
}
