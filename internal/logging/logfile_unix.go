//go:build !windows

package logging

import (
	"os"

	"golang.org/x/sys/unix"
)

// openLogFileNoFollow opens path with O_NOFOLLOW so a symlink left at the
// log path cannot redirect the run's log into another file.
func openLogFileNoFollow(path string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|unix.O_NOFOLLOW, perm)
}
