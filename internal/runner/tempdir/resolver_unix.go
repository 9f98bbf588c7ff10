//go:build !windows

package tempdir

import "golang.org/x/sys/unix"

// accessWritable checks write and search permission with access(2); the
// probe write alone does not catch read-only remounts or restricted mounts.
func accessWritable(path string) error {
	return unix.Access(path, unix.W_OK|unix.X_OK)
}
