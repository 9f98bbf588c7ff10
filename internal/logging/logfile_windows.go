//go:build windows

package logging

import "os"

// openLogFileNoFollow opens path for writing. Windows has no O_NOFOLLOW;
// symlink creation there requires elevated rights, so the plain open is
// accepted.
func openLogFileNoFollow(path string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
}
