// Package safefileio reads operator-controlled files without following
// symbolic links. The runner binary may be installed setuid root, so a
// config or env file path must not be usable as a redirect into files the
// invoking user cannot read. On Linux the openat2 system call resolves the
// whole path with symlink resolution disabled; elsewhere a portable
// two-phase check (O_NOFOLLOW plus a component walk) approximates it.
package safefileio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the path or one of its components is a
	// symbolic link, which is not allowed.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrFileTooLarge indicates that the file exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
)

// MaxFileSize is the maximum allowed file size for SafeReadFile (128 MB).
const MaxFileSize = 128 * 1024 * 1024

// SafeReadFile reads a regular file after verifying that no path component
// is a symbolic link. It enforces MaxFileSize to prevent memory exhaustion.
// A missing file is reported with an error satisfying os.ErrNotExist.
func SafeReadFile(filePath string) ([]byte, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	file, err := openNoFollow(absPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	// Stat through the descriptor so the checks apply to the file that was
	// actually opened, not whatever the path points at now.
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", ErrInvalidFilePath, absPath)
	}
	if info.Size() > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	content, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", absPath, err)
	}
	if int64(len(content)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return content, nil
}

// openNoFollowPortable opens the file with O_NOFOLLOW and then walks the
// directory components with Lstat. The walk happens after the open, so a
// symlink swapped in mid-check cannot redirect the descriptor we already
// hold; at worst the open itself raced, which O_NOFOLLOW catches for the
// final component.
func openNoFollowPortable(absPath string) (*os.File, error) {
	// #nosec G304 -- absPath is cleaned above and opened with O_NOFOLLOW.
	file, err := os.OpenFile(absPath, os.O_RDONLY|syscall.O_NOFOLLOW, 0)
	if err != nil {
		if isNoFollowError(err) {
			return nil, ErrIsSymlink
		}
		return nil, err
	}
	if err := verifyNoSymlinkComponents(filepath.Dir(absPath)); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, nil
}

// isNoFollowError reports whether the error indicates an O_NOFOLLOW open
// hit a symlink. Linux returns ELOOP; some BSDs use EMLINK.
func isNoFollowError(err error) bool {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return errors.Is(pathErr.Err, syscall.ELOOP) || errors.Is(pathErr.Err, syscall.EMLINK)
}

// verifyNoSymlinkComponents walks dir and its ancestors and fails if any of
// them is a symbolic link.
func verifyNoSymlinkComponents(dir string) error {
	current := dir
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return nil
		}

		info, err := os.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to stat %s: %w", current, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrIsSymlink, current)
		}

		current = parent
	}
}
