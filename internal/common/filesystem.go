// Package common provides shared interfaces and utilities used across the runner packages.
//
//nolint:revive // var-naming: package name "common" is intentional for shared internal utilities
package common

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileSystem defines the interface for file system operations.
// This interface allows for easy mocking in tests and provides a consistent API
// for directory lifecycle operations across all packages.
type FileSystem interface {
	// Mkdir creates a single directory with the specified permissions.
	// Fails with fs.ErrExist if the path already exists.
	Mkdir(path string, perm os.FileMode) error

	// MkdirAll creates a directory and all necessary parents with the specified permissions
	MkdirAll(path string, perm os.FileMode) error

	// Chmod changes the mode of the named file or directory
	Chmod(path string, perm os.FileMode) error

	// WriteFile writes data to the named file, creating it if necessary
	WriteFile(path string, data []byte, perm os.FileMode) error

	// Remove removes a single file or empty directory
	Remove(path string) error

	// RemoveAll removes a directory and all its contents
	RemoveAll(path string) error

	// Lstat returns file information without following symlinks
	Lstat(path string) (fs.FileInfo, error)

	// ReadDir reads the named directory and returns its entries sorted by name
	ReadDir(path string) ([]fs.DirEntry, error)

	// FileExists checks if a file or directory exists
	FileExists(path string) (bool, error)

	// IsDir checks if the path is a directory
	IsDir(path string) (bool, error)
}

// DefaultFileSystem implements FileSystem using standard os package functions
type DefaultFileSystem struct{}

// NewDefaultFileSystem creates a new DefaultFileSystem
func NewDefaultFileSystem() *DefaultFileSystem {
	return &DefaultFileSystem{}
}

// Mkdir creates a single directory with the specified permissions
func (fs *DefaultFileSystem) Mkdir(path string, perm os.FileMode) error {
	return os.Mkdir(path, perm)
}

// MkdirAll creates a directory and all necessary parents with the specified permissions
func (fs *DefaultFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Chmod changes the mode of the named file or directory
func (fs *DefaultFileSystem) Chmod(path string, perm os.FileMode) error {
	return os.Chmod(path, perm)
}

// WriteFile writes data to the named file, creating it if necessary
func (fs *DefaultFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// Remove removes a single file or empty directory
func (fs *DefaultFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll removes a directory and all its contents
func (fs *DefaultFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Lstat returns file information without following symlinks
func (fs *DefaultFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// ReadDir reads the named directory and returns its entries sorted by name
func (fs *DefaultFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// FileExists checks if a file or directory exists
func (fs *DefaultFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// IsDir checks if the path is a directory
func (fs *DefaultFileSystem) IsDir(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// ContainsPathTraversalSegment checks if a path contains ".." as a distinct path segment
// This avoids false positives for legitimate filenames that contain ".." (e.g., "archive..zip")
func ContainsPathTraversalSegment(path string) bool {
	// Split the path into segments and check if any segment is ".."
	segments := strings.Split(path, string(filepath.Separator))
	return slices.Contains(segments, "..")
}
