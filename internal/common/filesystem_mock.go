package common

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultDirPerm represents default directory permissions (rwxr-xr-x)
	DefaultDirPerm = 0o755
)

// ErrDirectoryNotEmpty is returned when trying to remove a non-empty directory
var ErrDirectoryNotEmpty = errors.New("directory not empty")

// MockFileSystem implements FileSystem for testing
type MockFileSystem struct {
	files map[string]*MockFileInfo
	data  map[string][]byte
	dirs  map[string]bool
	// writeErrors maps path prefixes to injected errors for write operations
	// (Mkdir, MkdirAll, WriteFile). Used to simulate read-only locations.
	writeErrors map[string]error
}

// MockFileInfo implements fs.FileInfo for testing
type MockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
	uid     uint32
	gid     uint32
}

// Name returns the base name of the file
func (m *MockFileInfo) Name() string { return m.name }

// Size returns the length in bytes
func (m *MockFileInfo) Size() int64 { return m.size }

// Mode returns the file mode bits
func (m *MockFileInfo) Mode() os.FileMode { return m.mode }

// ModTime returns the modification time
func (m *MockFileInfo) ModTime() time.Time { return m.modTime }

// IsDir reports whether m describes a directory
func (m *MockFileInfo) IsDir() bool { return m.isDir }

// Sys returns the underlying data source (syscall.Stat_t for mock)
func (m *MockFileInfo) Sys() any {
	return &syscall.Stat_t{
		Uid: m.uid,
		Gid: m.gid,
	}
}

// mockDirEntry adapts MockFileInfo to fs.DirEntry for ReadDir
type mockDirEntry struct {
	info *MockFileInfo
}

func (e *mockDirEntry) Name() string               { return e.info.name }
func (e *mockDirEntry) IsDir() bool                { return e.info.isDir }
func (e *mockDirEntry) Type() fs.FileMode          { return e.info.mode.Type() }
func (e *mockDirEntry) Info() (fs.FileInfo, error) { return e.info, nil }

// NewMockFileSystem creates a new MockFileSystem
func NewMockFileSystem() *MockFileSystem {
	m := &MockFileSystem{
		files:       make(map[string]*MockFileInfo),
		data:        make(map[string][]byte),
		dirs:        make(map[string]bool),
		writeErrors: make(map[string]error),
	}

	// Add root directory by default (owned by root with secure permissions)
	m.AddDirWithOwner("/", 0o755, 0, 0)

	return m
}

// SetWriteError injects an error for all write operations at or below pathPrefix
// (for testing unwritable locations)
func (m *MockFileSystem) SetWriteError(pathPrefix string, err error) {
	m.writeErrors[filepath.Clean(pathPrefix)] = err
}

func (m *MockFileSystem) writeErrorFor(path string) error {
	path = filepath.Clean(path)
	for prefix, err := range m.writeErrors {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return err
		}
	}
	return nil
}

// Mkdir creates a single directory in the mock filesystem. The parent must
// already exist and the path itself must not.
func (m *MockFileSystem) Mkdir(path string, perm os.FileMode) error {
	path = filepath.Clean(path)

	if err := m.writeErrorFor(path); err != nil {
		return &os.PathError{Op: "mkdir", Path: path, Err: err}
	}
	if _, exists := m.files[path]; exists {
		return &os.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	parent := filepath.Dir(path)
	if !m.dirs[parent] {
		return &os.PathError{Op: "mkdir", Path: path, Err: fs.ErrNotExist}
	}

	m.addDirEntry(path, perm|os.ModeDir, 0, 0)
	return nil
}

// MkdirAll creates directories and all parent directories in the mock filesystem
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	path = filepath.Clean(path)

	if err := m.writeErrorFor(path); err != nil {
		return &os.PathError{Op: "mkdir", Path: path, Err: err}
	}

	parts := strings.Split(path, string(filepath.Separator))
	currentPath := ""

	for i, part := range parts {
		switch {
		case part == "" && i == 0:
			// Root directory on Unix
			currentPath = "/"
		case part == "":
			continue
		case currentPath == "/":
			currentPath = "/" + part
		case currentPath == "":
			currentPath = part
		default:
			currentPath = filepath.Join(currentPath, part)
		}

		if _, exists := m.dirs[currentPath]; !exists {
			m.addDirEntry(currentPath, perm|os.ModeDir, 0, 0)
		}
	}

	return nil
}

// Chmod changes the mode of an existing entry in the mock filesystem
func (m *MockFileSystem) Chmod(path string, perm os.FileMode) error {
	path = filepath.Clean(path)

	info, exists := m.files[path]
	if !exists {
		return &os.PathError{Op: "chmod", Path: path, Err: fs.ErrNotExist}
	}
	info.mode = perm | (info.mode & os.ModeType)
	return nil
}

// WriteFile writes data to a file in the mock filesystem. The parent directory
// must already exist.
func (m *MockFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	path = filepath.Clean(path)

	if err := m.writeErrorFor(path); err != nil {
		return &os.PathError{Op: "open", Path: path, Err: err}
	}
	parent := filepath.Dir(path)
	if !m.dirs[parent] {
		return &os.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}

	m.files[path] = &MockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(data)),
		mode:    perm,
		modTime: time.Now(),
	}
	m.data[path] = append([]byte(nil), data...)
	return nil
}

// RemoveAll removes a directory and all its contents from the mock filesystem
func (m *MockFileSystem) RemoveAll(path string) error {
	path = filepath.Clean(path)

	// Remove the path itself if it exists
	delete(m.dirs, path)
	delete(m.files, path)
	delete(m.data, path)

	// Remove all subdirectories and files
	sep := string(filepath.Separator)
	prefix := path + sep
	for filePath := range m.files {
		if strings.HasPrefix(filePath, prefix) {
			delete(m.files, filePath)
			delete(m.dirs, filePath)
			delete(m.data, filePath)
		}
	}

	return nil
}

// Remove removes a single file or empty directory from the mock filesystem
func (m *MockFileSystem) Remove(path string) error {
	path = filepath.Clean(path)

	if _, exists := m.files[path]; !exists {
		return os.ErrNotExist
	}

	// For directories, check if empty
	for filePath := range m.files {
		if filePath != path && strings.HasPrefix(filePath, path+string(filepath.Separator)) {
			return ErrDirectoryNotEmpty
		}
	}

	delete(m.files, path)
	delete(m.dirs, path)
	delete(m.data, path)

	return nil
}

// Lstat returns file information for the given path
func (m *MockFileSystem) Lstat(path string) (fs.FileInfo, error) {
	path = filepath.Clean(path)

	info, exists := m.files[path]
	if !exists {
		return nil, os.ErrNotExist
	}

	return info, nil
}

// ReadDir returns the immediate children of a directory in the mock filesystem
func (m *MockFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	path = filepath.Clean(path)

	if !m.dirs[path] {
		return nil, &os.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}

	prefix := path + string(filepath.Separator)
	if path == "/" {
		prefix = "/"
	}

	var entries []fs.DirEntry
	for filePath, info := range m.files {
		if filePath == path || !strings.HasPrefix(filePath, prefix) {
			continue
		}
		// Immediate children only
		rest := strings.TrimPrefix(filePath, prefix)
		if strings.Contains(rest, string(filepath.Separator)) {
			continue
		}
		entries = append(entries, &mockDirEntry{info: info})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// FileExists checks if a file or directory exists in the mock filesystem
func (m *MockFileSystem) FileExists(path string) (bool, error) {
	path = filepath.Clean(path)
	_, exists := m.files[path]
	return exists, nil
}

// IsDir checks if the path is a directory in the mock filesystem
func (m *MockFileSystem) IsDir(path string) (bool, error) {
	path = filepath.Clean(path)

	info, exists := m.files[path]
	if !exists {
		return false, os.ErrNotExist
	}

	return info.IsDir(), nil
}

// GetFiles returns all files in the mock filesystem (for testing)
func (m *MockFileSystem) GetFiles() []string {
	var files []string
	for path := range m.files {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// GetDirs returns all directories in the mock filesystem (for testing)
func (m *MockFileSystem) GetDirs() []string {
	var dirs []string
	for path := range m.dirs {
		dirs = append(dirs, path)
	}
	sort.Strings(dirs)
	return dirs
}

// FileContent returns the stored content of a file (for testing)
func (m *MockFileSystem) FileContent(path string) ([]byte, bool) {
	data, ok := m.data[filepath.Clean(path)]
	return data, ok
}

// AddFile adds a file to the mock filesystem (for testing)
func (m *MockFileSystem) AddFile(path string, mode os.FileMode, content []byte) error {
	path = filepath.Clean(path)

	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := m.MkdirAll(dir, DefaultDirPerm); err != nil {
			return err
		}
	}

	m.files[path] = &MockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(content)),
		mode:    mode,
		modTime: time.Now(),
	}
	m.data[path] = append([]byte(nil), content...)
	return nil
}

// AddDir adds a directory to the mock filesystem (for testing)
func (m *MockFileSystem) AddDir(path string, mode os.FileMode) {
	m.AddDirWithOwner(path, mode, 0, 0)
}

// AddDirWithOwner adds a directory with specified owner to the mock filesystem (for testing)
func (m *MockFileSystem) AddDirWithOwner(path string, mode os.FileMode, uid, gid uint32) {
	m.addDirEntry(filepath.Clean(path), mode|os.ModeDir, uid, gid)
}

// AddDirWithModTime adds a directory with a fixed modification time (for testing)
func (m *MockFileSystem) AddDirWithModTime(path string, mode os.FileMode, modTime time.Time) {
	path = filepath.Clean(path)
	m.addDirEntry(path, mode|os.ModeDir, 0, 0)
	m.files[path].modTime = modTime
}

func (m *MockFileSystem) addDirEntry(path string, mode os.FileMode, uid, gid uint32) {
	m.dirs[path] = true
	m.files[path] = &MockFileInfo{
		name:    filepath.Base(path),
		mode:    mode,
		modTime: time.Now(),
		isDir:   true,
		uid:     uid,
		gid:     gid,
	}
}
