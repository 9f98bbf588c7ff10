//go:build linux

package safefileio

import (
	"errors"
	"os"
	"sync"
	"syscall"
	"unsafe"
)

// openat2 constants. RESOLVE_NO_SYMLINKS makes the kernel reject any
// symbolic link encountered while resolving the path, which closes the
// window between a path check and the open in one atomic operation.
const (
	resolveNoSymlinks = 0x04
	atFdcwd           = -0x64
	sysOpenat2        = 437
)

// openHow mirrors struct open_how from linux/openat2.h.
type openHow struct {
	flags   uint64
	mode    uint64
	resolve uint64
}

// openat2Supported probes the running kernel once. openat2 appeared in
// Linux 5.6; older kernels and some seccomp sandboxes reject it.
var openat2Supported = sync.OnceValue(func() bool {
	fd, err := openat2(atFdcwd, "/", &openHow{flags: uint64(os.O_RDONLY | syscall.O_CLOEXEC)})
	if err == nil {
		_ = syscall.Close(fd)
	}
	return err == nil
})

func openat2(dirfd int, pathname string, how *openHow) (int, error) {
	pathBytes, err := syscall.BytePtrFromString(pathname)
	if err != nil {
		return -1, err
	}

	fd, _, errno := syscall.Syscall6(
		sysOpenat2,
		uintptr(dirfd),
		// #nosec G103 -- uintptr conversion is required for the syscall interface.
		uintptr(unsafe.Pointer(pathBytes)),
		// #nosec G103 -- uintptr conversion is required for the syscall interface.
		uintptr(unsafe.Pointer(how)),
		unsafe.Sizeof(*how),
		0, 0,
	)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

// openNoFollow opens absPath read-only with symlink resolution disabled,
// falling back to the portable method when openat2 is unavailable.
func openNoFollow(absPath string) (*os.File, error) {
	if !openat2Supported() {
		return openNoFollowPortable(absPath)
	}

	how := openHow{
		flags:   uint64(os.O_RDONLY | syscall.O_CLOEXEC),
		resolve: resolveNoSymlinks,
	}
	fd, err := openat2(atFdcwd, absPath, &how)
	if err != nil {
		var errno syscall.Errno
		if errors.As(err, &errno) && errno == syscall.ELOOP {
			return nil, ErrIsSymlink
		}
		return nil, &os.PathError{Op: "openat2", Path: absPath, Err: err}
	}
	return os.NewFile(uintptr(fd), absPath), nil
}
