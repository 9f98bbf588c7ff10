package tempdir

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

func TestAllocator_BaseIsStable(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	allocator := newTestAllocator(mockFS, nil)
	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")
	ctx := context.Background()

	base1, err := allocator.Base(ctx, host, priv)
	require.NoError(t, err)
	base2, err := allocator.Base(ctx, host, priv)
	require.NoError(t, err)

	assert.Equal(t, base1, base2, "base must stay constant for one context")
	assert.Equal(t, "/home/alice/.cache/remote-task-runner/tmp", filepath.Dir(base1))

	name := filepath.Base(base1)
	assert.True(t, strings.HasPrefix(name, "rtr-alice-"), "unexpected base name %q", name)
	assert.Len(t, name, len("rtr-alice-")+baseSuffixHexLen)

	isDir, err := mockFS.IsDir(base1)
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestAllocator_BaseSurvivesFilesystemDrift(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	allocator := newTestAllocator(mockFS, nil)
	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")
	ctx := context.Background()

	base1, err := allocator.Base(ctx, host, priv)
	require.NoError(t, err)

	// Something outside the runner removed the directory.
	require.NoError(t, mockFS.RemoveAll(base1))

	base2, err := allocator.Base(ctx, host, priv)
	require.NoError(t, err)
	assert.Equal(t, base1, base2, "a cached base is returned as-is even after drift")
}

func TestAllocator_BasePerPrivilegeContext(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	allocator := newTestAllocator(mockFS, nil)
	host := newTestHost("build-host", Overrides{})
	ctx := context.Background()

	normalBase, err := allocator.Base(ctx, host, runnertypes.NormalContext("alice"))
	require.NoError(t, err)
	elevatedBase, err := allocator.Base(ctx, host, runnertypes.ElevatedContext("alice", "root"))
	require.NoError(t, err)

	assert.NotEqual(t, normalBase, elevatedBase, "privilege contexts must not share a base")
	assert.True(t, strings.HasPrefix(elevatedBase, "/root/.cache/remote-task-runner/tmp/"),
		"elevated base %q must live under the elevated user's home", elevatedBase)
	assert.True(t, strings.HasPrefix(filepath.Base(elevatedBase), "rtr-root-"))
	assert.Equal(t, 2, host.States().Len())
}

func TestAllocator_NewTaskDirsAreDistinct(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	allocator := newTestAllocator(mockFS, nil)
	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")
	ctx := context.Background()

	const count = 10
	seen := make(map[string]struct{}, count)
	var base string

	for i := 0; i < count; i++ {
		taskDir, err := allocator.NewTaskDir(ctx, host, priv, "task")
		require.NoError(t, err)

		if base == "" {
			base = taskDir.Base
		}
		assert.Equal(t, base, taskDir.Base, "all task dirs share one base")
		assert.Equal(t, filepath.Join(taskDir.Base, taskDir.Suffix), taskDir.Path)
		assert.Len(t, taskDir.Suffix, taskSuffixHexLen)
		assert.False(t, taskDir.CreatedAt.IsZero())

		_, dup := seen[taskDir.Path]
		assert.False(t, dup, "task dir %q allocated twice", taskDir.Path)
		seen[taskDir.Path] = struct{}{}

		isDir, err := mockFS.IsDir(taskDir.Path)
		require.NoError(t, err)
		assert.True(t, isDir)
	}
}

func TestAllocator_ConcurrentBaseResolvesOnce(t *testing.T) {
	mockFS := common.NewMockFileSystem()

	var envLookups atomic.Int32
	resolver := newTestResolver(mockFS, nil)
	inner := resolver.lookupEnv
	resolver.lookupEnv = func(key string) (string, bool) {
		envLookups.Add(1)
		return inner(key)
	}
	allocator := NewAllocatorWithFS(mockFS, resolver, discardLogger())

	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")

	const workers = 16
	bases := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bases[n], errs[n] = allocator.Base(context.Background(), host, priv)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, bases[0], bases[i], "every caller must observe the same base")
	}

	// candidates() consults the environment exactly once per resolution.
	assert.Equal(t, int32(1), envLookups.Load(), "resolution must happen exactly once")

	baseCount := 0
	for _, dir := range mockFS.GetDirs() {
		if strings.HasPrefix(filepath.Base(dir), basePrefix+"-") {
			baseCount++
		}
	}
	assert.Equal(t, 1, baseCount, "exactly one base directory must exist")
}

func TestAllocator_ConcurrentTaskDirsAreDistinct(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	allocator := newTestAllocator(mockFS, nil)
	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")

	const workers = 16
	paths := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			taskDir, err := allocator.NewTaskDir(context.Background(), host, priv, "task")
			paths[n], errs[n] = taskDir.Path, err
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		_, dup := seen[paths[i]]
		assert.False(t, dup, "path %q allocated twice", paths[i])
		seen[paths[i]] = struct{}{}
	}
}

// collidingFS lets a fixed number of Mkdir calls succeed, then reports every
// later one as an existing-directory collision.
type collidingFS struct {
	*common.MockFileSystem
	mu      sync.Mutex
	allowed int
	calls   int
}

func (f *collidingFS) Mkdir(path string, perm os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > f.allowed {
		return &os.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	return f.MockFileSystem.Mkdir(path, perm)
}

func TestAllocator_CollisionRetriesAreBounded(t *testing.T) {
	fsys := &collidingFS{MockFileSystem: common.NewMockFileSystem(), allowed: 1}
	allocator := newTestAllocator(fsys, nil)
	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")

	// First Mkdir creates the base, every task dir attempt collides.
	_, err := allocator.NewTaskDir(context.Background(), host, priv, "task")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Equal(t, 1+defaultMaxAttempts, fsys.calls, "retries must stop at the attempt budget")
}

func TestAllocator_CollisionThenSuccess(t *testing.T) {
	// Two collisions, then the third attempt lands.
	fsys := &recoveringFS{MockFileSystem: common.NewMockFileSystem(), failures: 2}
	allocator := newTestAllocator(fsys, nil)
	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")
	ctx := context.Background()

	_, err := allocator.Base(ctx, host, priv)
	require.NoError(t, err)

	taskDir, err := allocator.NewTaskDir(ctx, host, priv, "task")
	require.NoError(t, err)
	assert.NotEmpty(t, taskDir.Path)
}

// recoveringFS fails the first N Mkdir calls after the base exists with a
// collision, then behaves normally.
type recoveringFS struct {
	*common.MockFileSystem
	mu       sync.Mutex
	started  bool
	failures int
}

func (f *recoveringFS) Mkdir(path string, perm os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		// First call creates the base.
		f.started = true
		return f.MockFileSystem.Mkdir(path, perm)
	}
	if f.failures > 0 {
		f.failures--
		return &os.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	return f.MockFileSystem.Mkdir(path, perm)
}

func TestAllocator_NonCollisionErrorDoesNotRetry(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	allocator := newTestAllocator(mockFS, nil)
	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")
	ctx := context.Background()

	base, err := allocator.Base(ctx, host, priv)
	require.NoError(t, err)

	// Base resolved, now every write under it fails hard.
	mockFS.SetWriteError(base, &os.PathError{Op: "mkdir", Path: base, Err: fs.ErrPermission})

	_, err = allocator.NewTaskDir(ctx, host, priv, "task")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAllocationExhausted)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestAllocator_CancelledContext(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	allocator := newTestAllocator(mockFS, nil)
	host := newTestHost("build-host", Overrides{})
	priv := runnertypes.NormalContext("alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := allocator.NewTaskDir(ctx, host, priv, "task")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizePathComponent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain username", in: "alice", want: "alice"},
		{name: "domain separator", in: `CORP\alice`, want: "CORP_alice"},
		{name: "dots and dashes survive", in: "svc-runner.prod", want: "svc-runner.prod"},
		{name: "spaces replaced", in: "a b", want: "a_b"},
		{name: "empty falls back", in: "", want: "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizePathComponent(tt.in))
		})
	}
}

func TestRandomHex(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		s, err := randomHex(taskSuffixHexLen)
		require.NoError(t, err)
		assert.Len(t, s, taskSuffixHexLen)
		for _, r := range s {
			assert.Contains(t, "0123456789abcdef", string(r))
		}
		seen[s] = struct{}{}
	}
	assert.Len(t, seen, 100, "random suffixes must not repeat in practice")
}
