package tempdir

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

func TestResolver_CandidateOrder(t *testing.T) {
	tests := []struct {
		name      string
		overrides Overrides
		env       map[string]string
		priv      runnertypes.PrivilegeContext
		want      string
	}{
		{
			name:      "explicit config wins over everything",
			overrides: Overrides{BasePath: "/srv/runner-tmp"},
			env:       map[string]string{"RUNNER_REMOTE_TMP": "/from/env"},
			priv:      runnertypes.NormalContext("alice"),
			want:      "/srv/runner-tmp",
		},
		{
			name: "environment override when no config",
			env:  map[string]string{"RUNNER_REMOTE_TMP": "/from/env"},
			priv: runnertypes.NormalContext("alice"),
			want: "/from/env",
		},
		{
			name:      "custom override variable name",
			overrides: Overrides{EnvVar: "BUILD_SCRATCH"},
			env: map[string]string{
				"BUILD_SCRATCH":     "/scratch",
				"RUNNER_REMOTE_TMP": "/ignored",
			},
			priv: runnertypes.NormalContext("alice"),
			want: "/scratch",
		},
		{
			name: "user default when no overrides",
			priv: runnertypes.NormalContext("alice"),
			want: "/home/alice/.cache/remote-task-runner/tmp",
		},
		{
			name: "elevated context uses the elevated user's home",
			priv: runnertypes.ElevatedContext("alice", "root"),
			want: "/root/.cache/remote-task-runner/tmp",
		},
		{
			name: "empty environment value is skipped",
			env:  map[string]string{"RUNNER_REMOTE_TMP": ""},
			priv: runnertypes.NormalContext("alice"),
			want: "/home/alice/.cache/remote-task-runner/tmp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFS := common.NewMockFileSystem()
			resolver := newTestResolver(mockFS, tt.env)

			got, err := resolver.Resolve(context.Background(), tt.priv, tt.overrides)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// The winning candidate must exist as a directory afterwards.
			isDir, err := mockFS.IsDir(got)
			require.NoError(t, err)
			assert.True(t, isDir)
		})
	}
}

func TestResolver_ReadOnlyHomeFallsThrough(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	mockFS.SetWriteError("/home/alice", &fs.PathError{Op: "mkdir", Path: "/home/alice", Err: fs.ErrPermission})
	resolver := newTestResolver(mockFS, nil)

	got, err := resolver.Resolve(context.Background(), runnertypes.NormalContext("alice"), Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp", got, "a read-only home must fall through to the system fallback")
}

func TestResolver_FailingConfigFallsThrough(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	mockFS.SetWriteError("/srv", &fs.PathError{Op: "mkdir", Path: "/srv", Err: fs.ErrPermission})
	resolver := newTestResolver(mockFS, map[string]string{"RUNNER_REMOTE_TMP": "/from/env"})

	got, err := resolver.Resolve(context.Background(), runnertypes.NormalContext("alice"), Overrides{BasePath: "/srv/runner-tmp"})
	require.NoError(t, err)
	assert.Equal(t, "/from/env", got)
}

func TestResolver_AllCandidatesFail(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	mockFS.SetWriteError("/", &fs.PathError{Op: "mkdir", Path: "/", Err: fs.ErrPermission})
	resolver := newTestResolver(mockFS, map[string]string{"RUNNER_REMOTE_TMP": "/from/env"})

	_, err := resolver.Resolve(context.Background(), runnertypes.NormalContext("alice"), Overrides{BasePath: "/srv/runner-tmp"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoWritableLocation)

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	// config + environment + user default + two system fallbacks
	assert.Len(t, resolveErr.Failures, 5)
	assert.Equal(t, OriginConfig, resolveErr.Failures[0].Origin)
	assert.Equal(t, OriginSystemFallback, resolveErr.Failures[4].Origin)
}

func TestResolver_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := newTestResolver(common.NewMockFileSystem(), nil)
	_, err := resolver.Resolve(ctx, runnertypes.NormalContext("alice"), Overrides{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver_Expand(t *testing.T) {
	resolver := newTestResolver(common.NewMockFileSystem(), map[string]string{
		"SCRATCH": "/mnt/scratch",
	})
	priv := runnertypes.NormalContext("alice")

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "plain absolute path", path: "/var/tmp", want: "/var/tmp"},
		{name: "variable expansion", path: "$SCRATCH/runner", want: "/mnt/scratch/runner"},
		{name: "braced variable expansion", path: "${SCRATCH}/runner", want: "/mnt/scratch/runner"},
		{name: "bare tilde", path: "~", want: "/home/alice"},
		{name: "tilde slash", path: "~/tmp", want: "/home/alice/tmp"},
		{name: "named user tilde", path: "~deploy/tmp", want: "/home/deploy/tmp"},
		{name: "unknown user tilde", path: "~nobody-here/tmp", wantErr: true},
		{name: "relative path rejected", path: "relative/tmp", wantErr: true},
		{name: "unset variable leaves empty path", path: "$UNSET_VARIABLE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.expand(tt.path, priv)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_ExpandElevatedTilde(t *testing.T) {
	resolver := newTestResolver(common.NewMockFileSystem(), nil)

	got, err := resolver.expand("~/cache", runnertypes.ElevatedContext("alice", "root"))
	require.NoError(t, err)
	assert.Equal(t, "/root/cache", got)
}

func TestResolver_ProbeRemovesProbeFile(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	resolver := newTestResolver(mockFS, nil)

	require.NoError(t, resolver.probe("/var/tmp"))
	assert.Empty(t, mockFS.GetFiles(), "probe file must not survive the probe")
}

func TestResolver_ProbeRejectsNonDirectory(t *testing.T) {
	mockFS := common.NewMockFileSystem()
	require.NoError(t, mockFS.AddFile("/var/tmp", 0o644, []byte("a file where a directory should be")))
	resolver := newTestResolver(mockFS, nil)

	err := resolver.probe("/var/tmp")
	assert.Error(t, err)
}

func TestResolver_CandidateParents(t *testing.T) {
	tests := []struct {
		name      string
		overrides Overrides
		env       map[string]string
		priv      runnertypes.PrivilegeContext
		want      []string
	}{
		{
			name:      "full chain in resolution order",
			overrides: Overrides{BasePath: "/srv/runner-tmp"},
			env:       map[string]string{"RUNNER_REMOTE_TMP": "/from/env"},
			priv:      runnertypes.NormalContext("alice"),
			want: []string{
				"/srv/runner-tmp",
				"/from/env",
				"/home/alice/.cache/remote-task-runner/tmp",
				"/var/tmp",
				"/tmp",
			},
		},
		{
			name: "no overrides",
			priv: runnertypes.NormalContext("alice"),
			want: []string{
				"/home/alice/.cache/remote-task-runner/tmp",
				"/var/tmp",
				"/tmp",
			},
		},
		{
			name: "duplicates collapse",
			env:  map[string]string{"RUNNER_REMOTE_TMP": "/var/tmp"},
			priv: runnertypes.NormalContext("alice"),
			want: []string{
				"/var/tmp",
				"/home/alice/.cache/remote-task-runner/tmp",
				"/tmp",
			},
		},
		{
			name:      "failed expansion is skipped",
			overrides: Overrides{BasePath: "~nobody-here/tmp"},
			priv:      runnertypes.NormalContext("alice"),
			want: []string{
				"/home/alice/.cache/remote-task-runner/tmp",
				"/var/tmp",
				"/tmp",
			},
		},
		{
			name: "elevated context expands against the elevated home",
			priv: runnertypes.ElevatedContext("alice", "root"),
			want: []string{
				"/root/.cache/remote-task-runner/tmp",
				"/var/tmp",
				"/tmp",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFS := common.NewMockFileSystem()
			resolver := newTestResolver(mockFS, tt.env)
			before := mockFS.GetFiles()

			got := resolver.CandidateParents(tt.priv, tt.overrides)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, before, mockFS.GetFiles(), "listing candidates must not touch the filesystem")
		})
	}
}

func TestResolveError_Message(t *testing.T) {
	err := &ResolveError{Failures: []CandidateFailure{
		{Origin: OriginConfig, Path: "/srv/tmp", Err: errors.New("permission denied")},
		{Origin: OriginSystemFallback, Path: "/tmp", Err: errors.New("read-only file system")},
	}}

	msg := err.Error()
	assert.Contains(t, msg, "no writable temporary directory location")
	assert.Contains(t, msg, "config /srv/tmp: permission denied")
	assert.Contains(t, msg, "system_fallback /tmp: read-only file system")
}
