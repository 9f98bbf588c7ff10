// Package tempdir manages per-connection temporary working directories across
// privilege contexts: resolving a writable parent location, allocating one
// stable base directory per (connection, privilege context) pair, allocating
// fresh task subdirectories under it, and cleaning both up at the right
// lifecycle points.
package tempdir

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

const (
	// basePrefix starts every base directory name; the janitor relies on it
	// to recognize residual directories.
	basePrefix = "rtr"

	// dirPerm is the mode for every directory this package creates. Bases
	// and task directories are private to the effective user.
	dirPerm = 0o700

	baseSuffixHexLen  = 8
	taskSuffixHexLen  = 12
	probeSuffixHexLen = 8

	// defaultMaxAttempts bounds name-collision retries per allocation.
	defaultMaxAttempts = 5
)

// TaskDir describes one allocated task working directory.
type TaskDir struct {
	// ConnectionID is the owning connection.
	ConnectionID string
	// Key is the privilege context key the directory belongs to.
	Key string
	// Base is the stable per-context base directory.
	Base string
	// Suffix is the random hex component of the directory name.
	Suffix string
	// Path is Base joined with Suffix.
	Path string
	// TaskID is the caller-supplied task identifier.
	TaskID string
	// CreatedAt records allocation time.
	CreatedAt time.Time
}

// LogValue implements slog.LogValuer.
func (d TaskDir) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("connection_id", d.ConnectionID),
		slog.String("privilege_key", d.Key),
		slog.String("path", d.Path),
		slog.String("task_id", d.TaskID),
	)
}

// Allocator hands out base and task directories. Base paths are computed
// once per (connection, privilege context) and cached in the host's state
// map; task directories are never reused.
type Allocator struct {
	fs          common.FileSystem
	resolver    *Resolver
	logger      *slog.Logger
	maxAttempts int
}

// NewAllocator creates an allocator backed by the real filesystem.
func NewAllocator(logger *slog.Logger) *Allocator {
	return NewAllocatorWithFS(common.NewDefaultFileSystem(), nil, logger)
}

// NewAllocatorWithFS creates an allocator with a custom FileSystem and
// resolver. A nil resolver gets a default one sharing the same filesystem.
func NewAllocatorWithFS(fsys common.FileSystem, resolver *Resolver, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = NewResolverWithFS(fsys, logger)
	}
	return &Allocator{
		fs:          fsys,
		resolver:    resolver,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
	}
}

// Base returns the stable base directory for the host and privilege context,
// resolving and creating it on first use. Concurrent first calls for one
// context are serialized; exactly one resolution happens. Once resolved the
// cached path is returned unchanged for the connection's lifetime, even if
// filesystem state has drifted underneath it.
func (a *Allocator) Base(ctx context.Context, host Host, priv runnertypes.PrivilegeContext) (string, error) {
	state := host.States().Get(priv)
	return state.resolveOnce(func() (string, error) {
		parent, err := a.resolver.Resolve(ctx, priv, host.Overrides())
		if err != nil {
			return "", fmt.Errorf("resolving temp parent for connection %q: %w", host.ID(), err)
		}

		base, err := a.createBase(parent, priv)
		if err != nil {
			return "", err
		}

		a.logger.Info("Temp base directory created",
			"connection_id", host.ID(),
			"privilege_context", priv,
			"base", base)
		return base, nil
	})
}

// NewTaskDir allocates a fresh task directory under the context's base.
// Every call yields a distinct path; allocation is never idempotent. A name
// collision retries with a fresh suffix up to the attempt budget.
func (a *Allocator) NewTaskDir(ctx context.Context, host Host, priv runnertypes.PrivilegeContext, taskID string) (TaskDir, error) {
	base, err := a.Base(ctx, host, priv)
	if err != nil {
		return TaskDir{}, err
	}

	state := host.States().Get(priv)
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return TaskDir{}, err
		}

		suffix, err := randomHex(taskSuffixHexLen)
		if err != nil {
			return TaskDir{}, err
		}
		path := filepath.Join(base, suffix)

		// Mkdir, not MkdirAll: an existing directory must surface as a
		// collision instead of being silently adopted.
		err = a.fs.Mkdir(path, dirPerm)
		if err == nil {
			if err := a.fs.Chmod(path, dirPerm); err != nil {
				return TaskDir{}, fmt.Errorf("setting task directory permissions on %q: %w", path, err)
			}
			state.registerSubdir(path)
			taskDir := TaskDir{
				ConnectionID: host.ID(),
				Key:          priv.Key(),
				Base:         base,
				Suffix:       suffix,
				Path:         path,
				TaskID:       taskID,
				CreatedAt:    time.Now(),
			}
			a.logger.Debug("Task temp directory created", "task_dir", taskDir)
			return taskDir, nil
		}
		if errors.Is(err, fs.ErrExist) {
			a.logger.Debug("Task temp directory name collision",
				"connection_id", host.ID(),
				"path", path,
				"attempt", attempt+1)
			continue
		}
		return TaskDir{}, fmt.Errorf("creating task temp directory %q: %w", path, err)
	}

	return TaskDir{}, fmt.Errorf("%w: %d attempts under %q", ErrAllocationExhausted, a.maxAttempts, base)
}

// createBase creates the base directory under a resolved parent.
func (a *Allocator) createBase(parent string, priv runnertypes.PrivilegeContext) (string, error) {
	owner := sanitizePathComponent(priv.EffectiveUser())

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		suffix, err := randomHex(baseSuffixHexLen)
		if err != nil {
			return "", err
		}
		path := filepath.Join(parent, fmt.Sprintf("%s-%s-%s", basePrefix, owner, suffix))

		err = a.fs.Mkdir(path, dirPerm)
		if err == nil {
			// Mkdir perm is subject to umask; fix the mode explicitly.
			if err := a.fs.Chmod(path, dirPerm); err != nil {
				return "", fmt.Errorf("setting base directory permissions on %q: %w", path, err)
			}
			return path, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", fmt.Errorf("creating base directory %q: %w", path, err)
	}

	return "", fmt.Errorf("%w: %d attempts under %q", ErrAllocationExhausted, a.maxAttempts, parent)
}

// IsBaseDirName reports whether a directory name looks like a base directory
// produced by this package. The janitor uses it to recognize residual bases
// left behind by crashed runs.
func IsBaseDirName(name string) bool {
	return strings.HasPrefix(name, basePrefix+"-")
}

// sanitizePathComponent makes a username safe to embed in a directory name.
func sanitizePathComponent(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, name)
	if mapped == "" {
		return "user"
	}
	return mapped
}

// randomHex returns length hex characters from crypto/rand.
func randomHex(length int) (string, error) {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random suffix: %w", err)
	}
	return hex.EncodeToString(buf)[:length], nil
}
