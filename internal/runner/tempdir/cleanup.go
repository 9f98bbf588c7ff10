package tempdir

import (
	"fmt"
	"log/slog"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// Coordinator tears down task directories on task completion and base
// directories on connection reset. Removal is best effort: a directory that
// cannot be removed is logged and left for the janitor, it never fails the
// task or the reset.
type Coordinator struct {
	fs      common.FileSystem
	logger  *slog.Logger
	privMgr runnertypes.PrivilegeManager
	strict  bool
}

// NewCoordinator creates a coordinator backed by the real filesystem.
// privMgr may be nil when privileged removal is unavailable; strict makes
// stale path releases fail loudly instead of being ignored.
func NewCoordinator(logger *slog.Logger, privMgr runnertypes.PrivilegeManager, strict bool) *Coordinator {
	return NewCoordinatorWithFS(common.NewDefaultFileSystem(), logger, privMgr, strict)
}

// NewCoordinatorWithFS creates a coordinator with a custom FileSystem.
func NewCoordinatorWithFS(fsys common.FileSystem, logger *slog.Logger, privMgr runnertypes.PrivilegeManager, strict bool) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fs:      fsys,
		logger:  logger,
		privMgr: privMgr,
		strict:  strict,
	}
}

// ReleaseTaskDir removes one task directory after its task completes. The
// base directory is never touched. Releasing a path the allocator does not
// track (never allocated, or already released) returns ErrStalePath in
// strict mode and is a logged no-op otherwise. Removal failures are absorbed.
func (c *Coordinator) ReleaseTaskDir(host Host, priv runnertypes.PrivilegeContext, path string) error {
	state, ok := host.States().Peek(priv)
	if !ok || !state.releaseSubdir(path) {
		if c.strict {
			return fmt.Errorf("%w: %q is not tracked for connection %q", ErrStalePath, path, host.ID())
		}
		c.logger.Debug("Ignoring release of untracked task directory",
			"connection_id", host.ID(),
			"privilege_context", priv,
			"path", path)
		return nil
	}

	c.removeTree(host.ID(), priv, path)
	return nil
}

// ResetConnection removes the base directory for one privilege context and
// forgets its state, so the next allocation resolves from scratch.
func (c *Coordinator) ResetConnection(host Host, priv runnertypes.PrivilegeContext) {
	state, ok := host.States().Take(priv)
	if !ok {
		return
	}
	c.removeState(host.ID(), state)
}

// ResetAll removes the base directories of every privilege context tracked
// for the host. Used on connection teardown and runner shutdown.
func (c *Coordinator) ResetAll(host Host) {
	for _, state := range host.States().TakeAll() {
		c.removeState(host.ID(), state)
	}
}

// removeState removes a state's base directory, falling back to individual
// task directories when the base itself cannot go.
func (c *Coordinator) removeState(connID string, state *State) {
	base, subdirs := state.snapshot()
	if base == "" {
		// Never resolved; nothing on disk.
		return
	}

	priv := state.Privilege()
	if c.removeTree(connID, priv, base) {
		c.logger.Debug("Temp base directory removed",
			"connection_id", connID,
			"privilege_context", priv,
			"base", base)
		return
	}
	for _, subdir := range subdirs {
		c.removeTree(connID, priv, subdir)
	}
}

// removeTree removes a directory tree, escalating privileges for elevated
// contexts when the plain removal fails. Reports whether the tree is gone.
func (c *Coordinator) removeTree(connID string, priv runnertypes.PrivilegeContext, path string) bool {
	err := c.fs.RemoveAll(path)
	if err == nil {
		return true
	}

	// An elevated task may have left root-owned entries the connecting
	// user cannot unlink.
	if priv.Elevated && c.privMgr != nil && c.privMgr.IsPrivilegedExecutionSupported() {
		elevErr := c.privMgr.WithPrivileges(runnertypes.ElevationContext{
			Operation:    runnertypes.OperationTempCleanup,
			ConnectionID: connID,
			Path:         path,
		}, func() error {
			return c.fs.RemoveAll(path)
		})
		if elevErr == nil {
			return true
		}
		err = elevErr
	}

	c.logger.Warn("Temp directory removal failed",
		"connection_id", connID,
		"privilege_context", priv,
		"path", path,
		"error", err)
	return false
}
