// Package connection manages the long-lived execution channels tasks run
// over. A Connection owns its transport and the per-privilege-context temp
// state attached to it; the Registry owns the connections.
package connection

import (
	"log/slog"
	"os/user"

	"github.com/isseis/go-remote-task-runner/internal/runner/privilege"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
	"github.com/isseis/go-remote-task-runner/internal/runner/tempdir"
)

// Connection is one reusable execution channel. It implements tempdir.Host,
// so the temp subsystem can attach per-privilege-context state to it without
// owning any connection lifecycle.
type Connection struct {
	cfg       runnertypes.ConnectionConfig
	username  string
	elevated  string
	targetUID int
	transport Transport
	states    *tempdir.StateMap
	overrides tempdir.Overrides
}

// newConnection resolves the connecting identity and builds the temp path
// overrides for a connection config. TempDir and TempDirEnvVar fall back to
// the global values when the connection leaves them empty.
func newConnection(cfg runnertypes.ConnectionConfig, global runnertypes.GlobalConfig, transport Transport, logger *slog.Logger) *Connection {
	username := cfg.User
	if username == "" {
		if current, err := user.Current(); err == nil {
			username = current.Username
		}
	}

	elevated := cfg.ElevatedUser
	if elevated == "" {
		elevated = runnertypes.DefaultElevatedUser
	}

	targetUID := 0
	if uid, err := privilege.LookupUID(elevated); err == nil {
		targetUID = uid
	} else {
		logger.Warn("Elevated user lookup failed; privileged tasks will run as root",
			"connection_id", cfg.ID,
			"elevated_user", elevated,
			"error", err)
	}

	basePath := cfg.TempDir
	if basePath == "" {
		basePath = global.TempDir
	}
	envVar := cfg.TempDirEnvVar
	if envVar == "" {
		envVar = global.TempDirEnvVar
	}

	return &Connection{
		cfg:       cfg,
		username:  username,
		elevated:  elevated,
		targetUID: targetUID,
		transport: transport,
		states:    tempdir.NewStateMap(),
		overrides: tempdir.Overrides{BasePath: basePath, EnvVar: envVar},
	}
}

// ID returns the connection identifier.
func (c *Connection) ID() string { return c.cfg.ID }

// States returns the per-privilege-context temp state map.
func (c *Connection) States() *tempdir.StateMap { return c.states }

// Overrides returns the temp path resolution configuration.
func (c *Connection) Overrides() tempdir.Overrides { return c.overrides }

// Transport returns the connection's execution channel.
func (c *Connection) Transport() Transport { return c.transport }

// User returns the connecting identity.
func (c *Connection) User() string { return c.username }

// ElevatedUser returns the identity privileged tasks run under.
func (c *Connection) ElevatedUser() string { return c.elevated }

// ElevatedUID returns the numeric UID of the elevated user, or 0 when the
// lookup failed at open time.
func (c *Connection) ElevatedUID() int { return c.targetUID }

// SupportsNestedTempDir reports whether child processes on this channel
// understand the dedicated temp directory binding.
func (c *Connection) SupportsNestedTempDir() bool { return c.cfg.SupportsNestedTempDir }

// PrivilegeFor returns the privilege context a task runs under on this
// connection.
func (c *Connection) PrivilegeFor(privileged bool) runnertypes.PrivilegeContext {
	if privileged {
		return runnertypes.ElevatedContext(c.username, c.elevated)
	}
	return runnertypes.NormalContext(c.username)
}
