// Package privilege provides privilege elevation for filesystem operations and
// task execution that must run under an escalated identity.
package privilege

import (
	"log/slog"

	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// Manager extends the minimal runnertypes.PrivilegeManager contract with
// the identity accessors and diagnostics the CLI uses for its preflight
// check and end-of-run elevation summary.
type Manager interface {
	runnertypes.PrivilegeManager

	GetCurrentUID() int
	GetOriginalUID() int
	GetMetrics() Metrics
	HealthCheck() error
}

// NewManager returns the privilege manager for the current platform.
func NewManager(logger *slog.Logger) Manager {
	return newPlatformManager(logger)
}
