//go:build windows

package privilege

import (
	"log/slog"

	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// WindowsPrivilegeManager is a placeholder for Windows. Privileged execution
// is not supported there; every elevation attempt fails.
type WindowsPrivilegeManager struct {
	logger *slog.Logger
}

func newPlatformManager(logger *slog.Logger) Manager {
	return &WindowsPrivilegeManager{logger: logger}
}

// IsPrivilegedExecutionSupported always returns false on Windows.
func (m *WindowsPrivilegeManager) IsPrivilegedExecutionSupported() bool {
	return false
}

// GetCurrentUID returns -1; Windows has no numeric UID.
func (m *WindowsPrivilegeManager) GetCurrentUID() int { return -1 }

// GetOriginalUID returns -1; Windows has no numeric UID.
func (m *WindowsPrivilegeManager) GetOriginalUID() int { return -1 }

// GetMetrics returns an empty metrics snapshot.
func (m *WindowsPrivilegeManager) GetMetrics() Metrics { return Metrics{} }

// WithPrivileges always fails on Windows.
func (m *WindowsPrivilegeManager) WithPrivileges(elevationCtx runnertypes.ElevationContext, _ func() error) error {
	m.logger.Error("Privileged execution requested on Windows",
		"operation", string(elevationCtx.Operation),
		"connection_id", elevationCtx.ConnectionID)
	return runnertypes.ErrPlatformNotSupported
}

// HealthCheck always fails on Windows.
func (m *WindowsPrivilegeManager) HealthCheck() error {
	return runnertypes.ErrPlatformNotSupported
}
