//go:build !windows

package privilege

import (
	"fmt"
	"log/slog"
	"log/syslog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// UnixPrivilegeManager implements privilege management for Unix-like systems
// using seteuid system calls. The binary must either run as root or carry a
// root-owned setuid bit for elevation to be available.
type UnixPrivilegeManager struct {
	logger             *slog.Logger
	originalUID        int
	privilegeSupported bool
	metrics            metricsRecorder
	mu                 sync.Mutex
}

func newPlatformManager(logger *slog.Logger) Manager {
	originalUID := syscall.Getuid()
	m := &UnixPrivilegeManager{
		logger:      logger,
		originalUID: originalUID,
	}
	m.privilegeSupported = m.isPrivilegeExecutionSupported()
	return m
}

// IsPrivilegedExecutionSupported returns whether the process can elevate.
func (m *UnixPrivilegeManager) IsPrivilegedExecutionSupported() bool {
	return m.privilegeSupported
}

// GetCurrentUID returns the current effective user ID.
func (m *UnixPrivilegeManager) GetCurrentUID() int {
	return syscall.Geteuid()
}

// GetOriginalUID returns the real user ID the process started with.
func (m *UnixPrivilegeManager) GetOriginalUID() int {
	return m.originalUID
}

// GetMetrics returns a snapshot of elevation metrics.
func (m *UnixPrivilegeManager) GetMetrics() Metrics {
	return m.metrics.snapshot()
}

// WithPrivileges executes fn with elevated privileges and guarantees the
// original user is restored before returning. The effective UID is
// process-wide state, so the manager serializes callers; fn must not spawn
// goroutines that assume the elevated identity after it returns.
//
// Elevation always targets root first. When elevationCtx.TargetUID is
// positive the manager then switches the effective UID to that user, so
// files created by fn are owned by the target identity. Temp directories
// are created 0700, so the effective GID is left unchanged.
func (m *UnixPrivilegeManager) WithPrivileges(elevationCtx runnertypes.ElevationContext, fn func() error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()

	if err := m.escalatePrivileges(elevationCtx); err != nil {
		m.metrics.recordFailure(err)
		return err
	}

	if err := m.assumeTargetUID(elevationCtx); err != nil {
		if restoreErr := m.restorePrivileges(); restoreErr != nil {
			m.emergencyShutdown(restoreErr, elevationCtx)
		}
		m.metrics.recordFailure(err)
		return err
	}

	defer m.handleCleanupAndMetrics(elevationCtx, start, &err)
	return fn()
}

// handleCleanupAndMetrics restores the original UID and records metrics.
// It preserves panics from fn, but only after privileges have been
// restored; a failed restoration terminates the process instead.
func (m *UnixPrivilegeManager) handleCleanupAndMetrics(elevationCtx runnertypes.ElevationContext, start time.Time, errPtr *error) {
	r := recover()

	if restoreErr := m.restorePrivileges(); restoreErr != nil {
		m.emergencyShutdown(restoreErr, elevationCtx)
	}

	if r != nil {
		m.metrics.recordFailure(fmt.Errorf("panic during privileged execution: %v", r))
		panic(r)
	}

	if *errPtr != nil {
		m.metrics.recordFailure(*errPtr)
	} else {
		m.metrics.recordSuccess(time.Since(start))
	}
}

// escalatePrivileges raises the effective UID to root.
func (m *UnixPrivilegeManager) escalatePrivileges(elevationCtx runnertypes.ElevationContext) error {
	if !m.privilegeSupported {
		return runnertypes.ErrPrivilegedExecutionNotAvailable
	}

	// Already effective root, either natively or via the setuid bit.
	if syscall.Geteuid() == 0 {
		return nil
	}

	m.logger.Debug("Escalating privileges",
		"operation", string(elevationCtx.Operation),
		"connection_id", elevationCtx.ConnectionID,
		"original_uid", m.originalUID)

	if err := syscall.Seteuid(0); err != nil {
		elevErr := &Error{
			Operation:    elevationCtx.Operation,
			ConnectionID: elevationCtx.ConnectionID,
			OriginalUID:  m.originalUID,
			TargetUID:    0,
			SyscallErr:   err,
			Timestamp:    time.Now(),
		}
		m.logger.Error("Privilege escalation failed",
			"operation", string(elevationCtx.Operation),
			"connection_id", elevationCtx.ConnectionID,
			"error", err)
		return fmt.Errorf("%w: %s", ErrPrivilegeElevationFailed, elevErr.Error())
	}
	return nil
}

// assumeTargetUID switches the effective UID from root to the target user
// named in the elevation context. A non-positive TargetUID keeps root.
func (m *UnixPrivilegeManager) assumeTargetUID(elevationCtx runnertypes.ElevationContext) error {
	if elevationCtx.TargetUID <= 0 {
		return nil
	}

	if err := syscall.Seteuid(elevationCtx.TargetUID); err != nil {
		elevErr := &Error{
			Operation:    elevationCtx.Operation,
			ConnectionID: elevationCtx.ConnectionID,
			OriginalUID:  m.originalUID,
			TargetUID:    elevationCtx.TargetUID,
			SyscallErr:   err,
			Timestamp:    time.Now(),
		}
		m.logger.Error("Switching to target user failed",
			"operation", string(elevationCtx.Operation),
			"connection_id", elevationCtx.ConnectionID,
			"target_uid", elevationCtx.TargetUID,
			"error", err)
		return fmt.Errorf("%w: %s", ErrPrivilegeElevationFailed, elevErr.Error())
	}
	return nil
}

// restorePrivileges returns the effective UID to the original user. When the
// current effective UID is neither root nor the original user, the saved
// set-user-ID still permits stepping through root first.
func (m *UnixPrivilegeManager) restorePrivileges() error {
	current := syscall.Geteuid()
	if current == m.originalUID {
		return nil
	}

	if current != 0 {
		if err := syscall.Seteuid(0); err != nil {
			return fmt.Errorf("%w: seteuid(0) from uid %d: %w", ErrPrivilegeRestorationFailed, current, err)
		}
	}

	if m.originalUID != 0 {
		if err := syscall.Seteuid(m.originalUID); err != nil {
			return fmt.Errorf("%w: seteuid(%d): %w", ErrPrivilegeRestorationFailed, m.originalUID, err)
		}
	}
	return nil
}

// emergencyShutdown terminates the process after a failed privilege
// restoration. Continuing with an unexpected effective UID would let every
// subsequent operation run with the wrong identity.
func (m *UnixPrivilegeManager) emergencyShutdown(restoreErr error, elevationCtx runnertypes.ElevationContext) {
	criticalMsg := fmt.Sprintf(
		"CRITICAL SECURITY FAILURE: unable to restore original privileges (operation=%s, connection=%s, original_uid=%d, current_euid=%d): %v",
		elevationCtx.Operation, elevationCtx.ConnectionID, m.originalUID, syscall.Geteuid(), restoreErr)

	m.logger.Error(criticalMsg,
		"operation", string(elevationCtx.Operation),
		"connection_id", elevationCtx.ConnectionID,
		"original_uid", m.originalUID,
		"current_euid", syscall.Geteuid())

	// Best effort syslog record in case the process logger is buffered.
	if w, err := syslog.New(syslog.LOG_CRIT|syslog.LOG_AUTH, "go-remote-task-runner"); err == nil {
		_ = w.Crit(criticalMsg)
		_ = w.Close()
	}

	os.Exit(1)
}

// HealthCheck verifies that a full elevation round trip works.
func (m *UnixPrivilegeManager) HealthCheck() error {
	if !m.privilegeSupported {
		return runnertypes.ErrPrivilegedExecutionNotAvailable
	}

	return m.WithPrivileges(runnertypes.ElevationContext{
		Operation: runnertypes.OperationHealthCheck,
	}, func() error {
		if euid := syscall.Geteuid(); euid != 0 {
			return fmt.Errorf("%w: expected effective UID 0 during health check, got %d", ErrPrivilegeElevationFailed, euid)
		}
		return nil
	})
}

// isPrivilegeExecutionSupported reports whether seteuid(0) can succeed.
// Detection relies on the executable's filesystem properties rather than
// the current effective UID, which the early privilege drop in main has
// already changed by the time the manager is constructed. For a setuid
// binary the saved set-user-ID stays root across that drop, so seteuid(0)
// still works. A nosuid mount defeats this detection; the health check
// performs a real round trip and catches it before any task runs.
func (m *UnixPrivilegeManager) isPrivilegeExecutionSupported() bool {
	if m.originalUID == 0 {
		return true
	}
	return m.isRootOwnedSetuidBinary()
}

// isRootOwnedSetuidBinary checks whether the running executable is owned by
// root with the setuid bit set.
func (m *UnixPrivilegeManager) isRootOwnedSetuidBinary() bool {
	exePath, err := os.Executable()
	if err != nil {
		return false
	}

	info, err := os.Stat(exePath)
	if err != nil {
		return false
	}

	if info.Mode()&os.ModeSetuid == 0 {
		return false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	return stat.Uid == 0
}
