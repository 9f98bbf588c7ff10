// Package testing provides mock implementations for privilege management
// used by tests across the runner packages.
package testing

import (
	"sync"

	"github.com/isseis/go-remote-task-runner/internal/runner/privilege"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// MockPrivilegeManager is a configurable privilege.Manager for tests. It
// executes callbacks directly without changing any process state.
type MockPrivilegeManager struct {
	mu sync.Mutex

	// Supported controls IsPrivilegedExecutionSupported.
	Supported bool
	// ShouldFail makes WithPrivileges fail before invoking the callback.
	ShouldFail bool
	// FailWith overrides the error returned when ShouldFail is set.
	FailWith error
	// ExecFn, when non-nil, replaces the default WithPrivileges behavior.
	ExecFn func(elevationCtx runnertypes.ElevationContext, fn func() error) error

	elevationCalls []runnertypes.ElevationContext
	successes      int64
	failures       int64
	lastError      string
}

// NewMockPrivilegeManager returns a mock that reports the given support state.
func NewMockPrivilegeManager(supported bool) *MockPrivilegeManager {
	return &MockPrivilegeManager{Supported: supported}
}

// IsPrivilegedExecutionSupported returns the configured support state.
func (m *MockPrivilegeManager) IsPrivilegedExecutionSupported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Supported
}

// WithPrivileges records the elevation context and runs fn in-process.
func (m *MockPrivilegeManager) WithPrivileges(elevationCtx runnertypes.ElevationContext, fn func() error) error {
	m.mu.Lock()
	m.elevationCalls = append(m.elevationCalls, elevationCtx)
	execFn := m.ExecFn
	shouldFail := m.ShouldFail
	failWith := m.FailWith
	supported := m.Supported
	m.mu.Unlock()

	if execFn != nil {
		return execFn(elevationCtx, fn)
	}

	if !supported {
		m.recordFailure(runnertypes.ErrPrivilegedExecutionNotAvailable)
		return runnertypes.ErrPrivilegedExecutionNotAvailable
	}

	if shouldFail {
		err := failWith
		if err == nil {
			err = privilege.ErrPrivilegeElevationFailed
		}
		m.recordFailure(err)
		return err
	}

	if err := fn(); err != nil {
		m.recordFailure(err)
		return err
	}

	m.mu.Lock()
	m.successes++
	m.mu.Unlock()
	return nil
}

func (m *MockPrivilegeManager) recordFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
	m.lastError = err.Error()
}

// GetCurrentUID returns a fixed non-root UID.
func (m *MockPrivilegeManager) GetCurrentUID() int { return 1000 }

// GetOriginalUID returns a fixed non-root UID.
func (m *MockPrivilegeManager) GetOriginalUID() int { return 1000 }

// GetMetrics returns a snapshot built from the recorded call outcomes.
func (m *MockPrivilegeManager) GetMetrics() privilege.Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := privilege.Metrics{
		ElevationAttempts:  m.successes + m.failures,
		ElevationSuccesses: m.successes,
		ElevationFailures:  m.failures,
		LastError:          m.lastError,
	}
	if metrics.ElevationAttempts > 0 {
		metrics.SuccessRate = float64(m.successes) / float64(metrics.ElevationAttempts)
	}
	return metrics
}

// HealthCheck succeeds when the mock is configured as supported.
func (m *MockPrivilegeManager) HealthCheck() error {
	if !m.IsPrivilegedExecutionSupported() {
		return runnertypes.ErrPrivilegedExecutionNotAvailable
	}
	return nil
}

// ElevationCalls returns a copy of the recorded elevation contexts.
func (m *MockPrivilegeManager) ElevationCalls() []runnertypes.ElevationContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]runnertypes.ElevationContext, len(m.elevationCalls))
	copy(calls, m.elevationCalls)
	return calls
}

// ElevationCallCount returns how many times WithPrivileges ran.
func (m *MockPrivilegeManager) ElevationCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.elevationCalls)
}
