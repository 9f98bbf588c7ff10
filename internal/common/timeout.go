// Package common provides timeout resolution functionality for the task runner.
package common

const (
	// DefaultTimeout is used when no timeout is explicitly set
	DefaultTimeout = 60 // seconds

	// MaxTimeout defines the maximum allowed timeout value (24 hours).
	// The value is well within int32 range, ensuring cross-platform compatibility.
	MaxTimeout = 86400 // 24 hours in seconds
)

// TimeoutResolutionContext provides context information for timeout resolution logging and debugging.
// This struct contains metadata about where the timeout value is being resolved from.
type TimeoutResolutionContext struct {
	// TaskName is the name of the task being resolved
	TaskName string

	// ConnectionID is the identifier of the connection the task runs on (empty if not applicable)
	ConnectionID string

	// Level indicates which level in the hierarchy provided the effective timeout
	// Possible values: "task", "global", "default"
	Level string
}

// ResolveTimeout resolves the effective timeout value from the hierarchy.
// It follows the precedence: task > global > default.
//
// Parameters:
// - taskTimeout: Task-level timeout (highest priority)
// - globalTimeout: Global-level timeout (lower priority)
//
// Returns:
// - The resolved timeout value in seconds
// - A value of 0 means unlimited execution
// - A positive value means timeout after N seconds
//
// Resolution logic:
// 1. If taskTimeout is set (not nil), use its value (even if 0)
// 2. Else if globalTimeout is set (not nil), use its value (even if 0)
// 3. Else use DefaultTimeout (60 seconds)
func ResolveTimeout(taskTimeout, globalTimeout *int32) int32 {
	switch {
	case taskTimeout != nil:
		return *taskTimeout
	case globalTimeout != nil:
		return *globalTimeout
	default:
		return DefaultTimeout
	}
}

// ResolveTimeoutWithContext resolves the effective timeout value and returns context information.
// This is useful for logging and debugging timeout resolution.
//
// Returns both the resolved timeout value and context information about which level provided it.
func ResolveTimeoutWithContext(taskTimeout, globalTimeout *int32, taskName, connectionID string) (int32, TimeoutResolutionContext) {
	var resolvedValue int32
	var level string

	switch {
	case taskTimeout != nil:
		resolvedValue = *taskTimeout
		level = "task"
	case globalTimeout != nil:
		resolvedValue = *globalTimeout
		level = "global"
	default:
		resolvedValue = DefaultTimeout
		level = "default"
	}

	context := TimeoutResolutionContext{
		TaskName:     taskName,
		ConnectionID: connectionID,
		Level:        level,
	}

	return resolvedValue, context
}

// IsUnlimitedTimeout returns true if the given timeout value represents unlimited execution.
// A timeout value of 0 means unlimited execution.
func IsUnlimitedTimeout(timeout int32) bool {
	return timeout == 0
}

// IsDefaultTimeout returns true if the given timeout value is the system default.
func IsDefaultTimeout(timeout int32) bool {
	return timeout == DefaultTimeout
}
