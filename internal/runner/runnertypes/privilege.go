package runnertypes

import (
	"errors"
	"fmt"
	"log/slog"
)

// PrivilegeContext identifies the effective identity under which filesystem
// paths are resolved and tasks execute. Two distinct contexts on the same
// connection never share temp state.
type PrivilegeContext struct {
	// Username is the connecting (unprivileged) identity
	Username string

	// Elevated marks an escalated execution identity
	Elevated bool

	// ElevatedUser is the escalation target; only meaningful when Elevated
	// is true (default "root")
	ElevatedUser string
}

// NormalContext returns the unprivileged context for a user.
func NormalContext(username string) PrivilegeContext {
	return PrivilegeContext{Username: username}
}

// ElevatedContext returns the escalated context for a user. An empty
// elevatedUser defaults to root.
func ElevatedContext(username, elevatedUser string) PrivilegeContext {
	if elevatedUser == "" {
		elevatedUser = "root"
	}
	return PrivilegeContext{Username: username, Elevated: true, ElevatedUser: elevatedUser}
}

// EffectiveUser returns the identity filesystem operations run under.
func (p PrivilegeContext) EffectiveUser() string {
	if p.Elevated {
		return p.ElevatedUser
	}
	return p.Username
}

// Key returns a stable map key distinguishing privilege contexts.
func (p PrivilegeContext) Key() string {
	if p.Elevated {
		return fmt.Sprintf("%s+%s", p.Username, p.ElevatedUser)
	}
	return p.Username
}

// String implements fmt.Stringer for logging.
func (p PrivilegeContext) String() string {
	if p.Elevated {
		return fmt.Sprintf("%s (elevated as %s)", p.Username, p.ElevatedUser)
	}
	return p.Username
}

// LogValue implements slog.LogValuer so contexts log as structured groups.
func (p PrivilegeContext) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", p.Username),
		slog.Bool("elevated", p.Elevated),
		slog.String("effective_user", p.EffectiveUser()),
	)
}

// Operation represents different types of privileged operations
type Operation string

// Supported privileged operations
const (
	OperationTempCleanup   Operation = "temp_cleanup"
	OperationTaskExecution Operation = "task_execution"
	OperationHealthCheck   Operation = "health_check"
)

// ElevationContext contains context information for privilege elevation
type ElevationContext struct {
	Operation    Operation
	ConnectionID string
	TaskName     string
	Path         string
	OriginalUID  int
	TargetUID    int
}

// Standard privilege errors
var (
	ErrPrivilegedExecutionNotAvailable = errors.New("privileged execution not available: binary lacks required SUID bit or running as non-root user")
	ErrPlatformNotSupported            = errors.New("privileged execution not supported on this platform")
)

// PrivilegeManager interface defines methods for privilege management
type PrivilegeManager interface {
	IsPrivilegedExecutionSupported() bool
	WithPrivileges(elevationCtx ElevationContext, fn func() error) error
}
