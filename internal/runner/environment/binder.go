// Package environment assembles the environment child processes receive:
// allowlist-filtered inheritance from the runner process, task-level
// variables, and the temp directory bindings every task gets.
package environment

import (
	"os"
	"strconv"
	"time"

	"github.com/isseis/go-remote-task-runner/internal/runner/tempdir"
)

// Clock is a function type that returns the current time.
// This allows for dependency injection of time for testing.
type Clock func() time.Time

const (
	// AutoEnvPrefix is the prefix for automatically generated environment
	// variables.
	AutoEnvPrefix = "__RUNNER_"

	// AutoEnvKeyTaskID is the key for the task identifier (without prefix)
	AutoEnvKeyTaskID = "TASK_ID"
	// AutoEnvKeyTempBase is the key for the base directory path (without prefix)
	AutoEnvKeyTempBase = "TEMP_BASE"
	// AutoEnvKeyTempDir is the key for the nested temp directory indicator
	// (without prefix); only bound for connections that declare support
	AutoEnvKeyTempDir = "TEMP_DIR"
	// AutoEnvKeyPID is the key for the runner PID (without prefix)
	AutoEnvKeyPID = "PID"
	// AutoEnvKeyDatetime is the key for the task start time (without prefix)
	AutoEnvKeyDatetime = "DATETIME"

	// DatetimeLayout is the Go time format for __RUNNER_DATETIME.
	// Format: YYYYMMDDHHmmSS.msec (e.g., "20260825143025.123")
	DatetimeLayout = "20060102150405.000"
)

// Capability describes what the connection's child processes understand
// about temp directory bindings.
type Capability struct {
	// SupportsNestedTempDir marks connections whose children honor a
	// dedicated __RUNNER_TEMP_DIR binding in addition to TMPDIR nesting.
	SupportsNestedTempDir bool
}

// Binder computes the per-task environment bindings that point child
// processes at their temp directory.
type Binder interface {
	// Bind returns the bindings for one allocated task directory.
	Bind(taskDir tempdir.TaskDir, capability Capability) map[string]string
}

// binder implements Binder
type binder struct {
	clock Clock
}

// NewBinder creates a new Binder.
// If clock is nil, it defaults to time.Now.
func NewBinder(clock Clock) Binder {
	if clock == nil {
		clock = time.Now
	}
	return &binder{clock: clock}
}

// Bind always points TMPDIR, TMP and TEMP at the task directory, so any
// child that allocates its own temp space lands under the task directory
// and therefore under the same base. The dedicated __RUNNER_TEMP_DIR
// binding is only set when the connection declares support for it.
func (b *binder) Bind(taskDir tempdir.TaskDir, capability Capability) map[string]string {
	bindings := map[string]string{
		"TMPDIR": taskDir.Path,
		"TMP":    taskDir.Path,
		"TEMP":   taskDir.Path,

		AutoEnvPrefix + AutoEnvKeyTaskID:   taskDir.TaskID,
		AutoEnvPrefix + AutoEnvKeyTempBase: taskDir.Base,
		AutoEnvPrefix + AutoEnvKeyPID:      strconv.Itoa(os.Getpid()),
		AutoEnvPrefix + AutoEnvKeyDatetime: b.clock().UTC().Format(DatetimeLayout),
	}
	if capability.SupportsNestedTempDir {
		bindings[AutoEnvPrefix+AutoEnvKeyTempDir] = taskDir.Path
	}
	return bindings
}
