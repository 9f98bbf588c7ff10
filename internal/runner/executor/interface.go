package executor

import (
	"context"

	"github.com/isseis/go-remote-task-runner/internal/common"
)

// Stream names for task output
const (
	// StdoutStream is the name of the standard output stream
	StdoutStream = "stdout"
	// StderrStream is the name of the standard error stream
	StderrStream = "stderr"
)

// ExitCodeUnknown is reported when no process state is available,
// e.g. when the command could not be started at all.
const ExitCodeUnknown = -1

// Task describes one fully resolved task execution: the command to run, the
// allocated working directory, and the effective limits. The environment is
// passed to Execute separately because it is assembled by the environment
// package from the allowlist, the task spec, and the temp-dir bindings.
type Task struct {
	// ID is the task identifier assigned at submission
	ID string

	// Name is the task name from the configuration
	Name string

	// ConnectionID identifies the connection the task runs on
	ConnectionID string

	// Cmd is the command to run, resolved against PATH when not absolute
	Cmd string

	// Args are the command arguments
	Args []string

	// Dir is the allocated task directory the process starts in
	Dir string

	// Privileged runs the command under the connection's elevated identity
	Privileged bool

	// TargetUID is the elevation target for privileged execution (0 = root)
	TargetUID int

	// Timeout in seconds; 0 means unlimited
	Timeout int32

	// OutputLimit caps captured stdout/stderr per stream
	OutputLimit common.OutputSizeLimit
}

// TaskExecutor defines the interface for executing resolved tasks
type TaskExecutor interface {
	// Execute runs a task with the given environment variables
	Execute(ctx context.Context, task Task, env []string) (*Result, error)
	// Validate validates a task without executing it
	Validate(task Task) error
}

// Result contains the result of a task execution
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string

	// Truncated reports that captured output hit the configured size limit
	Truncated bool

	// DryRun reports that execution was skipped
	DryRun bool
}

// OutputWriter defines the interface for streaming task output
type OutputWriter interface {
	// Write writes a chunk of task output for the named stream
	Write(stream string, data []byte) error

	// Close closes the output writer
	Close() error
}
