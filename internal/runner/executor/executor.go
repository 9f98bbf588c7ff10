// Package executor provides the core functionality for executing tasks
// inside their allocated working directories. It includes interfaces and
// implementations for process execution, output capture, and privileged runs.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// Error definitions
var (
	ErrEmptyCommand       = errors.New("command cannot be empty")
	ErrDirNotExists       = errors.New("working directory does not exist")
	ErrInvalidPath        = errors.New("invalid command path")
	ErrNoPrivilegeManager = errors.New("no privilege manager configured for privileged execution")
	ErrTaskTimeout        = errors.New("task timed out")
)

// Option configures a DefaultExecutor.
type Option func(*DefaultExecutor)

// WithFS sets the file system seam used during validation.
func WithFS(fsys common.FileSystem) Option {
	return func(e *DefaultExecutor) {
		e.fs = fsys
	}
}

// WithOutputWriter streams task output to w in addition to capturing it.
func WithOutputWriter(w OutputWriter) Option {
	return func(e *DefaultExecutor) {
		e.out = w
	}
}

// WithPrivilegeManager enables privileged task execution through mgr.
func WithPrivilegeManager(mgr runnertypes.PrivilegeManager) Option {
	return func(e *DefaultExecutor) {
		e.privMgr = mgr
	}
}

// WithDryRun makes Execute validate and log tasks without running them.
func WithDryRun(dryRun bool) Option {
	return func(e *DefaultExecutor) {
		e.dryRun = dryRun
	}
}

// WithLogger sets the logger for the executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *DefaultExecutor) {
		e.logger = logger
	}
}

// DefaultExecutor is the default implementation of TaskExecutor
type DefaultExecutor struct {
	fs      common.FileSystem
	out     OutputWriter
	privMgr runnertypes.PrivilegeManager
	logger  *slog.Logger
	dryRun  bool
}

// NewDefaultExecutor creates a new task executor. By default it validates
// against the real filesystem and echoes task output to the console.
func NewDefaultExecutor(opts ...Option) *DefaultExecutor {
	e := &DefaultExecutor{
		fs:     common.NewDefaultFileSystem(),
		out:    &consoleOutputWriter{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements the TaskExecutor interface
func (e *DefaultExecutor) Execute(ctx context.Context, task Task, env []string) (*Result, error) {
	// Validate the task before execution
	if err := e.Validate(task); err != nil {
		return nil, fmt.Errorf("task validation failed: %w", err)
	}

	// Resolve the command path
	path, lookErr := exec.LookPath(task.Cmd)
	if lookErr != nil {
		return nil, fmt.Errorf("failed to find command %q: %w", task.Cmd, lookErr)
	}

	if e.dryRun {
		e.logger.Info("Dry-run: skipping task execution",
			"task", task.Name,
			"task_id", task.ID,
			"connection", task.ConnectionID,
			"dir", task.Dir,
			"command", CommandLine(path, task.Args),
			"privileged", task.Privileged)
		return &Result{DryRun: true}, nil
	}

	if task.Privileged {
		return e.executePrivileged(ctx, task, path, env)
	}
	return e.run(ctx, task, path, env)
}

// executePrivileged runs the task inside a privilege elevation window.
func (e *DefaultExecutor) executePrivileged(ctx context.Context, task Task, path string, env []string) (*Result, error) {
	if e.privMgr == nil {
		return nil, fmt.Errorf("%w: task %q", ErrNoPrivilegeManager, task.Name)
	}
	if !e.privMgr.IsPrivilegedExecutionSupported() {
		return nil, fmt.Errorf("task %q: %w", task.Name, runnertypes.ErrPrivilegedExecutionNotAvailable)
	}

	elevationCtx := runnertypes.ElevationContext{
		Operation:    runnertypes.OperationTaskExecution,
		ConnectionID: task.ConnectionID,
		TaskName:     task.Name,
		TargetUID:    task.TargetUID,
	}

	var result *Result
	err := e.privMgr.WithPrivileges(elevationCtx, func() error {
		var runErr error
		result, runErr = e.run(ctx, task, path, env)
		return runErr
	})
	return result, err
}

// run starts the process and captures its output.
func (e *DefaultExecutor) run(ctx context.Context, task Task, path string, env []string) (*Result, error) {
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(task.Timeout)*time.Second)
		defer cancel()
	}

	// Create the command with the resolved path
	// #nosec G204 - The command and arguments are validated before execution
	execCmd := exec.CommandContext(ctx, path, task.Args...)
	execCmd.Dir = task.Dir

	// Only the environment assembled by the caller reaches the child.
	// This keeps allowlist filtering enforced.
	execCmd.Env = env

	var limit int64
	if task.OutputLimit.IsSet() && !task.OutputLimit.IsUnlimited() {
		limit = task.OutputLimit.Value()
	}

	stdoutWrapper := newOutputWrapper(e.out, StdoutStream, limit)
	stderrWrapper := newOutputWrapper(e.out, StderrStream, limit)
	execCmd.Stdout = stdoutWrapper
	execCmd.Stderr = stderrWrapper

	e.logger.Debug("Starting task process",
		"task", task.Name,
		"task_id", task.ID,
		"dir", task.Dir,
		"command", common.EscapeControlChars(CommandLine(path, task.Args)))

	cmdErr := execCmd.Run()

	result := &Result{
		Stdout:    string(stdoutWrapper.Captured()),
		Stderr:    string(stderrWrapper.Captured()),
		Truncated: stdoutWrapper.IsTruncated() || stderrWrapper.IsTruncated(),
	}
	if execCmd.ProcessState != nil {
		result.ExitCode = execCmd.ProcessState.ExitCode()
	} else {
		result.ExitCode = ExitCodeUnknown
	}

	if cmdErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("%w after %ds: %v", ErrTaskTimeout, task.Timeout, cmdErr)
		}
		return result, fmt.Errorf("task execution failed: %w", cmdErr)
	}

	return result, nil
}

// Validate implements the TaskExecutor interface
func (e *DefaultExecutor) Validate(task Task) error {
	// Check if command is empty
	if task.Cmd == "" {
		return ErrEmptyCommand
	}

	// Validate command path to prevent command injection and ensure proper format
	if !filepath.IsLocal(task.Cmd) && !filepath.IsAbs(task.Cmd) {
		return fmt.Errorf("%w: command path must be local or absolute: %s", ErrInvalidPath, task.Cmd)
	}
	if filepath.Clean(task.Cmd) != task.Cmd {
		return fmt.Errorf("%w: command path contains relative path components ('.' or '..'): %s", ErrInvalidPath, task.Cmd)
	}

	// Check if working directory is absolute and exists
	if task.Dir != "" {
		if !filepath.IsAbs(task.Dir) {
			return fmt.Errorf("%w: working directory must be absolute: %s", ErrInvalidPath, task.Dir)
		}
		exists, err := e.fs.FileExists(task.Dir)
		if err != nil {
			return fmt.Errorf("failed to check directory %s: %w", task.Dir, err)
		}
		if !exists {
			return fmt.Errorf("working directory %q does not exist: %w", task.Dir, ErrDirNotExists)
		}
	}

	return nil
}

// consoleOutputWriter implements OutputWriter by writing to stdout/stderr
type consoleOutputWriter struct {
	mu sync.Mutex
}

func (w *consoleOutputWriter) Write(stream string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if stream == StderrStream {
		_, err := os.Stderr.Write(data)
		return err
	}
	_, err := os.Stdout.Write(data)
	return err
}

func (w *consoleOutputWriter) Close() error {
	// Nothing to close for console output
	return nil
}

// outputWrapper is an io.Writer that captures output up to a size limit
// and forwards every chunk to an OutputWriter with a specific stream name
type outputWrapper struct {
	writer    OutputWriter
	stream    string
	limit     int64 // 0 means unlimited capture
	buffer    bytes.Buffer
	truncated bool
	mu        sync.Mutex
}

func newOutputWrapper(writer OutputWriter, stream string, limit int64) *outputWrapper {
	return &outputWrapper{writer: writer, stream: stream, limit: limit}
}

func (w *outputWrapper) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Capture up to the limit; forwarding below is never truncated
	switch {
	case w.limit <= 0:
		w.buffer.Write(p)
	case int64(w.buffer.Len()) < w.limit:
		remaining := w.limit - int64(w.buffer.Len())
		if int64(len(p)) > remaining {
			w.buffer.Write(p[:remaining])
			w.truncated = true
		} else {
			w.buffer.Write(p)
		}
	case len(p) > 0:
		w.truncated = true
	}

	if w.writer != nil {
		if err := w.writer.Write(w.stream, p); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

// Captured returns the buffered output.
func (w *outputWrapper) Captured() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.Bytes()
}

// IsTruncated reports whether the capture hit the size limit.
func (w *outputWrapper) IsTruncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}
