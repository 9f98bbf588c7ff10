package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ExecutionError represents an error that occurs while tasks are running
// (as opposed to pre-execution errors like configuration parsing or log
// file setup). TaskName and ConnectionID are optional context fields.
type ExecutionError struct {
	Message      string
	Component    string
	RunID        string
	TaskName     string
	ConnectionID string
	Err          error // Wrapped error for better error context preservation
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if ctx := e.contextSuffix(); ctx != "" {
		msg += " " + ctx
	}
	return fmt.Sprintf("execution error: %s (component: %s, run_id: %s)", msg, e.Component, e.RunID)
}

// Unwrap implements error wrapping for errors.Unwrap
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// contextSuffix renders the optional task context, e.g.
// "(task: deploy, connection: web-1)".
func (e *ExecutionError) contextSuffix() string {
	var parts []string
	if e.TaskName != "" {
		parts = append(parts, "task: "+e.TaskName)
	}
	if e.ConnectionID != "" {
		parts = append(parts, "connection: "+e.ConnectionID)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// HandleExecutionError reports an execution-phase failure on stderr and
// through slog. The stdout run summary for the execution phase is emitted by
// the runner itself, so unlike HandlePreExecutionError no summary line is
// produced here.
func HandleExecutionError(execErr *ExecutionError) {
	msg := execErr.Message
	if execErr.Err != nil {
		msg += ": " + execErr.Err.Error()
	}
	if ctx := execErr.contextSuffix(); ctx != "" {
		msg += " " + ctx
	}

	// Build stderr output atomically to prevent interleaved output in concurrent scenarios
	var stderrBuilder strings.Builder
	fmt.Fprintf(&stderrBuilder, "Error: %s\n", msg)
	if execErr.Component != "" {
		fmt.Fprintf(&stderrBuilder, "  Component: %s\n", execErr.Component)
	}
	if execErr.RunID != "" {
		fmt.Fprintf(&stderrBuilder, "  Run ID: %s\n", execErr.RunID)
	}
	fmt.Fprint(os.Stderr, stderrBuilder.String())

	if logger := slog.Default(); logger != nil {
		attrs := []any{
			"error_message", msg,
			"component", execErr.Component,
			"run_id", execErr.RunID,
		}
		if execErr.TaskName != "" {
			attrs = append(attrs, "task", execErr.TaskName)
		}
		if execErr.ConnectionID != "" {
			attrs = append(attrs, "connection_id", execErr.ConnectionID)
		}
		slog.Error("Execution error occurred", attrs...)
	}
}

// EmitRunSummary prints the machine-readable summary line for a completed
// execution phase on stdout and mirrors it to the structured log. It is the
// execution-phase counterpart of the line HandlePreExecutionError emits for
// runs that never started.
func EmitRunSummary(runID string, exitCode int, status string, duration time.Duration, tasks, succeeded, failed, errorCount int) {
	fmt.Printf("RUN_SUMMARY run_id=%s exit_code=%d status=%s duration_ms=%d tasks=%d succeeded=%d failed=%d errors=%d\n",
		runID, exitCode, status, duration.Milliseconds(), tasks, succeeded, failed, errorCount)

	slog.Info("Run summary",
		"run_id", runID,
		"exit_code", exitCode,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"tasks", tasks,
		"succeeded", succeeded,
		"failed", failed,
		"errors", errorCount)
}
