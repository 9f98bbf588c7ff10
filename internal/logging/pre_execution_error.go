package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrorType classifies failures that happen before any task runs.
type ErrorType string

const (
	// ErrorTypeConfigParsing marks configuration loading or validation failures
	ErrorTypeConfigParsing ErrorType = "config_parsing_failed"
	// ErrorTypeLogFileOpen marks failures opening the per-run log file
	ErrorTypeLogFileOpen ErrorType = "log_file_open_failed"
	// ErrorTypePrivilegeDrop marks failures dropping inherited privileges at startup
	ErrorTypePrivilegeDrop ErrorType = "privilege_drop_failed"
	// ErrorTypePrivilegeUnavailable marks privileged tasks configured without a
	// working elevation path
	ErrorTypePrivilegeUnavailable ErrorType = "privilege_unavailable"
	// ErrorTypeFileAccess marks failures reading a required file
	ErrorTypeFileAccess ErrorType = "file_access_failed"
	// ErrorTypeUserInterrupted marks a signal received during setup
	ErrorTypeUserInterrupted ErrorType = "user_interrupted"
	// ErrorTypeRequiredArgumentMissing marks absent required command-line arguments
	ErrorTypeRequiredArgumentMissing ErrorType = "required_argument_missing"
	// ErrorTypeTaskSelection marks -tasks selections that match no configured task
	ErrorTypeTaskSelection ErrorType = "task_selection_failed"
	// ErrorTypeSystemError marks everything the other types do not cover
	ErrorTypeSystemError ErrorType = "system_error"
)

// PreExecutionError represents an error that occurs before any task runs,
// while the logger may not be fully assembled yet.
type PreExecutionError struct {
	Type      ErrorType
	Message   string
	Component string
	RunID     string
	Err       error // wrapped cause, when one exists
}

func (e *PreExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v (component: %s, run_id: %s)", e.Type, e.Message, e.Err, e.Component, e.RunID)
	}
	return fmt.Sprintf("%s: %s (component: %s, run_id: %s)", e.Type, e.Message, e.Component, e.RunID)
}

// Is matches any *PreExecutionError so callers can test the category
// without knowing the concrete Type.
func (e *PreExecutionError) Is(target error) bool {
	_, ok := target.(*PreExecutionError)
	return ok
}

// As supports errors.As targets of type **PreExecutionError.
func (e *PreExecutionError) As(target any) bool {
	if preExecErr, ok := target.(**PreExecutionError); ok {
		*preExecErr = e
		return true
	}
	return false
}

func (e *PreExecutionError) Unwrap() error {
	return e.Err
}

// HandlePreExecutionError reports a pre-execution error on stderr, through
// slog if a logger is installed, and as a machine-readable RUN_SUMMARY line
// on stdout.
func HandlePreExecutionError(errorType ErrorType, errorMsg, component, runID string) {
	// Single Fprint per stream keeps concurrent reporters from interleaving.
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", errorType)
	if component != "" {
		fmt.Fprintf(&b, "  Component: %s\n", component)
	}
	fmt.Fprintf(&b, "  Details: %s\n", errorMsg)
	if runID != "" {
		fmt.Fprintf(&b, "  Run ID: %s\n", runID)
	}
	fmt.Fprint(os.Stderr, b.String())

	if logger := slog.Default(); logger != nil {
		slog.Error("Pre-execution error occurred",
			"error_type", string(errorType),
			"error_message", errorMsg,
			"component", component,
			"run_id", runID,
		)
	}

	fmt.Printf("Error: %s\nRUN_SUMMARY run_id=%s exit_code=1 status=pre_execution_error duration_ms=0 tasks=0 succeeded=0 failed=0 errors=1\n", errorType, runID)
}
