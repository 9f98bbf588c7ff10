package config

import "errors"

// Configuration loading and validation errors
var (
	// ErrInvalidConfigPath is returned when the config file path is invalid
	ErrInvalidConfigPath = errors.New("invalid config file path")

	// ErrUnknownField is returned when the config contains fields the runner
	// does not understand. Typos must fail loudly rather than silently
	// running with defaults.
	ErrUnknownField = errors.New("unknown field in config")

	// ErrEmptyConnectionID is returned when a connection has no id
	ErrEmptyConnectionID = errors.New("connection has empty id")

	// ErrInvalidConnectionID is returned when a connection id doesn't match the required pattern
	ErrInvalidConnectionID = errors.New("invalid connection id")

	// ErrDuplicateConnectionID is returned when two connections share an id
	ErrDuplicateConnectionID = errors.New("duplicate connection id")

	// ErrEmptyTaskName is returned when a task has no name
	ErrEmptyTaskName = errors.New("task has empty name")

	// ErrInvalidTaskName is returned when a task name doesn't match the required pattern
	ErrInvalidTaskName = errors.New("invalid task name")

	// ErrDuplicateTaskName is returned when two tasks share a name
	ErrDuplicateTaskName = errors.New("duplicate task name")

	// ErrUnknownConnection is returned when a task references an undeclared connection
	ErrUnknownConnection = errors.New("task references unknown connection")

	// ErrEmptyCommand is returned when a task has no cmd
	ErrEmptyCommand = errors.New("task has empty cmd")

	// ErrNegativeTimeout indicates that a timeout value is negative
	ErrNegativeTimeout = errors.New("timeout must not be negative")

	// ErrTimeoutTooLarge indicates that a timeout value exceeds the allowed maximum
	ErrTimeoutTooLarge = errors.New("timeout exceeds maximum allowed value")

	// ErrNegativeOutputSize indicates that a max_output_size value is negative
	ErrNegativeOutputSize = errors.New("max_output_size must not be negative")

	// ErrMalformedEnvVariable is returned when an env entry is not in KEY=VALUE format
	ErrMalformedEnvVariable = errors.New("malformed env entry (expected KEY=VALUE format)")

	// ErrDuplicateEnvVariable is returned when duplicate environment variable keys are detected
	ErrDuplicateEnvVariable = errors.New("duplicate environment variable key")

	// ErrInvalidEnvKey is returned when an environment variable name contains invalid characters
	ErrInvalidEnvKey = errors.New("invalid environment variable name")
)
