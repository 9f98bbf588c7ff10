// Package runnertypes defines the core data structures used throughout the task runner.
// It includes types for configuration, connections, tasks, and privilege contexts.
package runnertypes

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// LogLevel represents the logging level for the application.
// Valid values: debug, info, warn, error
type LogLevel string

const (
	// LogLevelDebug enables debug-level logging
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo enables info-level logging (default)
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn enables warning-level logging
	LogLevelWarn LogLevel = "warn"

	// LogLevelError enables error-level logging only
	LogLevelError LogLevel = "error"
)

// ErrInvalidLogLevel is returned when an invalid log level is provided
var ErrInvalidLogLevel = errors.New("invalid log level")

// Defaults applied by the config loader when fields are left empty.
const (
	// DefaultTempDirEnvVar is the environment variable consulted for a temp
	// parent override when no explicit variable name is configured.
	DefaultTempDirEnvVar = "RUNNER_REMOTE_TMP"

	// DefaultElevatedUser is the escalation target when none is configured.
	DefaultElevatedUser = "root"

	// DefaultTransport is the execution channel used when none is configured.
	DefaultTransport = "local"

	// DefaultJanitorSchedule is the sweep cadence for the residual-directory
	// janitor when none is configured.
	DefaultJanitorSchedule = "@hourly"

	// DefaultJanitorMaxAge is the minimum residual-directory age before the
	// janitor removes it, when none is configured.
	DefaultJanitorMaxAge = "24h"
)

// UnmarshalText implements the encoding.TextUnmarshaler interface.
// This enables validation during TOML parsing.
func (l *LogLevel) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	switch LogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		*l = LogLevel(s)
		return nil
	case "":
		// Empty string defaults to info level
		*l = LogLevelInfo
		return nil
	default:
		return fmt.Errorf("%w: %q (must be one of: debug, info, warn, error)", ErrInvalidLogLevel, string(text))
	}
}

// ToSlogLevel converts LogLevel to slog.Level for use with the slog package.
func (l LogLevel) ToSlogLevel() (slog.Level, error) {
	switch strings.ToLower(string(l)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l)
	}
}

// String returns the string representation of LogLevel.
func (l LogLevel) String() string {
	return string(l)
}

// Config represents the complete runner configuration
type Config struct {
	Version string `toml:"version"`

	Global GlobalConfig `toml:"global"`

	// Connections declares the execution channels tasks run over
	Connections []ConnectionConfig `toml:"connections"`

	// Tasks declares the units of work, in execution order
	Tasks []TaskSpec `toml:"tasks"`
}

// GlobalConfig contains runner-wide settings
type GlobalConfig struct {
	LogLevel LogLevel `toml:"log_level"`
	LogDir   string   `toml:"log_dir"`

	// EnvFile is an optional dotenv-style file loaded before path resolution
	EnvFile string `toml:"env_file"`

	// EnvAllowlist names the environment variables tasks inherit from the
	// runner process. Variables outside the list never reach child processes.
	EnvAllowlist []string `toml:"env_allowlist"`

	// TempDir is an explicit parent location for temp base directories,
	// applied to every connection that does not override it
	TempDir string `toml:"temp_dir"`

	// TempDirEnvVar names the environment variable consulted as a parent
	// location override when TempDir is unset (default: RUNNER_REMOTE_TMP)
	TempDirEnvVar string `toml:"temp_dir_env_var"`

	// StrictTempPaths makes stale temp-path releases fail loudly instead of
	// being ignored. Intended for development and test runs.
	StrictTempPaths bool `toml:"strict_temp_paths"`

	// Timeout is the default task timeout in seconds (0 = unlimited)
	Timeout *int32 `toml:"timeout"`

	// MaxOutputSize caps captured task output in bytes (0 = unlimited)
	MaxOutputSize *int64 `toml:"max_output_size"`

	Janitor JanitorConfig `toml:"janitor"`
}

// JanitorConfig controls the residual temp-directory sweeper
type JanitorConfig struct {
	Enabled bool `toml:"enabled"`

	// Schedule is a cron expression; default "@hourly"
	Schedule string `toml:"schedule"`

	// MaxAge is the minimum age before a residual directory is swept,
	// as a Go duration string; default "24h"
	MaxAge string `toml:"max_age"`
}

// ConnectionConfig declares a reusable execution channel to a target
type ConnectionConfig struct {
	ID string `toml:"id"`

	// Transport selects the channel implementation (currently "local")
	Transport string `toml:"transport"`

	// User is the connecting identity; empty means the current process user
	User string `toml:"user"`

	// ElevatedUser is the identity privileged tasks run under (default "root")
	ElevatedUser string `toml:"elevated_user"`

	// TempDir overrides the global explicit parent location for this connection
	TempDir string `toml:"temp_dir"`

	// TempDirEnvVar overrides the global override variable name for this connection
	TempDirEnvVar string `toml:"temp_dir_env_var"`

	// SupportsNestedTempDir marks channels whose child processes understand a
	// dedicated temp-directory binding in addition to TMPDIR nesting
	SupportsNestedTempDir bool `toml:"supports_nested_temp_dir"`
}

// TaskSpec declares a single unit of work
type TaskSpec struct {
	Name       string   `toml:"name"`
	Connection string   `toml:"connection"`
	Cmd        string   `toml:"cmd"`
	Args       []string `toml:"args"`

	// Env holds additional KEY=VALUE pairs for the task's child process
	Env []string `toml:"env"`

	// Privileged runs the task under the connection's elevated identity
	Privileged bool `toml:"privileged"`

	// Timeout in seconds overrides the global default (0 = unlimited)
	Timeout *int32 `toml:"timeout"`

	// MaxOutputSize overrides the global captured-output cap in bytes
	// (0 = unlimited)
	MaxOutputSize *int64 `toml:"max_output_size"`
}
