package config

import (
	"fmt"
	"regexp"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// NamePattern constrains connection ids and task names. Both end up in log
// records and base directory names, so shell- and path-hostile characters
// are rejected outright.
var NamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// envKeyPattern matches POSIX portable environment variable names.
var envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a parsed configuration for structural problems: malformed
// names, duplicate identifiers, dangling connection references, out-of-range
// limits, and malformed env lists. It returns the first problem found.
func Validate(cfg *runnertypes.Config) error {
	if err := validateGlobal(&cfg.Global); err != nil {
		return err
	}

	connections, err := validateConnections(cfg.Connections)
	if err != nil {
		return err
	}

	return validateTasks(cfg.Tasks, connections)
}

func validateGlobal(global *runnertypes.GlobalConfig) error {
	if global.Timeout != nil && *global.Timeout < 0 {
		return fmt.Errorf("%w: global timeout got %d", ErrNegativeTimeout, *global.Timeout)
	}
	if global.Timeout != nil && *global.Timeout > common.MaxTimeout {
		return fmt.Errorf("%w: global timeout got %d", ErrTimeoutTooLarge, *global.Timeout)
	}
	if global.MaxOutputSize != nil && *global.MaxOutputSize < 0 {
		return fmt.Errorf("%w: global max_output_size got %d", ErrNegativeOutputSize, *global.MaxOutputSize)
	}

	if global.TempDirEnvVar != "" && !envKeyPattern.MatchString(global.TempDirEnvVar) {
		return fmt.Errorf("%w: global temp_dir_env_var %q", ErrInvalidEnvKey, global.TempDirEnvVar)
	}

	for _, key := range global.EnvAllowlist {
		if !envKeyPattern.MatchString(key) {
			return fmt.Errorf("%w: %q in global.env_allowlist", ErrInvalidEnvKey, key)
		}
	}
	return nil
}

// validateConnections checks every connection and returns the set of
// declared ids for task reference checks.
func validateConnections(connections []runnertypes.ConnectionConfig) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(connections))

	for i, conn := range connections {
		if conn.ID == "" {
			return nil, fmt.Errorf("%w: connections[%d]", ErrEmptyConnectionID, i)
		}
		if !NamePattern.MatchString(conn.ID) {
			return nil, fmt.Errorf("%w: %q must match pattern %s", ErrInvalidConnectionID, conn.ID, NamePattern)
		}
		if _, exists := ids[conn.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateConnectionID, conn.ID)
		}
		ids[conn.ID] = struct{}{}

		if conn.TempDirEnvVar != "" && !envKeyPattern.MatchString(conn.TempDirEnvVar) {
			return nil, fmt.Errorf("%w: temp_dir_env_var %q in connection %q", ErrInvalidEnvKey, conn.TempDirEnvVar, conn.ID)
		}
	}
	return ids, nil
}

func validateTasks(tasks []runnertypes.TaskSpec, connections map[string]struct{}) error {
	names := make(map[string]struct{}, len(tasks))

	for i, task := range tasks {
		if task.Name == "" {
			return fmt.Errorf("%w: tasks[%d]", ErrEmptyTaskName, i)
		}
		if !NamePattern.MatchString(task.Name) {
			return fmt.Errorf("%w: %q must match pattern %s", ErrInvalidTaskName, task.Name, NamePattern)
		}
		if _, exists := names[task.Name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateTaskName, task.Name)
		}
		names[task.Name] = struct{}{}

		if task.Connection == "" {
			return fmt.Errorf("%w: task %q declares no connection", ErrUnknownConnection, task.Name)
		}
		if _, exists := connections[task.Connection]; !exists {
			return fmt.Errorf("%w: task %q references %q", ErrUnknownConnection, task.Name, task.Connection)
		}

		if task.Cmd == "" {
			return fmt.Errorf("%w: task %q", ErrEmptyCommand, task.Name)
		}

		if task.Timeout != nil && *task.Timeout < 0 {
			return fmt.Errorf("%w: task %q (tasks[%d]) got %d", ErrNegativeTimeout, task.Name, i, *task.Timeout)
		}
		if task.Timeout != nil && *task.Timeout > common.MaxTimeout {
			return fmt.Errorf("%w: task %q (tasks[%d]) got %d", ErrTimeoutTooLarge, task.Name, i, *task.Timeout)
		}
		if task.MaxOutputSize != nil && *task.MaxOutputSize < 0 {
			return fmt.Errorf("%w: task %q (tasks[%d]) got %d", ErrNegativeOutputSize, task.Name, i, *task.MaxOutputSize)
		}

		if err := validateEnvList(task.Env, fmt.Sprintf("task %q", task.Name)); err != nil {
			return err
		}
	}
	return nil
}

// validateEnvList validates a list of environment variables in KEY=VALUE
// format. The context parameter is used for error reporting. Returns an
// error when an entry is not KEY=VALUE, a key repeats, or a key is not a
// valid environment variable name.
func validateEnvList(envList []string, context string) error {
	if len(envList) == 0 {
		return nil
	}

	envMap := make(map[string]string)

	for _, envVar := range envList {
		key, value, ok := common.ParseEnvVariable(envVar)
		if !ok {
			return fmt.Errorf("%w: %q in %s", ErrMalformedEnvVariable, envVar, context)
		}

		if firstValue, exists := envMap[key]; exists {
			return fmt.Errorf("%w: %q in %s\n  First definition: %s=%s\n  Duplicate definition: %s=%s",
				ErrDuplicateEnvVariable, key, context, key, firstValue, key, value)
		}
		envMap[key] = value
	}

	for key := range envMap {
		if !envKeyPattern.MatchString(key) {
			return fmt.Errorf("%w: %q in %s", ErrInvalidEnvKey, key, context)
		}
	}
	return nil
}
