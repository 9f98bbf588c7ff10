package environment

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/isseis/go-remote-task-runner/internal/common"
)

// Error definitions
var (
	// ErrVariableNameEmpty is returned when a variable name is empty
	ErrVariableNameEmpty = errors.New("variable name cannot be empty")
	// ErrInvalidVariableName is returned for names that are not valid
	// environment variable identifiers
	ErrInvalidVariableName = errors.New("invalid variable name")
	// ErrMalformedEnvVariable is returned for task env entries that are not
	// in KEY=VALUE form
	ErrMalformedEnvVariable = errors.New("malformed environment variable")
)

// Filter builds child process environments with allowlist-based inheritance.
// Variables outside the allowlist never reach child processes; task-level
// variables and binder output are always applied on top, in that order.
type Filter struct {
	allowlist map[string]bool // O(1) lookups of inheritable variables
	logger    *slog.Logger

	// environ is a seam for tests; production value is os.Environ
	environ func() []string
}

// NewFilter creates a filter from the configured allowlist.
func NewFilter(allowlist []string, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Filter{
		allowlist: make(map[string]bool, len(allowlist)),
		logger:    logger,
		environ:   os.Environ,
	}
	for _, name := range allowlist {
		f.allowlist[name] = true
	}
	return f
}

// IsAllowed reports whether a variable may be inherited from the runner
// process.
func (f *Filter) IsAllowed(name string) bool {
	return f.allowlist[name]
}

// ParentEnvironment returns the allowlist-filtered runner environment.
func (f *Filter) ParentEnvironment() map[string]string {
	result := make(map[string]string)
	for _, entry := range f.environ() {
		name, value, ok := common.ParseEnvVariable(entry)
		if !ok {
			continue
		}
		if f.allowlist[name] {
			result[name] = value
		}
	}
	return result
}

// BuildTaskEnv assembles the complete child environment: filtered parent
// environment, then task-level variables, then bindings, with later layers
// overriding earlier ones. The result is sorted KEY=VALUE form for exec.Cmd.
func (f *Filter) BuildTaskEnv(taskEnv []string, bindings map[string]string) ([]string, error) {
	merged := f.ParentEnvironment()

	for _, entry := range taskEnv {
		name, value, ok := common.ParseEnvVariable(entry)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedEnvVariable, entry)
		}
		if err := validateVariableName(name); err != nil {
			return nil, err
		}
		merged[name] = value
	}

	for name, value := range bindings {
		if previous, ok := merged[name]; ok && previous != value {
			f.logger.Debug("Temp directory binding overrides variable",
				"variable", name)
		}
		merged[name] = value
	}

	result := make([]string, 0, len(merged))
	for name, value := range merged {
		result = append(result, name+"="+value)
	}
	sort.Strings(result)
	return result, nil
}

// validateVariableName checks that a name is a portable environment
// variable identifier.
func validateVariableName(name string) error {
	if name == "" {
		return ErrVariableNameEmpty
	}
	for i, r := range name {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("%w: %q starts with a digit", ErrInvalidVariableName, name)
			}
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidVariableName, name, r)
		}
	}
	return nil
}
