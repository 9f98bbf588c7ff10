package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// ErrTaskNotFound indicates a task named on the command line does not exist
// in the configuration.
var ErrTaskNotFound = errors.New("task not found")

// parseTaskNames parses the -tasks flag into a slice of task names. It
// splits the input by comma, trims whitespace, and drops empty entries.
// Returns nil when the input resolves to no names.
func parseTaskNames(tasksFlag string) []string {
	if strings.TrimSpace(tasksFlag) == "" {
		return nil
	}

	parts := strings.Split(tasksFlag, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		names = append(names, trimmed)
	}

	if len(names) == 0 {
		return nil
	}
	return names
}

// selectTasks returns the configured tasks matching the requested names,
// preserving configuration order and ignoring duplicate requests. Names
// that match no configured task are reported together with the names that
// are available.
func selectTasks(cfg *runnertypes.Config, names []string) ([]runnertypes.TaskSpec, error) {
	requested := make(map[string]struct{}, len(names))
	for _, name := range names {
		requested[name] = struct{}{}
	}

	selected := make([]runnertypes.TaskSpec, 0, len(requested))
	for _, task := range cfg.Tasks {
		if _, ok := requested[task.Name]; ok {
			selected = append(selected, task)
			delete(requested, task.Name)
		}
	}

	if len(requested) > 0 {
		missing := make([]string, 0, len(requested))
		for _, name := range names {
			if _, ok := requested[name]; ok {
				missing = append(missing, name)
				delete(requested, name)
			}
		}
		available := make([]string, len(cfg.Tasks))
		for i, task := range cfg.Tasks {
			available[i] = task.Name
		}
		return nil, fmt.Errorf("%w: %v not in configuration (available: %v)",
			ErrTaskNotFound, missing, available)
	}

	return selected, nil
}
