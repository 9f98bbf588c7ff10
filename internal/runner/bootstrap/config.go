// Package bootstrap provides application initialization and setup functionality.
package bootstrap

import (
	"github.com/isseis/go-remote-task-runner/internal/logging"
	"github.com/isseis/go-remote-task-runner/internal/runner/config"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
	"github.com/isseis/go-remote-task-runner/internal/safefileio"
)

// LoadConfig reads, parses, and validates a configuration file.
//
// Failures are wrapped in logging.PreExecutionError so callers can report
// them uniformly before the runner itself exists. The returned Config has
// defaults applied and is ready for execution.
func LoadConfig(configPath, runID string) (*runnertypes.Config, error) {
	if configPath == "" {
		return nil, &logging.PreExecutionError{
			Type:      logging.ErrorTypeRequiredArgumentMissing,
			Message:   "Config file path is required",
			Component: "config",
			RunID:     runID,
		}
	}

	content, err := safefileio.SafeReadFile(configPath)
	if err != nil {
		return nil, &logging.PreExecutionError{
			Type:      logging.ErrorTypeFileAccess,
			Message:   err.Error(),
			Component: "config",
			RunID:     runID,
		}
	}

	cfg, err := config.NewLoader().Load(content)
	if err != nil {
		return nil, &logging.PreExecutionError{
			Type:      logging.ErrorTypeConfigParsing,
			Message:   err.Error(),
			Component: "config",
			RunID:     runID,
		}
	}

	return cfg, nil
}
