package logging

import (
	"log/slog"
)

// SecurityLogger logs security-relevant execution events: privilege
// elevation and timeout anomalies. Records carry a security_event
// attribute so audits can filter them out of the per-run JSON log.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: slog.Default(),
	}
}

// NewSecurityLoggerWithLogger creates a new security logger with a custom logger
func NewSecurityLoggerWithLogger(logger *slog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger,
	}
}

// LogElevatedExecution logs when a task starts under an elevated privilege context
func (s *SecurityLogger) LogElevatedExecution(taskName, connectionID, user string) {
	s.logger.Info("Task starting with elevated privileges",
		"task", taskName,
		"connection_id", connectionID,
		"user", user,
		"security_event", "elevated_execution_start")
}

// LogUnlimitedExecution logs when a task starts execution with unlimited timeout
func (s *SecurityLogger) LogUnlimitedExecution(taskName, connectionID string) {
	s.logger.Warn("Task starting with unlimited timeout",
		"task", taskName,
		"connection_id", connectionID,
		"timeout", "unlimited",
		"security_event", "unlimited_execution_start")
}

// LogTimeoutExceeded logs when a task exceeds its timeout
func (s *SecurityLogger) LogTimeoutExceeded(taskName string, timeoutSeconds int32) {
	s.logger.Error("Task exceeded timeout",
		"task", taskName,
		"timeout_seconds", timeoutSeconds,
		"security_event", "timeout_exceeded")
}

// LogTimeoutConfiguration logs the effective timeout configuration for a task
func (s *SecurityLogger) LogTimeoutConfiguration(taskName string, timeoutSeconds int32, source string) {
	if timeoutSeconds == 0 {
		s.logger.Info("Task configured with unlimited timeout",
			"task", taskName,
			"timeout", "unlimited",
			"source", source)
	} else {
		s.logger.Debug("Task timeout configured",
			"task", taskName,
			"timeout_seconds", timeoutSeconds,
			"source", source)
	}
}
