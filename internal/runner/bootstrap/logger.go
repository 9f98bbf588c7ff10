package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/logging"
	"github.com/isseis/go-remote-task-runner/internal/redaction"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
	"github.com/isseis/go-remote-task-runner/internal/terminal"
)

// LoggerConfig holds all configuration for logger setup
type LoggerConfig struct {
	Level         runnertypes.LogLevel
	LogDir        string
	RunID         string
	ConsoleWriter io.Writer // Writer for console output (stdout/stderr)
}

// redactionErrorCollector is a global collector for redaction failures
// This is set during logger initialization and used for shutdown reporting
var redactionErrorCollector *redaction.InMemoryErrorCollector

// redactionReporter is a global reporter for shutdown
var redactionReporter *redaction.ShutdownReporter

// SetupLoggerWithConfig initializes the logging system with all handlers atomically.
//
// IMPORTANT: This function must be called exactly once during application startup,
// before any logging operations occur. It is designed for single-threaded bootstrap
// initialization and should not be called concurrently or after the application
// has started processing.
//
// The global redactionErrorCollector and redactionReporter are initialized during
// this call and must not be accessed before initialization completes.
func SetupLoggerWithConfig(config LoggerConfig, forceInteractive, forceQuiet bool) error {
	hostname := common.GetHostname()
	timestamp := time.Now().Format("20060102T150405Z")

	var handlers []slog.Handler

	// An invalid level falls back to info; the warning is emitted once the
	// logger is installed
	slogLevel, levelErr := config.Level.ToSlogLevel()
	if levelErr != nil {
		slogLevel = slog.LevelInfo
	}

	// Color preferences come from the environment; the flags only force
	// the interactivity decision.
	capabilities := terminal.NewCapabilities(terminal.Options{
		ForceInteractive:    forceInteractive,
		ForceNonInteractive: forceQuiet,
	})

	// 1. Interactive handler (for colored output when appropriate)
	if capabilities.IsInteractive() {
		formatter := logging.NewDefaultMessageFormatter()

		interactiveHandler, err := logging.NewInteractiveHandler(logging.InteractiveHandlerOptions{
			Level:        slogLevel,
			Writer:       os.Stderr, // Interactive messages go to stderr
			Capabilities: capabilities,
			Formatter:    formatter,
		})
		if err != nil {
			return fmt.Errorf("failed to create interactive handler: %w", err)
		}
		handlers = append(handlers, interactiveHandler)
	}

	// 2. Conditional text handler (for non-interactive console output)
	// Use configured console writer (stdout by default, can be overridden by caller)
	consoleWriter := config.ConsoleWriter
	if consoleWriter == nil {
		consoleWriter = os.Stdout // Default to stdout if not specified
	}
	conditionalTextHandler, err := logging.NewConditionalTextHandler(logging.ConditionalTextHandlerOptions{
		TextHandlerOptions: &slog.HandlerOptions{
			Level: slogLevel,
		},
		Writer:       consoleWriter,
		Capabilities: capabilities,
	})
	if err != nil {
		return fmt.Errorf("failed to create conditional text handler: %w", err)
	}
	handlers = append(handlers, conditionalTextHandler)

	// 3. Machine-readable log handler (to file, per-run auto-named)
	if config.LogDir != "" {
		if err := logging.ValidateLogDir(config.LogDir); err != nil {
			return fmt.Errorf("invalid log directory: %w", err)
		}

		logPath := filepath.Join(config.LogDir, fmt.Sprintf("%s_%s_%s.json", hostname, timestamp, config.RunID))
		logF, err := logging.OpenLogFile(logPath)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		jsonHandler := slog.NewJSONHandler(logF, &slog.HandlerOptions{
			Level: slogLevel,
		})

		// Attach common attributes
		enrichedHandler := jsonHandler.WithAttrs([]slog.Attr{
			slog.String("hostname", hostname),
			slog.Int("pid", os.Getpid()),
			slog.Int("schema_version", 1),
			slog.String("run_id", config.RunID),
		})
		handlers = append(handlers, enrichedHandler)
	}

	multiHandler := logging.NewMultiHandler(handlers...)

	// The failure logger writes through the plain handlers, bypassing the
	// redacting handler, so diagnostics recorded during a redaction failure
	// cannot recurse into the redactor
	failureLogger := slog.New(multiHandler)

	// Store the first 1000 failures and count the rest, so the shutdown
	// report stays bounded but still shows the earliest occurrences
	const maxRedactionFailures = 1000
	redactionErrorCollector = redaction.NewInMemoryErrorCollector(maxRedactionFailures)

	redactedHandler := redaction.NewRedactingHandler(multiHandler, nil, failureLogger).
		WithErrorCollector(redactionErrorCollector)

	// Create shutdown reporter for redaction failures
	redactionReporter = redaction.NewShutdownReporter(redactionErrorCollector, os.Stderr, failureLogger)

	// Set as default logger
	logger := slog.New(redactedHandler)
	slog.SetDefault(logger)

	if levelErr != nil {
		slog.Warn("Invalid log level, using info", "log_level", config.Level.String())
	}

	slog.Info("Logger initialized",
		"log-level", config.Level,
		"log-dir", config.LogDir,
		"run_id", config.RunID,
		"hostname", hostname,
		"interactive_mode", capabilities.IsInteractive(),
		"color_support", capabilities.SupportsColor())

	return nil
}

// SetupLoggingOptions holds configuration for SetupLogging
type SetupLoggingOptions struct {
	LogLevel         runnertypes.LogLevel
	LogDir           string
	RunID            string
	ForceInteractive bool
	ForceQuiet       bool
	ConsoleWriter    io.Writer // If nil, defaults to stdout
}

// SetupLogging assembles the logging system and wraps any failure in a
// PreExecutionError so callers can report it before the logger exists.
func SetupLogging(opts SetupLoggingOptions) error {
	loggerConfig := LoggerConfig{
		Level:         opts.LogLevel,
		LogDir:        opts.LogDir,
		RunID:         opts.RunID,
		ConsoleWriter: opts.ConsoleWriter,
	}

	if err := SetupLoggerWithConfig(loggerConfig, opts.ForceInteractive, opts.ForceQuiet); err != nil {
		return &logging.PreExecutionError{
			Type:      logging.ErrorTypeLogFileOpen,
			Message:   fmt.Sprintf("Failed to setup logger: %v", err),
			Component: "logging",
			RunID:     opts.RunID,
		}
	}

	return nil
}

// ReportRedactionFailures reports any collected redaction failures
// This should be called during application shutdown
func ReportRedactionFailures() {
	if redactionReporter == nil {
		return
	}

	if err := redactionReporter.Report(); err != nil {
		// Use fmt.Fprintf since logger might be shutting down
		fmt.Fprintf(os.Stderr, "Warning: failed to report redaction failures: %v\n", err)
	}
}
