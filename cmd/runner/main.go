// Package main provides the entry point for the remote task runner. It
// parses command-line arguments, drops inherited privileges, loads the
// configuration and drives task execution across the configured connections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/isseis/go-remote-task-runner/internal/logging"
	"github.com/isseis/go-remote-task-runner/internal/runner"
	"github.com/isseis/go-remote-task-runner/internal/runner/bootstrap"
	"github.com/isseis/go-remote-task-runner/internal/runner/privilege"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// defaultEnvFile is loaded from the working directory when no env file is
// named on the command line or in the configuration.
const defaultEnvFile = ".env"

var (
	configPath     = flag.String("config", "", "path to config file")
	taskNames      = flag.String("tasks", "", "comma-separated task names to run (default: all tasks)")
	envFile        = flag.String("env-file", "", "path to environment file")
	logLevel       = flag.String("log-level", "", "log level (debug, info, warn, error); overrides the config file")
	logDir         = flag.String("log-dir", "", "directory to place per-run JSON log (auto-named); overrides the config file")
	dryRun         = flag.Bool("dry-run", false, "log tasks without executing them")
	validateConfig = flag.Bool("validate", false, "validate configuration file and exit")
	interactive    = flag.Bool("interactive", false, "force interactive console output")
	quiet          = flag.Bool("quiet", false, "disable interactive console output")
)

func main() {
	// Generate run ID early for error handling
	runID := logging.GenerateRunID()

	// The binary may be installed setuid root so privileged tasks can
	// elevate on demand. Everything else runs with the invoking user's
	// privileges.
	if err := syscall.Seteuid(syscall.Getuid()); err != nil {
		logging.HandlePreExecutionError(logging.ErrorTypePrivilegeDrop, fmt.Sprintf("Failed to drop privileges: %v", err), "main", runID)
		os.Exit(1)
	}

	exitCode, err := run(runID)
	if err != nil {
		var preExecErr *logging.PreExecutionError
		if errors.As(err, &preExecErr) {
			logging.HandlePreExecutionError(preExecErr.Type, preExecErr.Message, preExecErr.Component, runID)
		} else {
			logging.HandlePreExecutionError(logging.ErrorTypeSystemError, err.Error(), "main", runID)
		}
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// run performs the pre-execution phase (configuration, logging, runner
// construction) and then the execution phase. Pre-execution failures are
// returned as errors for main to report; execution-phase outcomes are
// reported here and mapped to the process exit code.
func run(runID string) (int, error) {
	flag.Parse()

	// Set up context with cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig(*configPath, runID)
	if err != nil {
		return 0, err
	}

	// Command-line flags override the configuration file.
	level := cfg.Global.LogLevel
	if *logLevel != "" {
		level = runnertypes.LogLevel(*logLevel)
	}
	dir := cfg.Global.LogDir
	if *logDir != "" {
		dir = *logDir
	}

	if err := bootstrap.SetupLogging(bootstrap.SetupLoggingOptions{
		LogLevel:         level,
		LogDir:           dir,
		RunID:            runID,
		ForceInteractive: *interactive,
		ForceQuiet:       *quiet,
	}); err != nil {
		return 0, err
	}
	defer bootstrap.ReportRedactionFailures()

	if *validateConfig {
		// Loading already validated the configuration.
		printConfigSummary(cfg)
		return 0, nil
	}

	if names := parseTaskNames(*taskNames); names != nil {
		tasks, err := selectTasks(cfg, names)
		if err != nil {
			return 0, &logging.PreExecutionError{
				Type:      logging.ErrorTypeTaskSelection,
				Message:   err.Error(),
				Component: "cli",
				RunID:     runID,
			}
		}
		cfg.Tasks = tasks
	}

	privMgr := privilege.NewManager(slog.Default())
	if !*dryRun && hasPrivilegedTasks(cfg) {
		if err := privMgr.HealthCheck(); err != nil {
			return 0, &logging.PreExecutionError{
				Type:      logging.ErrorTypePrivilegeUnavailable,
				Message:   fmt.Sprintf("configuration contains privileged tasks but elevation is unavailable: %v", err),
				Component: "main",
				RunID:     runID,
			}
		}
	}

	taskRunner, err := runner.NewRunner(cfg,
		runner.WithRunID(runID),
		runner.WithPrivilegeManager(privMgr),
		runner.WithDryRun(*dryRun))
	if err != nil {
		return 0, fmt.Errorf("failed to initialize runner: %w", err)
	}
	defer taskRunner.Close()

	if err := taskRunner.LoadEnvironment(resolveEnvFile(*envFile, cfg)); err != nil {
		return 0, fmt.Errorf("failed to load environment: %w", err)
	}

	// A signal during setup stops the run before any task starts.
	if ctx.Err() != nil {
		return 0, &logging.PreExecutionError{
			Type:      logging.ErrorTypeUserInterrupted,
			Message:   "Interrupted before task execution started",
			Component: "main",
			RunID:     runID,
		}
	}

	summary, execErr := taskRunner.ExecuteAll(ctx)
	exitCode, status := summarizeRun(summary, execErr)
	if status == statusInterrupted {
		slog.Warn("Run interrupted by signal", "run_id", runID)
	}
	if m := privMgr.GetMetrics(); m.ElevationAttempts > 0 {
		slog.Info("Privilege elevation summary",
			"attempts", m.ElevationAttempts,
			"successes", m.ElevationSuccesses,
			"failures", m.ElevationFailures,
			"total_time", m.TotalElevationTime,
			"max_time", m.MaxElevationTime)
	}
	logging.EmitRunSummary(runID, exitCode, status, summary.Duration,
		summary.Tasks, summary.Succeeded, summary.Failed, summary.Errors)
	return exitCode, nil
}

// hasPrivilegedTasks reports whether any configured task asks for the
// connection's elevated identity.
func hasPrivilegedTasks(cfg *runnertypes.Config) bool {
	for i := range cfg.Tasks {
		if cfg.Tasks[i].Privileged {
			return true
		}
	}
	return false
}

// Run summary status values for the execution phase.
const (
	statusSuccess     = "success"
	statusError       = "error"
	statusInterrupted = "interrupted"
)

// summarizeRun maps an execution pass to the process exit code and summary
// status. Task failures of any kind yield exit code 1; the per-task detail
// stays in the summary counts.
func summarizeRun(summary *runner.RunSummary, execErr error) (int, string) {
	switch {
	case execErr != nil && errors.Is(execErr, context.Canceled):
		return 1, statusInterrupted
	case execErr != nil || summary.Failed > 0 || summary.Errors > 0:
		return 1, statusError
	default:
		return 0, statusSuccess
	}
}

// resolveEnvFile picks the environment file to load: the command-line flag
// wins, then the configuration's env_file, then a .env in the working
// directory when one exists. Returns "" when there is nothing to load.
func resolveEnvFile(flagValue string, cfg *runnertypes.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.Global.EnvFile != "" {
		return cfg.Global.EnvFile
	}
	if _, err := os.Stat(defaultEnvFile); err == nil {
		return defaultEnvFile
	}
	return ""
}

// printConfigSummary reports a validated configuration on stdout.
func printConfigSummary(cfg *runnertypes.Config) {
	fmt.Println("Configuration is valid")
	fmt.Printf("  Version:     %s\n", cfg.Version)
	fmt.Printf("  Connections: %d\n", len(cfg.Connections))
	fmt.Printf("  Tasks:       %d\n", len(cfg.Tasks))
}
