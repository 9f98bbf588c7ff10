// Package runner wires the execution pipeline together: connections from the
// registry, temp directories from the allocator, child environments from the
// binder and filter, and process execution through the executor. Task
// directories are released on every exit path; connection bases live until an
// explicit reset or shutdown.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/logging"
	"github.com/isseis/go-remote-task-runner/internal/runner/connection"
	"github.com/isseis/go-remote-task-runner/internal/runner/environment"
	"github.com/isseis/go-remote-task-runner/internal/runner/executor"
	"github.com/isseis/go-remote-task-runner/internal/runner/janitor"
	"github.com/isseis/go-remote-task-runner/internal/runner/privilege"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
	"github.com/isseis/go-remote-task-runner/internal/runner/tempdir"
	"github.com/isseis/go-remote-task-runner/internal/safefileio"
)

// Error definitions
var (
	// ErrRunIDRequired is returned when NewRunner is called without a run ID
	ErrRunIDRequired = errors.New("runID is required")
)

// TaskResult captures the outcome of one task execution.
type TaskResult struct {
	TaskName     string
	ConnectionID string
	TaskID       string
	ExitCode     int
	Stdout       string
	Stderr       string
	Truncated    bool
	DryRun       bool
	Duration     time.Duration
}

// RunSummary aggregates one ExecuteAll pass. Tasks counts attempted tasks.
// Failed counts tasks whose process ran and exited non-zero; Errors counts
// tasks that could not run or were interrupted before producing an exit
// status.
type RunSummary struct {
	Tasks     int
	Succeeded int
	Failed    int
	Errors    int
	Duration  time.Duration
}

// Runner coordinates task execution across connections.
type Runner struct {
	config         *runnertypes.Config
	registry       *connection.Registry
	allocator      *tempdir.Allocator
	coordinator    *tempdir.Coordinator
	binder         environment.Binder
	envFilter      *environment.Filter
	executor       executor.TaskExecutor
	privilegeMgr   runnertypes.PrivilegeManager
	securityLogger *logging.SecurityLogger
	sweeper        *janitor.Sweeper
	envVars        map[string]string // loaded from the env file, layered under task env
	runID          string

	connectionConfigs map[string]runnertypes.ConnectionConfig
}

// Option is a function type for configuring Runner instances
type Option func(*runnerOptions)

// runnerOptions holds all configuration options for creating a Runner
type runnerOptions struct {
	executor       executor.TaskExecutor
	privilegeMgr   runnertypes.PrivilegeManager
	securityLogger *logging.SecurityLogger
	runID          string
	dryRun         bool
}

// WithExecutor sets a custom task executor
func WithExecutor(exec executor.TaskExecutor) Option {
	return func(opts *runnerOptions) {
		opts.executor = exec
	}
}

// WithPrivilegeManager sets a custom privilege manager
func WithPrivilegeManager(privMgr runnertypes.PrivilegeManager) Option {
	return func(opts *runnerOptions) {
		opts.privilegeMgr = privMgr
	}
}

// WithSecurityLogger sets a custom security event logger
func WithSecurityLogger(securityLogger *logging.SecurityLogger) Option {
	return func(opts *runnerOptions) {
		opts.securityLogger = securityLogger
	}
}

// WithRunID sets the run ID for tracking execution
func WithRunID(runID string) Option {
	return func(opts *runnerOptions) {
		opts.runID = runID
	}
}

// WithDryRun makes the default executor log tasks instead of running them.
// Ignored when a custom executor is provided.
func WithDryRun(dryRun bool) Option {
	return func(opts *runnerOptions) {
		opts.dryRun = dryRun
	}
}

// NewRunner creates a task runner for the given configuration. The janitor
// is started here when the configuration enables it; Close stops it again.
func NewRunner(config *runnertypes.Config, options ...Option) (*Runner, error) {
	opts := &runnerOptions{}
	for _, option := range options {
		option(opts)
	}

	if opts.runID == "" {
		return nil, ErrRunIDRequired
	}

	logger := slog.Default()

	// A privilege manager is only wired up when some task needs elevation.
	if opts.privilegeMgr == nil && hasPrivilegedTasks(config) {
		opts.privilegeMgr = privilege.NewManager(logger)
	}

	if opts.executor == nil {
		executorOpts := []executor.Option{
			executor.WithLogger(logger),
			executor.WithDryRun(opts.dryRun),
		}
		if opts.privilegeMgr != nil {
			executorOpts = append(executorOpts, executor.WithPrivilegeManager(opts.privilegeMgr))
		}
		opts.executor = executor.NewDefaultExecutor(executorOpts...)
	}

	if opts.securityLogger == nil {
		opts.securityLogger = logging.NewSecurityLogger()
	}

	coordinator := tempdir.NewCoordinator(logger, opts.privilegeMgr, config.Global.StrictTempPaths)
	registry := connection.NewRegistry(config.Global, coordinator, logger)

	resolver := tempdir.NewResolver(logger)
	sweeper, err := janitor.NewSweeper(config.Global.Janitor, janitorParents(config, resolver), registry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create janitor sweeper: %w", err)
	}
	if err := sweeper.Start(); err != nil {
		return nil, fmt.Errorf("failed to start janitor sweeper: %w", err)
	}

	connectionConfigs := make(map[string]runnertypes.ConnectionConfig, len(config.Connections))
	for _, cfg := range config.Connections {
		connectionConfigs[cfg.ID] = cfg
	}

	return &Runner{
		config:            config,
		registry:          registry,
		allocator:         tempdir.NewAllocator(logger),
		coordinator:       coordinator,
		binder:            environment.NewBinder(nil),
		envFilter:         environment.NewFilter(config.Global.EnvAllowlist, logger),
		executor:          opts.executor,
		privilegeMgr:      opts.privilegeMgr,
		securityLogger:    opts.securityLogger,
		sweeper:           sweeper,
		envVars:           make(map[string]string),
		runID:             opts.runID,
		connectionConfigs: connectionConfigs,
	}, nil
}

// RunID returns the identifier this runner was created with.
func (r *Runner) RunID() string { return r.runID }

// LoadEnvironment loads variables from the given env file. They pass the
// same allowlist that governs inherited variables and are layered between
// the inherited environment and per-task env entries during execution.
// An empty envFile clears previously loaded variables.
func (r *Runner) LoadEnvironment(envFile string) error {
	envMap := make(map[string]string)

	if envFile != "" {
		content, err := safefileio.SafeReadFile(envFile)
		if err != nil {
			return fmt.Errorf("failed to read environment file %s: %w", envFile, err)
		}

		fileEnv, err := godotenv.Parse(bytes.NewReader(content))
		if err != nil {
			return fmt.Errorf("failed to parse environment file %s: %w", envFile, err)
		}

		for name, value := range fileEnv {
			if !r.envFilter.IsAllowed(name) {
				slog.Debug("Environment file variable not in allowlist, dropping",
					"variable", name,
					"file", envFile)
				continue
			}
			envMap[name] = value
		}
	}

	r.envVars = envMap
	return nil
}

// ExecuteTask runs a single task: open (or reuse) its connection, allocate a
// task directory, bind the child environment and execute. The task directory
// is released on every exit path, including cancellation and executor
// failure. On execution failure the returned TaskResult still carries any
// captured output.
func (r *Runner) ExecuteTask(ctx context.Context, spec runnertypes.TaskSpec) (*TaskResult, error) {
	conn, err := r.openConnection(ctx, spec.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection for task %q: %w", spec.Name, err)
	}

	priv := conn.PrivilegeFor(spec.Privileged)
	taskID := uuid.New().String()

	taskDir, err := r.allocator.NewTaskDir(ctx, conn, priv, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate task directory for task %q: %w", spec.Name, err)
	}
	defer func() {
		if relErr := r.coordinator.ReleaseTaskDir(conn, priv, taskDir.Path); relErr != nil {
			slog.Warn("Failed to release task directory",
				"task", spec.Name,
				"connection_id", conn.ID(),
				"path", taskDir.Path,
				"error", relErr)
		}
	}()

	bindings := r.binder.Bind(taskDir, environment.Capability{
		SupportsNestedTempDir: conn.SupportsNestedTempDir(),
	})

	env, err := r.envFilter.BuildTaskEnv(r.taskEnvEntries(spec.Env), bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to build environment for task %q: %w", spec.Name, err)
	}

	timeout, resolution := common.ResolveTimeoutWithContext(
		spec.Timeout, r.config.Global.Timeout, spec.Name, conn.ID())
	r.securityLogger.LogTimeoutConfiguration(spec.Name, timeout, resolution.Level)
	if common.IsUnlimitedTimeout(timeout) {
		r.securityLogger.LogUnlimitedExecution(spec.Name, conn.ID())
	}
	if spec.Privileged {
		r.securityLogger.LogElevatedExecution(spec.Name, conn.ID(), conn.ElevatedUser())
	}

	task := executor.Task{
		ID:           taskID,
		Name:         spec.Name,
		ConnectionID: conn.ID(),
		Cmd:          spec.Cmd,
		Args:         spec.Args,
		Dir:          taskDir.Path,
		Privileged:   spec.Privileged,
		TargetUID:    conn.ElevatedUID(),
		Timeout:      timeout,
		OutputLimit: common.ResolveOutputSizeLimit(
			common.NewOutputSizeLimitFromPtr(spec.MaxOutputSize),
			common.NewOutputSizeLimitFromPtr(r.config.Global.MaxOutputSize),
		),
	}

	started := time.Now()
	execResult, execErr := r.executor.Execute(ctx, task, env)

	result := &TaskResult{
		TaskName:     spec.Name,
		ConnectionID: conn.ID(),
		TaskID:       taskID,
		ExitCode:     executor.ExitCodeUnknown,
		Duration:     time.Since(started),
	}
	if execResult != nil {
		result.ExitCode = execResult.ExitCode
		result.Stdout = execResult.Stdout
		result.Stderr = execResult.Stderr
		result.Truncated = execResult.Truncated
		result.DryRun = execResult.DryRun
	}

	if execErr != nil {
		if errors.Is(execErr, executor.ErrTaskTimeout) {
			r.securityLogger.LogTimeoutExceeded(spec.Name, timeout)
		}
		return result, fmt.Errorf("failed to execute task %q: %w", spec.Name, execErr)
	}

	slog.Info("Task completed",
		"task", spec.Name,
		"connection_id", conn.ID(),
		"task_id", taskID,
		"exit_code", result.ExitCode,
		"duration_ms", result.Duration.Milliseconds(),
		"dry_run", result.DryRun)

	return result, nil
}

// ExecuteAll runs every configured task in order, continuing past task
// failures so one broken task cannot shadow the rest. Cancellation stops the
// run: remaining tasks are not attempted and the context error is returned.
// The returned summary is valid even when an error is returned alongside it.
func (r *Runner) ExecuteAll(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}
	started := time.Now()
	defer func() { summary.Duration = time.Since(started) }()

	var taskErrs []error
	for _, spec := range r.config.Tasks {
		// Check if context is already cancelled before starting the next task
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		summary.Tasks++
		result, err := r.ExecuteTask(ctx, spec)
		if err != nil {
			if result != nil && result.ExitCode != executor.ExitCodeUnknown {
				summary.Failed++
			} else {
				summary.Errors++
			}
			taskErrs = append(taskErrs, fmt.Errorf("task %q failed: %w", spec.Name, err))
			logging.HandleExecutionError(&logging.ExecutionError{
				Message:      "Task execution failed",
				Component:    "runner",
				RunID:        r.runID,
				TaskName:     spec.Name,
				ConnectionID: spec.Connection,
				Err:          err,
			})

			// A cancelled run stops here; a failed task does not.
			if ctx.Err() != nil {
				return summary, err
			}
			continue
		}
		summary.Succeeded++
	}

	if len(taskErrs) > 0 {
		return summary, taskErrs[0]
	}
	return summary, nil
}

// ResetConnection tears down temp directory state for one connection. A nil
// priv resets every privilege context and recycles the transport; a non-nil
// priv resets only that context. The next allocation re-resolves from
// scratch.
func (r *Runner) ResetConnection(ctx context.Context, connectionID string, priv *runnertypes.PrivilegeContext) error {
	return r.registry.Reset(ctx, connectionID, priv)
}

// Close stops the janitor and tears down every connection, removing all temp
// state. Safe to call once at shutdown.
func (r *Runner) Close() {
	r.sweeper.Stop()
	r.registry.CloseAll()
}

// openConnection returns the live connection for the ID, opening it from the
// configuration on first use.
func (r *Runner) openConnection(ctx context.Context, id string) (*connection.Connection, error) {
	cfg, ok := r.connectionConfigs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", connection.ErrConnectionNotFound, id)
	}
	return r.registry.Open(ctx, cfg)
}

// taskEnvEntries layers the env-file variables under the task's own entries.
// BuildTaskEnv applies entries in order with later ones winning, so task env
// overrides the env file, and bindings override both.
func (r *Runner) taskEnvEntries(taskEnv []string) []string {
	if len(r.envVars) == 0 {
		return taskEnv
	}
	entries := make([]string, 0, len(r.envVars)+len(taskEnv))
	for name, value := range r.envVars {
		entries = append(entries, name+"="+value)
	}
	sort.Strings(entries)
	return append(entries, taskEnv...)
}

// janitorParents collects every candidate parent location configured
// connections can resolve bases under, for both privilege contexts, in
// first-seen order. The janitor scans these for residual base directories.
func janitorParents(config *runnertypes.Config, resolver *tempdir.Resolver) []string {
	currentUser := ""
	if u, err := user.Current(); err == nil {
		currentUser = u.Username
	}

	seen := make(map[string]struct{})
	var parents []string
	for _, cfg := range config.Connections {
		username := cfg.User
		if username == "" {
			username = currentUser
		}
		elevated := cfg.ElevatedUser
		if elevated == "" {
			elevated = runnertypes.DefaultElevatedUser
		}

		basePath := cfg.TempDir
		if basePath == "" {
			basePath = config.Global.TempDir
		}
		envVar := cfg.TempDirEnvVar
		if envVar == "" {
			envVar = config.Global.TempDirEnvVar
		}
		overrides := tempdir.Overrides{BasePath: basePath, EnvVar: envVar}

		for _, priv := range []runnertypes.PrivilegeContext{
			runnertypes.NormalContext(username),
			runnertypes.ElevatedContext(username, elevated),
		} {
			for _, parent := range resolver.CandidateParents(priv, overrides) {
				if _, dup := seen[parent]; dup {
					continue
				}
				seen[parent] = struct{}{}
				parents = append(parents, parent)
			}
		}
	}
	return parents
}

// hasPrivilegedTasks reports whether any configured task needs elevation.
func hasPrivilegedTasks(config *runnertypes.Config) bool {
	for _, task := range config.Tasks {
		if task.Privileged {
			return true
		}
	}
	return false
}
