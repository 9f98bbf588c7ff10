package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-remote-task-runner/internal/runner"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

func TestSummarizeRun(t *testing.T) {
	tests := []struct {
		name           string
		summary        *runner.RunSummary
		execErr        error
		expectedCode   int
		expectedStatus string
	}{
		{
			name:           "all tasks succeeded",
			summary:        &runner.RunSummary{Tasks: 3, Succeeded: 3},
			expectedCode:   0,
			expectedStatus: statusSuccess,
		},
		{
			name:           "no tasks configured",
			summary:        &runner.RunSummary{},
			expectedCode:   0,
			expectedStatus: statusSuccess,
		},
		{
			name:           "task exited non-zero",
			summary:        &runner.RunSummary{Tasks: 2, Succeeded: 1, Failed: 1},
			execErr:        fmt.Errorf(`task "deploy" failed: exit status 2`),
			expectedCode:   1,
			expectedStatus: statusError,
		},
		{
			name:           "task could not run",
			summary:        &runner.RunSummary{Tasks: 1, Errors: 1},
			execErr:        fmt.Errorf(`task "deploy" failed: command not found`),
			expectedCode:   1,
			expectedStatus: statusError,
		},
		{
			name:           "run interrupted",
			summary:        &runner.RunSummary{Tasks: 1, Succeeded: 1},
			execErr:        fmt.Errorf("wrapped: %w", context.Canceled),
			expectedCode:   1,
			expectedStatus: statusInterrupted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, status := summarizeRun(tt.summary, tt.execErr)
			assert.Equal(t, tt.expectedCode, code)
			assert.Equal(t, tt.expectedStatus, status)
		})
	}
}

func TestResolveEnvFile(t *testing.T) {
	// Run from a directory without a .env so the working-directory
	// fallback stays inert unless the test creates one.
	workDir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workDir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	cfg := &runnertypes.Config{}

	t.Run("flag wins", func(t *testing.T) {
		cfg.Global.EnvFile = "from-config.env"
		assert.Equal(t, "from-flag.env", resolveEnvFile("from-flag.env", cfg))
	})

	t.Run("config file fallback", func(t *testing.T) {
		cfg.Global.EnvFile = "from-config.env"
		assert.Equal(t, "from-config.env", resolveEnvFile("", cfg))
	})

	t.Run("nothing to load", func(t *testing.T) {
		cfg.Global.EnvFile = ""
		assert.Equal(t, "", resolveEnvFile("", cfg))
	})

	t.Run("working directory default", func(t *testing.T) {
		cfg.Global.EnvFile = ""
		require.NoError(t, os.WriteFile(filepath.Join(workDir, defaultEnvFile), []byte("X=1\n"), 0o600))
		defer os.Remove(filepath.Join(workDir, defaultEnvFile))

		assert.Equal(t, defaultEnvFile, resolveEnvFile("", cfg))
	})
}

func TestHasPrivilegedTasks(t *testing.T) {
	tests := []struct {
		name  string
		tasks []runnertypes.TaskSpec
		want  bool
	}{
		{name: "no tasks", tasks: nil, want: false},
		{
			name: "unprivileged only",
			tasks: []runnertypes.TaskSpec{
				{Name: "build"},
				{Name: "test"},
			},
			want: false,
		},
		{
			name: "one privileged",
			tasks: []runnertypes.TaskSpec{
				{Name: "build"},
				{Name: "install", Privileged: true},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasPrivilegedTasks(&runnertypes.Config{Tasks: tt.tasks}))
		})
	}
}
