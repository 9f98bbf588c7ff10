package config

import "github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"

// ApplyDefaults fills in the configuration fields that have documented
// defaults. Fields whose defaults are applied at resolution time
// (temp_dir_env_var, janitor schedule and max_age) are left as declared.
func ApplyDefaults(cfg *runnertypes.Config) {
	if cfg.Global.LogLevel == "" {
		cfg.Global.LogLevel = runnertypes.LogLevelInfo
	}

	for i := range cfg.Connections {
		conn := &cfg.Connections[i]
		if conn.Transport == "" {
			conn.Transport = runnertypes.DefaultTransport
		}
		if conn.ElevatedUser == "" {
			conn.ElevatedUser = runnertypes.DefaultElevatedUser
		}
	}
}
