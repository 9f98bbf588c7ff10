// Package config provides functionality for loading and validating runner
// configuration files. It supports TOML format with strict field checking:
// unknown fields are rejected so that typos surface at load time instead of
// silently running with defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
	"github.com/isseis/go-remote-task-runner/internal/safefileio"
)

// Loader handles loading and validating configurations
type Loader struct{}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads a configuration file and loads it with Load.
func (l *Loader) LoadFile(path string) (*runnertypes.Config, error) {
	if path == "" {
		return nil, ErrInvalidConfigPath
	}

	content, err := safefileio.SafeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	return l.Load(content)
}

// Load parses configuration from byte content, applies defaults, and
// validates the result. The returned Config is ready for execution.
func (l *Loader) Load(content []byte) (*runnertypes.Config, error) {
	var cfg runnertypes.Config

	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return nil, fmt.Errorf("%w:\n%s", ErrUnknownField, strictErr.String())
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
