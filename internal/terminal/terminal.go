// Package terminal detects terminal capabilities: whether the process is
// attached to an interactive terminal (as opposed to a pipe or a CI job)
// and whether colored output should be produced. The results drive which
// log handlers the runner activates and how they format their output.
package terminal

import "os"

// Options carries command-line overrides for capability detection. Flags
// always win over environment probing.
type Options struct {
	// ForceInteractive treats the run as interactive regardless of the
	// environment.
	ForceInteractive bool

	// ForceNonInteractive treats the run as non-interactive regardless of
	// the environment.
	ForceNonInteractive bool

	// ForceColor enables color output unconditionally.
	ForceColor bool

	// DisableColor disables color output unconditionally.
	DisableColor bool
}

// Capabilities reports what the attached terminal can do.
type Capabilities interface {
	IsInteractive() bool
	SupportsColor() bool
}

type capabilities struct {
	options Options
}

// NewCapabilities creates a Capabilities instance with the given overrides.
func NewCapabilities(options Options) Capabilities {
	return &capabilities{options: options}
}

// IsInteractive reports whether the run should be treated as interactive.
// Command-line overrides win, then CI environment detection, then whether
// stdout and stderr are both terminals.
func (c *capabilities) IsInteractive() bool {
	if c.options.ForceInteractive {
		return true
	}
	if c.options.ForceNonInteractive {
		return false
	}
	if isCIEnvironment() {
		return false
	}
	return isTerminal()
}

// SupportsColor reports whether color output should be enabled. Sources
// are consulted in priority order:
//
//  1. Command-line flags
//  2. CLICOLOR_FORCE (truthy value forces color on, even for pipes)
//  3. NO_COLOR (any value, even empty, forces color off)
//  4. CLICOLOR in an interactive, color-capable terminal
//  5. Auto-detection from TERM in an interactive terminal
func (c *capabilities) SupportsColor() bool {
	if c.options.ForceColor {
		return true
	}
	if c.options.DisableColor {
		return false
	}

	if isTruthy(os.Getenv("CLICOLOR_FORCE")) {
		return true
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}

	if !c.IsInteractive() || !termSupportsColor() {
		return false
	}

	// CLICOLOR only applies on a real terminal; pipes ignore it.
	if cliColor := os.Getenv("CLICOLOR"); cliColor != "" {
		return isTruthy(cliColor)
	}
	return true
}
