// Package color provides small helpers for coloring terminal output using
// ANSI escape sequences. Callers decide whether color is appropriate (see
// the terminal package); functions here only wrap text in escape codes.
//
//nolint:revive // package name conflicts with standard library
package color

const (
	resetCode  = "\033[0m"
	grayCode   = "\033[90m" // bright black
	greenCode  = "\033[32m"
	yellowCode = "\033[33m"
	redCode    = "\033[31m"
)

// Color wraps text in an ANSI escape sequence.
type Color func(text string) string

// NewColor creates a color function for the given ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		return ansiCode + text + resetCode
	}
}

var (
	// Gray colors text in gray. Used for debug-level output.
	Gray = NewColor(grayCode)

	// Green colors text in green.
	Green = NewColor(greenCode)

	// Yellow colors text in yellow.
	Yellow = NewColor(yellowCode)

	// Red colors text in red.
	Red = NewColor(redCode)
)
