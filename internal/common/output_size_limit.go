// Package common provides shared data types and constants used throughout the task runner.
//
//nolint:revive // "common" is an appropriate name for shared utilities package
package common

import "fmt"

// ErrInvalidOutputSizeLimit is returned when an invalid output size limit value is encountered
type ErrInvalidOutputSizeLimit struct {
	Value   any
	Context string
}

func (e ErrInvalidOutputSizeLimit) Error() string {
	return fmt.Sprintf("invalid output size limit value %v in %s", e.Value, e.Context)
}

// DefaultOutputSizeLimit is the default output size limit when not specified (10MB)
const DefaultOutputSizeLimit = 10 * 1024 * 1024

// OutputSizeLimit is an output size limit configuration value with three
// states: unset (inherit or use the default), zero (unlimited output), and
// a positive byte count. The distinction matters because a task-level zero
// must override a global limit rather than fall through to it.
type OutputSizeLimit struct {
	value *int64
}

// NewOutputSizeLimit creates a limit of the given size in bytes. Negative
// sizes are rejected.
func NewOutputSizeLimit(bytes int64) (OutputSizeLimit, error) {
	if bytes < 0 {
		return OutputSizeLimit{}, ErrInvalidOutputSizeLimit{
			Value:   bytes,
			Context: "output size limit cannot be negative",
		}
	}
	return OutputSizeLimit{value: &bytes}, nil
}

// NewOutputSizeLimitFromPtr creates an OutputSizeLimit from a config
// pointer, where nil means unset.
func NewOutputSizeLimitFromPtr(ptr *int64) OutputSizeLimit {
	return OutputSizeLimit{value: ptr}
}

// NewUnsetOutputSizeLimit creates an unset OutputSizeLimit.
func NewUnsetOutputSizeLimit() OutputSizeLimit {
	return OutputSizeLimit{}
}

// NewUnlimitedOutputSizeLimit creates an OutputSizeLimit that disables the
// size check.
func NewUnlimitedOutputSizeLimit() OutputSizeLimit {
	var zero int64
	return OutputSizeLimit{value: &zero}
}

// IsSet reports whether the limit has been explicitly configured.
func (o OutputSizeLimit) IsSet() bool {
	return o.value != nil
}

// IsUnlimited reports whether the limit is explicitly set to unlimited.
// An unset limit is not unlimited; it resolves through the hierarchy.
func (o OutputSizeLimit) IsUnlimited() bool {
	return o.value != nil && *o.value == 0
}

// Value returns the configured byte count. Callers must check IsSet first;
// Value panics on an unset limit.
func (o OutputSizeLimit) Value() int64 {
	if o.value == nil {
		panic("OutputSizeLimit.Value() called on unset value: check IsSet() first")
	}
	return *o.value
}

// ResolveOutputSizeLimit resolves the effective limit: the task-level value
// when set (including an explicit zero for unlimited), then the global
// value, then DefaultOutputSizeLimit.
func ResolveOutputSizeLimit(taskLimit, globalLimit OutputSizeLimit) OutputSizeLimit {
	if taskLimit.IsSet() {
		return taskLimit
	}
	if globalLimit.IsSet() {
		return globalLimit
	}
	limit := int64(DefaultOutputSizeLimit)
	return OutputSizeLimit{value: &limit}
}
