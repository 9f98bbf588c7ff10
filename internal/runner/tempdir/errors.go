package tempdir

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions for the tempdir package
var (
	// ErrNoWritableLocation is returned when every candidate parent location
	// fails the writability probe
	ErrNoWritableLocation = errors.New("no writable temporary directory location")
	// ErrAllocationExhausted is returned when repeated name collisions prevent
	// directory creation within the retry budget
	ErrAllocationExhausted = errors.New("temporary directory allocation retries exhausted")
	// ErrStalePath is returned in strict mode when a released path is not
	// tracked by the allocator
	ErrStalePath = errors.New("stale temporary directory path")
)

// CandidateFailure records why a single candidate location was rejected
// during resolution.
type CandidateFailure struct {
	Origin Origin
	Path   string
	Err    error
}

// ResolveError aggregates the rejection reason for every candidate tried
// during a failed resolution.
type ResolveError struct {
	Failures []CandidateFailure
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	b.WriteString(ErrNoWritableLocation.Error())
	for i, f := range e.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s %s: %v", f.Origin, f.Path, f.Err)
	}
	return b.String()
}

// Unwrap allows errors.Is(err, ErrNoWritableLocation) to match.
func (e *ResolveError) Unwrap() error {
	return ErrNoWritableLocation
}
