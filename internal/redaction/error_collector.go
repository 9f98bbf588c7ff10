package redaction

import (
	"sync"
	"time"
)

// ErrorCollector receives redaction failures as they happen so they can be
// reported at the end of the run. Implementations must be safe for
// concurrent use.
type ErrorCollector interface {
	RecordFailure(key string, err error)
}

// Failure is a single redaction failure event.
type Failure struct {
	Key       string
	Err       error
	Timestamp time.Time
}

// InMemoryErrorCollector accumulates redaction failures for the shutdown
// report. Once maxSize failures are stored, later ones are only counted.
// Keeping the earliest occurrences preserves the first sight of a broken
// LogValuer while bounding memory use.
type InMemoryErrorCollector struct {
	mu       sync.Mutex
	failures []Failure
	dropped  int
	maxSize  int
}

var _ ErrorCollector = (*InMemoryErrorCollector)(nil)

// NewInMemoryErrorCollector creates a collector storing at most maxSize
// failures (0 = unlimited).
func NewInMemoryErrorCollector(maxSize int) *InMemoryErrorCollector {
	return &InMemoryErrorCollector{maxSize: maxSize}
}

// RecordFailure records a redaction failure.
func (c *InMemoryErrorCollector) RecordFailure(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.failures) >= c.maxSize {
		c.dropped++
		return
	}
	c.failures = append(c.failures, Failure{
		Key:       key,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// Failures returns a copy of the stored failures in recording order.
func (c *InMemoryErrorCollector) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := make([]Failure, len(c.failures))
	copy(failures, c.failures)
	return failures
}

// Count returns the total number of failures recorded, including those
// beyond the storage limit.
func (c *InMemoryErrorCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures) + c.dropped
}

// Dropped returns how many failures were counted but not stored.
func (c *InMemoryErrorCollector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
