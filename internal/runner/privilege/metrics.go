package privilege

import (
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of privilege elevation activity.
// Derived values (average, success rate) are computed when the snapshot
// is taken.
type Metrics struct {
	ElevationAttempts    int64         `json:"elevation_attempts"`
	ElevationSuccesses   int64         `json:"elevation_successes"`
	ElevationFailures    int64         `json:"elevation_failures"`
	TotalElevationTime   time.Duration `json:"total_elevation_time"`
	AverageElevationTime time.Duration `json:"average_elevation_time"`
	MaxElevationTime     time.Duration `json:"max_elevation_time"`
	LastElevationTime    time.Time     `json:"last_elevation_time"`
	LastError            string        `json:"last_error,omitempty"`
	SuccessRate          float64       `json:"success_rate"`
}

// metricsRecorder accumulates elevation outcomes. The zero value is ready
// to use.
type metricsRecorder struct {
	mu        sync.Mutex
	attempts  int64
	successes int64
	failures  int64
	totalTime time.Duration
	maxTime   time.Duration
	lastTime  time.Time
	lastError string
}

func (r *metricsRecorder) recordSuccess(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts++
	r.successes++
	r.totalTime += duration
	if duration > r.maxTime {
		r.maxTime = duration
	}
	r.lastTime = time.Now()
}

func (r *metricsRecorder) recordFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts++
	r.failures++
	r.lastError = err.Error()
}

// snapshot returns the accumulated counters with derived values filled in.
func (r *metricsRecorder) snapshot() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := Metrics{
		ElevationAttempts:  r.attempts,
		ElevationSuccesses: r.successes,
		ElevationFailures:  r.failures,
		TotalElevationTime: r.totalTime,
		MaxElevationTime:   r.maxTime,
		LastElevationTime:  r.lastTime,
		LastError:          r.lastError,
	}
	if r.successes > 0 {
		m.AverageElevationTime = r.totalTime / time.Duration(r.successes)
	}
	if r.attempts > 0 {
		m.SuccessRate = float64(r.successes) / float64(r.attempts)
	}
	return m
}

// reset clears the accumulated counters.
func (r *metricsRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts = 0
	r.successes = 0
	r.failures = 0
	r.totalTime = 0
	r.maxTime = 0
	r.lastTime = time.Time{}
	r.lastError = ""
}
