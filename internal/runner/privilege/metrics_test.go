package privilege

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecorder_Success(t *testing.T) {
	var r metricsRecorder

	r.recordSuccess(10 * time.Millisecond)
	r.recordSuccess(30 * time.Millisecond)

	m := r.snapshot()
	assert.Equal(t, int64(2), m.ElevationAttempts)
	assert.Equal(t, int64(2), m.ElevationSuccesses)
	assert.Equal(t, int64(0), m.ElevationFailures)
	assert.Equal(t, 40*time.Millisecond, m.TotalElevationTime)
	assert.Equal(t, 20*time.Millisecond, m.AverageElevationTime)
	assert.Equal(t, 30*time.Millisecond, m.MaxElevationTime)
	assert.InDelta(t, 1.0, m.SuccessRate, 0.001)
	assert.False(t, m.LastElevationTime.IsZero())
}

func TestMetricsRecorder_Failure(t *testing.T) {
	var r metricsRecorder

	r.recordSuccess(10 * time.Millisecond)
	r.recordFailure(errors.New("seteuid failed"))

	m := r.snapshot()
	assert.Equal(t, int64(2), m.ElevationAttempts)
	assert.Equal(t, int64(1), m.ElevationSuccesses)
	assert.Equal(t, int64(1), m.ElevationFailures)
	assert.Equal(t, "seteuid failed", m.LastError)
	assert.InDelta(t, 0.5, m.SuccessRate, 0.001)
}

func TestMetricsRecorder_ZeroValueSnapshot(t *testing.T) {
	var r metricsRecorder

	m := r.snapshot()
	assert.Zero(t, m.ElevationAttempts)
	assert.Zero(t, m.AverageElevationTime)
	assert.Zero(t, m.SuccessRate)
}

func TestMetricsRecorder_Reset(t *testing.T) {
	var r metricsRecorder

	r.recordSuccess(5 * time.Millisecond)
	r.recordFailure(errors.New("boom"))
	r.reset()

	m := r.snapshot()
	assert.Equal(t, int64(0), m.ElevationAttempts)
	assert.Equal(t, int64(0), m.ElevationFailures)
	assert.Empty(t, m.LastError)
	assert.Zero(t, m.SuccessRate)
	assert.True(t, m.LastElevationTime.IsZero())
}

func TestMetricsRecorder_ConcurrentRecording(t *testing.T) {
	var r metricsRecorder
	var wg sync.WaitGroup

	const workers = 16
	const iterations = 50

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if n%2 == 0 {
					r.recordSuccess(time.Millisecond)
				} else {
					r.recordFailure(errors.New("concurrent failure"))
				}
			}
		}(i)
	}
	wg.Wait()

	m := r.snapshot()
	assert.Equal(t, int64(workers*iterations), m.ElevationAttempts)
	assert.Equal(t, m.ElevationSuccesses+m.ElevationFailures, m.ElevationAttempts)
}
