package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test errors
var (
	errHandler1 = errors.New("handler1 error")
	errHandler2 = errors.New("handler2 error")
)

// mockHandler is a test implementation of slog.Handler
type mockHandler struct {
	mu          sync.Mutex
	enabled     bool
	records     []slog.Record
	attrs       []slog.Attr
	groups      []string
	handleError error
}

func newMockHandler(enabled bool) *mockHandler {
	return &mockHandler{
		enabled: enabled,
		records: make([]slog.Record, 0),
	}
}

func (m *mockHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return m.enabled
}

func (m *mockHandler) Handle(_ context.Context, r slog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handleError != nil {
		return m.handleError
	}
	m.records = append(m.records, r)
	return nil
}

func (m *mockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &mockHandler{
		enabled:     m.enabled,
		records:     make([]slog.Record, 0),
		attrs:       append(m.attrs, attrs...),
		groups:      m.groups,
		handleError: m.handleError,
	}
}

func (m *mockHandler) WithGroup(name string) slog.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &mockHandler{
		enabled:     m.enabled,
		records:     make([]slog.Record, 0),
		attrs:       m.attrs,
		groups:      append(m.groups, name),
		handleError: m.handleError,
	}
}

// getRecordCount returns the number of records in a thread-safe manner
func (m *mockHandler) getRecordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func TestNewMultiHandler(t *testing.T) {
	handler1 := newMockHandler(true)
	handler2 := newMockHandler(false)

	multi := NewMultiHandler(handler1, handler2)

	assert.Len(t, multi.handlers, 2)
}

func TestMultiHandler_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		handlers []slog.Handler
		expected bool
	}{
		{
			name:     "at least one handler enabled",
			handlers: []slog.Handler{newMockHandler(false), newMockHandler(true)},
			expected: true,
		},
		{
			name:     "no handlers enabled",
			handlers: []slog.Handler{newMockHandler(false), newMockHandler(false)},
			expected: false,
		},
		{
			name:     "all handlers enabled",
			handlers: []slog.Handler{newMockHandler(true), newMockHandler(true)},
			expected: true,
		},
		{
			name:     "no handlers",
			handlers: []slog.Handler{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multi := NewMultiHandler(tt.handlers...)
			result := multi.Enabled(context.Background(), slog.LevelInfo)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMultiHandler_Handle(t *testing.T) {
	handler1 := newMockHandler(true)
	handler2 := newMockHandler(true)
	handler3 := newMockHandler(false) // disabled handler

	multi := NewMultiHandler(handler1, handler2, handler3)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "base directory created", 0)
	err := multi.Handle(context.Background(), record)
	assert.NoError(t, err)

	assert.Equal(t, 1, handler1.getRecordCount(), "handler1 should have received 1 record")
	assert.Equal(t, 1, handler2.getRecordCount(), "handler2 should have received 1 record")
	assert.Equal(t, 0, handler3.getRecordCount(), "disabled handler should have received 0 records")
}

func TestMultiHandler_HandleClonesPerHandler(t *testing.T) {
	handler1 := newMockHandler(true)
	handler2 := newMockHandler(true)
	multi := NewMultiHandler(handler1, handler2)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "task finished", 0)
	record.AddAttrs(slog.String("task", "build"))
	require.NoError(t, multi.Handle(context.Background(), record))

	// A handler mutating its copy must not affect what the other saw.
	handler1.records[0].AddAttrs(slog.String("extra", "mutated"))
	assert.Equal(t, 1, handler2.records[0].NumAttrs(), "records must be cloned per handler")
}

func TestMultiHandler_HandleWithErrors(t *testing.T) {
	handler1 := newMockHandler(true)
	handler1.handleError = errHandler1

	handler2 := newMockHandler(true)
	handler2.handleError = errHandler2

	multi := NewMultiHandler(handler1, handler2)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "task finished", 0)
	err := multi.Handle(context.Background(), record)

	require.Error(t, err)
	assert.ErrorIs(t, err, errHandler1)
	assert.ErrorIs(t, err, errHandler2)
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	handler1 := newMockHandler(true)
	handler2 := newMockHandler(true)

	multi := NewMultiHandler(handler1, handler2)
	attrs := []slog.Attr{slog.String("run_id", "01J0000000000000000000TEST")}

	newMulti := multi.WithAttrs(attrs)

	assert.NotSame(t, multi, newMulti, "WithAttrs should return a new MultiHandler instance")

	newMultiTyped := newMulti.(*MultiHandler)
	assert.Len(t, newMultiTyped.handlers, 2)
	for _, h := range newMultiTyped.handlers {
		assert.Len(t, h.(*mockHandler).attrs, 1, "attributes must reach every underlying handler")
	}
}

func TestMultiHandler_WithGroup(t *testing.T) {
	handler1 := newMockHandler(true)
	handler2 := newMockHandler(true)

	multi := NewMultiHandler(handler1, handler2)

	newMulti := multi.WithGroup("cleanup")

	assert.NotSame(t, multi, newMulti, "WithGroup should return a new MultiHandler instance")

	newMultiTyped := newMulti.(*MultiHandler)
	assert.Len(t, newMultiTyped.handlers, 2)
	for _, h := range newMultiTyped.handlers {
		assert.Equal(t, []string{"cleanup"}, h.(*mockHandler).groups)
	}
}

func TestMultiHandler_ConcurrentAccess(t *testing.T) {
	handler := newMockHandler(true)
	multi := NewMultiHandler(handler)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			multi.Enabled(context.Background(), slog.LevelInfo)
		}()
		go func() {
			defer wg.Done()
			record := slog.NewRecord(time.Now(), slog.LevelInfo, "concurrent handle", 0)
			_ = multi.Handle(context.Background(), record)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, handler.getRecordCount())
}
