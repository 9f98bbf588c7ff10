package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrUnknownTransport is returned when a connection config names a transport
// this build does not provide.
var ErrUnknownTransport = errors.New("unknown transport")

// Transport is the execution channel behind a connection. The temp subsystem
// never talks to transports directly; the registry drives their lifecycle so
// base directories live exactly as long as the channel they belong to.
type Transport interface {
	// Start brings the channel up. Starting an already started transport
	// is a no-op.
	Start(ctx context.Context) error

	// Close tears the channel down.
	Close() error

	// Alive reports whether the channel is usable.
	Alive() bool

	// Name identifies the transport implementation.
	Name() string
}

// newTransport builds the transport named by a connection config.
func newTransport(kind, connID string, logger *slog.Logger) (Transport, error) {
	switch kind {
	case "", "local":
		return NewLocalTransport(connID, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, kind)
	}
}

// LocalTransport executes tasks in the runner's own process environment.
// It is the only transport this build ships; it carries enough lifecycle
// state to exercise connection reuse and reset.
type LocalTransport struct {
	mu        sync.Mutex
	connID    string
	logger    *slog.Logger
	alive     bool
	startedAt time.Time
	starts    int
}

// NewLocalTransport creates a local transport for a connection.
func NewLocalTransport(connID string, logger *slog.Logger) *LocalTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalTransport{connID: connID, logger: logger}
}

// Start marks the channel usable.
func (t *LocalTransport) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.alive {
		return nil
	}
	t.alive = true
	t.startedAt = time.Now()
	t.starts++
	t.logger.Debug("Local transport started",
		"connection_id", t.connID,
		"start_count", t.starts)
	return nil
}

// Close marks the channel unusable.
func (t *LocalTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.alive {
		return nil
	}
	t.alive = false
	t.logger.Debug("Local transport closed", "connection_id", t.connID)
	return nil
}

// Alive reports whether Start has run without a later Close.
func (t *LocalTransport) Alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

// Name returns "local".
func (t *LocalTransport) Name() string { return "local" }

// StartedAt returns when the current incarnation started.
func (t *LocalTransport) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}
