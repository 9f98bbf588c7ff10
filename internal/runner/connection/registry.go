package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
	"github.com/isseis/go-remote-task-runner/internal/runner/tempdir"
)

// Error definitions for the connection package
var (
	// ErrConnectionNotFound is returned when a connection ID is not registered
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrEmptyConnectionID is returned when a connection config has no ID
	ErrEmptyConnectionID = errors.New("connection ID cannot be empty")
)

// Registry owns every open connection, keyed by ID. The registry mutex only
// guards the connection map; temp state and transports carry their own
// synchronization.
type Registry struct {
	mu          sync.Mutex
	logger      *slog.Logger
	global      runnertypes.GlobalConfig
	coordinator *tempdir.Coordinator
	conns       map[string]*Connection
}

// NewRegistry creates a registry. The coordinator is used to tear down temp
// state on reset and close.
func NewRegistry(global runnertypes.GlobalConfig, coordinator *tempdir.Coordinator, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:      logger,
		global:      global,
		coordinator: coordinator,
		conns:       make(map[string]*Connection),
	}
}

// Open returns the live connection for a config, starting its transport on
// first use. Connections are reusable: opening the same ID again returns the
// existing connection, restarting its transport if it died.
func (r *Registry) Open(ctx context.Context, cfg runnertypes.ConnectionConfig) (*Connection, error) {
	if cfg.ID == "" {
		return nil, ErrEmptyConnectionID
	}

	r.mu.Lock()
	conn, ok := r.conns[cfg.ID]
	if !ok {
		transport, err := newTransport(cfg.Transport, cfg.ID, r.logger)
		if err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("opening connection %q: %w", cfg.ID, err)
		}
		conn = newConnection(cfg, r.global, transport, r.logger)
		r.conns[cfg.ID] = conn
	}
	r.mu.Unlock()

	if err := conn.transport.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting transport for connection %q: %w", cfg.ID, err)
	}
	return conn, nil
}

// Get returns an open connection by ID.
func (r *Registry) Get(id string) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConnectionNotFound, id)
	}
	return conn, nil
}

// Reset tears down temp state for a connection. A nil priv resets every
// privilege context and restarts the transport; a non-nil priv only resets
// that context and leaves the channel running.
func (r *Registry) Reset(ctx context.Context, id string, priv *runnertypes.PrivilegeContext) error {
	conn, err := r.Get(id)
	if err != nil {
		return err
	}

	if priv != nil {
		r.coordinator.ResetConnection(conn, *priv)
		r.logger.Info("Connection temp state reset",
			"connection_id", id,
			"privilege_context", *priv)
		return nil
	}

	r.coordinator.ResetAll(conn)
	if err := conn.transport.Close(); err != nil {
		r.logger.Warn("Transport close failed during reset",
			"connection_id", id,
			"error", err)
	}
	if err := conn.transport.Start(ctx); err != nil {
		return fmt.Errorf("restarting transport for connection %q: %w", id, err)
	}
	r.logger.Info("Connection fully reset", "connection_id", id)
	return nil
}

// CloseAll tears down every connection: temp state first, then transports.
// Used on runner shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		r.coordinator.ResetAll(conn)
		if err := conn.transport.Close(); err != nil {
			r.logger.Warn("Transport close failed during shutdown",
				"connection_id", conn.ID(),
				"error", err)
		}
	}
}

// LiveBases returns every resolved base directory across open connections.
// The janitor excludes these from residual-directory sweeps.
func (r *Registry) LiveBases() []string {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	var bases []string
	for _, conn := range conns {
		bases = append(bases, conn.States().BasePaths()...)
	}
	sort.Strings(bases)
	return bases
}
