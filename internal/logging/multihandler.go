// Package logging provides the slog plumbing for the remote task runner.
// It distributes log records to multiple handlers (an interactive colorized
// console handler, a plain text handler for non-interactive runs, and a
// per-run machine-readable JSON file), and supplies the run identifiers and
// pre-execution error types the CLI reports before the logger is available.
package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans each log record out to a set of underlying handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a MultiHandler over the given handlers. Records
// are offered to each handler in the order given.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled reports whether at least one underlying handler accepts records
// at the given level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to every underlying handler that is enabled for
// its level. Each handler receives its own clone so that one handler cannot
// observe another's attribute mutations. Errors are joined, not short-circuited.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var multiErr error
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, r.Level) {
			if err := hh.Handle(ctx, r.Clone()); err != nil {
				multiErr = errors.Join(multiErr, err)
			}
		}
	}
	return multiErr
}

// WithAttrs returns a MultiHandler whose underlying handlers all carry attrs.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(hh slog.Handler) slog.Handler { return hh.WithAttrs(attrs) })
}

// WithGroup returns a MultiHandler whose underlying handlers all open the
// named group.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(hh slog.Handler) slog.Handler { return hh.WithGroup(name) })
}

func (h *MultiHandler) derive(transform func(slog.Handler) slog.Handler) slog.Handler {
	derived := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		derived[i] = transform(hh)
	}
	return &MultiHandler{handlers: derived}
}
