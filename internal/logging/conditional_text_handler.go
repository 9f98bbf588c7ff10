package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/isseis/go-remote-task-runner/internal/terminal"
)

// Static errors for ConditionalTextHandler validation
var (
	ErrConditionalTextHandlerCapabilitiesRequired = errors.New("ConditionalTextHandler: Capabilities is required")
	ErrConditionalTextHandlerWriterRequired       = errors.New("ConditionalTextHandler: Writer is required")
)

// ConditionalTextHandler is the non-interactive counterpart of
// InteractiveHandler. It wraps a plain slog text handler and stays inert
// while the terminal capabilities report an interactive run, so installing
// both produces exactly one console representation of each record.
type ConditionalTextHandler struct {
	capabilities terminal.Capabilities
	text         slog.Handler
}

// ConditionalTextHandlerOptions configures the ConditionalTextHandler.
type ConditionalTextHandlerOptions struct {
	// Capabilities provides terminal feature detection
	Capabilities terminal.Capabilities

	// TextHandlerOptions is passed through to slog.NewTextHandler
	TextHandlerOptions *slog.HandlerOptions

	// Writer is the output destination for the text handler
	Writer io.Writer
}

// NewConditionalTextHandler creates a new ConditionalTextHandler.
// Returns an error if any required options are missing.
func NewConditionalTextHandler(opts ConditionalTextHandlerOptions) (*ConditionalTextHandler, error) {
	if opts.Capabilities == nil {
		return nil, ErrConditionalTextHandlerCapabilitiesRequired
	}
	if opts.Writer == nil {
		return nil, ErrConditionalTextHandlerWriterRequired
	}

	return &ConditionalTextHandler{
		capabilities: opts.Capabilities,
		text:         slog.NewTextHandler(opts.Writer, opts.TextHandlerOptions),
	}, nil
}

// Enabled reports whether the handler would emit a record at the given
// level. Interactive runs disable the handler entirely.
func (h *ConditionalTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return !h.capabilities.IsInteractive() && h.text.Enabled(ctx, level)
}

// Handle forwards the record to the wrapped text handler on
// non-interactive runs and drops it otherwise.
func (h *ConditionalTextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.capabilities.IsInteractive() {
		return nil
	}
	return h.text.Handle(ctx, r)
}

// WithAttrs returns a handler whose wrapped text handler carries attrs.
func (h *ConditionalTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(h.text.WithAttrs(attrs))
}

// WithGroup returns a handler whose wrapped text handler opens the group.
func (h *ConditionalTextHandler) WithGroup(name string) slog.Handler {
	return h.derive(h.text.WithGroup(name))
}

func (h *ConditionalTextHandler) derive(text slog.Handler) slog.Handler {
	return &ConditionalTextHandler{
		capabilities: h.capabilities,
		text:         text,
	}
}
