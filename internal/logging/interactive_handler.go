package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/isseis/go-remote-task-runner/internal/terminal"
)

// Static errors for InteractiveHandler validation
var (
	ErrInteractiveHandlerWriterRequired       = errors.New("InteractiveHandler: Writer is required")
	ErrInteractiveHandlerCapabilitiesRequired = errors.New("InteractiveHandler: Capabilities is required")
	ErrInteractiveHandlerFormatterRequired    = errors.New("InteractiveHandler: Formatter is required")
)

// InteractiveHandler is a slog handler for runs attached to a terminal.
// It emits compact, optionally colored lines on stderr while the text and
// JSON handlers keep the full record. The handler is inert whenever the
// terminal capabilities report a non-interactive environment, which makes
// it safe to install unconditionally alongside ConditionalTextHandler.
//
// Groups are flattened into dotted key prefixes: attributes added after
// WithGroup carry the group path open at the time they were added, and
// record-level attributes carry the full path open at Handle time.
type InteractiveHandler struct {
	capabilities terminal.Capabilities
	formatter    MessageFormatter
	writer       io.Writer
	level        slog.Level
	attrs        []slog.Attr
	groups       []string
}

// InteractiveHandlerOptions configures the InteractiveHandler.
type InteractiveHandlerOptions struct {
	// Level is the minimum log level to handle
	Level slog.Level

	// Writer is the output destination (typically os.Stderr for interactive output)
	Writer io.Writer

	// Capabilities provides terminal feature detection
	Capabilities terminal.Capabilities

	// Formatter handles message formatting and coloring
	Formatter MessageFormatter
}

// NewInteractiveHandler creates a new InteractiveHandler with the given options.
// Returns an error if any required options are missing.
func NewInteractiveHandler(opts InteractiveHandlerOptions) (*InteractiveHandler, error) {
	if opts.Writer == nil {
		return nil, ErrInteractiveHandlerWriterRequired
	}
	if opts.Capabilities == nil {
		return nil, ErrInteractiveHandlerCapabilitiesRequired
	}
	if opts.Formatter == nil {
		return nil, ErrInteractiveHandlerFormatterRequired
	}

	return &InteractiveHandler{
		capabilities: opts.Capabilities,
		formatter:    opts.Formatter,
		writer:       opts.Writer,
		level:        opts.Level,
	}, nil
}

// Enabled reports whether the handler handles records at the given level.
func (h *InteractiveHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.capabilities.IsInteractive() && level >= h.level
}

// Handle processes a log record.
func (h *InteractiveHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.capabilities.IsInteractive() {
		return nil
	}

	// Rebuild the record so its own attributes carry the open group path,
	// followed by the handler's accumulated attributes.
	prefix := h.groupPrefix()
	record := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(attr slog.Attr) bool {
		record.AddAttrs(slog.Attr{Key: prefix + attr.Key, Value: attr.Value})
		return true
	})
	record.AddAttrs(h.attrs...)

	message := h.formatter.FormatRecord(record, h.capabilities.SupportsColor())

	_, err := h.writer.Write([]byte(message + "\n"))
	return err
}

// groupPrefix returns the dotted prefix for the currently open groups,
// or "" when no group is open.
func (h *InteractiveHandler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// WithAttrs returns a new handler with additional attributes. The attributes
// are stored with the currently open group path already applied.
func (h *InteractiveHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	prefix := h.groupPrefix()
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	for _, attr := range attrs {
		newAttrs = append(newAttrs, slog.Attr{Key: prefix + attr.Key, Value: attr.Value})
	}

	return &InteractiveHandler{
		capabilities: h.capabilities,
		formatter:    h.formatter,
		writer:       h.writer,
		level:        h.level,
		attrs:        newAttrs,
		groups:       h.groups,
	}
}

// WithGroup returns a new handler with an additional group.
func (h *InteractiveHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name

	return &InteractiveHandler{
		capabilities: h.capabilities,
		formatter:    h.formatter,
		writer:       h.writer,
		level:        h.level,
		attrs:        h.attrs,
		groups:       newGroups,
	}
}
