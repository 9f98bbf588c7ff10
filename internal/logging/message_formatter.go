package logging

import (
	"log/slog"
	"strings"
	"time"

	"github.com/isseis/go-remote-task-runner/internal/color"
)

// MessageFormatter renders log records for interactive terminal display.
type MessageFormatter interface {
	// FormatRecord formats a log record with optional color support.
	FormatRecord(record slog.Record, useColor bool) string
}

// DefaultMessageFormatter formats records for humans watching the run: a
// level tag, the message, and a small selection of relevant attributes.
// Full detail stays in the text and JSON handlers.
type DefaultMessageFormatter struct{}

// NewDefaultMessageFormatter creates a new DefaultMessageFormatter.
func NewDefaultMessageFormatter() *DefaultMessageFormatter {
	return &DefaultMessageFormatter{}
}

// FormatRecord formats a log record with optional color support.
func (f *DefaultMessageFormatter) FormatRecord(record slog.Record, useColor bool) string {
	var sb strings.Builder

	sb.WriteString(f.formatLevel(record.Level, useColor))
	sb.WriteString(" ")
	sb.WriteString(record.Message)

	if record.NumAttrs() > 0 {
		f.appendSelectedAttrs(&sb, record)
	}

	return sb.String()
}

// getPriorityKeys returns the attribute keys worth showing interactively,
// in display order. Captured stderr is only interesting once something went
// wrong; captured stdout only when debugging.
func (f *DefaultMessageFormatter) getPriorityKeys(level slog.Level) []string {
	baseKeys := []string{"error", "task", "connection_id", "path", "command"}

	if level >= slog.LevelWarn {
		return append([]string{"error", "stderr"}, baseKeys[1:]...)
	}

	if level == slog.LevelDebug {
		return append(baseKeys, "stdout")
	}

	return baseKeys
}

// appendSelectedAttrs appends the priority attributes present on the record,
// falling back to the first few non-noise attributes when none match.
func (f *DefaultMessageFormatter) appendSelectedAttrs(sb *strings.Builder, record slog.Record) {
	priorityKeys := f.getPriorityKeys(record.Level)

	var foundAttrs []slog.Attr

	for _, priorityKey := range priorityKeys {
		record.Attrs(func(attr slog.Attr) bool {
			if attr.Key == priorityKey || strings.HasSuffix(attr.Key, "."+priorityKey) {
				foundAttrs = append(foundAttrs, attr)
				return false
			}
			return true
		})
	}

	const maxInteractiveAttrs = 3
	if len(foundAttrs) == 0 {
		count := 0
		record.Attrs(func(attr slog.Attr) bool {
			if count >= maxInteractiveAttrs {
				return false
			}
			if !f.shouldSkipAttr(attr.Key) {
				foundAttrs = append(foundAttrs, attr)
				count++
			}
			return true
		})
	}

	if len(foundAttrs) > 0 {
		sb.WriteString(" ")
		for i, attr := range foundAttrs {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(attr.Key)
			sb.WriteString("=")
			sb.WriteString(f.formatValue(attr.Value))
		}
	}
}

// shouldSkipAttr reports whether an attribute is run metadata that would be
// noise on an interactive terminal.
func (f *DefaultMessageFormatter) shouldSkipAttr(key string) bool {
	skipKeys := []string{
		"time", "level", "msg", "run_id", "hostname", "pid", "schema_version",
		"duration_ms", "interactive_mode", "color_support",
	}

	for _, skipKey := range skipKeys {
		if key == skipKey {
			return true
		}
	}
	return false
}

// formatLevel formats the log level with visual distinction.
func (f *DefaultMessageFormatter) formatLevel(level slog.Level, useColor bool) string {
	if useColor {
		switch level {
		case slog.LevelDebug:
			return color.Gray("* DEBUG")
		case slog.LevelInfo:
			return color.Green("+ INFO ")
		case slog.LevelWarn:
			return color.Yellow("! WARN ")
		case slog.LevelError:
			return color.Red("X ERROR")
		default:
			return color.Gray("> " + level.String())
		}
	}
	switch level {
	case slog.LevelDebug:
		return "[DEBUG]"
	case slog.LevelInfo:
		return "[INFO ]"
	case slog.LevelWarn:
		return "[WARN ]"
	case slog.LevelError:
		return "[ERROR]"
	default:
		return "[" + strings.ToUpper(level.String()) + "]"
	}
}

// formatValue formats a slog.Value for display.
func (f *DefaultMessageFormatter) formatValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindString:
		return value.String()
	case slog.KindTime:
		return value.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindGroup:
		attrs := value.Group()
		if len(attrs) == 0 {
			return "{}"
		}
		var parts []string
		for _, attr := range attrs {
			parts = append(parts, attr.Key+"="+f.formatValue(attr.Value))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return value.String()
	}
}
