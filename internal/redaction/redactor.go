// Package redaction scrubs credentials and other sensitive values from log
// records before any handler writes them. Failures inside the redaction
// machinery itself (panicking LogValuer implementations and the like) are
// collected for end-of-run reporting instead of silently dropping records.
package redaction

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
)

// RedactionFailurePlaceholder replaces values the redactor could not
// process safely.
const RedactionFailurePlaceholder = "[REDACTION FAILED - OUTPUT SUPPRESSED]"

// maxRedactionDepth bounds recursive LogValuer resolution so
// self-referential valuers cannot stall the logging path.
const maxRedactionDepth = 10

// Config controls how sensitive information is redacted.
type Config struct {
	// Placeholder is substituted for redacted content (e.g. "[REDACTED]")
	Placeholder string
	// Patterns detects sensitive attribute keys and whole values
	Patterns *SensitivePatterns
	// KeyValuePatterns are textual prefixes whose trailing value is
	// redacted, in key=value, "Bearer token" or "Header: value" form
	KeyValuePatterns []string
}

// DefaultConfig returns the redaction configuration used by the runner.
func DefaultConfig() *Config {
	return &Config{
		Placeholder:      "[REDACTED]",
		Patterns:         DefaultSensitivePatterns(),
		KeyValuePatterns: DefaultKeyValuePatterns(),
	}
}

// patternCache memoizes compiled key patterns. Entries are shared across
// configs since the expression depends only on the pattern text.
var patternCache sync.Map

// patternRegexp returns the compiled matcher for one configured pattern.
func patternRegexp(key string) *regexp.Regexp {
	if cached, ok := patternCache.Load(key); ok {
		return cached.(*regexp.Regexp)
	}
	re := compilePattern(key)
	patternCache.Store(key, re)
	return re
}

// compilePattern builds a case-insensitive matcher whose first group is the
// part of the match that survives redaction. Quoting the configured text
// keeps the expression valid for any input.
func compilePattern(key string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(key)
	switch {
	case strings.Contains(key, ":"):
		// Header form ("Authorization:"): keep the header name, its
		// whitespace and a Bearer/Basic scheme, drop the rest of the line
		return regexp.MustCompile(`(?i)(` + quoted + `[ \t]*(?:bearer |basic )?)[^\r\n]*`)
	case strings.Contains(key, " "), strings.Contains(key, "="):
		// Scheme prefixes ("Bearer ") and explicit key= forms already
		// carry their separator, so only the following token is dropped
		return regexp.MustCompile(`(?i)(` + quoted + `)\S+`)
	default:
		// Bare keys redact the value half of key=value
		return regexp.MustCompile(`(?i)(` + quoted + `=)\S+`)
	}
}

// RedactText redacts the values of all configured key patterns inside text.
// Matching is case-insensitive and the matched key keeps its original case.
func (c *Config) RedactText(text string) string {
	if text == "" {
		return text
	}

	// "$" must not reach the expansion template unescaped
	replacement := "${1}" + strings.ReplaceAll(c.Placeholder, "$", "$$")
	for _, key := range c.KeyValuePatterns {
		text = patternRegexp(key).ReplaceAllString(text, replacement)
	}
	return text
}

// redactStringValue redacts one string attribute value. Embedded key=value
// occurrences win over whole-value detection so "password=secret" keeps its
// key visible instead of disappearing entirely.
func (c *Config) redactStringValue(s string) slog.Value {
	if redacted := c.RedactText(s); redacted != s {
		return slog.StringValue(redacted)
	}
	if c.Patterns.IsSensitiveValue(s) {
		return slog.StringValue(c.Placeholder)
	}
	return slog.StringValue(s)
}

// RedactLogAttribute redacts a single attribute by key, string content and
// group members. LogValuer values are left unresolved; wrap a handler with
// RedactingHandler to contain those.
func (c *Config) RedactLogAttribute(attr slog.Attr) slog.Attr {
	if c.Patterns.IsSensitiveKey(attr.Key) {
		return slog.String(attr.Key, c.Placeholder)
	}

	switch attr.Value.Kind() {
	case slog.KindString:
		return slog.Attr{Key: attr.Key, Value: c.redactStringValue(attr.Value.String())}
	case slog.KindGroup:
		members := attr.Value.Group()
		redacted := make([]slog.Attr, 0, len(members))
		for _, member := range members {
			redacted = append(redacted, c.RedactLogAttribute(member))
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(redacted...)}
	default:
		return attr
	}
}

// RedactingHandler is a slog.Handler decorator that redacts records before
// the wrapped handler sees them. It resolves LogValuer values itself so
// resolved content goes through redaction and panics stay contained.
type RedactingHandler struct {
	handler       slog.Handler
	config        *Config
	failureLogger *slog.Logger   // Receives failure diagnostics without passing back through this handler
	collector     ErrorCollector // Optional, records failures for end-of-run reporting
}

// NewRedactingHandler wraps handler with redaction. A nil config selects
// DefaultConfig; a nil failureLogger falls back to slog.Default.
func NewRedactingHandler(handler slog.Handler, config *Config, failureLogger *slog.Logger) *RedactingHandler {
	if config == nil {
		config = DefaultConfig()
	}
	if failureLogger == nil {
		failureLogger = slog.Default()
	}
	return &RedactingHandler{
		handler:       handler,
		config:        config,
		failureLogger: failureLogger,
	}
}

// WithErrorCollector returns a copy of the handler that records redaction
// failures with the given collector
func (r *RedactingHandler) WithErrorCollector(collector ErrorCollector) *RedactingHandler {
	return &RedactingHandler{
		handler:       r.handler,
		config:        r.config,
		failureLogger: r.failureLogger,
		collector:     collector,
	}
}

// Enabled reports whether the wrapped handler handles records at the given level
func (r *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return r.handler.Enabled(ctx, level)
}

// Handle forwards the record with every attribute redacted.
func (r *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	redacted := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		redacted.AddAttrs(r.redactAttr(attr, 0))
		return true
	})
	return r.handler.Handle(ctx, redacted)
}

// WithAttrs returns a new RedactingHandler with the given attributes.
// Attributes go through the same redaction path as record attributes, so
// LogValuer values are resolved (and their panics contained) here rather
// than in the wrapped handler.
func (r *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		redacted = append(redacted, r.redactAttr(attr, 0))
	}
	return &RedactingHandler{
		handler:       r.handler.WithAttrs(redacted),
		config:        r.config,
		failureLogger: r.failureLogger,
		collector:     r.collector,
	}
}

// WithGroup returns a new RedactingHandler opening the given group
func (r *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{
		handler:       r.handler.WithGroup(name),
		config:        r.config,
		failureLogger: r.failureLogger,
		collector:     r.collector,
	}
}

// recordFailure forwards a redaction failure to the collector when one is attached
func (r *RedactingHandler) recordFailure(key string, err error) {
	if r.collector != nil {
		r.collector.RecordFailure(key, err)
	}
}

// redactAttr redacts one attribute. depth counts LogValuer resolutions on
// the current path; group members share their parent's depth since groups
// cannot recurse through themselves.
func (r *RedactingHandler) redactAttr(attr slog.Attr, depth int) slog.Attr {
	// A sensitive key blanks the value before any resolution happens
	if r.config.Patterns.IsSensitiveKey(attr.Key) {
		return slog.String(attr.Key, r.config.Placeholder)
	}

	switch attr.Value.Kind() {
	case slog.KindString:
		return slog.Attr{Key: attr.Key, Value: r.config.redactStringValue(attr.Value.String())}

	case slog.KindGroup:
		members := attr.Value.Group()
		redacted := make([]slog.Attr, 0, len(members))
		for _, member := range members {
			redacted = append(redacted, r.redactAttr(member, depth))
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(redacted...)}

	case slog.KindLogValuer:
		if depth >= maxRedactionDepth {
			r.logDepthLimit(attr.Key)
			return attr
		}
		resolved, failure := r.resolveLogValue(attr.Key, attr.Value.LogValuer())
		if failure != nil {
			r.recordFailure(attr.Key, failure)
			return slog.String(attr.Key, RedactionFailurePlaceholder)
		}
		return r.redactAttr(slog.Attr{Key: attr.Key, Value: resolved}, depth+1)

	case slog.KindAny:
		redacted, failure := r.redactAnyValue(attr.Key, attr.Value, depth)
		if failure != nil {
			r.recordFailure(attr.Key, failure)
			return slog.String(attr.Key, RedactionFailurePlaceholder)
		}
		return redacted

	default:
		return attr
	}
}

// redactAnyValue handles KindAny values. Slices get per-element treatment
// because they may hold LogValuer elements; other dynamic values pass
// through untouched.
func (r *RedactingHandler) redactAnyValue(key string, value slog.Value, depth int) (slog.Attr, *ErrLogValuePanic) {
	raw := value.Any()
	if raw == nil {
		return slog.Attr{Key: key, Value: value}, nil
	}
	if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Slice {
		return r.redactSlice(key, rv, depth)
	}
	return slog.Attr{Key: key, Value: value}, nil
}

// redactSlice resolves and redacts LogValuer elements of a slice. The first
// element failure is reported for the whole attribute; remaining elements
// are still processed.
func (r *RedactingHandler) redactSlice(key string, rv reflect.Value, depth int) (slog.Attr, *ErrLogValuePanic) {
	if depth >= maxRedactionDepth {
		r.logDepthLimit(key)
		return slog.Attr{Key: key, Value: slog.AnyValue(rv.Interface())}, nil
	}

	elements := make([]any, 0, rv.Len())
	var firstFailure *ErrLogValuePanic

	for i := 0; i < rv.Len(); i++ {
		element := rv.Index(i).Interface()
		valuer, ok := element.(slog.LogValuer)
		if !ok {
			elements = append(elements, element)
			continue
		}

		elementKey := fmt.Sprintf("%s[%d]", key, i)
		resolved, failure := r.resolveLogValue(elementKey, valuer)
		if failure != nil {
			elements = append(elements, resolved.Any())
			if firstFailure == nil {
				firstFailure = failure
			}
			continue
		}
		redacted := r.redactAttr(slog.Attr{Key: elementKey, Value: resolved}, depth+1)
		elements = append(elements, redacted.Value.Any())
	}

	return slog.Attr{Key: key, Value: slog.AnyValue(elements)}, firstFailure
}

// resolveLogValue calls LogValue with panic containment. On panic the
// returned value is the failure placeholder and the panic is wrapped as an
// ErrLogValuePanic for the collector.
func (r *RedactingHandler) resolveLogValue(key string, valuer slog.LogValuer) (value slog.Value, failure *ErrLogValuePanic) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := string(debug.Stack())
			value = slog.StringValue(RedactionFailurePlaceholder)
			failure = &ErrLogValuePanic{Key: key, PanicValue: rec, StackTrace: stack}

			// failureLogger does not go through the redacting chain
			r.failureLogger.Warn("Redaction failed due to panic in LogValue()",
				"attribute_key", key,
				"panic", rec,
				"stack_trace", stack,
			)
		}
	}()
	return valuer.LogValue(), nil
}

// logDepthLimit notes that resolution stopped at the recursion bound. The
// unresolved remainder still reaches the wrapped handler, which applies
// its own resolution without redaction.
func (r *RedactingHandler) logDepthLimit(key string) {
	r.failureLogger.Debug("Recursion depth limit reached - returning partially redacted value",
		"attribute_key", key,
		"depth", maxRedactionDepth,
	)
}
