package redaction

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

const failureTimeFormat = "2006-01-02 15:04:05"

// ShutdownReporter writes a summary of collected redaction failures when the
// application shuts down.
type ShutdownReporter struct {
	collector ErrorCollector
	writer    io.Writer
	logger    *slog.Logger
}

// NewShutdownReporter creates a reporter over the given collector. The
// detailed report goes to writer and a one-line summary to logger.
func NewShutdownReporter(collector ErrorCollector, writer io.Writer, logger *slog.Logger) *ShutdownReporter {
	return &ShutdownReporter{
		collector: collector,
		writer:    writer,
		logger:    logger,
	}
}

// Report emits the failure summary. It is a no-op when the collector does not
// retain failures or when none were recorded.
func (r *ShutdownReporter) Report() error {
	memCollector, ok := r.collector.(*InMemoryErrorCollector)
	if !ok {
		return nil
	}

	failures := memCollector.Failures()
	if len(failures) == 0 {
		return nil
	}

	if r.logger != nil {
		r.logger.Warn("Redaction failures summary",
			"total_failures", memCollector.Count(),
			"first_failure_key", failures[0].Key,
			"last_failure_key", failures[len(failures)-1].Key,
		)
	}

	if r.writer != nil {
		report := formatReport(failures, memCollector.Dropped())
		if _, err := io.WriteString(r.writer, report); err != nil {
			return fmt.Errorf("failed to write redaction report: %w", err)
		}
	}

	return nil
}

// formatReport renders the detailed failure report, grouping failures by
// attribute key.
func formatReport(failures []Failure, dropped int) string {
	byKey := make(map[string][]Failure)
	for _, f := range failures {
		byKey[f.Key] = append(byKey[f.Key], f)
	}
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\nREDACTION FAILURES DETECTED:\n")
	fmt.Fprintf(&b, "  Total failures: %d\n", len(failures)+dropped)
	fmt.Fprintf(&b, "  Affected attributes: %d\n", len(byKey))
	if dropped > 0 {
		fmt.Fprintf(&b, "  (%d additional failures were not stored)\n", dropped)
	}

	b.WriteString("\nDetails:\n")
	for _, key := range keys {
		group := byKey[key]
		first := group[0]
		fmt.Fprintf(&b, "\n  Attribute: %s\n", key)
		fmt.Fprintf(&b, "  Count: %d\n", len(group))
		fmt.Fprintf(&b, "  Error: %v\n", first.Err)
		fmt.Fprintf(&b, "  First occurrence: %s\n", first.Timestamp.Format(failureTimeFormat))
		if len(group) > 1 {
			last := group[len(group)-1]
			fmt.Fprintf(&b, "  Last occurrence: %s\n", last.Timestamp.Format(failureTimeFormat))
		}
	}

	b.WriteString("\nNote: These failures indicate that some LogValuer implementations\n")
	b.WriteString("      are panicking during redaction. Please review the implementations\n")
	b.WriteString("      and ensure they handle edge cases properly.\n\n")
	return b.String()
}
