package redaction

import "fmt"

// ErrLogValuePanic reports that an attribute's LogValue() panicked while
// the redactor was resolving it. The attribute's value is replaced with a
// placeholder and the failure surfaces in the shutdown report.
type ErrLogValuePanic struct {
	Key        string
	PanicValue any
	StackTrace string
}

func (e *ErrLogValuePanic) Error() string {
	return fmt.Sprintf("LogValue() panicked for attribute %q: %v", e.Key, e.PanicValue)
}
