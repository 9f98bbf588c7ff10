//nolint:revive // common is an appropriate name for shared utilities package
package common

import (
	"fmt"
	"strings"
	"unicode"
)

// Conventional backslash escapes for the control characters that have one.
var controlEscapes = map[rune]string{
	'\a': `\a`,
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
	'\v': `\v`,
}

// EscapeControlChars renders s safely for terminal display. Control
// characters become their conventional backslash escape where one exists
// and \xNN otherwise. Spaces also become \x20 so word boundaries inside a
// single logged value stay visible. Printable characters pass through
// unchanged.
func EscapeControlChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r != ' ' && !unicode.IsControl(r):
			b.WriteRune(r)
		default:
			if esc, ok := controlEscapes[r]; ok {
				b.WriteString(esc)
				continue
			}
			fmt.Fprintf(&b, `\x%02x`, r)
		}
	}
	return b.String()
}
