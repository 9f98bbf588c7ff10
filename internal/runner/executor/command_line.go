package executor

import "strings"

// safeWordChars lists the non-alphanumeric characters that never need
// quoting in a POSIX shell word.
const safeWordChars = "%+,-./:=@_"

func isSafeWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case strings.ContainsRune(safeWordChars, r):
		default:
			return false
		}
	}
	return true
}

// QuoteWord returns s as a single POSIX shell word. Words made entirely
// of safe characters pass through unchanged; everything else is wrapped
// in single quotes, with embedded single quotes spliced as '\''.
func QuoteWord(s string) string {
	if isSafeWord(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			b.WriteString(`'\''`)
			continue
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('\'')
	return b.String()
}

// CommandLine renders a resolved command path and its arguments as one
// shell command line. The result is for log output and can be pasted
// into a shell to reproduce the invocation.
func CommandLine(path string, args []string) string {
	var b strings.Builder
	b.WriteString(QuoteWord(path))
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(QuoteWord(arg))
	}
	return b.String()
}
