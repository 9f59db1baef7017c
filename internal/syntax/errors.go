package syntax

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a lexical or grammatical error with a 1-based position.
type Error struct {
	Line int
	Col  int
	Msg  string
}

// Error renders "<msg> (line N)".
func (e *Error) Error() string {
	return fmt.Sprintf("%s (line %d)", e.Msg, e.Line)
}

func errorf(line, col int, format string, args ...any) *Error {
	return &Error{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Snippet renders the offending line of src with a caret under the error
// column, plus one line of context on each side when available.
func Snippet(src string, line, col int) string {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
