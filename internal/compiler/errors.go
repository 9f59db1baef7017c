package compiler

import (
	"errors"
	"fmt"
)

// Compile error codes (E200-E299)
const (
	ErrSyntax = "E200" // lexer or parser failure

	// Restriction errors (E201-E209)
	ErrPrivateName       = "E201" // identifier starts with "_"
	ErrAttributeMutation = "E202" // attribute assignment or deletion
	ErrUnsupported       = "E203" // class, yield, with, async
	ErrScopeDeclaration  = "E204" // misplaced or unresolvable global/nonlocal
	ErrMisplaced         = "E205" // return/break/continue outside their block
	ErrStarImport        = "E206" // from x import *
)

// CompileError is a script rejected before execution. Every CompileError
// surfaces to callers as a SyntaxError.
type CompileError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Err     error  `json:"-"`
}

// Error renders "<message> (line N)".
func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d)", e.Message, e.Line)
	}
	return e.Message
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsCompileError reports whether err is (or wraps) a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// AsCompileError extracts the *CompileError from err.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
