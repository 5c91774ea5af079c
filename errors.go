package dryml

import (
	"errors"
	"fmt"
)

// Categories of compile failures. A *CompileError unwraps to one of these.
var (
	ErrMissingAttribute   = errors.New("missing attribute")
	ErrInvalidAttribute   = errors.New("invalid attribute")
	ErrPlacement          = errors.New("illegal placement")
	ErrNameConflict       = errors.New("name conflict")
	ErrQuoting            = errors.New("invalid quoting")
	ErrRemovedSyntax      = errors.New("removed syntax")
	ErrForbiddenScriptlet = errors.New("scriptlet in forbidden context")
	ErrSyntax             = errors.New("markup syntax error")
)

// CompileError is the single error type raised while compiling a template.
type CompileError struct {
	Kind    error
	Message string
	Path    string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s -- at %s:%d", e.Message, e.Path, e.Line)
}

func (e *CompileError) Unwrap() error {
	return e.Kind
}

// AsCompileError extracts a *CompileError from err's chain.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
