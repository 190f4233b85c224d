package ast

import "fmt"

// ErrCode enumerates the error kinds the directive tree can originate.
type ErrCode int

const (
	// UnsupportedLvalueErr indicates an Assign's left-hand side did not
	// resolve to an assignable (obj, kind, sub) slot.
	UnsupportedLvalueErr ErrCode = iota
)

// Error is the error type returned by the ast package.
type Error struct {
	Code    ErrCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ast error (code: %d): %s", e.Code, e.Message)
}

func unsupportedLvalueError(v any) *Error {
	return &Error{Code: UnsupportedLvalueErr, Message: fmt.Sprintf("unsupported assignment target: %v (%T)", v, v)}
}

// IsErrCode returns true if err is a *Error carrying the given code.
func IsErrCode(code ErrCode, err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
