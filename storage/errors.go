// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package storage

import "fmt"

// ErrCode represents the collection of errors that may be returned by the
// storage layer.
type ErrCode int

const (
	// EmptyBaseErr indicates a value set's effective-value computation found
	// no non-relative anchor entry to build on.
	EmptyBaseErr ErrCode = iota

	// OscillationErr indicates a single event drain exceeded MaxChain
	// cumulative watcher dispatches.
	OscillationErr

	// NoTransactionErr indicates Commit was called without an open
	// transaction, or Begin was called while one was already open.
	NoTransactionErr

	// NestedDrainErr indicates ProcessEvents was invoked re-entrantly.
	NestedDrainErr

	// DoubleWrapErr indicates an attempt to wrap an already-wrapped object.
	DoubleWrapErr

	// ObjectGoneErr indicates a weak reference resolved to a reclaimed
	// object.
	ObjectGoneErr
)

// Error is the error type returned by the storage layer.
type Error struct {
	Code    ErrCode
	Message string

	// Target and Upcoming are populated for OscillationErr only: the target
	// whose dispatch tripped MaxChain, and the next few targets still queued.
	Target   Target
	Upcoming []Target
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage error (code: %d): %s", e.Code, e.Message)
}

// IsErrCode returns true if err is a *Error carrying the given code.
func IsErrCode(code ErrCode, err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

func emptyBaseError() *Error {
	return &Error{Code: EmptyBaseErr, Message: "value set contains only relative values"}
}

func noTransactionError(msg string) *Error {
	return &Error{Code: NoTransactionErr, Message: msg}
}

func nestedDrainError() *Error {
	return &Error{Code: NestedDrainErr, Message: "process_events called re-entrantly"}
}

func doubleWrapError() *Error {
	return &Error{Code: DoubleWrapErr, Message: "attempt to wrap an already-wrapped object"}
}

func objectGoneError() *Error {
	return &Error{Code: ObjectGoneErr, Message: "weak reference resolved to a reclaimed object"}
}

func oscillationError(target Target, upcoming []Target) *Error {
	return &Error{
		Code:     OscillationErr,
		Message:  fmt.Sprintf("maximum chain length exceeded at %v (probable oscillation)", target),
		Target:   target,
		Upcoming: upcoming,
	}
}
