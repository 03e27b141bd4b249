// Package errs defines the structured errors raised while running scripts.
//
// Every failure a script can observe is an *Error carrying a Kind. Errors
// unwind statement execution as thrown signals until a CATCH block handles
// them or they reach the top of the run.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a script error.
type Kind string

const (
	KindSyntax                Kind = "SyntaxError"
	KindName                  Kind = "NameError"
	KindType                  Kind = "TypeError"
	KindArity                 Kind = "ArityError"
	KindIndexOutOfBounds      Kind = "IndexOutOfBounds"
	KindDivisionByZero        Kind = "DivisionByZero"
	KindUser                  Kind = "UserError"
	KindBreakOutsideLoop      Kind = "BreakOutsideLoop"
	KindReturnOutsideFunction Kind = "ReturnOutsideFunction"
	KindExternalBridge        Kind = "ExternalBridgeError"
	KindRuntime               Kind = "RuntimeError"
	KindRecursionLimit        Kind = "RecursionLimit"
	KindCancelled             Kind = "Cancelled"
)

// Error is a script-level error.
type Error struct {
	Kind    Kind
	Message string
	// Line and Column locate the statement the error escaped from; zero when unknown.
	Line   int
	Column int
	Err    error
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d, column %d: %s", e.Kind, e.Line, e.Column, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// At records a location if none is set yet and returns e.
func (e *Error) At(line, column int) *Error {
	if e.Line == 0 && line > 0 {
		e.Line = line
		e.Column = column
	}
	return e
}

// Catchable reports whether a CATCH block may handle the error.
func (e *Error) Catchable() bool {
	return e.Kind != KindCancelled
}

// From converts any error into an *Error.
//
// Context cancellation becomes KindCancelled; anything else that is not
// already an *Error is treated as a failure of an external collaborator.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindCancelled, err, "script execution cancelled")
	}
	return Wrap(KindExternalBridge, err, "")
}

// KindOf returns the kind of err, or "" when err is not a script error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is a script error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
