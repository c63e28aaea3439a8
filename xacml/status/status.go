// Package status carries the XACML status codes and the error type used to
// signal Indeterminate evaluation results throughout the engine.
package status

import (
	"errors"
	"fmt"
)

// Standard XACML status code identifiers.
const (
	CodeOK               = "urn:oasis:names:tc:xacml:1.0:status:ok"
	CodeMissingAttribute = "urn:oasis:names:tc:xacml:1.0:status:missing-attribute"
	CodeSyntaxError      = "urn:oasis:names:tc:xacml:1.0:status:syntax-error"
	CodeProcessingError  = "urn:oasis:names:tc:xacml:1.0:status:processing-error"
)

// Error is an Indeterminate evaluation outcome: a status code, a message, and
// an optional wrapped cause. Evaluators return it in place of a value; rule
// and combining layers translate it into the Indeterminate decision flavours.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an Error with the given status code.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewMissingAttribute signals a mustBePresent designator or selector that
// resolved to an empty bag.
func NewMissingAttribute(format string, args ...any) *Error {
	return NewError(CodeMissingAttribute, format, args...)
}

// NewSyntaxError signals a lexical form that violates its datatype's schema.
func NewSyntaxError(format string, args ...any) *Error {
	return NewError(CodeSyntaxError, format, args...)
}

// NewProcessingError signals an internal evaluation failure.
func NewProcessingError(format string, args ...any) *Error {
	return NewError(CodeProcessingError, format, args...)
}

// Wrap attaches a cause to an Error built like NewError.
func Wrap(cause error, code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// From coerces an arbitrary error into an *Error. Errors that already carry a
// status code pass through unchanged; anything else becomes a
// processing-error. The first status in a wrap chain wins, which keeps the
// earliest observed cause visible in the final response.
func From(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Code: CodeProcessingError, Message: err.Error(), Cause: err}
}
