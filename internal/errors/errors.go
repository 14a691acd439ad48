// Package errors defines the typed failures surfaced by the payload lifecycle engine.
//
// Every failure carries a machine-readable Code. Callers match on the code with
// errors.Is against the exported sentinels, or with GetCode/IsCode:
//
//	if errors.Is(err, apperrors.ErrNotFound) { ... }
//	if apperrors.IsCode(err, apperrors.CodeAuthorization) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an error that did not originate in this module.
	CodeUnknown Code = "UNKNOWN"

	// CodeValidation is returned for empty or malformed identifier input.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound is returned when an operation expects a record that is absent.
	CodeNotFound Code = "NOT_FOUND"

	// CodeConflict is returned when booking an asset id that already exists.
	CodeConflict Code = "CONFLICT"

	// CodeAuthorization is returned when a role or ownership check fails.
	CodeAuthorization Code = "AUTHORIZATION"

	// CodeSerialization is returned when persisted bytes cannot be decoded.
	CodeSerialization Code = "SERIALIZATION"
)

// Sentinels for errors.Is matching. They compare equal to any *Error with the same code.
var (
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict      = &Error{Code: CodeConflict, Message: "conflict"}
	ErrAuthorization = &Error{Code: CodeAuthorization, Message: "not authorized"}
	ErrSerialization = &Error{Code: CodeSerialization, Message: "serialization failed"}
)

// Error is a domain error with a code, a human-readable message and optional metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error with the given code that wraps cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithMetadata returns a copy of e with key set to value in its metadata.
func (e *Error) WithMetadata(key, value string) *Error {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	return &Error{Code: e.Code, Message: e.Message, Metadata: md, Cause: e.Cause}
}

// Validation reports empty or malformed input.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

// NotFound reports a missing asset.
func NotFound(assetID string) *Error {
	return New(CodeNotFound, "asset %q does not exist", assetID).WithMetadata("assetId", assetID)
}

// Conflict reports a booking against an id already present.
func Conflict(assetID string) *Error {
	return New(CodeConflict, "asset %q already exists", assetID).WithMetadata("assetId", assetID)
}

// Unauthorized reports a failed policy check.
func Unauthorized(subject, action, assetID string) *Error {
	var err *Error
	if assetID == "" {
		err = New(CodeAuthorization, "%s is not allowed to %s", subject, action)
	} else {
		err = New(CodeAuthorization, "%s is not allowed to %s asset %q", subject, action, assetID)
	}
	return err.WithMetadata("subject", subject).WithMetadata("action", action)
}

// Serialization wraps a decode failure for the given key.
func Serialization(key string, cause error) *Error {
	return Wrap(CodeSerialization, cause, "decode asset %q", key).WithMetadata("assetId", key)
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts metadata from an error if present.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
