package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the core can produce. Kinds are part of
// the tool contract: callers branch on them to decide whether an operation is
// worth retrying.
type ErrorKind string

const (
	ErrInvalidTimeFormat ErrorKind = "invalid_time_format"
	ErrMalformedObject   ErrorKind = "malformed_calendar_object"
	ErrRemoteConflict    ErrorKind = "remote_conflict"
	ErrNotFound          ErrorKind = "not_found"
	ErrCalendarNotFound  ErrorKind = "calendar_not_found"
	ErrAmbiguousCalendar ErrorKind = "ambiguous_calendar_reference"
	ErrAuthFailed        ErrorKind = "authentication_failed"
	ErrTransport         ErrorKind = "transport_error"
)

// Error is a typed error carrying one of the taxonomy kinds.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds a typed error from a format string.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the ErrorKind from err. Untyped errors report as
// transport failures, the only kind that can originate outside this module.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrTransport
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry the failed operation
// without changing anything. Only transport failures qualify: validation
// errors will fail again and credential rejections need operator action.
func Retryable(err error) bool {
	return IsKind(err, ErrTransport)
}
