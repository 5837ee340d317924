package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure by its originating stage behavior. The
// taxonomy is internal: callers of the HTTP API only see the message, but
// handlers and tests branch on the kind.
type Kind string

const (
	KindAuth              Kind = "auth_error"
	KindRecommendation    Kind = "recommendation_error"
	KindMetadataNotFound  Kind = "metadata_not_found"
	KindMetadataService   Kind = "metadata_service_error"
	KindSourceNotFound    Kind = "source_not_found"
	KindSourceService     Kind = "source_service_error"
	KindStreamUnavailable Kind = "stream_unavailable"
	KindTranscode         Kind = "transcode_error"
	KindDelivery          Kind = "delivery_error"
	KindTimeout           Kind = "timeout_error"
)

// Error carries a failure kind alongside the human-readable message surfaced
// to the caller. It wraps the underlying cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a pipeline error without an underlying cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates a pipeline error with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a pipeline error around an underlying cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure kind from err, or "" if err is not a pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage returns the message meant for the caller. Non-pipeline errors
// fall back to their full text.
func UserMessage(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
