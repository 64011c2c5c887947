// Package httpx provides the error taxonomy and structured logging shared
// by the Bitbucket adapter and the tool handlers.
package httpx

import "fmt"

// ErrorType represents the category of error that occurred.
type ErrorType int

const (
	ErrTypeInvalidArgument ErrorType = iota
	ErrTypeNotFound
	ErrTypeAuthentication
	ErrTypeUpstream
	ErrTypeTimeout
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeInvalidArgument:
		return "invalid argument"
	case ErrTypeNotFound:
		return "not found"
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeUpstream:
		return "upstream error"
	case ErrTypeTimeout:
		return "timeout"
	default:
		return "unknown error"
	}
}

// Error is a typed failure with upstream context attached. Body carries
// the remote error body verbatim when one was available, since upstream
// failures (permissions, malformed anchors) carry diagnostic detail the
// caller needs.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Body       string
	Operation  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s: %s (status: %d)", e.Operation, e.Type.String(), e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %s", e.Operation, e.Type.String(), e.Message)
}

// Is implements error equality checking for errors.Is. Two errors match
// when their types match, regardless of operation or status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInvalidArgumentError reports caller input that was rejected before
// any network call.
func NewInvalidArgumentError(operation, message string) *Error {
	return &Error{
		Type:      ErrTypeInvalidArgument,
		Message:   message,
		Operation: operation,
	}
}

// NewUpstreamError reports a non-2xx response from Bitbucket.
func NewUpstreamError(operation, message string, statusCode int, body string) *Error {
	return &Error{
		Type:       ErrTypeUpstream,
		Message:    message,
		StatusCode: statusCode,
		Body:       body,
		Operation:  operation,
	}
}

// NewNotFoundError reports an upstream 404 on a direct lookup.
func NewNotFoundError(operation, message string, body string) *Error {
	return &Error{
		Type:       ErrTypeNotFound,
		Message:    message,
		StatusCode: 404,
		Body:       body,
		Operation:  operation,
	}
}

// NewAuthenticationError reports rejected credentials.
func NewAuthenticationError(operation, message string, statusCode int, body string) *Error {
	return &Error{
		Type:       ErrTypeAuthentication,
		Message:    message,
		StatusCode: statusCode,
		Body:       body,
		Operation:  operation,
	}
}

// NewTimeoutError reports an exceeded deadline, per-request or
// per-operation.
func NewTimeoutError(operation, message string) *Error {
	return &Error{
		Type:      ErrTypeTimeout,
		Message:   message,
		Operation: operation,
	}
}

// NewUnknownError reports a transport failure that is not a timeout, such
// as DNS resolution or a refused connection.
func NewUnknownError(operation, message string) *Error {
	return &Error{
		Type:      ErrTypeUnknown,
		Message:   message,
		Operation: operation,
	}
}
