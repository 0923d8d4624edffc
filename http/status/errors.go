package status

import (
	"errors"
	"fmt"
)

type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrMalformedRequest     = NewError(BadRequest, "malformed request")
	ErrBadRequestLine       = NewError(BadRequest, "malformed request line")
	ErrOrphanContinuation   = NewError(BadRequest, "header continuation without a preceding header")
	ErrBadHeader            = NewError(BadRequest, "malformed header line")
	ErrBadContentLength     = NewError(BadRequest, "malformed Content-Length value")
	ErrBadChunk             = NewError(BadRequest, "malformed chunk-encoded data")
	ErrHeaderFieldsTooLarge = NewError(HeaderFieldsTooLarge, "too large headers section")
	ErrPayloadTooLarge      = NewError(RequestEntityTooLarge, "request body exceeds the buffer limit")
	ErrProtocolViolation    = NewError(InternalServerError, "response violates the protocol contract")
	ErrExecutorOverload     = NewError(ServiceUnavailable, "worker pool is overloaded")
)

// IsMalformed reports whether the error belongs to the malformed-request class. Such
// requests are dropped by closing the connection without a response.
func IsMalformed(err error) bool {
	var httpErr HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}

	return httpErr.Code == BadRequest || httpErr.Code == HeaderFieldsTooLarge
}

// ApplicationError wraps any failure raised while composing a response: filters, the
// handler itself, or a response failing validation.
type ApplicationError struct {
	Err   error
	Stack []byte
}

func (a *ApplicationError) Error() string {
	return fmt.Sprintf("application error: %v", a.Err)
}

func (a *ApplicationError) Unwrap() error {
	return a.Err
}

// Violation returns an ApplicationError caused by a broken response contract.
func Violation(format string, args ...any) error {
	return &ApplicationError{
		Err: fmt.Errorf("%w: "+format, append([]any{ErrProtocolViolation}, args...)...),
	}
}
