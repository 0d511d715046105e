package application

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeOrderNotFound   = "ORDER_NOT_FOUND"
	CodeSagaStartFailed = "SAGA_START_FAILED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ErrInvalidRequest is the cause of every request validation failure
var ErrInvalidRequest = errors.New("invalid request")

// Error is a use case failure with a stable code the transport layer can map
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func invalidRequest(message string) *Error {
	return newError(CodeInvalidRequest, message, ErrInvalidRequest)
}

// CodeOf returns the code of err, or CodeInternalError when err carries none
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}
