package cms

import (
	"errors"
	"fmt"
)

// Sentinel errors for article operations
var (
	ErrArticleNotFound = errors.New("article not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrSlugTaken       = errors.New("slug already in use")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
	ErrRateLimited     = errors.New("too many requests")
)

// Code identifies a failure class in the uniform operation result shape.
// Handlers map codes to transport-level responses without inspecting the
// underlying error.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeForbidden   Code = "FORBIDDEN"
	CodeWrite       Code = "WRITE_ERROR"
	CodeUpdate      Code = "UPDATE_ERROR"
	CodeDelete      Code = "DELETE_ERROR"
	CodeRateLimited Code = "RATE_LIMIT_EXCEEDED"
)

// OpError is the coded failure returned by every repository and service
// operation. It wraps the underlying cause, if any.
type OpError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OpError) Unwrap() error { return e.Err }

// NewOpError builds a coded error wrapping cause (which may be nil).
func NewOpError(code Code, message string, cause error) *OpError {
	return &OpError{Code: code, Message: message, Err: cause}
}

// AsOpError unwraps err into an *OpError if one is in its chain.
func AsOpError(err error) (*OpError, bool) {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
