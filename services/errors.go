package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an expected failure that maps directly onto an HTTP response
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationError reports bad input, optionally per field
func ValidationError(message string, fields map[string]string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: message, Fields: fields}
}

// BadRequest is a 400 with a specific code
func BadRequest(code, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: message}
}

// Unauthorized is a 401
func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

// Forbidden is a 403
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: message}
}

// NotFound is a 404
func NotFound(code, message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: code, Message: message}
}

// Conflict is a 409, used for illegal transitions and duplicate keys
func Conflict(code, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message}
}

// Gone is a 410
func Gone(code, message string) *Error {
	return &Error{Status: http.StatusGone, Code: code, Message: message}
}

// TooManyRequests is a 429
func TooManyRequests(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: "TOO_MANY_REQUESTS", Message: message}
}

// Upstream is a 502 for failed calls to external providers
func Upstream(message string) *Error {
	return &Error{Status: http.StatusBadGateway, Code: "UPSTREAM_ERROR", Message: message}
}

// AsError extracts a *Error from err's chain
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// HasCode reports whether err is a *Error with the given code
func HasCode(err error, code string) bool {
	svcErr, ok := AsError(err)
	return ok && svcErr.Code == code
}
