// Package apierr defines the error kinds the API surfaces to clients.
// Every caller-induced failure carries an HTTP status code and a message
// that is safe to return in the response body. Internal faults are plain
// errors and map to 500 without leaking detail.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error with an HTTP status code attached.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an Error with an explicit status code.
func New(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// BadRequest reports a malformed or invalid request (400).
func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, format, args...)
}

// Unauthorized reports a missing or unknown credential (401).
func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, format, args...)
}

// Forbidden reports a membership, ownership, capacity or lifecycle
// violation (403).
func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, format, args...)
}

// NotFound reports a missing room, user or API path (404).
func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, format, args...)
}

// TooManyRequests reports a cooldown violation (429).
func TooManyRequests(format string, args ...any) *Error {
	return New(http.StatusTooManyRequests, format, args...)
}

// StatusOf returns the HTTP status for err: the attached code for an
// *Error, 500 for anything else.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return http.StatusInternalServerError
}
