package shared

import (
	"errors"
	"net/http"
)

// Error is a structured failure a service returns to the HTTP layer. Code is
// the machine-readable identifier exposed on the wire, Status the HTTP
// status it maps to.
type Error struct {
	Code   string
	Status int
}

func (e *Error) Error() string {
	return e.Code
}

// NotFound builds a 404 error with the given code, e.g. "student_not_found".
func NotFound(code string) *Error {
	return &Error{Code: code, Status: http.StatusNotFound}
}

// Conflict builds a 409 error for state-machine or uniqueness violations.
func Conflict(code string) *Error {
	return &Error{Code: code, Status: http.StatusConflict}
}

// Unauthorized builds a 401 error with the given code.
func Unauthorized(code string) *Error {
	return &Error{Code: code, Status: http.StatusUnauthorized}
}

var (
	// ErrUnauthorized is returned when no valid principal accompanies a call.
	ErrUnauthorized = Unauthorized("unauthorized")
	// ErrForbidden is returned on role or tenant-ownership failures. Both
	// cases share one code on purpose.
	ErrForbidden = &Error{Code: "forbidden", Status: http.StatusForbidden}
	// ErrInvalidToken covers revoked and unknown long tokens alike so callers
	// cannot probe which tokens ever existed.
	ErrInvalidToken = Unauthorized("invalid_token")
	// ErrTokenExpired is returned for a structurally valid but expired token.
	ErrTokenExpired = Unauthorized("token_expired")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = Unauthorized("invalid_credentials")
	// ErrRateLimited is returned when a per-action quota is exhausted.
	ErrRateLimited = &Error{Code: "rate_limit_exceeded", Status: http.StatusTooManyRequests}
)

// AsError unwraps err into *Error when possible.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
