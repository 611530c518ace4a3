// Package fail defines errors that are safe to show to a client.
//
// A *Failure carries the HTTP status it maps to. Any error that is not a
// *Failure is treated as an internal error and its message is never shown.
package fail

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure is an error that is visible to a client, with an associated HTTP status code
type Failure struct {
	Message string
	Status  int
}

func (f *Failure) Error() string {
	return f.Message
}

// New returns a validation failure (400)
func New(message string) *Failure {
	return &Failure{Message: message, Status: http.StatusBadRequest}
}

// Newf returns a validation failure (400) with a formatted message
func Newf(format string, args ...any) *Failure {
	return New(fmt.Sprintf(format, args...))
}

// Unauthorized is returned when a caller doesn't have access to something (401)
func Unauthorized(message string) *Failure {
	if message == "" {
		message = "Unauthorized"
	}
	return &Failure{Message: message, Status: http.StatusUnauthorized}
}

// NotFound is returned when the requested item does not exist (404)
func NotFound(message string) *Failure {
	if message == "" {
		message = "Not Found"
	}
	return &Failure{Message: message, Status: http.StatusNotFound}
}

// Conflict is returned when a record is being updated, but it's not the most
// current version of the record (409)
func Conflict(message string) *Failure {
	if message == "" {
		message = "You are not updating the most recent version of the record"
	}
	return &Failure{Message: message, Status: http.StatusConflict}
}

// TooManyRequests is returned when a caller is rate limited (429)
func TooManyRequests(message string) *Failure {
	if message == "" {
		message = "Too many requests, please try again later"
	}
	return &Failure{Message: message, Status: http.StatusTooManyRequests}
}

// As extracts a *Failure from err's chain
func As(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Is reports whether err is a Failure with the given status
func Is(err error, status int) bool {
	f, ok := As(err)
	return ok && f.Status == status
}

// Status returns the HTTP status for err: the Failure's status, or 500 for
// anything else
func Status(err error) int {
	if f, ok := As(err); ok {
		return f.Status
	}
	return http.StatusInternalServerError
}
