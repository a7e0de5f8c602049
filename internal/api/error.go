// ABOUTME: Typed error for backend API failures
// ABOUTME: Carries the HTTP status (0 for transport failure) and a message

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the typed failure returned for every non-2xx response and
// every transport failure. Status is 0 when the request never produced
// an HTTP response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend unreachable: %s", e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsConflict reports whether err is a 409 from the backend, the status
// it uses for duplicate names and illegal state transitions.
func IsConflict(err error) bool {
	return IsStatus(err, http.StatusConflict)
}
