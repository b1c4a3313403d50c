// Package backend holds the session state and the HTTP request layer for
// the aatma inference backend.
package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned when a protected operation runs while
	// logged out. The request never reaches the network.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthFailed is returned when the backend rejects the credential.
	// The session is cleared before this is returned.
	ErrAuthFailed = errors.New("authentication failed")
)

// HTTPError is a non-2xx backend status other than an auth rejection.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Body)
}
