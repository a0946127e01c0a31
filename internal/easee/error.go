package easee

import (
	"errors"
	"net/http"

	"github.com/futurehomeno/edge-vwarmup/internal/rest"
)

var (
	// ErrNotFound is returned when the account has no site, circuit or charger to work with.
	ErrNotFound = errors.New("not found")
	// ErrSessionClosed is returned by any session call made after Close.
	ErrSessionClosed = errors.New("session is closed")
	// ErrBackoff is returned when logins are held back after repeated failures.
	ErrBackoff = errors.New("too many failed logins: backoff is in use")
)

// HTTPError carries the status code and the body of an unexpected response.
type HTTPError = rest.HTTPError

// IsUnauthorized checks if the error was caused by a rejected token or credentials.
func IsUnauthorized(err error) bool {
	return rest.HasStatus(err, http.StatusUnauthorized)
}
