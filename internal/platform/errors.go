package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrUnknownPlatform is returned by the registry for a name with no
	// registered adapter. A configuration/data error: retrying cannot fix it.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrInvalidCredentials is returned when a credentials document is
	// missing required fields. Never silently defaulted.
	ErrInvalidCredentials = errors.New("invalid platform credentials")
	// ErrNotAuthenticated is returned by Publish on a session client that
	// has no valid session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnreachable wraps transport-level failures reaching a platform.
	ErrUnreachable = errors.New("platform unreachable")
	// ErrTimeout wraps a platform request that ran out of time.
	ErrTimeout = errors.New("platform request timeout")
)

// APIError is a non-2xx response from a platform API. Transient by
// default; the dispatcher may requeue the job.
type APIError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s api error: status %d: %s", e.Platform, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s api error: status %d", e.Platform, e.StatusCode)
}

// AuthError is a credential rejection (401/403, or a failed session
// login). Distinct from APIError so an operator can tell a bad token from
// a platform outage.
type AuthError struct {
	Platform   string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected credentials: status %d", e.Platform, e.StatusCode)
}

// AuthStatus reports whether an HTTP status indicates a credential
// problem rather than a generic API failure.
func AuthStatus(code int) bool {
	return code == 401 || code == 403
}

// ClassifyTransportError maps errors from http.Client.Do to the sentinel
// taxonomy so callers can tell a dead network from a bad request.
func ClassifyTransportError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", name, ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %v", name, ErrTimeout, err)
	}

	return fmt.Errorf("%s: %w: %v", name, ErrUnreachable, err)
}

// Transient reports whether a delivery error is worth retrying on a later
// poll: generic API failures and transport faults are; credential and
// configuration errors are not.
func Transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return true
	}
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrTimeout)
}
