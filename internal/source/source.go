// Package source holds the gateway-neutral types shared by the notification
// source client and its callers.
package source

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingToken is returned when no API token has been configured.
var ErrMissingToken = errors.New("env var GH_TOKEN is missing")

// AuthError indicates that the remote API rejected the configured token.
// It is returned by source clients when a 401 or 403 response is received.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d): %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// UpdateStatus is the result of a conditional probe against the
// notification feed.
type UpdateStatus struct {
	// NeedUpdate is false only when the server answered "not modified".
	NeedUpdate bool

	// PollInterval is the minimum delay the server asks clients to wait
	// between polls. Zero when the server did not say.
	PollInterval time.Duration

	RateRemaining int
	RateUsed      int
}
