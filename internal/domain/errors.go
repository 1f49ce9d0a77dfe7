package domain

import (
	"context"
	"errors"
)

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrStoreUnavailable      = errors.New("session store unavailable")
	ErrAuthenticationFailure = errors.New("authentication failure")
	ErrSessionExpired        = errors.New("session expired")
	ErrRateLimited           = errors.New("rate limited by platform")
	ErrTransient             = errors.New("transient platform error")
	ErrAuthRejected          = errors.New("session rejected by platform")
	ErrSecretNotFound        = errors.New("secret not found")
	ErrSecretReadOnly        = errors.New("secret store is read-only")
	ErrInvalidConfig         = errors.New("invalid configuration")
)

// ErrorKind returns a stable tag for err, suitable for logs and records.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrAuthenticationFailure):
		return "authentication_failure"
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrAuthRejected):
		return "session_expired"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "transient"
	}
}

// Retryable reports whether the caller may retry after backing off.
func Retryable(err error) bool {
	switch ErrorKind(err) {
	case "rate_limited", "transient", "session_expired":
		return true
	default:
		return false
	}
}
