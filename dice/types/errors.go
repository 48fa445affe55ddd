package types

import (
	"fmt"
	"time"
)

// NetworkError wraps a transport failure, including timeouts. Both are
// retryable on the next cycle and never distinguished further.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError wraps a response body that was not parseable as the
// documented shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode error: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// APIError is a provider-reported business error, surfaced verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return "api error: " + e.Message
}

// AuthError means the API key was rejected (HTTP 401/403). Not
// retryable without new credentials.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication failed (status %d)", e.Status) }

// RateLimitError carries the provider's requested pause after an HTTP
// 429. It is a signal only: the client never sleeps, the caller
// decides whether and how long to pause.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
