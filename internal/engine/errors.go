package engine

import "github.com/pkg/errors"

// ConfigError reports an invalid session setup. The session keeps its
// previous state; nothing was started.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config error: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

var (
	// ErrNotInitialized is returned for operations before Initialize
	// (or after Cleanup, which undoes it).
	ErrNotInitialized = errors.New("engine: not initialized")

	// ErrNotConfigured is returned for bet operations without an
	// active session.
	ErrNotConfigured = errors.New("engine: session not configured")

	// ErrFaulted is returned for bet operations on a faulted session.
	// Only a fresh Configure recovers it.
	ErrFaulted = errors.New("engine: session faulted, reconfigure to recover")
)
