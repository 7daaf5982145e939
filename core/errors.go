package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAdapterClosed is returned when operations are attempted on a closed adapter.
	ErrAdapterClosed = errors.New("eventstream: adapter is closed")

	// ErrNotInitialized is returned for publish/subscribe calls while the
	// stream is not in the connected state. Calls fail fast; nothing queues.
	ErrNotInitialized = errors.New("eventstream: not initialized")

	// ErrNoHandler is returned by Unsubscribe when no handler matches.
	ErrNoHandler = errors.New("eventstream: no handler registered")
)

// ConfigurationError reports a provider that cannot be constructed: unknown
// name or missing provider-specific settings. Fatal at startup.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("eventstream: configuration: provider %q: %s", e.Provider, e.Reason)
}

// ConnectionError wraps a transport I/O failure on connect, publish, or
// subscribe. It is always returned to the caller and flips the adapter's
// connectivity flag; there is no automatic reconnect below the retry policy.
type ConnectionError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("eventstream/%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// HandlerError reports a subscriber callback failure after the retry policy
// ran its course. It is contained inside the dispatch loop and never stalls
// delivery of other messages.
type HandlerError struct {
	EventType string
	Attempts  int
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("eventstream: handler for %q failed after %d attempt(s): %v", e.EventType, e.Attempts, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
