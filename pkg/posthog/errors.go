// errors.go defines the error kinds returned by capture operations.

package posthog

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection reports a transport failure: network error, timeout,
	// or a payload the endpoint did not accept.
	ErrConnection = errors.New("posthog: connection error")

	// ErrSerialization reports a value or envelope that could not be
	// encoded as JSON.
	ErrSerialization = errors.New("posthog: serialization error")
)

// connectionError wraps a transport failure so that errors.Is matches both
// ErrConnection and the cause.
func connectionError(err error) error {
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

// serializationError wraps an encoding failure so that errors.Is matches both
// ErrSerialization and the cause.
func serializationError(err error) error {
	return fmt.Errorf("%w: %w", ErrSerialization, err)
}
