// Package noop provides a transport that discards all payloads.
// Useful for testing and for disabling delivery without removing capture calls.
package noop

import (
	"context"

	"github.com/strongdm/posthog-capture/pkg/posthog"
)

// noopTransport discards all payloads.
type noopTransport struct{}

// NewNoopTransport creates a transport that discards all payloads.
// All methods return nil and perform no operations.
func NewNoopTransport() posthog.Transport {
	return &noopTransport{}
}

// Send discards the request and returns nil.
func (t *noopTransport) Send(ctx context.Context, req *posthog.Request) error {
	return nil
}

// Close is a no-op and returns nil.
func (t *noopTransport) Close() error {
	return nil
}
