// Package multi provides a transport that fans out to multiple transports.
// All transports receive every request; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/posthog-capture/pkg/posthog"
)

// multiTransport fans out to multiple transports.
type multiTransport struct {
	transports []posthog.Transport
}

// NewMultiTransport creates a transport that sends to multiple transports.
// Errors are aggregated via errors.Join, so a client using it reports
// ErrConnection if any destination fails.
func NewMultiTransport(transports ...posthog.Transport) posthog.Transport {
	return &multiTransport{
		transports: transports,
	}
}

// Send hands req to all transports, collecting any errors.
// All transports are called even if some return errors.
func (t *multiTransport) Send(ctx context.Context, req *posthog.Request) error {
	var errs []error
	for _, transport := range t.transports {
		if err := transport.Send(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all transports, collecting any errors.
func (t *multiTransport) Close() error {
	var errs []error
	for _, transport := range t.transports {
		if err := transport.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
