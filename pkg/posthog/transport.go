// transport.go defines the Transport interface for payload destinations.

package posthog

import (
	"context"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Request is one encoded capture payload ready to be delivered.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Transport delivers capture payloads.
// Implementations must be safe for concurrent use.
type Transport interface {
	// Send makes a single delivery attempt. Any returned error is reported
	// to the caller as ErrConnection. Send must not retry.
	Send(ctx context.Context, req *Request) error

	// Close releases resources held by the transport.
	Close() error
}

// EventCount reports how many events the request body carries: the length
// of a batch array, 1 for a single event object, 0 for anything else.
func (r *Request) EventCount() int {
	root := gjson.ParseBytes(r.Body)
	switch {
	case root.IsArray():
		return int(root.Get("#").Int())
	case root.IsObject():
		return 1
	default:
		return 0
	}
}
