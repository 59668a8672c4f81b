// transport_http.go implements the default Transport over net/http.

package posthog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPTransportOption configures the HTTP transport.
type HTTPTransportOption func(*httpTransportConfig)

type httpTransportConfig struct {
	client    *http.Client
	userAgent string
}

// WithHTTPClient sets the http.Client used for requests. Per-request
// timeouts are still applied from Request.Timeout.
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(c *httpTransportConfig) {
		if client != nil {
			c.client = client
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) HTTPTransportOption {
	return func(c *httpTransportConfig) {
		c.userAgent = userAgent
	}
}

// httpTransport posts payloads to the ingestion endpoint.
type httpTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates the transport NewClient uses by default.
func NewHTTPTransport(opts ...HTTPTransportOption) Transport {
	cfg := &httpTransportConfig{
		client:    &http.Client{},
		userAgent: LibName + "/" + Version,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &httpTransport{
		client:    cfg.client,
		userAgent: cfg.userAgent,
	}
}

// Send posts req.Body to req.URL. A response status outside 2xx counts as
// non-delivery; the response body is otherwise ignored.
func (t *httpTransport) Send(ctx context.Context, req *Request) error {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection is reused

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

// Close releases idle connections.
func (t *httpTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
