// client.go provides the Client that encodes events and hands them to a Transport.

package posthog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

var (
	errNilEvent        = errors.New("nil event")
	errNilException    = errors.New("nil exception")
	errEmptyEventName  = errors.New("empty event name")
	errEmptyDistinctID = errors.New("empty distinct id")
)

// Client captures events and exceptions. It is safe for concurrent use and
// never changes after NewClient returns.
type Client struct {
	options      ClientOptions
	transport    Transport
	scrubber     *Scrubber
	logger       zerolog.Logger
	runtimeProps bool
}

// NewClient creates a Client from options, filling in defaults for unset
// fields. Unless options.DisablePanicCapturing is set, it also installs a
// panic hook that reports recovered panics through the new client; the hook
// stays installed for the life of the process.
func NewClient(options ClientOptions, opts ...ClientOption) (*Client, error) {
	options = options.withDefaults()
	if err := options.validate(); err != nil {
		return nil, err
	}

	cfg := &clientConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.transport == nil {
		cfg.transport = NewHTTPTransport()
	}

	c := &Client{
		options:      options,
		transport:    cfg.transport,
		scrubber:     cfg.scrubber,
		logger:       cfg.logger.With().Str("component", "posthog").Logger(),
		runtimeProps: cfg.runtimeProps,
	}

	if !options.DisablePanicCapturing {
		InstallPanicHook(c.capturePanic)
	}
	return c, nil
}

// Options returns the client's configuration.
func (c *Client) Options() ClientOptions {
	return c.options
}

// Capture sends a single event. It makes one delivery attempt and returns an
// error wrapping ErrSerialization or ErrConnection on failure. An event with
// an empty name or distinct id is rejected as a serialization error without
// being sent.
func (c *Client) Capture(ctx context.Context, event *Event) error {
	if err := checkEvent(event); err != nil {
		return serializationError(err)
	}
	payload, err := json.Marshal(c.envelope(event))
	if err != nil {
		return serializationError(err)
	}
	return c.send(ctx, payload, 1)
}

// CaptureBatch sends events as one JSON array in a single request, so either
// the whole batch is handed to the transport or none of it is. An empty batch
// sends nothing.
func (c *Client) CaptureBatch(ctx context.Context, events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := make([]innerEvent, 0, len(events))
	for i, event := range events {
		if err := checkEvent(event); err != nil {
			return serializationError(fmt.Errorf("event %d: %w", i, err))
		}
		batch = append(batch, c.envelope(event))
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return serializationError(err)
	}
	return c.send(ctx, payload, len(events))
}

// CaptureException sends exc as an "$exception" event.
func (c *Client) CaptureException(ctx context.Context, exc *Exception) error {
	if exc == nil {
		return serializationError(errNilException)
	}
	return c.Capture(ctx, exc.ToEvent())
}

// CaptureExceptionBatch sends exceptions as one batch of "$exception" events.
func (c *Client) CaptureExceptionBatch(ctx context.Context, exceptions []*Exception) error {
	events := make([]*Event, 0, len(exceptions))
	for i, exc := range exceptions {
		if exc == nil {
			return serializationError(fmt.Errorf("exception %d: %w", i, errNilException))
		}
		events = append(events, exc.ToEvent())
	}
	return c.CaptureBatch(ctx, events)
}

// Close releases the transport. The panic hook, if installed, keeps
// referencing the client; captures after Close fail with ErrConnection if the
// transport rejects them.
func (c *Client) Close() error {
	return c.transport.Close()
}

// checkEvent rejects events the capture endpoint cannot attribute.
func checkEvent(event *Event) error {
	switch {
	case event == nil:
		return errNilEvent
	case event.name == "":
		return errEmptyEventName
	case event.properties.DistinctID == "":
		return errEmptyDistinctID
	}
	return nil
}

// envelope applies scrubbing and wraps event for the wire.
func (c *Client) envelope(event *Event) innerEvent {
	if c.scrubber != nil {
		scrubbed := *event
		scrubbed.properties = c.scrubber.scrubProperties(event.properties)
		event = &scrubbed
	}
	return newInnerEvent(event, c.options.APIKey)
}

// send hands payload to the transport as a JSON POST.
func (c *Client) send(ctx context.Context, payload []byte, count int) error {
	req := &Request{
		Method:  http.MethodPost,
		URL:     c.options.Endpoint,
		Header:  http.Header{"Content-Type": []string{"application/json"}},
		Body:    payload,
		Timeout: c.options.RequestTimeout,
	}
	if err := c.transport.Send(ctx, req); err != nil {
		c.logger.Debug().Err(err).Int("events", count).Msg("capture failed")
		return connectionError(err)
	}
	c.logger.Debug().Int("events", count).Int("bytes", len(payload)).Msg("captured")
	return nil
}

// capturePanic is the client's panic hook. Errors are logged and dropped:
// the hook runs while a goroutine is unwinding and must not fail.
func (c *Client) capturePanic(ctx context.Context, info *PanicInfo) {
	distinctID := c.options.DefaultDistinctID
	if id, ok := DistinctIDFromContext(ctx); ok {
		distinctID = id
	}

	exc := NewException(&PanicError{Message: info.Message}, distinctID)
	_ = exc.InsertProp(PropExceptionFingerprint, Fingerprint(exc, info.Stack))
	if c.runtimeProps {
		_ = CaptureRuntimeState(processStart).insertInto(exc)
	}

	if c.options.OnPanicException != nil {
		c.runOnPanicException(exc)
	}

	// The request context may already be canceled by the time a panic is
	// recovered; keep its values but not its cancellation.
	if err := c.CaptureException(context.WithoutCancel(ctx), exc); err != nil {
		c.logger.Debug().Err(err).Msg("panic capture failed")
	}
}

func (c *Client) runOnPanicException(exc *Exception) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn().Str("panic", panicMessage(r)).Msg("OnPanicException callback panicked")
		}
	}()
	c.options.OnPanicException(exc)
}
