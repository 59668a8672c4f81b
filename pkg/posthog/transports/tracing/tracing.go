// Package tracing provides a transport decorator that wraps every delivery
// attempt in an OpenTelemetry span.
package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strongdm/posthog-capture/pkg/posthog"
)

// SpanName is the name of the span recorded for each Send.
const SpanName = "posthog.capture"

const instrumentationName = "github.com/strongdm/posthog-capture/pkg/posthog/transports/tracing"

// TracingTransportOption configures the tracing transport.
type TracingTransportOption func(*tracingTransportConfig)

type tracingTransportConfig struct {
	provider trace.TracerProvider
}

// WithTracerProvider sets the provider spans are created from
// (default: the global provider from otel.GetTracerProvider).
func WithTracerProvider(provider trace.TracerProvider) TracingTransportOption {
	return func(c *tracingTransportConfig) {
		if provider != nil {
			c.provider = provider
		}
	}
}

// tracingTransport wraps another transport in client spans.
type tracingTransport struct {
	next   posthog.Transport
	tracer trace.Tracer
}

// NewTracingTransport wraps next so every Send runs inside a span. The span
// context is passed on to next, so spans it creates become children.
func NewTracingTransport(next posthog.Transport, opts ...TracingTransportOption) posthog.Transport {
	cfg := &tracingTransportConfig{provider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &tracingTransport{
		next:   next,
		tracer: cfg.provider.Tracer(instrumentationName, trace.WithInstrumentationVersion(posthog.Version)),
	}
}

// Send forwards req inside a span and records any error on it.
func (t *tracingTransport) Send(ctx context.Context, req *posthog.Request) error {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	ctx, span := t.tracer.Start(ctx, SpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", req.URL),
			attribute.Int("posthog.payload.bytes", len(req.Body)),
			attribute.Int("posthog.events", req.EventCount()),
		),
	)
	defer span.End()

	if err := t.next.Send(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Close closes the wrapped transport.
func (t *tracingTransport) Close() error {
	return t.next.Close()
}
