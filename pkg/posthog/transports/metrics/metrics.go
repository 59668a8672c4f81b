// Package metrics provides a transport decorator that records Prometheus
// metrics for every delivery attempt.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strongdm/posthog-capture/pkg/posthog"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// MetricsTransportOption configures the metrics transport.
type MetricsTransportOption func(*metricsTransportConfig)

type metricsTransportConfig struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64
}

// WithRegisterer sets where the collectors are registered
// (default: prometheus.DefaultRegisterer).
func WithRegisterer(registerer prometheus.Registerer) MetricsTransportOption {
	return func(c *metricsTransportConfig) {
		c.registerer = registerer
	}
}

// WithNamespace sets the metric namespace (default: "posthog_capture").
func WithNamespace(namespace string) MetricsTransportOption {
	return func(c *metricsTransportConfig) {
		c.namespace = namespace
	}
}

// WithBuckets sets the send duration histogram buckets
// (default: prometheus.DefBuckets).
func WithBuckets(buckets []float64) MetricsTransportOption {
	return func(c *metricsTransportConfig) {
		c.buckets = buckets
	}
}

// metricsTransport wraps another transport and observes each Send.
type metricsTransport struct {
	next posthog.Transport

	requests     *prometheus.CounterVec
	events       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	payloadBytes prometheus.Histogram
}

// NewMetricsTransport wraps next with Prometheus instrumentation. It fails if
// the collectors cannot be registered, for example when the same namespace
// is already registered on the registerer.
func NewMetricsTransport(next posthog.Transport, opts ...MetricsTransportOption) (posthog.Transport, error) {
	cfg := &metricsTransportConfig{
		registerer: prometheus.DefaultRegisterer,
		namespace:  "posthog_capture",
		buckets:    prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &metricsTransport{
		next: next,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "requests_total",
				Help:      "Total number of capture requests by outcome",
			},
			[]string{"outcome"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "events_total",
				Help:      "Total number of events carried by capture requests by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of capture requests in seconds",
				Buckets:   cfg.buckets,
			},
			[]string{"outcome"},
		),
		payloadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.namespace,
				Name:      "payload_bytes",
				Help:      "Size of encoded capture payloads in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
			},
		),
	}

	for _, c := range []prometheus.Collector{t.requests, t.events, t.duration, t.payloadBytes} {
		if err := cfg.registerer.Register(c); err != nil {
			return nil, fmt.Errorf("register capture metrics: %w", err)
		}
	}
	return t, nil
}

// Send forwards req and records its outcome.
func (t *metricsTransport) Send(ctx context.Context, req *posthog.Request) error {
	start := time.Now()
	err := t.next.Send(ctx, req)

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	t.requests.WithLabelValues(outcome).Inc()
	t.events.WithLabelValues(outcome).Add(float64(req.EventCount()))
	t.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	t.payloadBytes.Observe(float64(len(req.Body)))
	return err
}

// Close closes the wrapped transport.
func (t *metricsTransport) Close() error {
	return t.next.Close()
}
