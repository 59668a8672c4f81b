// Package stderr provides a transport that logs payloads to stderr in
// human-readable form instead of delivering them.
// Useful for development and debugging.
package stderr

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/strongdm/posthog-capture/pkg/posthog"
)

// StderrTransportOption configures the stderr transport.
type StderrTransportOption func(*stderrTransportConfig)

type stderrTransportConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose includes each event's props in the output.
func WithVerbose() StderrTransportOption {
	return func(c *stderrTransportConfig) {
		c.verbose = true
	}
}

// WithWriter redirects output (default: os.Stderr).
func WithWriter(w io.Writer) StderrTransportOption {
	return func(c *stderrTransportConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// stderrTransport summarizes payloads through a console logger.
type stderrTransport struct {
	verbose bool
	logger  zerolog.Logger
}

// NewStderrTransport creates a transport that writes to stderr.
func NewStderrTransport(opts ...StderrTransportOption) posthog.Transport {
	cfg := &stderrTransportConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	writer := zerolog.ConsoleWriter{Out: cfg.out, NoColor: true, TimeFormat: time.RFC3339}
	return &stderrTransport{
		verbose: cfg.verbose,
		logger:  zerolog.New(writer).With().Timestamp().Str("component", "posthog").Logger(),
	}
}

// Send logs one line per event in req.Body. It never fails: a payload that
// is not JSON is reported as such.
func (t *stderrTransport) Send(ctx context.Context, req *posthog.Request) error {
	if !gjson.ValidBytes(req.Body) {
		t.logger.Warn().Int("bytes", len(req.Body)).Msg("unreadable payload")
		return nil
	}

	root := gjson.ParseBytes(req.Body)
	if !root.IsArray() {
		t.logEvent(root)
		return nil
	}
	root.ForEach(func(_, event gjson.Result) bool {
		t.logEvent(event)
		return true
	})
	return nil
}

func (t *stderrTransport) logEvent(event gjson.Result) {
	name := event.Get("event").String()
	props := event.Get("properties")

	var entry *zerolog.Event
	if name == posthog.ExceptionEventName {
		entry = t.exceptionEntry(props.Get("$exception_level").String())
		entry = entry.
			Str("type", props.Get("$exception_list.0.type").String()).
			Str("value", props.Get("$exception_list.0.value").String())
		if fp := props.Get("props.$exception_fingerprint"); fp.Exists() {
			entry = entry.Str("fingerprint", fp.String())
		}
	} else {
		entry = t.logger.Info()
	}

	entry = entry.Str("distinct_id", props.Get("distinct_id").String())
	if ts := event.Get("timestamp"); ts.Type == gjson.String {
		entry = entry.Str("at", ts.String())
	}
	if p := props.Get("props"); t.verbose && p.IsObject() {
		entry = entry.RawJSON("props", []byte(p.Raw))
	}
	entry.Msg(name)
}

// exceptionEntry maps an exception level onto a log level.
func (t *stderrTransport) exceptionEntry(level string) *zerolog.Event {
	switch level {
	case "debug":
		return t.logger.Debug()
	case "info", "log":
		return t.logger.Info()
	case "warning":
		return t.logger.Warn()
	default:
		return t.logger.Error()
	}
}

// Close is a no-op for stderr transport.
func (t *stderrTransport) Close() error {
	return nil
}
