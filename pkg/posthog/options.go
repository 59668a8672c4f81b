// options.go holds client configuration and the functional options for NewClient.

package posthog

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultEndpoint is the PostHog US cloud capture endpoint.
	DefaultEndpoint = "https://us.i.posthog.com/capture/"

	// DefaultRequestTimeout bounds each send attempt.
	DefaultRequestTimeout = 30 * time.Second
)

// ClientOptions is the configuration snapshot of a Client. It is copied by
// NewClient and never changes afterwards.
type ClientOptions struct {
	// Endpoint is the capture URL payloads are posted to.
	Endpoint string `env:"ENDPOINT" validate:"required,url"`

	// APIKey is the project API key. Required.
	APIKey string `env:"API_KEY" validate:"required"`

	// RequestTimeout bounds each send attempt (default: 30s).
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`

	// DefaultDistinctID attributes panic-derived exceptions when the panic
	// context carries no distinct id (default: a random UUID).
	DefaultDistinctID string `env:"DEFAULT_DISTINCT_ID" validate:"required"`

	// DisablePanicCapturing skips installing the panic hook. Capturing is
	// on by default.
	DisablePanicCapturing bool `env:"DISABLE_PANIC_CAPTURING"`

	// OnPanicException, if set, is called with every panic-derived
	// exception before it is sent, so callers can add or override fields.
	OnPanicException func(*Exception) `env:"-"`
}

// LoadClientOptions reads options from POSTHOG_* environment variables.
// Unset values are filled in by NewClient.
func LoadClientOptions() (ClientOptions, error) {
	var opts ClientOptions
	if err := env.ParseWithOptions(&opts, env.Options{Prefix: "POSTHOG_"}); err != nil {
		return ClientOptions{}, fmt.Errorf("parse env: %w", err)
	}
	return opts, nil
}

// withDefaults fills unset fields with their defaults.
func (o ClientOptions) withDefaults() ClientOptions {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.DefaultDistinctID == "" {
		o.DefaultDistinctID = uuid.NewString()
	}
	return o
}

var optionsValidator = validator.New()

// validate checks the options after defaults are applied.
func (o ClientOptions) validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		return fmt.Errorf("invalid client options: %w", err)
	}
	return nil
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	transport    Transport
	logger       zerolog.Logger
	scrubber     *Scrubber
	runtimeProps bool
}

// WithTransport sets the transport payloads are handed to (default: the
// HTTP transport from NewHTTPTransport).
func WithTransport(transport Transport) ClientOption {
	return func(c *clientConfig) {
		c.transport = transport
	}
}

// WithLogger sets the logger for debug output and swallowed panic-path
// failures (default: disabled).
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithScrubber redacts sensitive data from props and exception messages
// using a custom configuration.
func WithScrubber(cfg ScrubberConfig) ClientOption {
	return func(c *clientConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() ClientOption {
	return func(c *clientConfig) {
		c.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// WithRuntimeProps attaches process state (heap size, goroutine count,
// uptime, hostname) to panic-derived exceptions.
func WithRuntimeProps() ClientOption {
	return func(c *clientConfig) {
		c.runtimeProps = true
	}
}
