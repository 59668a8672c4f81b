// Package commands implements the posthog-capture command line.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/strongdm/posthog-capture/pkg/posthog"
	"github.com/strongdm/posthog-capture/pkg/posthog/transports/stderr"
)

var (
	// Global flags
	endpoint string
	apiKey   string
	timeout  time.Duration
	dryRun   bool
	verbose  bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit string) error {
	return newRootCommand(version, commit).ExecuteContext(ctx)
}

func newRootCommand(version, commit string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "posthog-capture",
		Short: "Send events and exceptions to PostHog",
		Long: `posthog-capture sends a single event or exception to a PostHog capture
endpoint, for use from shell scripts, cron jobs, and CI pipelines.

Configuration is read from POSTHOG_* environment variables:
  POSTHOG_API_KEY           project API key (required)
  POSTHOG_ENDPOINT          capture URL
  POSTHOG_REQUEST_TIMEOUT   per-request timeout, e.g. 10s
  POSTHOG_DEFAULT_DISTINCT_ID  distinct id when --distinct-id is not given

Flags override the environment.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "capture endpoint URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "project API key")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print the payload summary to stderr instead of sending it")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "include props in --dry-run output")

	rootCmd.AddCommand(newEventCommand())
	rootCmd.AddCommand(newExceptionCommand())

	return rootCmd
}

// newClient builds a client from the environment and the global flags.
// Panic capturing is always off: the CLI reports its own errors.
func newClient(cmd *cobra.Command) (*posthog.Client, error) {
	options, err := posthog.LoadClientOptions()
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		options.Endpoint = endpoint
	}
	if apiKey != "" {
		options.APIKey = apiKey
	}
	if timeout > 0 {
		options.RequestTimeout = timeout
	}
	options.DisablePanicCapturing = true

	opts := []posthog.ClientOption{posthog.WithLogger(log.Logger)}
	if dryRun {
		stderrOpts := []stderr.StderrTransportOption{stderr.WithWriter(cmd.ErrOrStderr())}
		if verbose {
			stderrOpts = append(stderrOpts, stderr.WithVerbose())
		}
		opts = append(opts, posthog.WithTransport(stderr.NewStderrTransport(stderrOpts...)))
	}
	return posthog.NewClient(options, opts...)
}

// insertProps parses key=value pairs into target. Values that are valid JSON
// (numbers, booleans, objects, quoted strings) are sent as the literal given,
// so large or high-precision numbers are not rounded; anything else is sent
// as a string.
func insertProps(target posthog.PropertyInserter, pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --prop %q: want key=value", pair)
		}

		var v any = value
		if gjson.Valid(value) {
			v = json.RawMessage(value)
		}
		if err := target.InsertProp(key, v); err != nil {
			return fmt.Errorf("prop %q: %w", key, err)
		}
	}
	return nil
}

// resolveDistinctID prefers the flag, then the client's default.
func resolveDistinctID(client *posthog.Client, flag string) string {
	if flag != "" {
		return flag
	}
	return client.Options().DefaultDistinctID
}
