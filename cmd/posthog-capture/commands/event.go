package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/strongdm/posthog-capture/pkg/posthog"
)

func newEventCommand() *cobra.Command {
	var (
		distinctID string
		props      []string
		timestamp  string
	)

	cmd := &cobra.Command{
		Use:   "event NAME",
		Short: "Capture a custom event",
		Example: `  # Record a deploy
  posthog-capture event deploy --distinct-id ci --prop service=api --prop replicas=3

  # Preview the payload without sending it
  posthog-capture event signup --distinct-id user-42 --prop plan=pro --dry-run -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			event := posthog.NewEvent(args[0], resolveDistinctID(client, distinctID))
			if err := insertProps(event, props); err != nil {
				return err
			}
			if timestamp != "" {
				ts, err := time.Parse(time.RFC3339, timestamp)
				if err != nil {
					return fmt.Errorf("invalid --timestamp: %w", err)
				}
				event.SetTimestamp(ts)
			}

			if err := client.Capture(cmd.Context(), event); err != nil {
				return fmt.Errorf("capture %q: %w", event.Name(), err)
			}

			log.Info().
				Str("event", event.Name()).
				Str("distinct_id", event.DistinctID()).
				Msg("Event captured")
			return nil
		},
	}

	cmd.Flags().StringVar(&distinctID, "distinct-id", "", "distinct id of the actor")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "event property as key=value (repeatable)")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "event time in RFC 3339 format")

	return cmd
}
