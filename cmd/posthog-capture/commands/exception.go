package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/strongdm/posthog-capture/pkg/posthog"
)

func newExceptionCommand() *cobra.Command {
	var (
		distinctID string
		level      string
		props      []string
	)

	cmd := &cobra.Command{
		Use:   "exception MESSAGE",
		Short: "Capture an exception",
		Example: `  # Report a failed backup
  posthog-capture exception "backup failed: disk full" --distinct-id backup-job --level error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			exc := posthog.NewException(errors.New(args[0]), resolveDistinctID(client, distinctID))
			exc.SetExceptionLevel(level)
			if err := insertProps(exc, props); err != nil {
				return err
			}

			if err := client.CaptureException(cmd.Context(), exc); err != nil {
				return fmt.Errorf("capture exception: %w", err)
			}

			log.Info().
				Str("distinct_id", exc.DistinctID()).
				Str("level", exc.ExceptionLevel()).
				Msg("Exception captured")
			return nil
		},
	}

	cmd.Flags().StringVar(&distinctID, "distinct-id", "", "distinct id of the actor")
	cmd.Flags().StringVar(&level, "level", posthog.DefaultExceptionLevel, "exception level (debug, info, warning, error, fatal)")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "exception property as key=value (repeatable)")

	return cmd
}
