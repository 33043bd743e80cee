package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"buestanflow/internal/cli"
)

func newRequestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "request [period]",
		Short: "Queue a summary request for the summary worker",
		Long: `Publishes a summary request for the given month (default: current month)
to AMQP_REQUEST_QUEUE. The worker derives the summary and notifies the
alerts at or above ALERT_NOTIFY_MIN_SEVERITY.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 1 {
				raw = args[0]
			}
			period, err := a.periodFlag(raw)
			if err != nil {
				return err
			}
			if a.cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}

			client, err := cli.ConnectAMQP(a.logger, a.cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.PublishSummaryRequest(cmd.Context(), period); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued summary request for %s\n", period)
			return nil
		},
	}
}
