package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-calendar-relay/internal/logging"
	"github.com/jrsteele09/go-calendar-relay/relay"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "summary [today|tomorrow]",
		Short:     "Push the events of today or tomorrow",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(relay.SummaryToday), string(relay.SummaryTomorrow)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := relay.ParseSummaryKind(args[0])
			if err != nil {
				return err
			}
			ctx, runID := logging.WithRun(cmd.Context(), "summary")
			if err := a.relay.Summary(ctx, kind); err != nil {
				if !isAwaitingUser(err) {
					a.relay.ReportFailure(ctx, err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s sent (run %s)\n", kind.Title(), runID)
			return nil
		},
	}
}
