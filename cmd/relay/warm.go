package main

import "github.com/spf13/cobra"

// newWarmCmd starts the process and does nothing else. Schedulers call it
// to keep a container warm.
func newWarmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Start up and exit without doing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
}
