package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a single collection cycle and exit",
	Args:  cobra.NoArgs,
	RunE:  collect,
}

func collect(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	a, err := newApp(cmd.Context(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.collector.RunOnce(cmd.Context())
	if res.Err != nil {
		return fmt.Errorf("cycle %s: %w", res.ID, res.Err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "cycle %s: %d/%d feeds ok, %d trains, %d stations in %s\n",
		res.ID, res.FeedsOK, res.FeedsOK+res.FeedsFailed, res.Trains, res.Stations, res.Duration.Round(time.Millisecond))
	return nil
}
