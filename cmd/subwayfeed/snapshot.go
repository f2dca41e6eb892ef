package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"subwayfeed/internal/repository"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [stop-id]",
	Short: "Print the cached snapshot, or one stop's arrivals, as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  snapshot,
}

var fresh bool

func init() {
	snapshotCmd.Flags().BoolVar(&fresh, "fresh", false, "Run a collection cycle before reading")
}

func snapshot(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	ctx := cmd.Context()
	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if fresh {
		if res := a.collector.RunOnce(ctx); res.Err != nil {
			return fmt.Errorf("cycle %s: %w", res.ID, res.Err)
		}
	}

	var v any
	if len(args) == 1 {
		v, err = a.repo.StationArrivals(ctx, args[0])
	} else {
		v, err = a.repo.Snapshot(ctx)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("no cached data (is the collector running against this cache? try --fresh)")
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
