package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazuki802/bukkaku/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		Long:  "Read the current daemon log file. The daemon keeps bukkaku.log in the log directory pointing at the active run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			path := logs.CurrentPath(cfg.Paths.LogDir)

			initialLimit := lines
			if initialLimit < 0 {
				initialLimit = 0
			}
			offset := int64(-1)
			if initialLimit == 0 {
				offset = 0
			}

			callCtx := cmd.Context()
			limit := initialLimit
			printed := false
			for {
				result, err := logs.Tail(callCtx, path, logs.TailOptions{
					Offset: offset,
					Limit:  limit,
					Follow: follow,
					Wait:   time.Second,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range result.Lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
					printed = true
				}
				offset = result.Offset
				limit = 0
				if !follow {
					if !printed {
						fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
					}
					return nil
				}
				select {
				case <-callCtx.Done():
					return nil
				default:
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}
