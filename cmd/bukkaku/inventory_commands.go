package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazuki802/bukkaku/internal/caseaccess"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/inventory"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/store"
)

func newInventoryCommand(ctx *commandContext) *cobra.Command {
	inventoryCmd := &cobra.Command{
		Use:   "inventory",
		Short: "Manage the trade-exchange inventory snapshot",
	}

	inventoryCmd.AddCommand(newInventoryImportCommand(ctx))
	inventoryCmd.AddCommand(newInventoryStatsCommand(ctx))

	return inventoryCmd
}

func newInventoryImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a crawl result file into the inventory",
		Long: "Import the JSON output of an inventory crawl run. Records present in\n" +
			"the file are upserted; active records the file does not mention are\n" +
			"marked as ended.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			importer := inventory.NewImporter(cfg, st, logging.NewNop())
			result, err := importer.ImportFile(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d records (%d skipped, %d marked ended)\n",
				result.Imported, result.Skipped, result.Ended)
			return nil
		},
	}
}

func newInventoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show inventory snapshot counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				stats, err := access.InventoryStats(callCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total:     %d\n", stats.Total)
				fmt.Fprintf(out, "Active:    %d\n", stats.Active)
				fmt.Fprintf(out, "Ended:     %d\n", stats.Ended)
				if stats.LastSeenAt != "" {
					fmt.Fprintf(out, "Last seen: %s\n", formatDisplayTime(stats.LastSeenAt))
				}
				return nil
			})
		},
	}
}
