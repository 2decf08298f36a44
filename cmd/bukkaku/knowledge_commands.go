package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazuki802/bukkaku/internal/caseaccess"
	"github.com/hazuki802/bukkaku/internal/store"
)

func newKnowledgeCommand(ctx *commandContext) *cobra.Command {
	knowledgeCmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Inspect and edit company-to-platform routing knowledge",
	}

	knowledgeCmd.AddCommand(newKnowledgeListCommand(ctx))
	knowledgeCmd.AddCommand(newKnowledgeAddCommand(ctx))
	knowledgeCmd.AddCommand(newKnowledgeRemoveCommand(ctx))

	return knowledgeCmd
}

func newKnowledgeListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned routing entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				entries, err := access.ListKnowledge(callCtx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"entries": entries})
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No routing knowledge yet")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Company", "Phone", "Platform", "Uses", "Manual", "Last used"},
					buildKnowledgeRows(entries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newKnowledgeAddCommand(ctx *commandContext) *cobra.Command {
	var phone string
	var platform string
	var manual bool

	cmd := &cobra.Command{
		Use:   "add <company>",
		Short: "Teach a company-to-platform routing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, ok := store.ParsePlatform(platform)
			if !ok && strings.TrimSpace(platform) != "" {
				return fmt.Errorf("unknown platform %q (expected itandi, ielove, or es_square)", platform)
			}
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				entry, err := access.SaveKnowledge(callCtx, args[0], phone, target, manual)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved routing %d: %s", entry.ID, entry.Company)
				if entry.Platform != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " -> %s", entry.Platform)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "Company phone number")
	cmd.Flags().StringVar(&platform, "platform", "", "Platform the company answers on (itandi, ielove, es_square)")
	cmd.Flags().BoolVar(&manual, "manual", false, "Flag the company as phone-verification only")
	return cmd
}

func newKnowledgeRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a routing entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				removed, err := access.DeleteKnowledge(callCtx, id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Entry %d not found\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Entry %d removed\n", id)
				return nil
			})
		},
	}
}
