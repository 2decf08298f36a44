package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazuki802/bukkaku/internal/api"
	"github.com/hazuki802/bukkaku/internal/caseaccess"
	"github.com/hazuki802/bukkaku/internal/client"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Submit and inspect vacancy checks",
	}

	checkCmd.AddCommand(newCheckSubmitCommand(ctx))
	checkCmd.AddCommand(newCheckShowCommand(ctx))
	checkCmd.AddCommand(newCheckListCommand(ctx))
	checkCmd.AddCommand(newCheckPlatformCommand(ctx))

	return checkCmd
}

func newCheckSubmitCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a portal listing URL for vacancy verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(callCtx context.Context, api *client.Client) error {
				check, err := api.SubmitCheck(callCtx, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, check)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Check %d queued (%s)\n", check.ID, check.Portal)
				fmt.Fprintf(out, "Follow it with `bukkaku check show %d`\n", check.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCheckShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one check in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				check, err := access.Describe(callCtx, id)
				if err != nil {
					return err
				}
				if check == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Check %d not found\n", id)
					return nil
				}
				if jsonOutput {
					return writeJSON(cmd, check)
				}
				printCheckDetail(cmd, check)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCheckListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				checks, err := access.ListChecks(callCtx, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"checks": checks})
				}
				if len(checks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No checks yet")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Property", "Portal", "Status", "Result", "Platform", "Created"},
					buildCheckListRows(checks),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of checks to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCheckPlatformCommand(ctx *commandContext) *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "platform <id> <itandi|ielove|es_square>",
		Short: "Resume an awaiting-choice check with a platform",
		Long: "Resume a check that is waiting for a human platform choice. The choice\n" +
			"is remembered for the management company unless --forget is given.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			platform := strings.TrimSpace(args[1])
			return ctx.withClient(cmd, func(callCtx context.Context, api *client.Client) error {
				check, err := api.ChoosePlatform(callCtx, id, platform, !forget)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Check %d resumed on %s\n", check.ID, check.Platform)
				if !forget && check.CompanyName != "" {
					fmt.Fprintf(out, "Remembered %s for %s\n", check.Platform, check.CompanyName)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&forget, "forget", false, "Do not remember the choice for this company")
	return cmd
}

func printCheckDetail(cmd *cobra.Command, check *api.Check) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Check %d\n", check.ID)

	write := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(out, "  %-10s %s\n", label+":", value)
	}
	company := check.CompanyName
	if strings.TrimSpace(company) == "" {
		company = check.Company
	}
	write("URL", check.SourceURL)
	write("Portal", check.Portal)
	write("Status", formatStatusLabel(check.Status))
	write("Result", check.Result)
	write("Property", check.PropertyName)
	write("Company", company)
	write("Phone", check.CompanyPhone)
	write("Platform", formatStatusLabel(check.Platform))
	write("Routing", formatStatusLabel(check.Routing))
	write("Error", check.ErrorMessage)
	write("Created", formatDisplayTime(check.CreatedAt))
	write("Updated", formatDisplayTime(check.UpdatedAt))
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
