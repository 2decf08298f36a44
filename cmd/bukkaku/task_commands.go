package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazuki802/bukkaku/internal/caseaccess"
	"github.com/hazuki802/bukkaku/internal/store"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage escalated phone verification tasks",
	}

	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksCountCommand(ctx))
	tasksCmd.AddCommand(newTaskResolveCommand(ctx, "complete", store.TaskCompleted,
		"Mark a phone task as completed",
		"Task %d completed\n"))
	tasksCmd.AddCommand(newTaskResolveCommand(ctx, "cancel", store.TaskCancelled,
		"Cancel a phone task",
		"Task %d cancelled\n"))

	return tasksCmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List phone tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				tasks, err := access.ListTasks(callCtx, status)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"tasks": tasks})
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No phone tasks")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Check", "Company", "Phone", "Reason", "Status", "Created"},
					buildTaskRows(tasks),
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, completed, cancelled)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTasksCountCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show the number of pending phone tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				count, err := access.PendingTaskCount(callCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d pending phone tasks\n", count)
				return nil
			})
		},
	}
}

func newTaskResolveCommand(ctx *commandContext, use string, target store.TaskStatus, short, doneFormat string) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(cmd, func(callCtx context.Context, access caseaccess.Access) error {
				task, err := access.UpdateTask(callCtx, id, target, note)
				if err != nil {
					return err
				}
				if task == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d not found\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), doneFormat, task.ID)
				if target == store.TaskCompleted && task.Company != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s will escalate to a phone call on future checks\n", task.Company)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Free-form note on the call outcome")
	return cmd
}
