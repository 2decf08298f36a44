package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazuki802/bukkaku/internal/client"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Long:  "Ask the running daemon to send a test message through the configured notification channels.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(callCtx context.Context, cli *client.Client) error {
				resp, err := cli.TestNotify(callCtx)
				if err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				out := cmd.OutOrStdout()
				if msg := strings.TrimSpace(resp.Message); msg != "" {
					fmt.Fprintln(out, msg)
				}
				if resp.Sent {
					fmt.Fprintln(out, "Test notification sent")
				} else {
					fmt.Fprintln(out, "Notification not sent")
				}
				return nil
			})
		},
	}
}
