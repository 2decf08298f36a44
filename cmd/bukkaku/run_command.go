package main

import (
	"github.com/spf13/cobra"

	"github.com/hazuki802/bukkaku/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:         "run",
		Short:       "Run the daemon in the foreground",
		Long:        "Run the verification daemon in the foreground. `bukkaku start` launches this command in the background; invoke it directly for debugging or when supervising the process yourself.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&development, "development", false, "Enable development logging output")
	return cmd
}
