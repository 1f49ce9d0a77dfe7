package cmd

import (
	"github.com/bnema/pacer/internal/config"
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "pacer",
		Short:         "Paced automation for one social platform account",
		Long:          "pacer keeps one platform session alive across runs, executes API actions under per-type quotas with human-like delays, and reports on account safety.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides log.level")

	app, err := wireApp()
	if err != nil {
		rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return err
		}
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
	} else {
		rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("log-level") {
				app.logLevel.Set(config.ParseLevel(logLevel))
			}
			return nil
		}
		rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
			return app.close()
		}
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newSessionCmd(app),
		newAuthCmd(app),
		newActionCmd(app),
		newReportCmd(app),
	)

	return rootCmd
}
