package main

import (
	"github.com/spf13/cobra"
)

const defaultManifest = "plugins.yaml"

type rootFlags struct {
	manifest  string
	logLevel  string
	logFormat string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "dashhost",
		Short:         "dashhost runs a plugin-based dashboard from a manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no subcommand is provided, launch the dashboard
			if len(args) == 0 {
				return runDashboard(cmd, flags)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.manifest, "manifest", "m", defaultManifest, "Path to the plugin manifest (YAML or TOML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides the manifest)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (overrides the manifest)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newListCmd(flags))
	cmd.AddCommand(newNavCmd(flags))
	cmd.AddCommand(newStatsCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newDashboardCmd(flags))
	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
