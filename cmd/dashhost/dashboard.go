package main

import (
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/dashhost/internal/tui"
)

func newDashboardCmd(rootFlags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Launch the interactive dashboard",
		Long:  `Launch the interactive TUI to install, enable and open the plugins in the manifest.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, rootFlags)
		},
	}

	return cmd
}

func runDashboard(cmd *cobra.Command, rootFlags *rootFlags) error {
	app, err := bootApp(cmd, rootFlags, "dashboard", bootOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	app.logger.Info(app.ctx, "launching dashboard", "plugins", len(app.host.Registry().List()))
	if err := tui.Run(app.ctx, app.host); err != nil {
		app.logger.Error(app.ctx, "dashboard failed", "error", err)
		return newCommandError("run dashboard", "rendering terminal UI", err, "Run from an interactive terminal.")
	}
	return nil
}
