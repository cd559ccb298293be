package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd(rootFlags *rootFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise plugin lifecycle states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootApp(cmd, rootFlags, "stats", bootOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			stats := app.host.Registry().Stats()
			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(stats)
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "Total\t%d\n", stats.Total)
			fmt.Fprintf(writer, "Installed\t%d\n", stats.Installed)
			fmt.Fprintf(writer, "Enabled\t%d\n", stats.Enabled)
			fmt.Fprintf(writer, "Disabled\t%d\n", stats.Disabled)
			fmt.Fprintf(writer, "Uninstalled\t%d\n", stats.Uninstalled)
			return writer.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
