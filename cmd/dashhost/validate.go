package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/luahook"
)

func newValidateCmd(rootFlags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Check a plugin manifest and its hooks without starting plugins",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootFlags.manifest
			if len(args) == 1 {
				path = args[0]
			}

			ctx, _ := logging.EnsureCorrelationID(cmd.Context())
			logger, err := newLogger(cmd, rootFlags, config.Settings{}, "validate")
			if err != nil {
				return newCommandError("validate", "configuring logging", err, "Use --log-level debug|info|warn|error and --log-format text|json.")
			}

			loader := config.NewManifestLoader(logger, luahook.NewCompiler(luahook.WithLogger(logger)))
			if err := loader.Validate(ctx, path); err != nil {
				return newCommandError("validate", "validating "+path, err, manifestSuggestion(err))
			}
			descriptors, err := loader.Descriptors(ctx, path)
			if err != nil {
				return newCommandError("validate", "compiling hooks in "+path, err, manifestSuggestion(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (%d plugins)\n", path, len(descriptors))
			return nil
		},
	}

	return cmd
}
