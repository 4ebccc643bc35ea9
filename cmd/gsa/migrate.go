package main

import (
	"fmt"
	"log/slog"

	"github.com/open-gsa/gsa/internal/config"
	"github.com/open-gsa/gsa/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:         "migrate",
	Short:       "Run database migrations",
	Args:        cobra.NoArgs,
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return withExitCode(exitCodeUsage, err)
		}
		down, _ := cmd.Flags().GetInt("down")
		status, _ := cmd.Flags().GetBool("status")

		switch {
		case status:
			version, dirty, err := store.Version(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		case down > 0:
			if err := store.MigrateDown(cfg.DatabaseURL, down); err != nil {
				return err
			}
			slog.Info("migrations rolled back", "steps", down)
			return nil
		}

		changed, err := store.Migrate(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if !changed {
			slog.Info("no changes to apply")
			return nil
		}
		slog.Info("migrations applied successfully")
		return nil
	},
}

func init() {
	migrateCmd.Flags().Int("down", 0, "roll back this many migrations instead of applying")
	migrateCmd.Flags().Bool("status", false, "print the applied schema version and exit")
}
