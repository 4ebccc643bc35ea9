package main

import (
	"errors"
	"log/slog"

	"github.com/open-gsa/gsa/internal/config"
	"github.com/open-gsa/gsa/internal/store"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:         "seed",
	Short:       "Load demo entities and capabilities from a YAML fixtures file",
	Args:        cobra.NoArgs,
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return withExitCode(exitCodeUsage, errors.New("--file is required"))
		}
		cfg, err := config.Load()
		if err != nil {
			return withExitCode(exitCodeUsage, err)
		}

		fx, err := store.LoadFixturesFile(path)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := store.New(pool, slog.Default()).Seed(ctx, fx)
		if err != nil {
			return err
		}
		slog.Info("fixtures loaded", "file", path, "entities", n, "capabilities", len(fx.Capabilities))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "fixtures file")
}
