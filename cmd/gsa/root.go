package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:               "gsa",
	Short:             "Greenbone Security Assistant console.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrapCommand,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, watchCmd)
}
