package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or migrate the jobs table",
	Long:  "Creates the jobs table if missing and adds any enrichment columns the configured schema needs.",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoad(logger)

	if err := openStore(cfg, logger).EnsureSchema(context.Background()); err != nil {
		logger.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}
	logger.Info("schema ready", "db", cfg.Store.Path, "schema", cfg.Schema)
	return nil
}
