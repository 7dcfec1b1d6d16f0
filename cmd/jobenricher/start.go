package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenricher/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the enrichment worker",
	Long:  "Start the polling loop; blocks until SIGINT/SIGTERM. A job in flight when the signal arrives is left pending.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoad(logger)
	logConfig(cfg, logger)

	lock := acquireLock(cfg, logger)
	defer lock.Unlock()

	sqlStore := openStore(cfg, logger)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sqlStore.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler(
		sqlStore,
		buildEnricher(cfg, sqlStore, logger),
		setupNotifier(cfg, notifierClient(), logger),
		cfg.Loop.BatchSize,
		cfg.Loop.JobDelay,
		cfg.Loop.IdleInterval,
		logger,
	)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
