package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenricher/internal/model"
	"github.com/amishk599/jobenricher/internal/scheduler"
	"github.com/amishk599/jobenricher/internal/store"
)

var onceDryRun bool

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Enrich one batch of pending jobs and exit",
	Long:  "Processes a single batch. With --dry-run, jobs are fetched and analyzed but nothing is written to the database.",
	RunE:  runOnce,
}

func init() {
	onceCmd.Flags().BoolVar(&onceDryRun, "dry-run", false, "analyze without writing results")
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoad(logger)
	logConfig(cfg, logger)

	sqlStore := openStore(cfg, logger)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var jobStore model.JobStore = sqlStore
	if onceDryRun {
		logger.Info("dry-run mode: results will not be written")
		jobStore = store.NewDryRunStore(sqlStore)
	} else {
		lock := acquireLock(cfg, logger)
		defer lock.Unlock()
		if err := sqlStore.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}
	}

	sched := scheduler.NewScheduler(
		jobStore,
		buildEnricher(cfg, jobStore, logger),
		setupNotifier(cfg, notifierClient(), logger),
		cfg.Loop.BatchSize,
		cfg.Loop.JobDelay,
		cfg.Loop.IdleInterval,
		logger,
	)
	results := sched.RunOnce(ctx)
	logger.Info("batch done", "processed", len(results))
	return nil
}
