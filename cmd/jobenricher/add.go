package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenricher/internal/model"
)

var (
	addTitle   string
	addCompany string
	addURL     string
	addSource  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue a job for enrichment",
	Long:  "Inserts a pending job. A URL that is already stored is ignored.",
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "job title")
	addCmd.Flags().StringVar(&addCompany, "company", "", "company name")
	addCmd.Flags().StringVar(&addURL, "url", "", "posting URL")
	addCmd.Flags().StringVar(&addSource, "source", "manual", "where the job was found")
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoad(logger)
	sqlStore := openStore(cfg, logger)

	ctx := context.Background()
	if err := sqlStore.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	id, inserted, err := sqlStore.AddJob(ctx, model.Job{
		Title:   addTitle,
		Company: addCompany,
		URL:     addURL,
		Source:  addSource,
	})
	if err != nil {
		logger.Error("failed to add job", "error", err)
		os.Exit(1)
	}
	if !inserted {
		logger.Info("job already queued", "url", addURL)
		return nil
	}
	logger.Info("job queued", "id", id, "url", addURL)
	return nil
}
