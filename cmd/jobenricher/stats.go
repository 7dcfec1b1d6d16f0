package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue counts",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	st, err := openStore(cfg, setupLogger(debug)).Stats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-12s %d\n", "Total", st.Total)
	fmt.Printf("%-12s %d\n", "Pending", st.New)
	fmt.Printf("%-12s %d (%d with model data, %d minimal)\n", "Enriched", st.Enriched, st.WithData, st.Enriched-st.WithData)
	return nil
}
