package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenricher/internal/filter"
)

var (
	listAll   bool
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print enriched jobs",
	Long:  "Prints the most recently enriched jobs. Jobs that fail the configured filters are hidden unless --all is set.",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "include jobs that fail the configured filters")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum number of jobs to read (0 for no limit)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	sqlStore := openStore(cfg, setupLogger(debug))

	jobs, err := sqlStore.ListEnriched(context.Background(), listLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list jobs: %v\n", err)
		os.Exit(1)
	}
	total := len(jobs)
	if !listAll {
		jobs = filter.Apply(filter.NewEnrichedJobFilter(criteriaFrom(cfg)), jobs)
	}

	fmt.Printf("%-30s %-20s %-25s %s\n", "Title", "Company", "Location", "Flags")
	fmt.Println(strings.Repeat("─", 90))
	for _, j := range jobs {
		fmt.Printf("%-30s %-20s %-25s %s\n", truncate(j.Title, 30), truncate(j.Company, 20), truncate(j.Location, 25), jobFlags(j.RequiresCitizenship, j.NoVisaSponsorship))
	}
	fmt.Printf("\nShowing %d of %d enriched jobs\n", len(jobs), total)
	return nil
}

func jobFlags(citizenship, noSponsorship bool) string {
	var f []string
	if citizenship {
		f = append(f, "citizenship")
	}
	if noSponsorship {
		f = append(f, "no-sponsorship")
	}
	return strings.Join(f, ",")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
