package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-insights/internal/domain"
	"github.com/naka-gawa/repo-insights/internal/render"
	"github.com/naka-gawa/repo-insights/internal/usecase"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <owner/repo | repository URL>",
	Short: "Derives activity metrics for a repository",
	Long: `Fetches the records of a repository (or loads them from the local CSV
store with --offline) and prints every derived metric.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		format, _ := cmd.Flags().GetString("format")
		save, _ := cmd.Flags().GetBool("save")
		offline, _ := cmd.Flags().GetBool("offline")

		repo, err := domain.ParseRepoRef(args[0])
		if err != nil {
			fail("%v", err)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail("%v", err)
		}
		aggregator, err := newAggregator(cfg, logger, !offline, nil)
		if err != nil {
			fail("%v", err)
		}

		report, err := aggregator.Analyze(ctx, repo, usecase.Options{Save: save, Offline: offline})
		if err != nil {
			fail("Failed to analyze repository: %v", err)
		}
		if err := render.Report(os.Stdout, report, format); err != nil {
			fail("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")
	analyzeCmd.Flags().Bool("save", false, "Save the fetched records as CSV in the data directory")
	analyzeCmd.Flags().Bool("offline", false, "Load records from the data directory instead of GitHub")
}
