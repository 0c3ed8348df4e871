package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-insights/internal/domain"
	"github.com/naka-gawa/repo-insights/internal/render"
	"github.com/naka-gawa/repo-insights/internal/usecase"
)

var queryCmd = &cobra.Command{
	Use:   "query <owner/repo | repository URL> <question...>",
	Short: "Answers a plain-English question about a repository",
	Long: `Maps a question such as "show commit frequency" onto one of the derived
metrics and prints it. Anything else is passed to the configured language model.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)
		offline, _ := cmd.Flags().GetBool("offline")

		repo, err := domain.ParseRepoRef(args[0])
		if err != nil {
			fail("%v", err)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail("%v", err)
		}

		res := newDispatcher(cfg, logger).Resolve(ctx, strings.Join(args[1:], " "))
		if !res.IsMetric() {
			fmt.Println(res.Text)
			return
		}

		aggregator, err := newAggregator(cfg, logger, !offline, nil)
		if err != nil {
			fail("%v", err)
		}
		report, err := aggregator.Analyze(ctx, repo, usecase.Options{Offline: offline})
		if err != nil {
			fail("Failed to analyze repository: %v", err)
		}
		if err := render.Metric(os.Stdout, report, res.Metric); err != nil {
			fail("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Bool("offline", false, "Load records from the data directory instead of GitHub")
}
