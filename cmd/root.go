// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-insights/internal/config"
	"github.com/naka-gawa/repo-insights/internal/gateway"
	"github.com/naka-gawa/repo-insights/internal/metrics"
	"github.com/naka-gawa/repo-insights/internal/query"
	"github.com/naka-gawa/repo-insights/internal/storage"
	"github.com/naka-gawa/repo-insights/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "repo-insights",
	Short: "A CLI tool to derive activity metrics for a GitHub repository.",
	Long: `repo-insights collects commits, issues, pull requests, reviews and forks
of a single GitHub repository and derives commit cadence, issue resolution
latency, pull request merge latency and review density from them.
Questions in plain English can be mapped onto those metrics.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (default ./repo-insights.yaml)")
}

// newLogger discards everything unless --verbose is set.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// newAggregator injects dependencies. A GitHub token is only needed when
// data is fetched rather than loaded from the store.
func newAggregator(cfg *config.Config, logger *slog.Logger, needFetch bool, memo *metrics.Memo) (*usecase.Aggregator, error) {
	store, err := storage.NewCSVStore(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	var fetcher gateway.Fetcher
	if cfg.GithubToken != "" {
		if fetcher, err = gateway.NewGitHubGateway(cfg.GithubToken, logger); err != nil {
			return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
	} else if needFetch {
		return nil, cfg.RequireToken()
	}
	return usecase.NewAggregator(fetcher, store, memo, logger), nil
}

func newDispatcher(cfg *config.Config, logger *slog.Logger) *query.Dispatcher {
	llm := query.NewLLM(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger,
		query.WithTimeout(cfg.LLMTimeout),
		query.WithLimiter(query.NewLimiter(cfg.LLMRequestsPerMinute)),
	)
	return query.NewDispatcher(llm, logger)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
