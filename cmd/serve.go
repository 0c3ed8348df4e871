package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-insights/internal/api"
	"github.com/naka-gawa/repo-insights/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves reports and query resolution over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger := newLogger(cmd)

		cfg, err := loadConfig(cmd)
		if err != nil {
			fail("%v", err)
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.ListenAddr
		}

		// One memo for the lifetime of the server, so repeated requests for
		// an unchanged snapshot skip recomputation.
		aggregator, err := newAggregator(cfg, logger, false, metrics.NewMemo())
		if err != nil {
			fail("%v", err)
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewRouter(aggregator, newDispatcher(cfg, logger), logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server shutdown failed", "error", err)
			}
		}()

		logger.Info("Server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from LISTEN_ADDR)")
}
