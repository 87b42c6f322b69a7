package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/api"
	"github.com/LeoVertizBP/content-scan-engine/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scan engine HTTP service",
		Long: `Starts the HTTP API together with the run monitor. The monitor polls
active runs against the scraping provider on a fixed interval and drains
finished tasks through the ingestion pipeline.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.Logger.Warn("service shutdown cleanup failed", zap.Error(cerr))
		}
	}()

	server := api.NewServer(a.Orchestrator, a.Jobs, a.Crawler, a.Sitemap, cfg, a.Logger.Named("api"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		if err := a.Monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error("monitor stopped", zap.Error(err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("http shutdown failed", zap.Error(err))
	}
	<-monitorDone
	a.Logger.Info("shutdown complete")
	return nil
}
