package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/metrics"
	chiTransport "github.com/kailas-cloud/appsearch/internal/transport/chi"
	"github.com/kailas-cloud/appsearch/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve exposes /search, the clickthrough redirect, /health and /metrics.
The listening port comes from http.port unless --port is given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.HTTP.Port = port
		}
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "override http.port")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	logger.Info("Starting appsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("spellcheck_backend", cfg.Spellcheck.Backend),
	)

	metrics.RegisterHTTPMetrics()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := chiTransport.NewServer(a.search, a.spellcheck, a.clicks, a.health, chiTransport.Config{
		DefaultEngine:    cfg.Search.DefaultEngine,
		QueryParam:       cfg.Spellcheck.QueryParam,
		PaginationGetVar: cfg.Search.PaginationGetVar,
		ClickthroughPath: cfg.Search.ClickthroughBaseURL,
		SnippetFields:    cfg.Search.SnippetFields,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
