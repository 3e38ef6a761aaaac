package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soltixdb/fuzzcast/internal/router"
	"github.com/soltixdb/fuzzcast/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve model training, inspection and forecasting over HTTP.
Training requests run in the background; running jobs are cancelled and
recorded as failed on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	logger := rt.logger
	logger.Info("fuzzcast service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if rt.cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(rt.cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	app := router.New(logger, router.Services{
		Training: rt.training,
		Forecast: services.NewForecastService(logger, rt.store, rt.training, rt.metrics),
		Metrics:  rt.metrics,
	}, *rt.cfg)

	serveErr := make(chan error, 1)
	go func() {
		addr := rt.cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		serveErr <- app.Listen(addr)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	var listenErr error
	select {
	case <-quit:
	case listenErr = <-serveErr:
		logger.Error("Server stopped unexpectedly", "error", listenErr)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	rt.close(shutdownCtx)

	logger.Info("Server exited")
	if listenErr != nil && !errors.Is(listenErr, context.Canceled) {
		return listenErr
	}
	return nil
}
