package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/factoryos/console-sync/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve page sessions over a local HTTP API with gRPC health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return serve(cmd.Context(), a)
	},
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger
	logger.Info("starting factoryos-console",
		slog.String("http", cfg.Server.HTTPAddress),
		slog.String("grpc", cfg.Server.GRPCAddress),
		slog.String("backend", cfg.Backend.BaseURL),
	)

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	grpcServer, err := api.NewHealthServer(cfg.Server, a.service.Health())
	if err != nil {
		return err
	}
	grpcDone := make(chan struct{})
	go func() {
		defer close(grpcDone)
		logger.Info("grpc health listening", slog.String("address", grpcServer.Address()))
		if serveErr := grpcServer.Run(ctx); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddress,
		Handler:           api.NewRouter(api.NewHandlers(a.service, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http api listening", slog.String("address", cfg.Server.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http api exited", slog.Any("error", err))
			stop()
		}
	}()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http api shutdown", slog.Any("error", err))
	}
	<-grpcDone

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("factoryos-console stopped")
	return nil
}
