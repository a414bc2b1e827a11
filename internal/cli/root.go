// Package cli implements the factoryos-console command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/factoryos/console-sync/internal/config"
	"github.com/factoryos/console-sync/internal/console"
	"github.com/factoryos/console-sync/internal/metrics"
	"github.com/factoryos/console-sync/internal/repo"
	"github.com/factoryos/console-sync/internal/services"
	"github.com/factoryos/console-sync/internal/utils"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
	backendURL string
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *repo.FactoryClient
	service *services.ConsoleService
	out     io.Writer
}

var rootCmd = &cobra.Command{
	Use:           "factoryos-console",
	Short:         "Keep FactoryOS console pages in sync with the backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (defaults to $FACTORYOS_CONSOLE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Override the FactoryOS backend base URL")

	rootCmd.AddCommand(serveCmd, watchCmd, chatCmd, ingestCmd, statsCmd, resourcesCmd)
}

// newApp loads configuration and builds the backend client and service.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Logging.JSON = logJSON
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	client := repo.NewFactoryClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	service := services.NewConsoleService(logger, client, console.TimingsFromConfig(cfg))
	return &app{cfg: cfg, logger: logger, client: client, service: service, out: cmd.OutOrStdout()}, nil
}

// mount opens a page and returns its typed session. The page is released by a.close.
func mount[T console.Page](ctx context.Context, a *app, kind console.Kind) (T, error) {
	var zero T
	_, page, err := a.service.Mount(ctx, kind)
	if err != nil {
		return zero, err
	}
	typed, ok := page.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected page type for %s", kind)
	}
	return typed, nil
}

func (a *app) close() {
	a.service.Close()
	latencies := a.client.Latencies()
	for _, endpoint := range latencies.Endpoints() {
		a.logger.Debug("backend latency",
			slog.String("endpoint", endpoint),
			slog.Duration("p95", latencies.Percentile(endpoint, 95)),
			slog.Int("samples", latencies.Count(endpoint)),
		)
	}
}
