package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soltixdb/fuzzcast/internal/config"
	"github.com/soltixdb/fuzzcast/internal/handlers"
	"github.com/soltixdb/fuzzcast/internal/logging"
	"github.com/soltixdb/fuzzcast/internal/metrics"
	"github.com/soltixdb/fuzzcast/internal/queue"
	"github.com/soltixdb/fuzzcast/internal/services"
	"github.com/soltixdb/fuzzcast/internal/storage"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

var configPath string

// rootCmd is the base command for the fuzzcast CLI
var rootCmd = &cobra.Command{
	Use:   "fuzzcast",
	Short: "Type-2 fuzzy forecaster tuned by a genetic algorithm",
	Long: `fuzzcast learns an interval type-2 Sugeno inference system for
one-step-ahead forecasting. Training runs three GA stages (rule learning,
upper-parameter tuning, advanced tuning) and ends with a rule report.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fuzzcast %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.AddCommand(versionCmd)
	handlers.Version = Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deps holds what every command builds from the configuration
type deps struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    storage.Store
	events   *queue.EventPublisher
	metrics  *metrics.Registry
	training *services.TrainingService
}

func setup(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetGlobal(logger)

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	logger.Info("Model store ready", "type", cfg.Storage.Type)

	events, err := queue.NewEventPublisherFromConfig(cfg.Queue)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to connect to queue: %w", err)
	}
	if events.Enabled() {
		logger.Info("Stage events enabled", "type", cfg.Queue.Type, "subject", events.Subject())
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry(cfg.Metrics.Namespace)
	}

	return &deps{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		events:   events,
		metrics:  reg,
		training: services.NewTrainingService(logger, *cfg, store, events, reg),
	}, nil
}

func (r *deps) close(ctx context.Context) {
	if err := r.training.Shutdown(ctx); err != nil {
		r.logger.Warn("Training jobs did not stop in time", "error", err)
	}
	if err := r.events.Close(); err != nil {
		r.logger.Warn("Failed to close queue", "error", err)
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("Failed to close store", "error", err)
	}
}
