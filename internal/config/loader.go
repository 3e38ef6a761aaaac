package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")             // Current directory
		v.AddConfigPath("./configs")     // Project configs directory
		v.AddConfigPath("./config")      // Alternative config directory
		v.AddConfigPath("/etc/fuzzcast") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides, e.g. FUZZCAST_TUNING_SEED
	v.SetEnvPrefix("FUZZCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_concurrent_jobs", d.Server.MaxConcurrentJobs)

	// Data defaults
	v.SetDefault("data.source", d.Data.Source)
	v.SetDefault("data.target", d.Data.Target)
	v.SetDefault("data.exogenous", d.Data.Exogenous)
	v.SetDefault("data.synthetic_rows", d.Data.SyntheticRows)
	v.SetDefault("data.synthetic_seed", d.Data.SyntheticSeed)
	v.SetDefault("data.lags", d.Data.Lags)
	v.SetDefault("data.train_fraction", d.Data.TrainFraction)

	// Model defaults
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.mfs_per_input", d.Model.MFsPerInput)
	v.SetDefault("model.shape", d.Model.Shape)
	v.SetDefault("model.and_method", d.Model.AndMethod)
	v.SetDefault("model.max_grid_rules", d.Model.MaxGridRules)

	// Tuning defaults
	v.SetDefault("tuning.run_tune_fis", d.Tuning.RunTuneFIS)
	v.SetDefault("tuning.method", d.Tuning.Method)
	v.SetDefault("tuning.num_max_rules", d.Tuning.NumMaxRules)
	v.SetDefault("tuning.population_size", d.Tuning.PopulationSize)
	v.SetDefault("tuning.crossover_fraction", d.Tuning.CrossoverFraction)
	v.SetDefault("tuning.max_generations", d.Tuning.MaxGenerations)
	v.SetDefault("tuning.stall_generations", d.Tuning.StallGenerations)
	v.SetDefault("tuning.function_tolerance", d.Tuning.FunctionTolerance)
	v.SetDefault("tuning.mutation_scale", d.Tuning.MutationScale)
	v.SetDefault("tuning.tournament_size", d.Tuning.TournamentSize)
	v.SetDefault("tuning.use_parallel", d.Tuning.UseParallel)
	v.SetDefault("tuning.seed", d.Tuning.Seed)
	v.SetDefault("tuning.fitness.metric", d.Tuning.Fitness.Metric)
	v.SetDefault("tuning.fitness.undefined_row_error", d.Tuning.Fitness.UndefinedRowError)
	v.SetDefault("tuning.fitness.max_fitness", d.Tuning.Fitness.MaxFitness)

	// Storage defaults
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.compression", d.Storage.Compression)
	v.SetDefault("storage.redis_prefix", d.Storage.RedisPrefix)

	// Queue defaults
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.subject", d.Queue.Subject)

	// Metrics defaults
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	// Validation defaults
	v.SetDefault("validation.baselines", d.Validation.Baselines)
	v.SetDefault("validation.anomaly_detector", d.Validation.AnomalyDetector)
	v.SetDefault("validation.anomaly_threshold", d.Validation.AnomalyThreshold)
	v.SetDefault("validation.anomaly_min_points", d.Validation.AnomalyMinPoints)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			HTTPPort:          5555,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxConcurrentJobs: 2,
		},
		Data: DataConfig{
			Source:        "synthetic",
			Target:        "temperature",
			Exogenous:     []string{"humidity", "wind_speed"},
			SyntheticRows: 500,
			SyntheticSeed: 1,
			Lags:          3,
			TrainFraction: 0.8,
		},
		Model: ModelConfig{
			Name:         "fuzzcast",
			MFsPerInput:  3,
			Shape:        "trimf",
			AndMethod:    "min",
			MaxGridRules: 4096,
		},
		Tuning: TuningConfig{
			RunTuneFIS:        true,
			Method:            "ga",
			NumMaxRules:       20,
			PopulationSize:    50,
			CrossoverFraction: 0.8,
			MaxGenerations:    50,
			StallGenerations:  20,
			FunctionTolerance: 1e-6,
			MutationScale:     0.5,
			TournamentSize:    2,
			UseParallel:       true,
			Fitness: FitnessConfig{
				Metric:     "rmse",
				MaxFitness: 1e6,
			},
		},
		Storage: StorageConfig{
			Type:        "file",
			DataDir:     "./data",
			Compression: "snappy",
			RedisPrefix: "fuzzcast",
		},
		Queue: QueueConfig{
			Type:    "nats",
			URL:     "nats://localhost:4222",
			Subject: "fuzzcast.training",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "fuzzcast",
		},
		Validation: ValidationConfig{
			Baselines:        []string{"linear", "persistence"},
			AnomalyDetector:  "zscore",
			AnomalyThreshold: 3,
			AnomalyMinPoints: 10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
