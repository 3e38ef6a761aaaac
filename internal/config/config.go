package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	Data    DataConfig    `mapstructure:"data"`
	Model   ModelConfig   `mapstructure:"model"`
	Tuning  TuningConfig  `mapstructure:"tuning"`
	Storage StorageConfig `mapstructure:"storage"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	Validation ValidationConfig `mapstructure:"validation"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort        int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxConcurrentJobs bounds training jobs started over HTTP
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs"`
}

// DataConfig selects and shapes the training series
type DataConfig struct {
	Source        string   `mapstructure:"source"` // synthetic or csv
	Path          string   `mapstructure:"path"`   // CSV path when source is csv
	Target        string   `mapstructure:"target"`
	Exogenous     []string `mapstructure:"exogenous"` // exactly two column names
	SyntheticRows int      `mapstructure:"synthetic_rows"`
	SyntheticSeed int64    `mapstructure:"synthetic_seed"`
	Lags          int      `mapstructure:"lags"`
	TrainFraction float64  `mapstructure:"train_fraction"`
}

// ModelConfig describes the initial grid-partitioned system
type ModelConfig struct {
	Name         string `mapstructure:"name"`
	MFsPerInput  int    `mapstructure:"mfs_per_input"`
	Shape        string `mapstructure:"shape"`      // trimf, trapmf, gaussmf
	AndMethod    string `mapstructure:"and_method"` // min, prod
	MaxGridRules int    `mapstructure:"max_grid_rules"`
}

// TuningConfig holds the stage controller options shared by every stage
type TuningConfig struct {
	RunTuneFIS        bool          `mapstructure:"run_tune_fis"`
	Method            string        `mapstructure:"method"`
	NumMaxRules       int           `mapstructure:"num_max_rules"`
	PopulationSize    int           `mapstructure:"population_size"`
	CrossoverFraction float64       `mapstructure:"crossover_fraction"`
	EliteCount        int           `mapstructure:"elite_count"`
	MaxGenerations    int           `mapstructure:"max_generations"`
	StallGenerations  int           `mapstructure:"stall_generations"`
	FunctionTolerance float64       `mapstructure:"function_tolerance"`
	MutationScale     float64       `mapstructure:"mutation_scale"`
	TournamentSize    int           `mapstructure:"tournament_size"`
	UseParallel       bool          `mapstructure:"use_parallel"`
	Workers           int           `mapstructure:"workers"` // 0 means GOMAXPROCS
	Seed              int64         `mapstructure:"seed"`
	Fitness           FitnessConfig `mapstructure:"fitness"`
}

// FitnessConfig controls how prediction errors become a fitness value
type FitnessConfig struct {
	Metric            string  `mapstructure:"metric"` // rmse, mse, mae
	UndefinedRowError float64 `mapstructure:"undefined_row_error"`
	MaxFitness        float64 `mapstructure:"max_fitness"`
}

// StorageConfig represents model snapshot storage configuration
type StorageConfig struct {
	Type    string `mapstructure:"type"`     // memory, file, sqlite, redis
	DataDir string `mapstructure:"data_dir"` // file store root and default sqlite location
	Path    string `mapstructure:"path"`     // sqlite database file
	// Compression applied to encoded snapshots: snappy (default) or none
	Compression string `mapstructure:"compression"`

	RedisURL    string `mapstructure:"redis_url"`
	RedisDB     int    `mapstructure:"redis_db"`
	RedisPrefix string `mapstructure:"redis_prefix"` // key prefix (default: "fuzzcast")
}

// QueueConfig represents message queue configuration for training events
type QueueConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Subject  string `mapstructure:"subject"`  // Subject stage events are published to
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "fuzzcast")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "fuzzcast-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// ValidationConfig controls how a trained model is scored on held-out rows
type ValidationConfig struct {
	// Baselines are extra forecasters scored next to the tuned system
	Baselines []string `mapstructure:"baselines"` // linear, persistence
	// AnomalyDetector flags outlying residuals: zscore, iqr, or empty to skip
	AnomalyDetector  string  `mapstructure:"anomaly_detector"`
	AnomalyThreshold float64 `mapstructure:"anomaly_threshold"`
	AnomalyMinPoints int     `mapstructure:"anomaly_min_points"`
}

// MetricsConfig controls the Prometheus collectors
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, discard or a file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Kitchen, DateTime or a Go layout
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data config: %w", err)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validation config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max_concurrent_jobs must be at least 1")
	}

	return nil
}

// Validate validates the data section
func (c *DataConfig) Validate() error {
	switch c.Source {
	case "synthetic":
		if c.SyntheticRows <= c.Lags+1 {
			return fmt.Errorf("data.synthetic_rows must exceed lags+1")
		}
	case "csv":
		if c.Path == "" {
			return fmt.Errorf("data.path is required for csv source")
		}
	default:
		return fmt.Errorf("data.source must be 'synthetic' or 'csv'")
	}

	if len(c.Exogenous) != 2 {
		return fmt.Errorf("data.exogenous must name exactly two columns")
	}

	if c.Lags < 1 {
		return fmt.Errorf("data.lags must be at least 1")
	}

	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return fmt.Errorf("data.train_fraction must be in (0,1)")
	}

	return nil
}

// Validate validates the model section
func (c *ModelConfig) Validate() error {
	if c.MFsPerInput < 1 {
		return fmt.Errorf("model.mfs_per_input must be at least 1")
	}

	switch c.Shape {
	case "trimf", "trapmf", "gaussmf":
	default:
		return fmt.Errorf("model.shape must be one of: trimf, trapmf, gaussmf")
	}

	if c.AndMethod != "min" && c.AndMethod != "prod" {
		return fmt.Errorf("model.and_method must be 'min' or 'prod'")
	}

	return nil
}

// Validate validates the tuning section
func (c *TuningConfig) Validate() error {
	if c.Method != "ga" {
		return fmt.Errorf("tuning.method must be 'ga'")
	}

	if c.NumMaxRules < 1 {
		return fmt.Errorf("tuning.num_max_rules must be at least 1")
	}

	if c.PopulationSize < 2 {
		return fmt.Errorf("tuning.population_size must be at least 2")
	}

	if c.CrossoverFraction < 0 || c.CrossoverFraction > 1 {
		return fmt.Errorf("tuning.crossover_fraction must be in [0,1]")
	}

	if c.MaxGenerations < 1 {
		return fmt.Errorf("tuning.max_generations must be at least 1")
	}

	if c.Workers < 0 {
		return fmt.Errorf("tuning.workers cannot be negative")
	}

	switch c.Fitness.Metric {
	case "rmse", "mse", "mae":
	default:
		return fmt.Errorf("tuning.fitness.metric must be one of: rmse, mse, mae")
	}

	if c.Fitness.UndefinedRowError < 0 {
		return fmt.Errorf("tuning.fitness.undefined_row_error cannot be negative")
	}

	return nil
}

// Validate validates storage configuration
func (c *StorageConfig) Validate() error {
	switch c.Type {
	case "memory":
	case "file", "sqlite":
		if c.DataDir == "" && c.Path == "" {
			return fmt.Errorf("data_dir is required")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required for redis storage")
		}
	default:
		return fmt.Errorf("storage.type must be one of: memory, file, sqlite, redis")
	}

	if c.Compression != "" && c.Compression != "snappy" && c.Compression != "none" {
		return fmt.Errorf("storage.compression must be 'snappy' or 'none'")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Type {
	case "", "nats", "redis", "memory":
	case "kafka":
		if len(c.KafkaBrokers) == 0 && c.URL == "" {
			return fmt.Errorf("queue.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, memory")
	}

	if c.Subject == "" {
		return fmt.Errorf("queue.subject is required")
	}

	return nil
}

// Validate validates the validation section
func (c *ValidationConfig) Validate() error {
	for _, b := range c.Baselines {
		if b != "linear" && b != "persistence" {
			return fmt.Errorf("validation.baselines: unknown forecaster %q", b)
		}
	}

	switch c.AnomalyDetector {
	case "", "zscore", "iqr":
	default:
		return fmt.Errorf("validation.anomaly_detector must be one of: zscore, iqr")
	}

	if c.AnomalyThreshold < 0 {
		return fmt.Errorf("validation.anomaly_threshold cannot be negative")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
