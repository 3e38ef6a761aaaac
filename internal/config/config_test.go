package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "unknown data source",
			mutate:  func(c *Config) { c.Data.Source = "parquet" },
			wantErr: true,
		},
		{
			name: "csv source without path",
			mutate: func(c *Config) {
				c.Data.Source = "csv"
				c.Data.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "one exogenous column",
			mutate:  func(c *Config) { c.Data.Exogenous = []string{"humidity"} },
			wantErr: true,
		},
		{
			name:    "train fraction of one",
			mutate:  func(c *Config) { c.Data.TrainFraction = 1 },
			wantErr: true,
		},
		{
			name:    "unknown shape",
			mutate:  func(c *Config) { c.Model.Shape = "bellmf" },
			wantErr: true,
		},
		{
			name:    "unsupported tuning method",
			mutate:  func(c *Config) { c.Tuning.Method = "pso" },
			wantErr: true,
		},
		{
			name:    "population of one",
			mutate:  func(c *Config) { c.Tuning.PopulationSize = 1 },
			wantErr: true,
		},
		{
			name:    "unknown fitness metric",
			mutate:  func(c *Config) { c.Tuning.Fitness.Metric = "r2" },
			wantErr: true,
		},
		{
			name: "redis storage without url",
			mutate: func(c *Config) {
				c.Storage.Type = "redis"
				c.Storage.RedisURL = ""
			},
			wantErr: true,
		},
		{
			name: "disabled queue is not checked",
			mutate: func(c *Config) {
				c.Queue.Enabled = false
				c.Queue.Type = "carrier-pigeon"
			},
			wantErr: false,
		},
		{
			name: "enabled queue with unknown type",
			mutate: func(c *Config) {
				c.Queue.Enabled = true
				c.Queue.Type = "carrier-pigeon"
			},
			wantErr: true,
		},
		{
			name:    "unknown baseline",
			mutate:  func(c *Config) { c.Validation.Baselines = []string{"arima"} },
			wantErr: true,
		},
		{
			name:    "anomaly detection disabled",
			mutate:  func(c *Config) { c.Validation.AnomalyDetector = "" },
			wantErr: false,
		},
		{
			name: "invalid logging level",
			mutate: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 5555 {
		t.Errorf("expected HTTPPort 5555, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Tuning.PopulationSize != 50 || cfg.Tuning.CrossoverFraction != 0.8 {
		t.Errorf("unexpected GA defaults: %+v", cfg.Tuning)
	}

	if !cfg.Tuning.RunTuneFIS {
		t.Error("tuning should be enabled by default")
	}

	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected ShutdownTimeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzcast.yaml")
	content := []byte(`
data:
  lags: 2
  train_fraction: 0.7
tuning:
  population_size: 12
  seed: 9
  fitness:
    metric: mae
storage:
  type: memory
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Data.Lags != 2 || cfg.Data.TrainFraction != 0.7 {
		t.Errorf("data section not loaded: %+v", cfg.Data)
	}
	if cfg.Tuning.PopulationSize != 12 || cfg.Tuning.Seed != 9 {
		t.Errorf("tuning section not loaded: %+v", cfg.Tuning)
	}
	if cfg.Tuning.Fitness.Metric != "mae" {
		t.Errorf("expected mae metric, got %s", cfg.Tuning.Fitness.Metric)
	}
	// untouched keys keep their defaults
	if cfg.Tuning.MaxGenerations != 50 {
		t.Errorf("expected default max_generations 50, got %d", cfg.Tuning.MaxGenerations)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzcast.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  type: memory\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("FUZZCAST_TUNING_SEED", "42")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tuning.Seed != 42 {
		t.Errorf("expected seed 42 from env, got %d", cfg.Tuning.Seed)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzcast.yaml")
	if err := os.WriteFile(path, []byte("tuning:\n  method: pso\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unsupported method")
	}
	if cfg := LoadOrDefault(path); cfg.Tuning.Method != "ga" {
		t.Errorf("LoadOrDefault should fall back to defaults, got %s", cfg.Tuning.Method)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsProduction() {
		t.Error("default config should be production mode")
	}

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"

	if !cfg.IsDevelopment() {
		t.Error("config with debug/console should be development mode")
	}

	if got := cfg.GetDataPath("models"); got != "data/models" {
		t.Errorf("expected 'data/models', got %s", got)
	}

	if got := cfg.Storage.SQLitePath(); got != "data/fuzzcast.db" {
		t.Errorf("expected 'data/fuzzcast.db', got %s", got)
	}

	if got := cfg.GetServerAddress(); got != "0.0.0.0:5555" {
		t.Errorf("expected '0.0.0.0:5555', got %s", got)
	}
}
