package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	if c.Storage.Type != "file" && c.Storage.Type != "sqlite" {
		return nil
	}
	dirs := []string{c.Storage.DataDir}
	if c.Storage.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.Path))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// GetDataPath returns the full path for a data file
func (c *Config) GetDataPath(filename string) string {
	return filepath.Join(c.Storage.DataDir, filename)
}

// SQLitePath returns the configured database file, defaulting into DataDir
func (c *StorageConfig) SQLitePath() string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(c.DataDir, "fuzzcast.db")
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Logging.Level == "info" && c.Logging.Format == "json"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}
