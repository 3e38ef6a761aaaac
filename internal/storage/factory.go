package storage

import (
	"fmt"
	"strings"

	"github.com/soltixdb/fuzzcast/internal/compression"
	"github.com/soltixdb/fuzzcast/internal/config"
)

// Store backend names accepted in storage.type
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

// NewStore creates a Store based on configuration. Callers must Init it.
// Default is the file store if type is not specified.
func NewStore(cfg config.StorageConfig) (Store, error) {
	algo, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, err
	}
	codec, err := NewCodec(algo)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Type) {
	case TypeMemory:
		return NewMemoryStore(codec), nil
	case "", TypeFile:
		return NewFileStore(cfg.DataDir, codec), nil
	case TypeSQLite:
		return NewSQLiteStore(cfg.SQLitePath(), codec), nil
	case TypeRedis:
		return NewRedisStore(RedisConfig{
			URL:    cfg.RedisURL,
			DB:     cfg.RedisDB,
			Prefix: cfg.RedisPrefix,
		}, codec)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s (supported: memory, file, sqlite, redis)", cfg.Type)
	}
}
