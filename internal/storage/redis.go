package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis store configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Prefix   string // key prefix (default: "fuzzcast")
}

// RedisStore keeps records as string keys and indexes them in sets:
//
//	<prefix>:models             set of model ids
//	<prefix>:model:<id>         encoded model record
//	<prefix>:snapshots:<id>     sorted set of versions
//	<prefix>:snapshot:<id>:<v>  encoded snapshot
type RedisStore struct {
	client *redis.Client
	prefix string
	codec  *Codec
}

// NewRedisStore connects to Redis. The URL may be a redis:// URL or a bare
// host:port address.
func NewRedisStore(cfg RedisConfig, codec *Codec) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Try as simple address
		opt = &redis.Options{
			Addr: cfg.URL,
		}
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}
	return NewRedisStoreWithClient(redis.NewClient(opt), cfg.Prefix, codec), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string, codec *Codec) *RedisStore {
	if prefix == "" {
		prefix = "fuzzcast"
	}
	if codec == nil {
		codec = DefaultCodec()
	}
	return &RedisStore{client: client, prefix: prefix, codec: codec}
}

func (s *RedisStore) modelsKey() string {
	return s.prefix + ":models"
}

func (s *RedisStore) modelKey(id string) string {
	return s.prefix + ":model:" + id
}

func (s *RedisStore) snapshotsKey(id string) string {
	return s.prefix + ":snapshots:" + id
}

func (s *RedisStore) snapshotKey(id string, version int) string {
	return s.prefix + ":snapshot:" + id + ":" + strconv.Itoa(version)
}

// Init checks connectivity
func (s *RedisStore) Init(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveModel(ctx context.Context, model ModelRecord) error {
	if err := model.validate(); err != nil {
		return err
	}
	data, err := s.codec.EncodeModel(model)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.modelKey(model.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save model %s: %w", model.ID, err)
	}
	if err := s.client.SAdd(ctx, s.modelsKey(), model.ID).Err(); err != nil {
		return fmt.Errorf("failed to index model %s: %w", model.ID, err)
	}
	return nil
}

func (s *RedisStore) GetModel(ctx context.Context, id string) (ModelRecord, bool, error) {
	data, err := s.client.Get(ctx, s.modelKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ModelRecord{}, false, nil
		}
		return ModelRecord{}, false, err
	}
	model, err := s.codec.DecodeModel(data)
	if err != nil {
		return ModelRecord{}, false, fmt.Errorf("decode model %s: %w", id, err)
	}
	return model, true, nil
}

func (s *RedisStore) ListModels(ctx context.Context) ([]ModelRecord, error) {
	ids, err := s.client.SMembers(ctx, s.modelsKey()).Result()
	if err != nil {
		return nil, err
	}

	models := make([]ModelRecord, 0, len(ids))
	for _, id := range ids {
		model, ok, err := s.GetModel(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			models = append(models, model)
		}
	}
	sortModels(models)
	return models, nil
}

func (s *RedisStore) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}
	data, err := s.codec.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.snapshotKey(snapshot.ModelID, snapshot.Version), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot %s/%d: %w", snapshot.ModelID, snapshot.Version, err)
	}
	member := redis.Z{Score: float64(snapshot.Version), Member: strconv.Itoa(snapshot.Version)}
	if err := s.client.ZAdd(ctx, s.snapshotsKey(snapshot.ModelID), member).Err(); err != nil {
		return fmt.Errorf("failed to index snapshot %s/%d: %w", snapshot.ModelID, snapshot.Version, err)
	}
	return nil
}

func (s *RedisStore) GetSnapshot(ctx context.Context, modelID string, version int) (Snapshot, bool, error) {
	data, err := s.client.Get(ctx, s.snapshotKey(modelID, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	snapshot, err := s.codec.DecodeSnapshot(data)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s/%d: %w", modelID, version, err)
	}
	return snapshot, true, nil
}

func (s *RedisStore) ListSnapshots(ctx context.Context, modelID string) ([]Snapshot, error) {
	members, err := s.client.ZRange(ctx, s.snapshotsKey(modelID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	snapshots := make([]Snapshot, 0, len(members))
	for _, m := range members {
		version, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		snapshot, ok, err := s.GetSnapshot(ctx, modelID, version)
		if err != nil {
			return nil, err
		}
		if ok {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
