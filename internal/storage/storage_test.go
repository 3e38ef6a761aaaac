package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/analytics/forecast"
	"github.com/soltixdb/fuzzcast/internal/config"
	"github.com/soltixdb/fuzzcast/internal/dataset"
)

func testSystem(t *testing.T) *fis.FIS {
	t.Helper()
	cfg := fis.DefaultGridConfig()
	cfg.Lags = 1
	cfg.ExogenousName = []string{"humidity"}
	f, err := fis.NewGrid(cfg)
	require.NoError(t, err)
	return f
}

func testModel(id string, created time.Time) ModelRecord {
	return ModelRecord{
		ID:           id,
		Name:         "weather",
		Status:       StatusCompleted,
		CreatedAt:    created,
		UpdatedAt:    created.Add(time.Minute),
		Seed:         3,
		FeatureNames: []string{"lag_1", "humidity"},
		Scalers:      dataset.Scalers{Target: dataset.MinMax{Min: -2, Max: 31}},
		Stages: []StageSummary{
			{Stage: "learning", BestFitness: 0.12, Generations: 4, Rules: 5},
		},
		Validation:   map[string]forecast.Scores{"fis": {RMSE: 0.1, Rows: 20}},
		OutputNames:  []string{"Low", "Medium"},
		Report:       "Rule 1: IF true THEN forecast is Low (weight 1.0)",
		FinalVersion: 4,
	}
}

// runStoreSuite exercises the behavior every backend shares
func runStoreSuite(t *testing.T, store Store) {
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { _ = store.Close() })

	t.Run("missing records", func(t *testing.T) {
		_, ok, err := store.GetModel(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = store.GetSnapshot(ctx, "nope", 0)
		require.NoError(t, err)
		assert.False(t, ok)

		snaps, err := store.ListSnapshots(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, snaps)
	})

	t.Run("model round trip", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		older := testModel("m-old", base)
		newer := testModel("m-new", base.Add(time.Hour))
		require.NoError(t, store.SaveModel(ctx, older))
		require.NoError(t, store.SaveModel(ctx, newer))

		got, ok, err := store.GetModel(ctx, "m-old")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, CurrentSchemaVersion, got.SchemaVersion)
		assert.Equal(t, older.Stages, got.Stages)
		assert.Equal(t, older.Validation, got.Validation)
		assert.Equal(t, older.Scalers, got.Scalers)
		assert.True(t, older.CreatedAt.Equal(got.CreatedAt))

		// overwrite keeps a single record
		older.Status = StatusFailed
		older.Error = "stage tuning: boom"
		require.NoError(t, store.SaveModel(ctx, older))

		list, err := store.ListModels(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "m-new", list[0].ID)
		assert.Equal(t, StatusFailed, list[1].Status)
	})

	t.Run("snapshot round trip", func(t *testing.T) {
		f := testSystem(t)
		for v, stage := range []string{"initial", "learning", "tuning"} {
			require.NoError(t, store.SaveSnapshot(ctx, Snapshot{
				ModelID:   "m-new",
				Version:   v,
				Stage:     stage,
				CreatedAt: time.Now().UTC(),
				FIS:       f,
			}))
		}

		got, ok, err := store.GetSnapshot(ctx, "m-new", 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "learning", got.Stage)
		require.NotNil(t, got.FIS)
		assert.Len(t, got.FIS.Rules, len(f.Rules))

		x := []float64{0.3, 0.7}
		want, err := f.Evaluate(x)
		require.NoError(t, err)
		have, err := got.FIS.Evaluate(x)
		require.NoError(t, err)
		assert.InDelta(t, want.Value, have.Value, 1e-12)

		snaps, err := store.ListSnapshots(ctx, "m-new")
		require.NoError(t, err)
		require.Len(t, snaps, 3)
		for i, s := range snaps {
			assert.Equal(t, i, s.Version)
		}
	})

	t.Run("invalid records", func(t *testing.T) {
		assert.Error(t, store.SaveModel(ctx, ModelRecord{}))
		assert.Error(t, store.SaveSnapshot(ctx, Snapshot{ModelID: "m"}))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore(nil))
}

func TestFileStore(t *testing.T) {
	runStoreSuite(t, NewFileStore(t.TempDir(), nil))
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, NewSQLiteStore(filepath.Join(t.TempDir(), "models.db"), nil))
}

func TestFileStoreRejectsUnsafeIDs(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	require.NoError(t, store.Init(context.Background()))

	err := store.SaveModel(context.Background(), ModelRecord{ID: "../escape"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "models.db"), nil)
	_, _, err := store.GetModel(context.Background(), "m")
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    interface{}
		wantErr bool
	}{
		{name: "memory", cfg: config.StorageConfig{Type: "memory"}, want: &MemoryStore{}},
		{name: "file default", cfg: config.StorageConfig{DataDir: "data"}, want: &FileStore{}},
		{name: "sqlite", cfg: config.StorageConfig{Type: "sqlite", DataDir: "data"}, want: &SQLiteStore{}},
		{name: "redis", cfg: config.StorageConfig{Type: "redis", RedisURL: "redis://localhost:6379/0"}, want: &RedisStore{}},
		{name: "unknown", cfg: config.StorageConfig{Type: "cassandra"}, wantErr: true},
		{name: "bad compression", cfg: config.StorageConfig{Type: "memory", Compression: "lz4"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, store)
			_ = store.Close()
		})
	}
}
