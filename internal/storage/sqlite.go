package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps encoded records as blobs in a single database file
type SQLiteStore struct {
	path  string
	codec *Codec

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store for the database at path. Init opens it.
func NewSQLiteStore(path string, codec *Codec) *SQLiteStore {
	if codec == nil {
		codec = DefaultCodec()
	}
	return &SQLiteStore{path: path, codec: codec}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func (s *SQLiteStore) SaveModel(ctx context.Context, model ModelRecord) error {
	if err := model.validate(); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := s.codec.EncodeModel(model)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO models (id, created_at, schema_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			payload = excluded.payload
	`, model.ID, model.CreatedAt.UnixNano(), CurrentSchemaVersion, payload)
	return err
}

func (s *SQLiteStore) GetModel(ctx context.Context, id string) (ModelRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return ModelRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM models WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModelRecord{}, false, nil
		}
		return ModelRecord{}, false, err
	}

	model, err := s.codec.DecodeModel(payload)
	if err != nil {
		return ModelRecord{}, false, fmt.Errorf("decode model %s: %w", id, err)
	}
	return model, true, nil
}

func (s *SQLiteStore) ListModels(ctx context.Context) ([]ModelRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM models ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []ModelRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		model, err := s.codec.DecodeModel(payload)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, rows.Err()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := s.codec.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (model_id, version, stage, schema_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model_id, version) DO UPDATE SET
			stage = excluded.stage,
			schema_version = excluded.schema_version,
			payload = excluded.payload
	`, snapshot.ModelID, snapshot.Version, snapshot.Stage, CurrentSchemaVersion, payload)
	return err
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, modelID string, version int) (Snapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Snapshot{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE model_id = ? AND version = ?`, modelID, version).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}

	snapshot, err := s.codec.DecodeSnapshot(payload)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s/%d: %w", modelID, version, err)
	}
	return snapshot, true, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, modelID string) ([]Snapshot, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT payload FROM snapshots WHERE model_id = ? ORDER BY version ASC`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		snapshot, err := s.codec.DecodeSnapshot(payload)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func createTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			model_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			stage TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (model_id, version)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
