// Package storage persists trained model records and the FIS snapshot taken
// after every tuning stage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/soltixdb/fuzzcast/internal/analytics/anomaly"
	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/analytics/forecast"
	"github.com/soltixdb/fuzzcast/internal/dataset"
)

// ErrInvalidRecord is returned when a record misses its identifying fields
var ErrInvalidRecord = errors.New("invalid record")

// Model lifecycle states
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Store persists model records and stage snapshots. Get methods report a
// missing record with ok=false and a nil error.
type Store interface {
	Init(ctx context.Context) error
	SaveModel(ctx context.Context, model ModelRecord) error
	GetModel(ctx context.Context, id string) (ModelRecord, bool, error)
	ListModels(ctx context.Context) ([]ModelRecord, error)
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	GetSnapshot(ctx context.Context, modelID string, version int) (Snapshot, bool, error)
	ListSnapshots(ctx context.Context, modelID string) ([]Snapshot, error)
	Close() error
}

// Snapshot is the FIS produced by one stage. Version 0 is the initial grid;
// stage k writes version k.
type Snapshot struct {
	SchemaVersion int       `json:"schema_version"`
	ModelID       string    `json:"model_id"`
	Version       int       `json:"version"`
	Stage         string    `json:"stage"`
	CreatedAt     time.Time `json:"created_at"`
	FIS           *fis.FIS  `json:"fis"`
}

// StageSummary is the stored outcome of one stage
type StageSummary struct {
	Stage         string  `json:"stage"`
	Optimization  string  `json:"optimization"`
	AsymmetricLag bool    `json:"asymmetric_lag"`
	Skipped       bool    `json:"skipped"`
	BestFitness   float64 `json:"best_fitness"`
	Generations   int     `json:"generations"`
	Evaluations   int     `json:"evaluations"`
	Undefined     int     `json:"undefined_rows"`
	StopReason    string  `json:"stop_reason,omitempty"`
	Rules         int     `json:"rules"`
	ElapsedMs     int64   `json:"elapsed_ms"`
}

// ModelRecord describes one training job and, once completed, everything
// needed to serve forecasts from it
type ModelRecord struct {
	SchemaVersion int                        `json:"schema_version"`
	ID            string                     `json:"id"`
	Name          string                     `json:"name"`
	Status        string                     `json:"status"`
	Error         string                     `json:"error,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
	Seed          int64                      `json:"seed"`
	FeatureNames  []string                   `json:"feature_names,omitempty"`
	Scalers       dataset.Scalers            `json:"scalers"`
	Stages        []StageSummary             `json:"stages,omitempty"`
	Validation    map[string]forecast.Scores `json:"validation,omitempty"`
	// Anomalies are validation rows whose residual stands out
	Anomalies   []anomaly.Result `json:"anomalies,omitempty"`
	OutputNames []string         `json:"output_names,omitempty"`
	Report      string           `json:"report,omitempty"`
	// FinalVersion is the snapshot version holding the merged, named system
	FinalVersion int `json:"final_version"`
}

// Done reports whether the job reached a terminal state
func (m ModelRecord) Done() bool {
	return m.Status == StatusCompleted || m.Status == StatusFailed
}

func (m ModelRecord) validate() error {
	if m.ID == "" {
		return errors.New("model id is required")
	}
	return nil
}

func (s Snapshot) validate() error {
	if s.ModelID == "" {
		return errors.New("snapshot model id is required")
	}
	if s.Version < 0 {
		return errors.New("snapshot version must be non-negative")
	}
	if s.FIS == nil {
		return errors.New("snapshot has no system")
	}
	return nil
}
