package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/dataset"
	"github.com/soltixdb/fuzzcast/internal/logging"
	"github.com/soltixdb/fuzzcast/internal/metrics"
	"github.com/soltixdb/fuzzcast/internal/models"
	"github.com/soltixdb/fuzzcast/internal/storage"
)

// ForecastService serves one-step-ahead forecasts from completed models
type ForecastService struct {
	logger   *logging.Logger
	store    storage.Store
	training *TrainingService
	metrics  *metrics.Registry

	// completed models never change, so loaded systems are kept
	mu    sync.RWMutex
	cache map[string]*fis.FIS
}

// NewForecastService creates a new ForecastService. reg may be nil.
func NewForecastService(
	logger *logging.Logger,
	store storage.Store,
	training *TrainingService,
	reg *metrics.Registry,
) *ForecastService {
	return &ForecastService{
		logger:   logger,
		store:    store,
		training: training,
		metrics:  reg,
		cache:    make(map[string]*fis.FIS),
	}
}

// Forecast evaluates every row of req with the final system of model id.
// Rows are in original units and ordered like the model's feature names.
func (s *ForecastService) Forecast(ctx context.Context, id string, req models.ForecastRequest) (*models.ForecastResponse, error) {
	rec, err := s.training.Completed(ctx, id)
	if err != nil {
		s.countFailure()
		return nil, err
	}
	if len(req.Rows) == 0 {
		s.countFailure()
		return nil, NewServiceError(CodeInvalidRequest, "rows is required")
	}

	system, err := s.system(ctx, rec)
	if err != nil {
		s.countFailure()
		return nil, err
	}

	width := len(rec.FeatureNames)
	resp := &models.ForecastResponse{
		ID:          id,
		Predictions: make([]models.Prediction, 0, len(req.Rows)),
	}
	for i, row := range req.Rows {
		if len(row) != width {
			s.countFailure()
			return nil, NewServiceErrorWithDetails(CodeForecastFailed,
				fmt.Sprintf("row %d has %d values, expected %d", i, len(row), width),
				map[string]interface{}{"feature_names": rec.FeatureNames})
		}

		ev, err := system.Evaluate(NormalizeRow(row, rec.Scalers))
		if err != nil {
			s.countFailure()
			return nil, NewServiceError(CodeForecastFailed, fmt.Sprintf("row %d: %v", i, err))
		}

		p := models.Prediction{Defined: ev.Defined, Clamped: ev.Clamped}
		if ev.Defined {
			norm := ev.Value
			value := rec.Scalers.Target.Inverse(norm)
			p.Normalized = &norm
			p.Value = &value
		} else {
			resp.Undefined++
		}
		if req.IncludeFiring {
			p.Firing = make([]float64, len(ev.Firing))
			for k, f := range ev.Firing {
				p.Firing[k] = f.Combined
			}
		}
		resp.Predictions = append(resp.Predictions, p)
	}
	resp.Count = len(resp.Predictions)

	if s.metrics != nil {
		s.metrics.ObserveForecast(resp.Count, resp.Undefined)
	}
	s.logger.Debug("Forecast served", "model_id", id, "rows", resp.Count, "undefined", resp.Undefined)
	return resp, nil
}

func (s *ForecastService) countFailure() {
	if s.metrics != nil {
		s.metrics.ForecastsFailed.Inc()
	}
}

func (s *ForecastService) system(ctx context.Context, rec storage.ModelRecord) (*fis.FIS, error) {
	s.mu.RLock()
	f, ok := s.cache[rec.ID]
	s.mu.RUnlock()
	if ok {
		return f, nil
	}

	snap, ok, err := s.store.GetSnapshot(ctx, rec.ID, rec.FinalVersion)
	if err != nil {
		return nil, storageError(err)
	}
	if !ok {
		return nil, NewServiceErrorWithDetails(CodeModelNotFound, "Model has no final system",
			map[string]interface{}{"model_id": rec.ID, "version": rec.FinalVersion})
	}

	s.mu.Lock()
	s.cache[rec.ID] = snap.FIS
	s.mu.Unlock()
	return snap.FIS, nil
}

// NormalizeRow scales a row laid out as [lag_1..lag_D, exo_1, exo_2]
func NormalizeRow(row []float64, sc dataset.Scalers) []float64 {
	out := make([]float64, len(row))
	lags := len(row) - 2
	for i, v := range row {
		switch {
		case i < lags:
			out[i] = sc.Target.Scale(v)
		case i == lags:
			out[i] = sc.Exogenous[0].Scale(v)
		default:
			out[i] = sc.Exogenous[1].Scale(v)
		}
	}
	return out
}
