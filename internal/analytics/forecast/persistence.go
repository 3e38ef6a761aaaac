package forecast

import (
	"github.com/soltixdb/fuzzcast/internal/analytics"
)

// PersistenceForecaster predicts the most recent observation (lag_1)
type PersistenceForecaster struct {
	Column int
}

// NewPersistenceForecaster creates a forecaster reading column 0
func NewPersistenceForecaster() *PersistenceForecaster {
	return &PersistenceForecaster{}
}

func init() {
	RegisterForecaster("persistence", func() Forecaster { return NewPersistenceForecaster() })
}

// Name returns the algorithm name
func (f *PersistenceForecaster) Name() string {
	return "persistence"
}

// Fit is a no-op
func (f *PersistenceForecaster) Fit(analytics.Matrix, analytics.Series) error {
	return nil
}

// Predict returns x[Column]
func (f *PersistenceForecaster) Predict(x []float64) (float64, bool) {
	if f.Column < 0 || f.Column >= len(x) {
		return 0, false
	}
	return x[f.Column], true
}
