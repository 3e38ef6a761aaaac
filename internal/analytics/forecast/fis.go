package forecast

import (
	"github.com/soltixdb/fuzzcast/internal/analytics"
	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
)

// FISForecaster predicts with an already tuned fuzzy inference system
type FISForecaster struct {
	System *fis.FIS
}

// NewFISForecaster wraps a tuned system
func NewFISForecaster(f *fis.FIS) *FISForecaster {
	return &FISForecaster{System: f}
}

// Name returns the algorithm name
func (f *FISForecaster) Name() string {
	return "fis"
}

// Fit is a no-op: tuning happens in the pipeline
func (f *FISForecaster) Fit(analytics.Matrix, analytics.Series) error {
	return nil
}

// Predict evaluates the system; rows where no rule fires are undefined
func (f *FISForecaster) Predict(x []float64) (float64, bool) {
	if f.System == nil {
		return 0, false
	}
	ev, err := f.System.Evaluate(x)
	if err != nil || !ev.Defined {
		return 0, false
	}
	return ev.Value, true
}
