package forecast

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/fuzzcast/internal/analytics"
)

// ModelInfo contains metadata about a fitted forecaster
type ModelInfo struct {
	Algorithm  string                 `json:"algorithm"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	DataPoints int                    `json:"data_points"` // Number of rows used to fit
}

// Forecaster predicts the next value of a series from one lagged feature row
type Forecaster interface {
	// Name returns the algorithm name
	Name() string
	// Fit learns from a feature matrix and its next-step targets
	Fit(X analytics.Matrix, Y analytics.Series) error
	// Predict returns the one-step-ahead value; false when the model has no
	// defined output for x
	Predict(x []float64) (float64, bool)
}

// Factory builds an unfitted forecaster
type Factory func() Forecaster

var (
	registryMu         sync.RWMutex
	forecasterRegistry = make(map[string]Factory)
)

// RegisterForecaster adds a forecaster factory to the registry
func RegisterForecaster(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	forecasterRegistry[name] = factory
}

// GetForecaster returns a new forecaster by name
func GetForecaster(name string) (Forecaster, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if factory, ok := forecasterRegistry[name]; ok {
		return factory(), nil
	}
	return nil, fmt.Errorf("unknown forecaster: %s", name)
}

// ListForecasters returns the registered names, sorted
func ListForecasters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(forecasterRegistry))
	for name := range forecasterRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scores are the error metrics of a forecaster on a partition
type Scores struct {
	RMSE      float64 `json:"rmse"`
	MAE       float64 `json:"mae"`
	MAPE      float64 `json:"mape"` // Mean Absolute Percentage Error
	Rows      int     `json:"rows"`
	Undefined int     `json:"undefined"` // Rows without a defined prediction, excluded above
}

// Score evaluates f on every row of X. Undefined predictions are excluded
// from the metrics and counted.
func Score(f Forecaster, X analytics.Matrix, Y analytics.Series) Scores {
	actual := make([]float64, 0, len(Y))
	predicted := make([]float64, 0, len(Y))
	s := Scores{Rows: len(Y)}
	for i, row := range X {
		v, ok := f.Predict(row)
		if !ok || math.IsNaN(v) {
			s.Undefined++
			continue
		}
		actual = append(actual, Y[i])
		predicted = append(predicted, v)
	}
	s.RMSE = CalculateRMSE(actual, predicted)
	s.MAE = CalculateMAE(actual, predicted)
	s.MAPE = CalculateMAPE(actual, predicted)
	return s
}

// CalculateMAPE calculates Mean Absolute Percentage Error, skipping zero actuals
func CalculateMAPE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	pct := make([]float64, 0, len(actual))
	for i := range actual {
		if actual[i] != 0 {
			pct = append(pct, math.Abs((actual[i]-predicted[i])/actual[i]))
		}
	}

	if len(pct) == 0 {
		return 0
	}
	return stat.Mean(pct, nil) * 100
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	abs := make([]float64, len(actual))
	for i := range actual {
		abs[i] = math.Abs(actual[i] - predicted[i])
	}
	return stat.Mean(abs, nil)
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sq := make([]float64, len(actual))
	for i := range actual {
		diff := actual[i] - predicted[i]
		sq[i] = diff * diff
	}
	return math.Sqrt(stat.Mean(sq, nil))
}
