package forecast

import (
	"math"
	"math/rand"
	"testing"

	"github.com/soltixdb/fuzzcast/internal/analytics"
	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
)

// generateLinearRows creates rows where y = 2*x1 - x2 + 0.5
func generateLinearRows(n int) (analytics.Matrix, analytics.Series) {
	rng := rand.New(rand.NewSource(1))
	X := make(analytics.Matrix, n)
	Y := make(analytics.Series, n)
	for i := range X {
		a, b := rng.Float64(), rng.Float64()
		X[i] = []float64{a, b}
		Y[i] = 2*a - b + 0.5
	}
	return X, Y
}

func TestForecasterRegistry(t *testing.T) {
	for _, algo := range []string{"linear", "persistence"} {
		forecaster, err := GetForecaster(algo)
		if err != nil {
			t.Errorf("Forecaster '%s' not registered: %v", algo, err)
		} else if forecaster.Name() != algo {
			t.Errorf("Forecaster name mismatch: expected '%s', got '%s'", algo, forecaster.Name())
		}
	}

	if _, err := GetForecaster("unknown"); err == nil {
		t.Error("Expected error for unknown forecaster")
	}

	names := ListForecasters()
	if len(names) < 2 || names[0] != "linear" {
		t.Errorf("Unexpected forecaster list: %v", names)
	}
}

func TestGetForecasterReturnsFreshInstances(t *testing.T) {
	a, _ := GetForecaster("linear")
	b, _ := GetForecaster("linear")
	if a == b {
		t.Error("Expected independent forecaster instances")
	}
}

func TestCalculateMetrics(t *testing.T) {
	actual := []float64{1, 2, 4}
	predicted := []float64{1, 3, 2}

	if got := CalculateMAE(actual, predicted); math.Abs(got-1) > 1e-12 {
		t.Errorf("MAE: expected 1, got %v", got)
	}
	if got := CalculateRMSE(actual, predicted); math.Abs(got-math.Sqrt(5.0/3)) > 1e-12 {
		t.Errorf("RMSE: expected %v, got %v", math.Sqrt(5.0/3), got)
	}
	if got := CalculateMAPE(actual, predicted); math.Abs(got-100*(0.5+0.5)/3) > 1e-9 {
		t.Errorf("MAPE: expected %v, got %v", 100.0/3, got)
	}
	if got := CalculateMAE(actual, predicted[:2]); got != 0 {
		t.Errorf("Expected 0 for mismatched lengths, got %v", got)
	}
}

func TestLinearRegressionForecaster_Fit(t *testing.T) {
	X, Y := generateLinearRows(50)

	forecaster := NewLinearRegressionForecaster()
	if _, ok := forecaster.Predict(X[0]); ok {
		t.Error("Expected undefined prediction before Fit")
	}
	if err := forecaster.Fit(X, Y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	scores := Score(forecaster, X, Y)
	if scores.RMSE > 1e-6 {
		t.Errorf("Expected near-perfect fit, RMSE = %v", scores.RMSE)
	}
	if forecaster.Info().DataPoints != 50 {
		t.Errorf("Expected 50 data points, got %d", forecaster.Info().DataPoints)
	}
}

func TestLinearRegressionForecaster_InsufficientData(t *testing.T) {
	X, Y := generateLinearRows(3)
	if err := NewLinearRegressionForecaster().Fit(X, Y); err == nil {
		t.Error("Expected error for insufficient data")
	}
}

func TestPersistenceForecaster(t *testing.T) {
	f := NewPersistenceForecaster()
	v, ok := f.Predict([]float64{0.4, 0.9})
	if !ok || v != 0.4 {
		t.Errorf("Expected lag_1 value 0.4, got %v (%v)", v, ok)
	}
	if _, ok := f.Predict(nil); ok {
		t.Error("Expected undefined prediction for empty row")
	}
}

func TestScoreCountsUndefined(t *testing.T) {
	cfg := fis.DefaultGridConfig()
	cfg.Lags = 1
	cfg.ExogenousName = []string{"humidity"}
	grid, err := fis.NewGrid(cfg)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	// keep only the rule for (low, low): rows with a high lag never fire it
	sparse, err := grid.WithRules(grid.Rules[:1])
	if err != nil {
		t.Fatalf("WithRules failed: %v", err)
	}

	X := analytics.Matrix{{0, 0}, {1, 1}, {0.2, 0.1}}
	Y := analytics.Series{0, 1, 0.1}
	scores := Score(NewFISForecaster(sparse), X, Y)
	if scores.Undefined != 1 {
		t.Errorf("Expected 1 undefined row, got %d", scores.Undefined)
	}
	if scores.Rows != 3 {
		t.Errorf("Expected 3 rows, got %d", scores.Rows)
	}
	if math.IsNaN(scores.RMSE) {
		t.Error("RMSE must stay finite")
	}
}
