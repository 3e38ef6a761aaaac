package forecast

import (
	"fmt"

	"github.com/sajari/regression"

	"github.com/soltixdb/fuzzcast/internal/analytics"
)

// LinearRegressionForecaster is a least-squares autoregression over the
// same lagged features the fuzzy system sees
type LinearRegressionForecaster struct {
	model  *regression.Regression
	fitted bool
	info   ModelInfo
}

// NewLinearRegressionForecaster creates a new Linear Regression forecaster
func NewLinearRegressionForecaster() *LinearRegressionForecaster {
	return &LinearRegressionForecaster{}
}

func init() {
	RegisterForecaster("linear", func() Forecaster { return NewLinearRegressionForecaster() })
}

// Name returns the algorithm name
func (f *LinearRegressionForecaster) Name() string {
	return "linear"
}

// Fit trains the regression on every row
func (f *LinearRegressionForecaster) Fit(X analytics.Matrix, Y analytics.Series) error {
	if len(X) != len(Y) {
		return fmt.Errorf("feature rows (%d) and targets (%d) differ", len(X), len(Y))
	}
	if len(X) <= X.Cols()+1 {
		return fmt.Errorf("insufficient data points: need more than %d, have %d", X.Cols()+1, len(X))
	}

	r := new(regression.Regression)
	r.SetObserved("next")
	for i := 0; i < X.Cols(); i++ {
		r.SetVar(i, fmt.Sprintf("x%d", i+1))
	}
	for i, row := range X {
		r.Train(regression.DataPoint(Y[i], row))
	}
	if err := r.Run(); err != nil {
		return fmt.Errorf("linear regression failed: %w", err)
	}

	f.model = r
	f.fitted = true
	f.info = ModelInfo{
		Algorithm: f.Name(),
		Parameters: map[string]interface{}{
			"coefficients": r.GetCoeffs(),
			"r2":           r.R2,
		},
		DataPoints: len(X),
	}
	return nil
}

// Predict evaluates the fitted regression
func (f *LinearRegressionForecaster) Predict(x []float64) (float64, bool) {
	if !f.fitted {
		return 0, false
	}
	v, err := f.model.Predict(x)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Info returns the fitted coefficients
func (f *LinearRegressionForecaster) Info() ModelInfo {
	return f.info
}
