package anomaly

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/fuzzcast/internal/analytics"
)

// ZScoreDetector flags residuals more than Threshold standard deviations
// from the mean residual
type ZScoreDetector struct{}

func init() {
	RegisterDetector("zscore", &ZScoreDetector{})
}

// Name returns the algorithm name
func (z *ZScoreDetector) Name() string {
	return "zscore"
}

// Detect finds outlying residuals
func (z *ZScoreDetector) Detect(residuals analytics.Series, cfg Config) []Result {
	if len(residuals) < cfg.MinPoints || len(residuals) < 2 {
		return nil
	}

	mean, stdDev := stat.PopMeanStdDev(residuals, nil)
	if stdDev == 0 {
		return detectFlatline(residuals)
	}

	expected := &Range{
		Min: mean - cfg.Threshold*stdDev,
		Max: mean + cfg.Threshold*stdDev,
	}

	var results []Result
	for i, r := range residuals {
		score := CalculateZScore(r, mean, stdDev)
		if math.Abs(score) <= cfg.Threshold {
			continue
		}
		results = append(results, Result{
			Index:    i,
			Residual: r,
			Score:    math.Abs(score),
			Type:     directionOf(r - mean),
			Expected: expected,
		})
	}
	return results
}

// detectFlatline flags every residual of a constant, non-zero series. A
// constant zero series is a perfect fit.
func detectFlatline(residuals analytics.Series) []Result {
	if residuals[0] == 0 {
		return nil
	}
	results := make([]Result, len(residuals))
	for i, r := range residuals {
		results[i] = Result{Index: i, Residual: r, Score: 1.0, Type: TypeFlatline}
	}
	return results
}

// CalculateZScore calculates Z-Score for a single value given mean and stdDev
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}
