package anomaly

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/fuzzcast/internal/analytics"
)

// IQRDetector flags residuals outside [Q1 - k*IQR, Q3 + k*IQR]. It is less
// sensitive than zscore to the outliers it is looking for.
type IQRDetector struct{}

func init() {
	RegisterDetector("iqr", &IQRDetector{})
}

// Name returns the algorithm name
func (iqr *IQRDetector) Name() string {
	return "iqr"
}

// Detect finds outlying residuals
func (iqr *IQRDetector) Detect(residuals analytics.Series, cfg Config) []Result {
	if len(residuals) < cfg.MinPoints || len(residuals) < 2 {
		return nil
	}

	q1, q3, spread := CalculateIQR(residuals)

	// zscore-style thresholds fall back to the usual Tukey fence
	k := cfg.Threshold
	if k <= 0 || k >= 3 {
		k = 1.5
	}
	lower, upper := q1-k*spread, q3+k*spread
	expected := &Range{Min: lower, Max: upper}

	var results []Result
	for i, r := range residuals {
		if r >= lower && r <= upper {
			continue
		}
		score := 1.0
		if spread > 0 {
			if r < lower {
				score = (lower - r) / spread
			} else {
				score = (r - upper) / spread
			}
		}
		results = append(results, Result{
			Index:    i,
			Residual: r,
			Score:    score,
			Type:     directionOf(r - (q1+q3)/2),
			Expected: expected,
		})
	}
	return results
}

// CalculateIQR returns Q1, Q3 and their spread
func CalculateIQR(values []float64) (q1, q3, iqr float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	return q1, q3, q3 - q1
}
