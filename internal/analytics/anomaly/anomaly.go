// Package anomaly flags forecast residuals that stand out from the rest of a
// validation run.
package anomaly

import (
	"fmt"
	"sort"

	"github.com/soltixdb/fuzzcast/internal/analytics"
)

// Type represents the direction of a flagged residual
type Type string

const (
	TypeOverForecast  Type = "over_forecast"  // prediction well above actual
	TypeUnderForecast Type = "under_forecast" // prediction well below actual
	TypeFlatline      Type = "flatline"       // residuals without variation
)

// Range represents expected residual range
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Result is one flagged row
type Result struct {
	Index    int     `json:"index"`
	Residual float64 `json:"residual"`
	Score    float64 `json:"score"` // higher is more abnormal
	Type     Type    `json:"type"`
	Expected *Range  `json:"expected,omitempty"`
}

// Config holds configuration for detection
type Config struct {
	// Threshold is the number of standard deviations for zscore and the
	// IQR multiplier for iqr
	Threshold float64 `mapstructure:"threshold" json:"threshold"`
	// MinPoints is the minimum number of residuals required
	MinPoints int `mapstructure:"min_points" json:"min_points"`
}

// DefaultConfig returns default detector configuration
func DefaultConfig() Config {
	return Config{
		Threshold: 3.0,
		MinPoints: 10,
	}
}

// Detector flags outlying residuals
type Detector interface {
	Name() string
	Detect(residuals analytics.Series, cfg Config) []Result
}

var detectorRegistry = make(map[string]Detector)

// RegisterDetector adds a detector to the registry
func RegisterDetector(name string, detector Detector) {
	detectorRegistry[name] = detector
}

// GetDetector returns a detector by name
func GetDetector(name string) (Detector, error) {
	if detector, ok := detectorRegistry[name]; ok {
		return detector, nil
	}
	return nil, fmt.Errorf("unknown anomaly detector: %s", name)
}

// ListDetectors returns the registered detector names, sorted
func ListDetectors() []string {
	names := make([]string, 0, len(detectorRegistry))
	for name := range detectorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Residuals returns predicted-actual per row. Rows with an undefined
// prediction are skipped; index maps each residual back to its row.
func Residuals(actual analytics.Series, predicted []float64, defined []bool) (residuals analytics.Series, index []int) {
	for i := range actual {
		if i >= len(predicted) || (defined != nil && !defined[i]) {
			continue
		}
		residuals = append(residuals, predicted[i]-actual[i])
		index = append(index, i)
	}
	return residuals, index
}

// Detect runs the named detector and maps indices back to rows
func Detect(algorithm string, residuals analytics.Series, index []int, cfg Config) ([]Result, error) {
	detector, err := GetDetector(algorithm)
	if err != nil {
		return nil, err
	}
	results := detector.Detect(residuals, cfg)
	if index != nil {
		for i := range results {
			results[i].Index = index[results[i].Index]
		}
	}
	return results, nil
}

func directionOf(residual float64) Type {
	if residual > 0 {
		return TypeOverForecast
	}
	return TypeUnderForecast
}
