package anomaly

import (
	"testing"

	"github.com/soltixdb/fuzzcast/internal/analytics"
)

func TestZScoreDetector_DetectOverForecast(t *testing.T) {
	detector := &ZScoreDetector{}
	cfg := DefaultConfig()
	cfg.MinPoints = 5
	cfg.Threshold = 2.0

	residuals := analytics.Series{0.1, -0.1, 0.1, -0.1, 0.1, -0.1, 5, 0.1, -0.1, 0.1}
	results := detector.Detect(residuals, cfg)

	if len(results) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(results))
	}
	if results[0].Index != 6 {
		t.Errorf("Expected index 6, got %d", results[0].Index)
	}
	if results[0].Type != TypeOverForecast {
		t.Errorf("Expected type %s, got %s", TypeOverForecast, results[0].Type)
	}
	if results[0].Expected == nil {
		t.Error("Expected a range")
	}
}

func TestZScoreDetector_DetectUnderForecast(t *testing.T) {
	cfg := Config{Threshold: 2.0, MinPoints: 5}
	residuals := analytics.Series{0, 0.2, 0, 0.2, 0, 0.2, -6, 0, 0.2, 0}

	results := (&ZScoreDetector{}).Detect(residuals, cfg)
	if len(results) != 1 || results[0].Type != TypeUnderForecast {
		t.Fatalf("Expected one under-forecast, got %+v", results)
	}
}

func TestZScoreDetector_Flatline(t *testing.T) {
	cfg := Config{Threshold: 3, MinPoints: 3}
	detector := &ZScoreDetector{}

	if got := detector.Detect(analytics.Series{0, 0, 0, 0}, cfg); got != nil {
		t.Errorf("Expected no anomalies for a perfect fit, got %v", got)
	}

	got := detector.Detect(analytics.Series{0.4, 0.4, 0.4}, cfg)
	if len(got) != 3 || got[0].Type != TypeFlatline {
		t.Errorf("Expected 3 flatline results, got %+v", got)
	}
}

func TestDetectorsRespectMinPoints(t *testing.T) {
	cfg := Config{Threshold: 2, MinPoints: 10}
	residuals := analytics.Series{0, 0, 100}
	for _, name := range ListDetectors() {
		d, err := GetDetector(name)
		if err != nil {
			t.Fatalf("GetDetector(%s): %v", name, err)
		}
		if got := d.Detect(residuals, cfg); got != nil {
			t.Errorf("%s: expected nil below MinPoints, got %v", name, got)
		}
	}
}

func TestIQRDetector(t *testing.T) {
	cfg := Config{Threshold: 1.5, MinPoints: 5}
	residuals := analytics.Series{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}

	results := (&IQRDetector{}).Detect(residuals, cfg)
	if len(results) != 1 || results[0].Index != 9 {
		t.Fatalf("Expected the last point flagged, got %+v", results)
	}
	if results[0].Score <= 0 {
		t.Errorf("Expected a positive score, got %v", results[0].Score)
	}
}

func TestCalculateIQR(t *testing.T) {
	q1, q3, iqr := CalculateIQR([]float64{4, 1, 3, 2})
	if q1 >= q3 || iqr != q3-q1 {
		t.Errorf("Unexpected quartiles: q1=%v q3=%v iqr=%v", q1, q3, iqr)
	}
	if _, _, iqr := CalculateIQR(nil); iqr != 0 {
		t.Errorf("Expected 0 for empty input, got %v", iqr)
	}
}

func TestResidualsSkipUndefined(t *testing.T) {
	actual := analytics.Series{1, 2, 3}
	predicted := []float64{1.5, 0, 2}
	res, index := Residuals(actual, predicted, []bool{true, false, true})

	if len(res) != 2 || res[0] != 0.5 || res[1] != -1 {
		t.Errorf("Unexpected residuals %v", res)
	}
	if index[1] != 2 {
		t.Errorf("Expected row 2, got %d", index[1])
	}
}

func TestDetectMapsRows(t *testing.T) {
	residuals := analytics.Series{0.1, -0.1, 0.1, -0.1, 0.1, -0.1, 5, 0.1, -0.1, 0.1}
	index := []int{0, 1, 2, 3, 4, 5, 8, 9, 10, 11}

	results, err := Detect("zscore", residuals, index, Config{Threshold: 2, MinPoints: 5})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(results) != 1 || results[0].Index != 8 {
		t.Errorf("Expected row 8, got %+v", results)
	}

	if _, err := Detect("unknown", residuals, nil, DefaultConfig()); err == nil {
		t.Error("Expected error for unknown detector")
	}
}
