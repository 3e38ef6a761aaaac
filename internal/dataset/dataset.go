// Package dataset turns raw weather series into the lagged, normalized
// feature matrices the tuning pipeline trains on.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/soltixdb/fuzzcast/internal/analytics"
)

var (
	// ErrAllMissing is returned when a column has no usable value
	ErrAllMissing = errors.New("column has no values")
	// ErrTooShort is returned when a series cannot fill one window
	ErrTooShort = errors.New("series too short")
)

// Columns names the CSV headers to read
type Columns struct {
	Target    string
	Exogenous [2]string
}

// DefaultColumns matches the synthetic weather layout
func DefaultColumns() Columns {
	return Columns{Target: "temperature", Exogenous: [2]string{"humidity", "wind_speed"}}
}

// Frame holds the target series and its two exogenous drivers, aligned by row
type Frame struct {
	Names     [3]string
	Target    analytics.Series
	Exogenous [2]analytics.Series
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.Target)
}

// LoadCSV reads the configured columns by header name. Empty, NA and
// unparseable cells become NaN.
func LoadCSV(r io.Reader, cols Columns) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	names := [3]string{cols.Target, cols.Exogenous[0], cols.Exogenous[1]}
	var pos [3]int
	for k, name := range names {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("csv has no column %q", name)
		}
		pos[k] = i
	}

	f := &Frame{Names: names}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		f.Target = append(f.Target, cell(rec, pos[0]))
		f.Exogenous[0] = append(f.Exogenous[0], cell(rec, pos[1]))
		f.Exogenous[1] = append(f.Exogenous[1], cell(rec, pos[2]))
	}
	return f, nil
}

func cell(rec []string, i int) float64 {
	if i >= len(rec) {
		return math.NaN()
	}
	s := strings.TrimSpace(rec[i])
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Impute fills NaN gaps by linear interpolation between the nearest known
// neighbours and copies the nearest known value into leading/trailing gaps
func Impute(s analytics.Series) (analytics.Series, error) {
	out := s.Clone()
	prev := -1
	for i, v := range out {
		if math.IsNaN(v) {
			continue
		}
		switch {
		case prev < 0:
			for j := 0; j < i; j++ {
				out[j] = v
			}
		case i-prev > 1:
			step := (v - out[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				out[j] = out[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	if prev < 0 {
		return nil, ErrAllMissing
	}
	for j := prev + 1; j < len(out); j++ {
		out[j] = out[prev]
	}
	return out, nil
}

// ImputeFrame imputes every column of f in place
func ImputeFrame(f *Frame) error {
	var err error
	if f.Target, err = Impute(f.Target); err != nil {
		return fmt.Errorf("%s: %w", f.Names[0], err)
	}
	for k := range f.Exogenous {
		if f.Exogenous[k], err = Impute(f.Exogenous[k]); err != nil {
			return fmt.Errorf("%s: %w", f.Names[k+1], err)
		}
	}
	return nil
}

// MinMax scales a series into [0,1]
type MinMax struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FitMinMax records the range of s
func FitMinMax(s analytics.Series) MinMax {
	return MinMax{Min: s.Min(), Max: s.Max()}
}

// Transform scales s; a constant series maps to 0.5
func (m MinMax) Transform(s analytics.Series) analytics.Series {
	out := make(analytics.Series, len(s))
	for i, v := range s {
		out[i] = m.Scale(v)
	}
	return out
}

// Scale maps one value into [0,1] for values inside the fitted range
func (m MinMax) Scale(v float64) float64 {
	span := m.Max - m.Min
	if span == 0 {
		return 0.5
	}
	return (v - m.Min) / span
}

// Inverse maps a normalized value back to the original units
func (m MinMax) Inverse(v float64) float64 {
	span := m.Max - m.Min
	if span == 0 {
		return m.Min
	}
	return m.Min + v*span
}

// SyntheticWeather generates n hourly rows: a daily temperature cycle with
// noise, and humidity and wind speed that move against it
func SyntheticWeather(n int, seed int64) *Frame {
	rng := rand.New(rand.NewSource(seed))
	f := &Frame{
		Names:     [3]string{"temperature", "humidity", "wind_speed"},
		Target:    make(analytics.Series, n),
		Exogenous: [2]analytics.Series{make(analytics.Series, n), make(analytics.Series, n)},
	}
	for t := 0; t < n; t++ {
		daily := math.Sin(2 * math.Pi * float64(t%24) / 24)
		seasonal := math.Sin(2 * math.Pi * float64(t) / (24 * 365))
		temp := 15 + 8*daily + 5*seasonal + rng.NormFloat64()
		f.Target[t] = temp
		f.Exogenous[0][t] = math.Max(0, math.Min(100, 70-2.5*(temp-15)+3*rng.NormFloat64()))
		f.Exogenous[1][t] = math.Max(0, 6-0.3*(temp-15)+rng.NormFloat64())
	}
	return f
}

// Window builds row t = [y(t-1) .. y(t-lags), e1(t-1), e2(t-1)] with target
// y(t)
func Window(target, exo1, exo2 analytics.Series, lags int) (analytics.Matrix, analytics.Series, error) {
	if lags < 1 {
		return nil, nil, fmt.Errorf("lags must be >= 1, got %d", lags)
	}
	if len(exo1) != len(target) || len(exo2) != len(target) {
		return nil, nil, fmt.Errorf("series lengths differ: %d, %d, %d", len(target), len(exo1), len(exo2))
	}
	if len(target) <= lags {
		return nil, nil, fmt.Errorf("%w: %d rows for %d lags", ErrTooShort, len(target), lags)
	}

	rows := len(target) - lags
	X := make(analytics.Matrix, rows)
	Y := make(analytics.Series, rows)
	for r := 0; r < rows; r++ {
		t := r + lags
		row := make([]float64, lags+2)
		for d := 1; d <= lags; d++ {
			row[d-1] = target[t-d]
		}
		row[lags] = exo1[t-1]
		row[lags+1] = exo2[t-1]
		X[r] = row
		Y[r] = target[t]
	}
	return X, Y, nil
}

// Split keeps row order: the first trainFraction of rows train, the rest
// validate. Both parts must be non-empty.
func Split(X analytics.Matrix, Y analytics.Series, trainFraction float64) (analytics.Partition, analytics.Partition, error) {
	if len(X) != len(Y) {
		return analytics.Partition{}, analytics.Partition{}, fmt.Errorf("feature rows (%d) and targets (%d) differ", len(X), len(Y))
	}
	if !(trainFraction > 0 && trainFraction < 1) {
		return analytics.Partition{}, analytics.Partition{}, fmt.Errorf("train fraction %v outside (0,1)", trainFraction)
	}
	n := int(math.Round(trainFraction * float64(len(Y))))
	if n < 1 || n >= len(Y) {
		return analytics.Partition{}, analytics.Partition{}, fmt.Errorf("%w: %d rows cannot be split at %v", ErrTooShort, len(Y), trainFraction)
	}
	return analytics.Partition{X: X[:n], Y: Y[:n]}, analytics.Partition{X: X[n:], Y: Y[n:]}, nil
}

// Config controls Build
type Config struct {
	Lags          int     `mapstructure:"lags" json:"lags"`
	TrainFraction float64 `mapstructure:"train_fraction" json:"train_fraction"`
}

// Scalers are the per-column normalizations applied by Build
type Scalers struct {
	Target    MinMax    `json:"target"`
	Exogenous [2]MinMax `json:"exogenous"`
}

// Build imputes, normalizes, windows and splits f
func Build(f *Frame, cfg Config) (*analytics.Dataset, Scalers, error) {
	if err := ImputeFrame(f); err != nil {
		return nil, Scalers{}, err
	}

	sc := Scalers{
		Target:    FitMinMax(f.Target),
		Exogenous: [2]MinMax{FitMinMax(f.Exogenous[0]), FitMinMax(f.Exogenous[1])},
	}
	X, Y, err := Window(
		sc.Target.Transform(f.Target),
		sc.Exogenous[0].Transform(f.Exogenous[0]),
		sc.Exogenous[1].Transform(f.Exogenous[1]),
		cfg.Lags)
	if err != nil {
		return nil, Scalers{}, err
	}
	train, valid, err := Split(X, Y, cfg.TrainFraction)
	if err != nil {
		return nil, Scalers{}, err
	}

	names := make([]string, 0, cfg.Lags+2)
	for d := 1; d <= cfg.Lags; d++ {
		names = append(names, fmt.Sprintf("lag_%d", d))
	}
	names = append(names, f.Names[1], f.Names[2])

	return &analytics.Dataset{FeatureNames: names, Train: train, Validation: valid}, sc, nil
}
