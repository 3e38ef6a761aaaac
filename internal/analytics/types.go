// Package analytics provides common types shared by the forecasting packages:
// univariate series, lagged feature matrices and their train/validation split.
package analytics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series is an ordered univariate time series
type Series []float64

// Len returns the number of observations
func (s Series) Len() int {
	return len(s)
}

// Clone returns an independent copy of the series
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Mean calculates the mean of all values
func (s Series) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	return stat.Mean(s, nil)
}

// StdDev calculates the sample standard deviation of all values
func (s Series) StdDev() float64 {
	if len(s) < 2 {
		return 0
	}
	return stat.StdDev(s, nil)
}

// Min returns the smallest value, 0 for an empty series
func (s Series) Min() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Min(s)
}

// Max returns the largest value, 0 for an empty series
func (s Series) Max() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Max(s)
}

// Matrix is a row-major feature matrix. Each row is one lagged feature vector.
type Matrix [][]float64

// Rows returns the number of rows
func (m Matrix) Rows() int {
	return len(m)
}

// Cols returns the width of the first row, 0 when empty
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Column copies column j out of the matrix
func (m Matrix) Column(j int) []float64 {
	col := make([]float64, len(m))
	for i, row := range m {
		col[i] = row[j]
	}
	return col
}

// Partition pairs a feature matrix with its next-step targets (1:1 rows)
type Partition struct {
	X Matrix `json:"x"`
	Y Series `json:"y"`
}

// Len returns the number of rows in the partition
func (p Partition) Len() int {
	return len(p.Y)
}

// Dataset is the output of the feature builder
type Dataset struct {
	FeatureNames []string  `json:"feature_names"`
	Train        Partition `json:"train"`
	Validation   Partition `json:"validation"`
}
