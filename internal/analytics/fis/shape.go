package fis

import (
	"fmt"
	"math"
	"sort"
)

// Kind identifies a membership function shape
type Kind string

const (
	KindTriangular  Kind = "trimf"
	KindTrapezoidal Kind = "trapmf"
	KindGaussian    Kind = "gaussmf"
	KindConstant    Kind = "constant"
)

// minSigma keeps gaussian shapes from collapsing to a spike
const minSigma = 1e-6

// Shape is a type-1 membership function. Implementations are immutable values.
type Shape interface {
	// Kind returns the shape identifier used for serialization
	Kind() Kind
	// Degree returns the membership degree of x in [0,1]
	Degree(x float64) float64
	// RepresentativeValue is the crisp value used for defuzzification and naming
	RepresentativeValue() float64
	// Peak is the location splitting the left and right flanks
	Peak() float64
	// Params returns a copy of the numeric parameter vector
	Params() []float64
	// WithParams returns a new normalized shape of the same kind
	WithParams(p []float64) (Shape, error)
}

// NewShape builds a shape from its kind and parameter vector
func NewShape(kind Kind, params []float64) (Shape, error) {
	for _, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: %s has non-finite parameter", ErrInvalidShape, kind)
		}
	}

	switch kind {
	case KindTriangular:
		if len(params) != 3 {
			return nil, fmt.Errorf("%w: trimf needs 3 parameters, got %d", ErrInvalidShape, len(params))
		}
		p := sortedCopy(params)
		return Triangular{A: p[0], B: p[1], C: p[2]}, nil
	case KindTrapezoidal:
		if len(params) != 4 {
			return nil, fmt.Errorf("%w: trapmf needs 4 parameters, got %d", ErrInvalidShape, len(params))
		}
		p := sortedCopy(params)
		return Trapezoidal{A: p[0], B: p[1], C: p[2], D: p[3]}, nil
	case KindGaussian:
		if len(params) != 2 {
			return nil, fmt.Errorf("%w: gaussmf needs 2 parameters, got %d", ErrInvalidShape, len(params))
		}
		return Gaussian{Center: params[0], Sigma: math.Max(math.Abs(params[1]), minSigma)}, nil
	case KindConstant:
		if len(params) != 1 {
			return nil, fmt.Errorf("%w: constant needs 1 parameter, got %d", ErrInvalidShape, len(params))
		}
		return Constant{Value: params[0]}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidShape, kind)
	}
}

func sortedCopy(p []float64) []float64 {
	out := append([]float64(nil), p...)
	sort.Float64s(out)
	return out
}

// Triangular is defined by feet A, C and peak B (A <= B <= C)
type Triangular struct {
	A, B, C float64
}

func (t Triangular) Kind() Kind { return KindTriangular }

func (t Triangular) Degree(x float64) float64 {
	switch {
	case x == t.B:
		return 1
	case x <= t.A || x >= t.C:
		return 0
	case x < t.B:
		return (x - t.A) / (t.B - t.A)
	default:
		return (t.C - x) / (t.C - t.B)
	}
}

func (t Triangular) RepresentativeValue() float64 { return t.B }

func (t Triangular) Peak() float64 { return t.B }

func (t Triangular) Params() []float64 { return []float64{t.A, t.B, t.C} }

func (t Triangular) WithParams(p []float64) (Shape, error) { return NewShape(KindTriangular, p) }

// Trapezoidal is defined by feet A, D and shoulders B, C
type Trapezoidal struct {
	A, B, C, D float64
}

func (t Trapezoidal) Kind() Kind { return KindTrapezoidal }

func (t Trapezoidal) Degree(x float64) float64 {
	switch {
	case x >= t.B && x <= t.C:
		return 1
	case x <= t.A || x >= t.D:
		return 0
	case x < t.B:
		return (x - t.A) / (t.B - t.A)
	default:
		return (t.D - x) / (t.D - t.C)
	}
}

func (t Trapezoidal) RepresentativeValue() float64 { return (t.B + t.C) / 2 }

func (t Trapezoidal) Peak() float64 { return (t.B + t.C) / 2 }

func (t Trapezoidal) Params() []float64 { return []float64{t.A, t.B, t.C, t.D} }

func (t Trapezoidal) WithParams(p []float64) (Shape, error) { return NewShape(KindTrapezoidal, p) }

// Gaussian keeps its center as the first parameter: params are [center sigma]
type Gaussian struct {
	Center, Sigma float64
}

func (g Gaussian) Kind() Kind { return KindGaussian }

func (g Gaussian) Degree(x float64) float64 {
	d := (x - g.Center) / g.Sigma
	return math.Exp(-0.5 * d * d)
}

func (g Gaussian) RepresentativeValue() float64 { return g.Center }

func (g Gaussian) Peak() float64 { return g.Center }

func (g Gaussian) Params() []float64 { return []float64{g.Center, g.Sigma} }

func (g Gaussian) WithParams(p []float64) (Shape, error) { return NewShape(KindGaussian, p) }

// Constant is a Sugeno output singleton
type Constant struct {
	Value float64
}

func (c Constant) Kind() Kind { return KindConstant }

func (c Constant) Degree(x float64) float64 {
	if x == c.Value {
		return 1
	}
	return 0
}

func (c Constant) RepresentativeValue() float64 { return c.Value }

func (c Constant) Peak() float64 { return c.Value }

func (c Constant) Params() []float64 { return []float64{c.Value} }

func (c Constant) WithParams(p []float64) (Shape, error) { return NewShape(KindConstant, p) }
