package fis

import (
	"encoding/json"
	"fmt"
	"math"
)

// Lag sides of the asymmetric lower-set offset
const (
	LagLeft  = 0
	LagRight = 1
)

// MembershipFunction is a type-2 fuzzy set: an upper shape plus the scale and
// lag that derive the inner (lower) set from it.
//
// The lower degree is LowerScale * clamp((upper - lag) / (1 - lag), 0, 1),
// where lag is LowerLag[LagLeft] left of the peak and LowerLag[LagRight] from
// the peak on. Lower never exceeds upper, and LowerScale=1 with zero lags
// makes both sets identical.
type MembershipFunction struct {
	Name       string
	Upper      Shape
	LowerScale float64
	LowerLag   [2]float64
}

// NewMF returns a type-1 equivalent membership function (scale 1, no lag)
func NewMF(name string, upper Shape) MembershipFunction {
	return MembershipFunction{Name: name, Upper: upper, LowerScale: 1}
}

// Degrees evaluates both sets with a single upper evaluation
func (mf MembershipFunction) Degrees(x float64) (upper, lower float64) {
	upper = mf.Upper.Degree(x)
	return upper, mf.lowerFrom(x, upper)
}

func (mf MembershipFunction) lowerFrom(x, upper float64) float64 {
	lag := mf.LowerLag[LagRight]
	if x < mf.Upper.Peak() {
		lag = mf.LowerLag[LagLeft]
	}
	if lag <= 0 {
		return mf.LowerScale * upper
	}
	v := (upper - lag) / (1 - lag)
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return mf.LowerScale * v
}

// RepresentativeValue delegates to the upper shape
func (mf MembershipFunction) RepresentativeValue() float64 {
	return mf.Upper.RepresentativeValue()
}

// IsTypeOne reports whether the lower set equals the upper set
func (mf MembershipFunction) IsTypeOne() bool {
	return mf.LowerScale == 1 && mf.LowerLag[LagLeft] == 0 && mf.LowerLag[LagRight] == 0
}

func (mf MembershipFunction) validate() error {
	if mf.Upper == nil {
		return fmt.Errorf("%w: membership function %q has no shape", ErrInvalidShape, mf.Name)
	}
	if !(mf.LowerScale > 0 && mf.LowerScale <= 1) || math.IsNaN(mf.LowerScale) {
		return fmt.Errorf("%w: membership function %q lower scale %v outside (0,1]",
			ErrInvalidShape, mf.Name, mf.LowerScale)
	}
	for _, lag := range mf.LowerLag {
		if !(lag >= 0 && lag < 1) {
			return fmt.Errorf("%w: membership function %q lower lag %v outside [0,1)",
				ErrInvalidShape, mf.Name, lag)
		}
	}
	return nil
}

type mfWire struct {
	Name       string     `json:"name" yaml:"name"`
	Type       Kind       `json:"type" yaml:"type"`
	Params     []float64  `json:"params" yaml:"params,flow"`
	LowerScale float64    `json:"lower_scale" yaml:"lower_scale"`
	LowerLag   [2]float64 `json:"lower_lag" yaml:"lower_lag,flow"`
}

func (mf MembershipFunction) toWire() mfWire {
	w := mfWire{Name: mf.Name, LowerScale: mf.LowerScale, LowerLag: mf.LowerLag}
	if mf.Upper != nil {
		w.Type = mf.Upper.Kind()
		w.Params = mf.Upper.Params()
	}
	return w
}

func (w mfWire) toMF() (MembershipFunction, error) {
	shape, err := NewShape(w.Type, w.Params)
	if err != nil {
		return MembershipFunction{}, fmt.Errorf("membership function %q: %w", w.Name, err)
	}
	return MembershipFunction{Name: w.Name, Upper: shape, LowerScale: w.LowerScale, LowerLag: w.LowerLag}, nil
}

// MarshalJSON encodes the shape as a tagged {type, params} pair
func (mf MembershipFunction) MarshalJSON() ([]byte, error) {
	return json.Marshal(mf.toWire())
}

// UnmarshalJSON decodes the tagged form back into the matching variant
func (mf *MembershipFunction) UnmarshalJSON(data []byte) error {
	var w mfWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := w.toMF()
	if err != nil {
		return err
	}
	*mf = decoded
	return nil
}
