package fis

import (
	"fmt"
	"math"
)

// Firing is the per-rule type-2 firing strength pair
type Firing struct {
	Upper    float64 `json:"upper"`
	Lower    float64 `json:"lower"`
	Combined float64 `json:"combined"`
}

// Evaluation is the result of one inference pass.
// When no rule fires Defined is false and Value is NaN.
type Evaluation struct {
	Value   float64  `json:"value"`
	Defined bool     `json:"defined"`
	Firing  []Firing `json:"firing"`
	Clamped int      `json:"clamped"`
}

// Evaluate maps a feature vector to a forecast and per-rule firing strengths.
// Inputs outside their range are clamped and counted rather than rejected.
func (f *FIS) Evaluate(x []float64) (Evaluation, error) {
	if len(x) != len(f.Inputs) {
		return Evaluation{}, fmt.Errorf("%w: got %d values for %d inputs", ErrInputLength, len(x), len(f.Inputs))
	}

	ev := Evaluation{Firing: make([]Firing, len(f.Rules))}

	// Degrees are computed lazily per (input, mf) and cached for this pass.
	upper := make([][]float64, len(f.Inputs))
	lower := make([][]float64, len(f.Inputs))
	crisp := make([]float64, len(f.Inputs))
	for i, in := range f.Inputs {
		v := x[i]
		if math.IsNaN(v) {
			v = (in.Range[0] + in.Range[1]) / 2
			ev.Clamped++
		} else if c, clamped := in.Clamp(v); clamped {
			v = c
			ev.Clamped++
		}
		crisp[i] = v
		upper[i] = make([]float64, len(in.MFs))
		lower[i] = make([]float64, len(in.MFs))
		for j := range upper[i] {
			upper[i][j] = -1
		}
	}

	num, den := 0.0, 0.0
	for k, r := range f.Rules {
		up, lo, used := 1.0, 1.0, false
		for i, idx := range r.Antecedent {
			if idx == 0 {
				continue
			}
			j := idx - 1
			if upper[i][j] < 0 {
				upper[i][j], lower[i][j] = f.Inputs[i].MFs[j].Degrees(crisp[i])
			}
			up = f.conjoin(up, upper[i][j], used)
			lo = f.conjoin(lo, lower[i][j], used)
			used = true
		}
		if !used {
			up, lo = 0, 0
		}

		combined := math.Sqrt(up * lo)
		ev.Firing[k] = Firing{Upper: up, Lower: lo, Combined: combined}

		w := combined * r.Weight
		if w == 0 {
			continue
		}
		num += w * f.Output.MFs[r.Consequent-1].RepresentativeValue()
		den += w
	}

	if den == 0 {
		ev.Value = math.NaN()
		return ev, nil
	}
	ev.Value = num / den
	ev.Defined = true
	return ev, nil
}

func (f *FIS) conjoin(acc, degree float64, used bool) float64 {
	if !used {
		return degree
	}
	if f.AndMethod == AndProd {
		return acc * degree
	}
	return math.Min(acc, degree)
}

// EvaluateBatch evaluates every row of X. Undefined rows yield NaN and are counted.
func (f *FIS) EvaluateBatch(X [][]float64) (values []float64, undefined int, err error) {
	values = make([]float64, len(X))
	for i, row := range X {
		ev, err := f.Evaluate(row)
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", i, err)
		}
		values[i] = ev.Value
		if !ev.Defined {
			undefined++
		}
	}
	return values, undefined, nil
}
