package fis

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMaxGridRules caps the full-combination rule base built by NewGrid
const DefaultMaxGridRules = 4096

// ErrGridTooLarge is returned when MFsPerInput^inputs exceeds MaxGridRules
var ErrGridTooLarge = errors.New("grid rule base too large")

// GridConfig describes the initial grid-partitioned system
type GridConfig struct {
	Name          string
	Lags          int
	ExogenousName []string
	ExtraInputs   int
	MFsPerInput   int
	Shape         Kind
	InputRange    [2]float64
	OutputName    string
	OutputRange   [2]float64
	AndMethod     AndMethod
	MaxGridRules  int
}

// DefaultGridConfig returns the normalized two-exogenous layout with three lags
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Name:          "fuzzcast",
		Lags:          3,
		ExogenousName: []string{"humidity", "wind_speed"},
		MFsPerInput:   3,
		Shape:         KindTriangular,
		InputRange:    [2]float64{0, 1},
		OutputName:    "forecast",
		OutputRange:   [2]float64{0, 1},
		AndMethod:     AndMin,
		MaxGridRules:  DefaultMaxGridRules,
	}
}

func (c *GridConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "fuzzcast"
	}
	if c.ExogenousName == nil {
		c.ExogenousName = []string{"humidity", "wind_speed"}
	}
	if c.Shape == "" {
		c.Shape = KindTriangular
	}
	if c.InputRange == [2]float64{} {
		c.InputRange = [2]float64{0, 1}
	}
	if c.OutputName == "" {
		c.OutputName = "forecast"
	}
	if c.OutputRange == [2]float64{} {
		c.OutputRange = [2]float64{0, 1}
	}
	if c.AndMethod == "" {
		c.AndMethod = AndMin
	}
	if c.MaxGridRules <= 0 {
		c.MaxGridRules = DefaultMaxGridRules
	}
}

// InputNames returns the ordered input names: lag_1..lag_D, the exogenous
// names, then input_k for any extras
func (c GridConfig) InputNames() []string {
	names := make([]string, 0, c.Lags+len(c.ExogenousName)+c.ExtraInputs)
	for i := 1; i <= c.Lags; i++ {
		names = append(names, fmt.Sprintf("lag_%d", i))
	}
	names = append(names, c.ExogenousName...)
	for i := 0; i < c.ExtraInputs; i++ {
		names = append(names, fmt.Sprintf("input_%d", len(names)+1))
	}
	return names
}

// NewGrid builds the initial system: evenly spaced input MFs, one constant
// output MF per grid cell and one rule per combination of input MF indices
func NewGrid(cfg GridConfig) (*FIS, error) {
	cfg.applyDefaults()
	if cfg.MFsPerInput < 1 {
		return nil, fmt.Errorf("%w: MFsPerInput must be >= 1, got %d", ErrInvalidVariable, cfg.MFsPerInput)
	}
	names := cfg.InputNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: grid has no inputs", ErrInvalidVariable)
	}

	cells := 1
	for range names {
		cells *= cfg.MFsPerInput
		if cells > cfg.MaxGridRules {
			return nil, fmt.Errorf("%w: %d^%d exceeds %d",
				ErrGridTooLarge, cfg.MFsPerInput, len(names), cfg.MaxGridRules)
		}
	}

	inputs := make([]Variable, len(names))
	for i, name := range names {
		mfs, err := partition(cfg.Shape, cfg.MFsPerInput, cfg.InputRange)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		inputs[i] = Variable{Name: name, Range: cfg.InputRange, MFs: mfs}
	}

	output := Variable{Name: cfg.OutputName, Range: cfg.OutputRange, MFs: make([]MembershipFunction, cells)}
	for k := 0; k < cells; k++ {
		v := cfg.OutputRange[0]
		if cells > 1 {
			v += float64(k) * (cfg.OutputRange[1] - cfg.OutputRange[0]) / float64(cells-1)
		}
		output.MFs[k] = NewMF(fmt.Sprintf("out%d", k+1), Constant{Value: v})
	}

	rules := make([]Rule, 0, cells)
	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = 1
	}
	for k := 1; k <= cells; k++ {
		rules = append(rules, Rule{Antecedent: append([]int(nil), idx...), Consequent: k, Weight: 1})
		// odometer increment, last input fastest
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] <= cfg.MFsPerInput {
				break
			}
			idx[i] = 1
		}
	}

	f, err := New(cfg.Name, inputs, output, rules)
	if err != nil {
		return nil, err
	}
	f.AndMethod = cfg.AndMethod
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func partition(kind Kind, n int, rng [2]float64) ([]MembershipFunction, error) {
	lo, hi := rng[0], rng[1]
	step := hi - lo
	if n > 1 {
		step = (hi - lo) / float64(n-1)
	}
	names := mfNames(n)
	mfs := make([]MembershipFunction, n)
	for j := 0; j < n; j++ {
		c := lo + float64(j)*step
		if n == 1 {
			c = (lo + hi) / 2
		}
		var params []float64
		switch kind {
		case KindTriangular:
			params = []float64{c - step, c, c + step}
		case KindTrapezoidal:
			params = []float64{c - step, c - step/4, c + step/4, c + step}
		case KindGaussian:
			params = []float64{c, step / (2 * math.Sqrt(2*math.Ln2))}
		default:
			return nil, fmt.Errorf("%w: %q cannot partition an input", ErrInvalidShape, kind)
		}
		shape, err := NewShape(kind, params)
		if err != nil {
			return nil, err
		}
		mfs[j] = NewMF(names[j], shape)
	}
	return mfs, nil
}

func mfNames(n int) []string {
	if n == 3 {
		return []string{"low", "medium", "high"}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("mf%d", i+1)
	}
	return names
}
