// Package fis implements a type-2 Sugeno fuzzy inference system: variables
// partitioned by membership functions, a weighted rule table and the
// evaluation operator that turns a feature vector into a crisp forecast.
package fis

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidShape is returned for malformed membership functions
	ErrInvalidShape = errors.New("invalid membership function")
	// ErrInvalidVariable is returned for malformed input or output variables
	ErrInvalidVariable = errors.New("invalid variable")
	// ErrInvalidRule is returned when a rule indexes outside its variables
	ErrInvalidRule = errors.New("invalid rule")
	// ErrInputLength is returned when a feature vector does not match the inputs
	ErrInputLength = errors.New("input length mismatch")
)

// AndMethod selects the t-norm used to conjoin antecedent degrees
type AndMethod string

const (
	AndMin  AndMethod = "min"
	AndProd AndMethod = "prod"
)

// Variable is a named, bounded universe partitioned by membership functions.
// MF order is significant: rules address MFs by 1-based position.
type Variable struct {
	Name  string               `json:"name" yaml:"name"`
	Range [2]float64           `json:"range" yaml:"range,flow"`
	MFs   []MembershipFunction `json:"mfs" yaml:"mfs"`
}

// Width returns the span of the variable's range
func (v Variable) Width() float64 {
	return v.Range[1] - v.Range[0]
}

// Clamp limits x to the variable range
func (v Variable) Clamp(x float64) (float64, bool) {
	switch {
	case x < v.Range[0]:
		return v.Range[0], true
	case x > v.Range[1]:
		return v.Range[1], true
	default:
		return x, false
	}
}

func (v Variable) clone() Variable {
	out := v
	out.MFs = append([]MembershipFunction(nil), v.MFs...)
	return out
}

func (v Variable) validate(role string) error {
	if v.Name == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidVariable, role)
	}
	if math.IsNaN(v.Range[0]) || math.IsNaN(v.Range[1]) || !(v.Range[0] < v.Range[1]) {
		return fmt.Errorf("%w: %s %q range %v is empty", ErrInvalidVariable, role, v.Name, v.Range)
	}
	if len(v.MFs) == 0 {
		return fmt.Errorf("%w: %s %q has no membership functions", ErrInvalidVariable, role, v.Name)
	}
	for _, mf := range v.MFs {
		if err := mf.validate(); err != nil {
			return fmt.Errorf("%s %q: %w", role, v.Name, err)
		}
	}
	return nil
}

// Rule maps an antecedent (0 = input unused, otherwise a 1-based MF index per
// input) to a 1-based output MF index
type Rule struct {
	Antecedent []int   `json:"antecedent" yaml:"antecedent,flow"`
	Consequent int     `json:"consequent" yaml:"consequent"`
	Weight     float64 `json:"weight" yaml:"weight"`
}

// Clone returns a deep copy of the rule
func (r Rule) Clone() Rule {
	out := r
	out.Antecedent = append([]int(nil), r.Antecedent...)
	return out
}

// IsEmpty reports whether the rule references no input
func (r Rule) IsEmpty() bool {
	for _, idx := range r.Antecedent {
		if idx != 0 {
			return false
		}
	}
	return true
}

// FIS is a Sugeno fuzzy inference system with type-2 input sets.
// Values returned by New are validated; treat them as immutable and derive
// modified systems through Clone or WithRules.
type FIS struct {
	Name      string     `json:"name" yaml:"name"`
	AndMethod AndMethod  `json:"and_method" yaml:"and_method"`
	Inputs    []Variable `json:"inputs" yaml:"inputs"`
	Output    Variable   `json:"output" yaml:"output"`
	Rules     []Rule     `json:"rules" yaml:"rules"`
}

// New builds and validates a fuzzy inference system
func New(name string, inputs []Variable, output Variable, rules []Rule) (*FIS, error) {
	f := &FIS{
		Name:      name,
		AndMethod: AndMin,
		Inputs:    make([]Variable, len(inputs)),
		Output:    output.clone(),
		Rules:     make([]Rule, len(rules)),
	}
	for i, in := range inputs {
		f.Inputs[i] = in.clone()
	}
	for i, r := range rules {
		f.Rules[i] = r.Clone()
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks every structural invariant of the system
func (f *FIS) Validate() error {
	if len(f.Inputs) == 0 {
		return fmt.Errorf("%w: fis %q has no inputs", ErrInvalidVariable, f.Name)
	}
	switch f.AndMethod {
	case AndMin, AndProd:
	case "":
		f.AndMethod = AndMin
	default:
		return fmt.Errorf("fis %q: unsupported and method %q", f.Name, f.AndMethod)
	}
	for _, in := range f.Inputs {
		if err := in.validate("input"); err != nil {
			return err
		}
	}
	if err := f.Output.validate("output"); err != nil {
		return err
	}
	for i, r := range f.Rules {
		if err := f.validateRule(r); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return nil
}

func (f *FIS) validateRule(r Rule) error {
	if len(r.Antecedent) != len(f.Inputs) {
		return fmt.Errorf("%w: antecedent has %d entries, fis has %d inputs",
			ErrInvalidRule, len(r.Antecedent), len(f.Inputs))
	}
	for i, idx := range r.Antecedent {
		if idx < 0 || idx > len(f.Inputs[i].MFs) {
			return fmt.Errorf("%w: antecedent %d of input %q outside [0,%d]",
				ErrInvalidRule, idx, f.Inputs[i].Name, len(f.Inputs[i].MFs))
		}
	}
	if r.Consequent < 1 || r.Consequent > len(f.Output.MFs) {
		return fmt.Errorf("%w: consequent %d outside [1,%d]", ErrInvalidRule, r.Consequent, len(f.Output.MFs))
	}
	if !(r.Weight >= 0 && r.Weight <= 1) {
		return fmt.Errorf("%w: weight %v outside [0,1]", ErrInvalidRule, r.Weight)
	}
	return nil
}

// Clone returns a deep copy sharing no mutable state with f
func (f *FIS) Clone() *FIS {
	out := &FIS{
		Name:      f.Name,
		AndMethod: f.AndMethod,
		Inputs:    make([]Variable, len(f.Inputs)),
		Output:    f.Output.clone(),
		Rules:     make([]Rule, len(f.Rules)),
	}
	for i, in := range f.Inputs {
		out.Inputs[i] = in.clone()
	}
	for i, r := range f.Rules {
		out.Rules[i] = r.Clone()
	}
	return out
}

// WithRules returns a validated copy whose rule table is replaced wholesale
func (f *FIS) WithRules(rules []Rule) (*FIS, error) {
	out := f.Clone()
	out.Rules = make([]Rule, len(rules))
	for i, r := range rules {
		out.Rules[i] = r.Clone()
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// NumInputs returns the number of input variables
func (f *FIS) NumInputs() int {
	return len(f.Inputs)
}
