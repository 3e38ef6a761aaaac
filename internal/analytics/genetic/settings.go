// Package genetic tunes fuzzy inference systems with a generational genetic
// algorithm. A Settings view selects the decision variables (rule slots or
// membership function fields) and Tune searches them against a training set.
package genetic

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
)

// ErrSettingsMismatch is returned when a settings view does not fit the
// optimization type or the system it is applied to
var ErrSettingsMismatch = errors.New("tunable settings mismatch")

// Scope is the kind of decision variables a settings view exposes
type Scope string

const (
	ScopeRules      Scope = "rules"
	ScopeParameters Scope = "parameters"
)

// Field names a tunable quantity of a membership function
type Field string

const (
	FieldUpperParameters Field = "UpperParameters"
	FieldLowerScale      Field = "LowerScale"
	FieldLowerLag        Field = "LowerLag"
)

// Fields lists every maskable field in a stable order
var Fields = []Field{FieldUpperParameters, FieldLowerScale, FieldLowerLag}

// Mask is a stage-scoped set of frozen fields. The zero value freezes nothing.
type Mask struct {
	frozen map[Field]bool
}

// NewMask returns a mask freezing the given fields
func NewMask(frozen ...Field) Mask {
	m := Mask{frozen: make(map[Field]bool, len(frozen))}
	for _, f := range frozen {
		m.frozen[f] = true
	}
	return m
}

// FreezeAll returns a mask with every field frozen
func FreezeAll() Mask {
	return NewMask(Fields...)
}

// Free reports whether the field may be tuned
func (m Mask) Free(f Field) bool {
	return !m.frozen[f]
}

// Frozen returns the frozen fields in stable order
func (m Mask) Frozen() []Field {
	out := make([]Field, 0, len(m.frozen))
	for _, f := range Fields {
		if m.frozen[f] {
			out = append(out, f)
		}
	}
	return out
}

// Invert returns the complementary mask
func (m Mask) Invert() Mask {
	out := Mask{frozen: make(map[Field]bool)}
	for _, f := range Fields {
		if !m.frozen[f] {
			out.frozen[f] = true
		}
	}
	return out
}

// MFSettings describes one membership function in a parameter view
type MFSettings struct {
	Name      string   `json:"name"`
	Kind      fis.Kind `json:"kind"`
	NumParams int      `json:"num_params"`
	// Free flags, derived from the mask the view was restricted with
	UpperParameters bool `json:"upper_parameters"`
	LowerScale      bool `json:"lower_scale"`
	LowerLag        bool `json:"lower_lag"`
}

// VariableSettings describes one variable in a parameter view
type VariableSettings struct {
	Name string       `json:"name"`
	MFs  []MFSettings `json:"mfs"`
}

// Settings is a view over the tunable parts of a system. It references the
// system by name and shape only and never holds its values.
type Settings struct {
	Scope Scope `json:"scope"`

	// rule scope
	NumMaxRules int   `json:"num_max_rules,omitempty"`
	InputMFs    []int `json:"input_mfs,omitempty"`
	OutputMFs   int   `json:"output_mfs,omitempty"`

	// parameter scope
	Inputs        []VariableSettings `json:"inputs,omitempty"`
	Output        VariableSettings   `json:"output"`
	AsymmetricLag bool               `json:"asymmetric_lag,omitempty"`
}

// DescribeRules returns a rule-learning view with numMaxRules slots
func DescribeRules(f *fis.FIS, numMaxRules int) Settings {
	s := Settings{
		Scope:       ScopeRules,
		NumMaxRules: numMaxRules,
		InputMFs:    make([]int, len(f.Inputs)),
		OutputMFs:   len(f.Output.MFs),
	}
	for i, in := range f.Inputs {
		s.InputMFs[i] = len(in.MFs)
	}
	return s
}

// DescribeParameters returns a parameter view with every field free
func DescribeParameters(f *fis.FIS, asymmetricLag bool) Settings {
	s := Settings{
		Scope:         ScopeParameters,
		Inputs:        make([]VariableSettings, len(f.Inputs)),
		Output:        describeVariable(f.Output, false),
		AsymmetricLag: asymmetricLag,
	}
	for i, in := range f.Inputs {
		s.Inputs[i] = describeVariable(in, true)
	}
	return s
}

func describeVariable(v fis.Variable, lower bool) VariableSettings {
	vs := VariableSettings{Name: v.Name, MFs: make([]MFSettings, len(v.MFs))}
	for j, mf := range v.MFs {
		vs.MFs[j] = MFSettings{
			Name:            mf.Name,
			Kind:            mf.Upper.Kind(),
			NumParams:       len(mf.Upper.Params()),
			UpperParameters: true,
			LowerScale:      lower,
			LowerLag:        lower,
		}
	}
	return vs
}

// Restrict returns a copy of a parameter view with the mask applied to every
// input MF. Output MFs are Sugeno singletons without a lower set, so only
// their UpperParameters flag follows the mask.
func (s Settings) Restrict(m Mask, asymmetricLag bool) Settings {
	out := s.clone()
	out.AsymmetricLag = asymmetricLag
	for i := range out.Inputs {
		for j := range out.Inputs[i].MFs {
			mf := &out.Inputs[i].MFs[j]
			mf.UpperParameters = m.Free(FieldUpperParameters)
			mf.LowerScale = m.Free(FieldLowerScale)
			mf.LowerLag = m.Free(FieldLowerLag)
		}
	}
	for j := range out.Output.MFs {
		mf := &out.Output.MFs[j]
		mf.UpperParameters = m.Free(FieldUpperParameters)
		mf.LowerScale = false
		mf.LowerLag = false
	}
	return out
}

func (s Settings) clone() Settings {
	out := s
	out.InputMFs = append([]int(nil), s.InputMFs...)
	out.Inputs = make([]VariableSettings, len(s.Inputs))
	for i, vs := range s.Inputs {
		out.Inputs[i] = VariableSettings{Name: vs.Name, MFs: append([]MFSettings(nil), vs.MFs...)}
	}
	out.Output = VariableSettings{Name: s.Output.Name, MFs: append([]MFSettings(nil), s.Output.MFs...)}
	return out
}

// FreeCount returns the number of free fields per field name
func (s Settings) FreeCount() map[Field]int {
	counts := make(map[Field]int, len(Fields))
	visit := func(mfs []MFSettings) {
		for _, mf := range mfs {
			if mf.UpperParameters {
				counts[FieldUpperParameters]++
			}
			if mf.LowerScale {
				counts[FieldLowerScale]++
			}
			if mf.LowerLag {
				counts[FieldLowerLag]++
			}
		}
	}
	for _, in := range s.Inputs {
		visit(in.MFs)
	}
	visit(s.Output.MFs)
	return counts
}

// Validate checks that the view fits the optimization type and addresses
// only inputs and MFs present in f
func (s Settings) Validate(f *fis.FIS, typ OptimizationType) error {
	switch typ {
	case OptimizationLearning:
		if s.Scope != ScopeRules {
			return fmt.Errorf("%w: learning needs rule settings, got %q", ErrSettingsMismatch, s.Scope)
		}
		return s.validateRules(f)
	case OptimizationTuning:
		if s.Scope != ScopeParameters {
			return fmt.Errorf("%w: tuning needs parameter settings, got %q", ErrSettingsMismatch, s.Scope)
		}
		return s.validateParameters(f)
	default:
		return fmt.Errorf("%w: unknown optimization type %q", ErrSettingsMismatch, typ)
	}
}

func (s Settings) validateRules(f *fis.FIS) error {
	if s.NumMaxRules < 1 {
		return fmt.Errorf("%w: NumMaxRules must be >= 1, got %d", ErrSettingsMismatch, s.NumMaxRules)
	}
	if len(s.InputMFs) != len(f.Inputs) {
		return fmt.Errorf("%w: view has %d inputs, fis has %d", ErrSettingsMismatch, len(s.InputMFs), len(f.Inputs))
	}
	for i, n := range s.InputMFs {
		if n != len(f.Inputs[i].MFs) {
			return fmt.Errorf("%w: input %q has %d MFs, view expects %d",
				ErrSettingsMismatch, f.Inputs[i].Name, len(f.Inputs[i].MFs), n)
		}
	}
	if s.OutputMFs != len(f.Output.MFs) {
		return fmt.Errorf("%w: output has %d MFs, view expects %d", ErrSettingsMismatch, len(f.Output.MFs), s.OutputMFs)
	}
	return nil
}

func (s Settings) validateParameters(f *fis.FIS) error {
	if len(s.Inputs) != len(f.Inputs) {
		return fmt.Errorf("%w: view has %d inputs, fis has %d", ErrSettingsMismatch, len(s.Inputs), len(f.Inputs))
	}
	for i, vs := range s.Inputs {
		if err := vs.validate(f.Inputs[i]); err != nil {
			return err
		}
	}
	if err := s.Output.validate(f.Output); err != nil {
		return err
	}
	for _, mf := range s.Output.MFs {
		if mf.LowerScale || mf.LowerLag {
			return fmt.Errorf("%w: output MF %q has no lower set", ErrSettingsMismatch, mf.Name)
		}
	}
	return nil
}

func (vs VariableSettings) validate(v fis.Variable) error {
	if vs.Name != v.Name {
		return fmt.Errorf("%w: view variable %q does not match %q", ErrSettingsMismatch, vs.Name, v.Name)
	}
	if len(vs.MFs) != len(v.MFs) {
		return fmt.Errorf("%w: variable %q has %d MFs, view expects %d", ErrSettingsMismatch, v.Name, len(v.MFs), len(vs.MFs))
	}
	for j, ms := range vs.MFs {
		mf := v.MFs[j]
		if ms.Name != mf.Name || ms.Kind != mf.Upper.Kind() || ms.NumParams != len(mf.Upper.Params()) {
			return fmt.Errorf("%w: variable %q MF %d is %s %q, view expects %s %q",
				ErrSettingsMismatch, v.Name, j+1, mf.Upper.Kind(), mf.Name, ms.Kind, ms.Name)
		}
	}
	return nil
}

// Describe renders a compact summary of the view for logs
func (s Settings) Describe() string {
	if s.Scope == ScopeRules {
		return fmt.Sprintf("rules(slots=%d inputs=%d outputs=%d)", s.NumMaxRules, len(s.InputMFs), s.OutputMFs)
	}
	counts := s.FreeCount()
	keys := make([]string, 0, len(counts))
	for f, n := range counts {
		keys = append(keys, fmt.Sprintf("%s=%d", f, n))
	}
	sort.Strings(keys)
	return fmt.Sprintf("parameters(asymmetric=%t free=%v)", s.AsymmetricLag, keys)
}
