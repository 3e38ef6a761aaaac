package genetic

import (
	"fmt"
	"math"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
)

// Bounds of the lower-set genes
const (
	MinLowerScale = 0.05
	MaxLowerLag   = 0.9
)

// Gene bounds one decision variable
type Gene struct {
	Lo, Hi  float64
	Integer bool
}

// clamp limits v to the gene bounds, rounding integer genes
func (g Gene) clamp(v float64) float64 {
	if g.Integer {
		v = math.Round(v)
	}
	if math.IsNaN(v) {
		return g.Lo
	}
	return math.Max(g.Lo, math.Min(g.Hi, v))
}

// Chromosome is one candidate solution
type Chromosome []float64

// Clone returns an independent copy
func (c Chromosome) Clone() Chromosome {
	return append(Chromosome(nil), c...)
}

// Codec maps between a system and a fixed-length chromosome
type Codec interface {
	Genes() []Gene
	Encode(f *fis.FIS) Chromosome
	Decode(base *fis.FIS, c Chromosome) (*fis.FIS, error)
}

// NewCodec builds the codec matching the scope of s
func NewCodec(f *fis.FIS, s Settings) (Codec, error) {
	switch s.Scope {
	case ScopeRules:
		return newRuleCodec(s), nil
	case ScopeParameters:
		return newParamCodec(f, s), nil
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrSettingsMismatch, s.Scope)
	}
}

// ruleCodec encodes NumMaxRules slots of antecedent genes plus a consequent gene
type ruleCodec struct {
	slots    int
	inputMFs []int
	outMFs   int
	genes    []Gene
}

func newRuleCodec(s Settings) *ruleCodec {
	c := &ruleCodec{slots: s.NumMaxRules, inputMFs: s.InputMFs, outMFs: s.OutputMFs}
	width := len(s.InputMFs) + 1
	c.genes = make([]Gene, 0, s.NumMaxRules*width)
	for k := 0; k < s.NumMaxRules; k++ {
		for _, n := range s.InputMFs {
			c.genes = append(c.genes, Gene{Lo: 0, Hi: float64(n), Integer: true})
		}
		c.genes = append(c.genes, Gene{Lo: 1, Hi: float64(s.OutputMFs), Integer: true})
	}
	return c
}

func (c *ruleCodec) Genes() []Gene { return c.genes }

func (c *ruleCodec) width() int { return len(c.inputMFs) + 1 }

// Encode places the first NumMaxRules rules into slots; unused slots are empty
func (c *ruleCodec) Encode(f *fis.FIS) Chromosome {
	out := make(Chromosome, len(c.genes))
	w := c.width()
	for k := 0; k < c.slots; k++ {
		base := k * w
		if k >= len(f.Rules) {
			out[base+w-1] = 1
			continue
		}
		r := f.Rules[k]
		for i, idx := range r.Antecedent {
			out[base+i] = float64(idx)
		}
		out[base+w-1] = float64(r.Consequent)
	}
	return out
}

// Decode drops slots whose antecedent is all zero
func (c *ruleCodec) Decode(base *fis.FIS, ch Chromosome) (*fis.FIS, error) {
	w := c.width()
	rules := make([]fis.Rule, 0, c.slots)
	for k := 0; k < c.slots; k++ {
		slot := ch[k*w : (k+1)*w]
		r := fis.Rule{Antecedent: make([]int, len(c.inputMFs)), Weight: 1}
		for i := range c.inputMFs {
			r.Antecedent[i] = int(c.genes[k*w+i].clamp(slot[i]))
		}
		if r.IsEmpty() {
			continue
		}
		r.Consequent = int(c.genes[k*w+w-1].clamp(slot[w-1]))
		rules = append(rules, r)
	}
	return base.WithRules(rules)
}

type paramTarget int

const (
	targetUpper paramTarget = iota
	targetScale
	targetLag
	targetLagLeft
	targetLagRight
)

// paramSlot ties one gene to a field of one MF. Variable -1 is the output.
type paramSlot struct {
	variable int
	mf       int
	target   paramTarget
	param    int
}

type paramCodec struct {
	slots []paramSlot
	genes []Gene
}

func newParamCodec(f *fis.FIS, s Settings) *paramCodec {
	c := &paramCodec{}
	add := func(v fis.Variable, vi int, vs VariableSettings) {
		for j, ms := range vs.MFs {
			if ms.UpperParameters {
				mf := v.MFs[j]
				for p := range mf.Upper.Params() {
					c.slots = append(c.slots, paramSlot{variable: vi, mf: j, target: targetUpper, param: p})
					c.genes = append(c.genes, upperGene(v, mf.Upper.Kind(), p))
				}
			}
			if ms.LowerScale {
				c.slots = append(c.slots, paramSlot{variable: vi, mf: j, target: targetScale})
				c.genes = append(c.genes, Gene{Lo: MinLowerScale, Hi: 1})
			}
			if ms.LowerLag {
				if s.AsymmetricLag {
					c.slots = append(c.slots,
						paramSlot{variable: vi, mf: j, target: targetLagLeft},
						paramSlot{variable: vi, mf: j, target: targetLagRight})
					c.genes = append(c.genes, Gene{Lo: 0, Hi: MaxLowerLag}, Gene{Lo: 0, Hi: MaxLowerLag})
				} else {
					c.slots = append(c.slots, paramSlot{variable: vi, mf: j, target: targetLag})
					c.genes = append(c.genes, Gene{Lo: 0, Hi: MaxLowerLag})
				}
			}
		}
	}
	for i, vs := range s.Inputs {
		add(f.Inputs[i], i, vs)
	}
	add(f.Output, -1, s.Output)
	return c
}

// upperGene bounds shape parameters by the variable range; a gaussian sigma
// is bounded by the range width instead
func upperGene(v fis.Variable, kind fis.Kind, param int) Gene {
	if kind == fis.KindGaussian && param == 1 {
		return Gene{Lo: 1e-3 * v.Width(), Hi: v.Width()}
	}
	return Gene{Lo: v.Range[0], Hi: v.Range[1]}
}

func (c *paramCodec) Genes() []Gene { return c.genes }

func mfAt(f *fis.FIS, variable, mf int) *fis.MembershipFunction {
	if variable < 0 {
		return &f.Output.MFs[mf]
	}
	return &f.Inputs[variable].MFs[mf]
}

func (c *paramCodec) Encode(f *fis.FIS) Chromosome {
	out := make(Chromosome, len(c.genes))
	for g, s := range c.slots {
		mf := mfAt(f, s.variable, s.mf)
		var v float64
		switch s.target {
		case targetUpper:
			v = mf.Upper.Params()[s.param]
		case targetScale:
			v = mf.LowerScale
		case targetLag, targetLagLeft:
			v = mf.LowerLag[fis.LagLeft]
		case targetLagRight:
			v = mf.LowerLag[fis.LagRight]
		}
		out[g] = c.genes[g].clamp(v)
	}
	return out
}

// Decode writes the genes into a clone of base. Upper parameters are collected
// per MF and renormalized once so breakpoints stay ordered.
func (c *paramCodec) Decode(base *fis.FIS, ch Chromosome) (*fis.FIS, error) {
	out := base.Clone()
	type key struct{ variable, mf int }
	upper := make(map[key][]float64)
	order := make([]key, 0)

	for g, s := range c.slots {
		v := c.genes[g].clamp(ch[g])
		mf := mfAt(out, s.variable, s.mf)
		switch s.target {
		case targetUpper:
			k := key{s.variable, s.mf}
			if _, ok := upper[k]; !ok {
				upper[k] = mf.Upper.Params()
				order = append(order, k)
			}
			upper[k][s.param] = v
		case targetScale:
			mf.LowerScale = v
		case targetLag:
			mf.LowerLag = [2]float64{v, v}
		case targetLagLeft:
			mf.LowerLag[fis.LagLeft] = v
		case targetLagRight:
			mf.LowerLag[fis.LagRight] = v
		}
	}

	for _, k := range order {
		mf := mfAt(out, k.variable, k.mf)
		shape, err := mf.Upper.WithParams(upper[k])
		if err != nil {
			return nil, err
		}
		mf.Upper = shape
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
