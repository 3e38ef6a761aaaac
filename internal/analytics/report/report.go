// Package report post-processes a tuned system: it merges rule sets, gives
// output membership functions readable names and renders the rule listing.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
)

// Bin maps a closed interval of normalized output values to a name
type Bin struct {
	Name   string
	Lo, Hi float64
}

// Bins are checked in ascending order; the first match wins
var Bins = []Bin{
	{Name: "Critical_Low", Lo: 0.0, Hi: 0.2},
	{Name: "Low", Lo: 0.2, Hi: 0.4},
	{Name: "Medium", Lo: 0.4, Hi: 0.6},
	{Name: "High", Lo: 0.6, Hi: 0.8},
	{Name: "Peak", Lo: 0.8, Hi: 1.0},
}

// MergeRules returns tuned's variables with tuned's rules followed by every
// initial rule. Rules are neither deduplicated nor reweighted.
func MergeRules(tuned, initial *fis.FIS) (*fis.FIS, error) {
	rules := make([]fis.Rule, 0, len(tuned.Rules)+len(initial.Rules))
	rules = append(rules, tuned.Rules...)
	rules = append(rules, initial.Rules...)
	merged, err := tuned.WithRules(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to merge rules: %w", err)
	}
	return merged, nil
}

// UndefinedName labels an output MF whose center is not a number
const UndefinedName = "Undefined"

// BinName returns the bin for a center value. Values below the first bin
// fall into it, values above the last fall into the last.
func BinName(center float64) string {
	if math.IsNaN(center) {
		return UndefinedName
	}
	if center < Bins[0].Lo {
		return Bins[0].Name
	}
	for _, b := range Bins {
		if center >= b.Lo && center <= b.Hi {
			return b.Name
		}
	}
	return Bins[len(Bins)-1].Name
}

// NameOutputs names every output MF by the bin of its representative value.
// The first MF in a bin gets the bare name, later ones _2, _3 and so on.
func NameOutputs(f *fis.FIS) []string {
	seen := make(map[string]int, len(Bins))
	names := make([]string, len(f.Output.MFs))
	for i, mf := range f.Output.MFs {
		base := BinName(mf.RepresentativeValue())
		seen[base]++
		if n := seen[base]; n > 1 {
			names[i] = fmt.Sprintf("%s_%d", base, n)
		} else {
			names[i] = base
		}
	}
	return names
}

// ApplyNames returns a copy of f with its output MFs renamed
func ApplyNames(f *fis.FIS, names []string) (*fis.FIS, error) {
	if len(names) != len(f.Output.MFs) {
		return nil, fmt.Errorf("got %d names for %d output MFs", len(names), len(f.Output.MFs))
	}
	out := f.Clone()
	for i := range out.Output.MFs {
		out.Output.MFs[i].Name = names[i]
	}
	return out, nil
}

// Format renders one line per rule:
//
//	Rule 1: IF lag_1 is low AND humidity is high THEN forecast is Low (weight 1.0)
//
// names overrides output MF names when it has one entry per output MF.
func Format(f *fis.FIS, names []string) string {
	if len(names) != len(f.Output.MFs) {
		names = make([]string, len(f.Output.MFs))
		for i, mf := range f.Output.MFs {
			names[i] = mf.Name
		}
	}

	var b strings.Builder
	for k, r := range f.Rules {
		clauses := make([]string, 0, len(r.Antecedent))
		for i, idx := range r.Antecedent {
			if idx == 0 {
				continue
			}
			in := f.Inputs[i]
			clauses = append(clauses, fmt.Sprintf("%s is %s", in.Name, in.MFs[idx-1].Name))
		}
		cond := "true"
		if len(clauses) > 0 {
			cond = strings.Join(clauses, " AND ")
		}
		fmt.Fprintf(&b, "Rule %d: IF %s THEN %s is %s (weight %.1f)\n",
			k+1, cond, f.Output.Name, names[r.Consequent-1], r.Weight)
	}
	return b.String()
}

// Summary is the machine-readable form of the rule report
type Summary struct {
	OutputNames []string `json:"output_names"`
	Rules       []string `json:"rules"`
	Text        string   `json:"text"`
	// TypeTwoMFs counts input MFs whose lower set differs from the upper set
	TypeTwoMFs int `json:"type2_mfs"`
	InputMFs   int `json:"input_mfs"`
}

// Summarize names and formats f as it stands, without merging
func Summarize(f *fis.FIS) Summary {
	names := NameOutputs(f)
	text := Format(f, names)
	sum := Summary{
		OutputNames: names,
		Rules:       strings.Split(strings.TrimSuffix(text, "\n"), "\n"),
		Text:        text,
	}
	for _, in := range f.Inputs {
		for _, mf := range in.MFs {
			sum.InputMFs++
			if !mf.IsTypeOne() {
				sum.TypeTwoMFs++
			}
		}
	}
	return sum
}

// Build merges, names and formats in one pass
func Build(tuned, initial *fis.FIS) (*fis.FIS, Summary, error) {
	merged, err := MergeRules(tuned, initial)
	if err != nil {
		return nil, Summary{}, err
	}
	names := NameOutputs(merged)
	named, err := ApplyNames(merged, names)
	if err != nil {
		return nil, Summary{}, err
	}
	return named, Summarize(named), nil
}
