package report

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
)

func withOutputs(t *testing.T, centers ...float64) *fis.FIS {
	t.Helper()
	shape, err := fis.NewShape(fis.KindTriangular, []float64{0, 0.5, 1})
	require.NoError(t, err)
	in := fis.Variable{
		Name:  "lag_1",
		Range: [2]float64{0, 1},
		MFs:   []fis.MembershipFunction{fis.NewMF("low", shape), fis.NewMF("high", shape)},
	}
	out := fis.Variable{Name: "forecast", Range: [2]float64{0, 1}}
	for i, c := range centers {
		out.MFs = append(out.MFs, fis.NewMF("o"+string(rune('a'+i)), fis.Constant{Value: c}))
	}
	f, err := fis.New("t", []fis.Variable{in}, out, []fis.Rule{
		{Antecedent: []int{1}, Consequent: 1, Weight: 1},
		{Antecedent: []int{0}, Consequent: len(centers), Weight: 0.5},
	})
	require.NoError(t, err)
	return f
}

func TestNameOutputsBoundaries(t *testing.T) {
	f := withOutputs(t, 0.0, 0.25, 0.5, 0.75, 1.0)
	assert.Equal(t, []string{"Critical_Low", "Low", "Medium", "High", "Peak"}, NameOutputs(f))
}

func TestNameOutputsSuffixes(t *testing.T) {
	f := withOutputs(t, 0.1, 0.15, 0.2, 0.9, 0.85, -0.3, 1.4)
	assert.Equal(t, []string{
		"Critical_Low", "Critical_Low_2", "Critical_Low_3",
		"Peak", "Peak_2", "Critical_Low_4", "Peak_3",
	}, NameOutputs(f))
}

func TestBinNameEdges(t *testing.T) {
	tests := []struct {
		center float64
		want   string
	}{
		{0.2, "Critical_Low"},
		{0.4, "Low"},
		{0.6, "Medium"},
		{0.8, "High"},
		{0.61, "High"},
		{math.NaN(), UndefinedName},
		{math.Inf(1), "Peak"},
		{math.Inf(-1), "Critical_Low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BinName(tt.center), "center %v", tt.center)
	}
}

func TestNameOutputsGaussianCenter(t *testing.T) {
	f := withOutputs(t, 0.5)
	g, err := fis.NewShape(fis.KindGaussian, []float64{0.9, 0.1})
	require.NoError(t, err)
	f.Output.MFs[0].Upper = g
	assert.Equal(t, []string{"Peak"}, NameOutputs(f))
}

func TestMergeRules(t *testing.T) {
	initial := withOutputs(t, 0, 1)
	tuned, err := initial.WithRules([]fis.Rule{
		{Antecedent: []int{2}, Consequent: 2, Weight: 1},
		{Antecedent: []int{1}, Consequent: 1, Weight: 1},
		{Antecedent: []int{2}, Consequent: 2, Weight: 1},
	})
	require.NoError(t, err)

	merged, err := MergeRules(tuned, initial)
	require.NoError(t, err)
	require.Len(t, merged.Rules, 3+2)
	assert.Equal(t, tuned.Rules, merged.Rules[:3])
	assert.Equal(t, initial.Rules, merged.Rules[3:])
	// duplicates survive
	assert.Equal(t, merged.Rules[0], merged.Rules[2])
}

func TestFormat(t *testing.T) {
	f := withOutputs(t, 0.1, 0.9)
	names := NameOutputs(f)
	got := Format(f, names)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Rule 1: IF lag_1 is low THEN forecast is Critical_Low (weight 1.0)", lines[0])
	assert.Equal(t, "Rule 2: IF true THEN forecast is Peak (weight 0.5)", lines[1])

	// falls back to the MF names
	assert.Contains(t, Format(f, nil), "THEN forecast is oa")
}

func TestBuild(t *testing.T) {
	initial := withOutputs(t, 0.3, 0.7)
	named, summary, err := Build(initial, initial)
	require.NoError(t, err)
	assert.Len(t, named.Rules, 4)
	assert.Equal(t, []string{"Low", "High"}, summary.OutputNames)
	assert.Equal(t, "Low", named.Output.MFs[0].Name)
	assert.Len(t, summary.Rules, 4)
	// the input system keeps its names
	assert.Equal(t, "oa", initial.Output.MFs[0].Name)
}

func TestSummarizeCountsTypeTwoSets(t *testing.T) {
	f := withOutputs(t, 0.3, 0.7)
	sum := Summarize(f)
	assert.Equal(t, 2, sum.InputMFs)
	assert.Zero(t, sum.TypeTwoMFs)

	widened := f.Clone()
	widened.Inputs[0].MFs[1].LowerScale = 0.6
	widened.Inputs[0].MFs[1].LowerLag = [2]float64{0.1, 0}
	require.NoError(t, widened.Validate())
	sum = Summarize(widened)
	assert.Equal(t, 1, sum.TypeTwoMFs)
	assert.Equal(t, []string{"Low", "High"}, sum.OutputNames)
	assert.Len(t, sum.Rules, 2)
}
