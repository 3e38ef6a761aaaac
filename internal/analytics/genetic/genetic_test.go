package genetic

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
)

func smallGrid(t *testing.T) *fis.FIS {
	t.Helper()
	cfg := fis.DefaultGridConfig()
	cfg.Lags = 2
	cfg.ExogenousName = []string{}
	f, err := fis.NewGrid(cfg)
	require.NoError(t, err)
	return f
}

func trainingSet(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(42))
	X := make([][]float64, n)
	Y := make([]float64, n)
	for i := range X {
		a, b := rng.Float64(), rng.Float64()
		X[i] = []float64{a, b}
		Y[i] = 0.7*a + 0.3*b
	}
	return X, Y
}

func quickOptions(typ OptimizationType) Options {
	return Options{
		Method:            MethodGA,
		OptimizationType:  typ,
		NumMaxRules:       6,
		PopulationSize:    12,
		CrossoverFraction: 0.8,
		MaxGenerations:    6,
		Seed:              0,
	}
}

func TestMask(t *testing.T) {
	m := NewMask(FieldLowerScale, FieldLowerLag)
	assert.True(t, m.Free(FieldUpperParameters))
	assert.False(t, m.Free(FieldLowerScale))
	assert.Equal(t, []Field{FieldLowerScale, FieldLowerLag}, m.Frozen())

	inv := m.Invert()
	assert.Equal(t, []Field{FieldUpperParameters}, inv.Frozen())
	assert.Len(t, FreezeAll().Frozen(), 3)
	assert.True(t, Mask{}.Free(FieldLowerLag))
}

func TestSettingsValidate(t *testing.T) {
	f := smallGrid(t)

	rules := DescribeRules(f, 5)
	params := DescribeParameters(f, true)

	assert.NoError(t, rules.Validate(f, OptimizationLearning))
	assert.NoError(t, params.Validate(f, OptimizationTuning))

	assert.ErrorIs(t, rules.Validate(f, OptimizationTuning), ErrSettingsMismatch)
	assert.ErrorIs(t, params.Validate(f, OptimizationLearning), ErrSettingsMismatch)

	cfg := fis.DefaultGridConfig()
	cfg.Lags = 3
	cfg.ExogenousName = []string{}
	other, err := fis.NewGrid(cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, params.Validate(other, OptimizationTuning), ErrSettingsMismatch)
	assert.ErrorIs(t, rules.Validate(other, OptimizationLearning), ErrSettingsMismatch)
}

func TestRestrict(t *testing.T) {
	f := smallGrid(t)
	view := DescribeParameters(f, false)

	upperOnly := view.Restrict(NewMask(FieldLowerScale, FieldLowerLag), true)
	counts := upperOnly.FreeCount()
	assert.Equal(t, 6+9, counts[FieldUpperParameters])
	assert.Zero(t, counts[FieldLowerScale])
	assert.Zero(t, counts[FieldLowerLag])
	assert.True(t, upperOnly.AsymmetricLag)

	lowerOnly := view.Restrict(NewMask(FieldUpperParameters), true)
	counts = lowerOnly.FreeCount()
	assert.Zero(t, counts[FieldUpperParameters])
	assert.Equal(t, 6, counts[FieldLowerScale])
	assert.Equal(t, 6, counts[FieldLowerLag])

	// the source view is untouched
	assert.Equal(t, 6+9, view.FreeCount()[FieldUpperParameters])
}

func TestRuleCodec(t *testing.T) {
	f := smallGrid(t)
	s := DescribeRules(f, 4)
	codec, err := NewCodec(f, s)
	require.NoError(t, err)
	assert.Len(t, codec.Genes(), 4*3)

	enc := codec.Encode(f)
	dec, err := codec.Decode(f, enc)
	require.NoError(t, err)
	require.Len(t, dec.Rules, 4)
	assert.Equal(t, f.Rules[:4], dec.Rules)

	// an all-zero antecedent removes the slot
	enc[0], enc[1] = 0, 0
	dec, err = codec.Decode(f, enc)
	require.NoError(t, err)
	assert.Len(t, dec.Rules, 3)
}

func TestParamCodecGeneCounts(t *testing.T) {
	f := smallGrid(t)
	view := DescribeParameters(f, false)

	tests := []struct {
		name  string
		mask  Mask
		asym  bool
		genes int
	}{
		{name: "upper only", mask: NewMask(FieldLowerScale, FieldLowerLag), asym: true, genes: 6*3 + 9},
		{name: "lower asymmetric", mask: NewMask(FieldUpperParameters), asym: true, genes: 6 * 3},
		{name: "lower symmetric", mask: NewMask(FieldUpperParameters), asym: false, genes: 6 * 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := NewCodec(f, view.Restrict(tt.mask, tt.asym))
			require.NoError(t, err)
			assert.Len(t, codec.Genes(), tt.genes)
		})
	}
}

func TestParamCodecSymmetricLag(t *testing.T) {
	f := smallGrid(t)
	s := DescribeParameters(f, false).Restrict(NewMask(FieldUpperParameters), false)
	codec, err := NewCodec(f, s)
	require.NoError(t, err)

	c := codec.Encode(f)
	for i := range c {
		c[i] = 0.3
	}
	dec, err := codec.Decode(f, c)
	require.NoError(t, err)
	mf := dec.Inputs[0].MFs[1]
	assert.Equal(t, 0.3, mf.LowerLag[fis.LagLeft])
	assert.Equal(t, mf.LowerLag[fis.LagLeft], mf.LowerLag[fis.LagRight])
	assert.Equal(t, 0.3, mf.LowerScale)
	assert.Equal(t, f.Inputs[0].MFs[1].Upper, mf.Upper)
}

func TestFitnessPenalizesUndefined(t *testing.T) {
	f := smallGrid(t)
	empty, err := f.WithRules(nil)
	require.NoError(t, err)
	X, Y := trainingSet(10)

	for _, metric := range []Metric{MetricRMSE, MetricMSE, MetricMAE} {
		fit, undefined, err := Fitness(empty, X, Y, FitnessConfig{Metric: metric})
		require.NoError(t, err)
		assert.False(t, math.IsNaN(fit), string(metric))
		assert.Equal(t, 10, undefined)
		assert.InDelta(t, 1.0, fit, 1e-12, "undefined rows cost the output width")
	}

	fit, _, err := Fitness(empty, X, Y, FitnessConfig{UndefinedRowError: 2, Metric: MetricMSE})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, fit, 1e-12)
}

func TestFitnessGridIsFinite(t *testing.T) {
	f := smallGrid(t)
	X, Y := trainingSet(50)
	fit, undefined, err := Fitness(f, X, Y, FitnessConfig{})
	require.NoError(t, err)
	assert.Zero(t, undefined)
	assert.Less(t, fit, 1.0)
}

func TestTuneRejectsMismatch(t *testing.T) {
	f := smallGrid(t)
	X, Y := trainingSet(10)

	_, err := Tune(context.Background(), f, DescribeParameters(f, true), X, Y, quickOptions(OptimizationLearning))
	assert.ErrorIs(t, err, ErrSettingsMismatch)

	_, err = Tune(context.Background(), f, DescribeRules(f, 4), X, Y, quickOptions(OptimizationTuning))
	assert.ErrorIs(t, err, ErrSettingsMismatch)

	opts := quickOptions(OptimizationLearning)
	opts.Method = "pso"
	_, err = Tune(context.Background(), f, DescribeRules(f, 4), X, Y, opts)
	assert.Error(t, err)

	_, err = Tune(context.Background(), f, DescribeRules(f, 4), X, Y[:5], quickOptions(OptimizationLearning))
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestTuneLearningDeterministic(t *testing.T) {
	f := smallGrid(t)
	X, Y := trainingSet(40)
	s := DescribeRules(f, 6)

	seq := quickOptions(OptimizationLearning)
	par := seq
	par.UseParallel = true
	par.Workers = 4

	a, err := Tune(context.Background(), f, s, X, Y, seq)
	require.NoError(t, err)
	b, err := Tune(context.Background(), f, s, X, Y, seq)
	require.NoError(t, err)
	c, err := Tune(context.Background(), f, s, X, Y, par)
	require.NoError(t, err)

	assert.Equal(t, a.FIS, b.FIS)
	assert.Equal(t, a.FIS, c.FIS)
	assert.Equal(t, a.Report.History, c.Report.History)
	assert.LessOrEqual(t, len(a.FIS.Rules), 6)
	assert.Equal(t, ScopeParameters, a.Settings.Scope)

	// the input system is untouched
	assert.Len(t, f.Rules, 9)
}

func TestTuneElitismNeverRegresses(t *testing.T) {
	f := smallGrid(t)
	X, Y := trainingSet(40)
	res, err := Tune(context.Background(), f, DescribeRules(f, 9), X, Y, quickOptions(OptimizationLearning))
	require.NoError(t, err)

	for i := 1; i < len(res.Report.History); i++ {
		assert.LessOrEqual(t, res.Report.History[i], res.Report.History[i-1])
	}
	seed, _, err := Fitness(f, X, Y, FitnessConfig{})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Report.BestFitness, seed+1e-12)
}

func TestTuneFrozenFieldsUnchanged(t *testing.T) {
	f := smallGrid(t)
	X, Y := trainingSet(30)
	view := DescribeParameters(f, true)

	for _, seed := range []int64{0, 7} {
		opts := quickOptions(OptimizationTuning)
		opts.Seed = seed

		upper, err := Tune(context.Background(), f, view.Restrict(NewMask(FieldLowerScale, FieldLowerLag), true), X, Y, opts)
		require.NoError(t, err)
		for i, in := range upper.FIS.Inputs {
			for j, mf := range in.MFs {
				orig := f.Inputs[i].MFs[j]
				assert.Equal(t, orig.LowerScale, mf.LowerScale)
				assert.Equal(t, orig.LowerLag, mf.LowerLag)
			}
		}

		lower, err := Tune(context.Background(), f, view.Restrict(NewMask(FieldUpperParameters), true), X, Y, opts)
		require.NoError(t, err)
		for i, in := range lower.FIS.Inputs {
			for j, mf := range in.MFs {
				assert.Equal(t, f.Inputs[i].MFs[j].Upper, mf.Upper)
			}
		}
		for j, mf := range lower.FIS.Output.MFs {
			assert.Equal(t, f.Output.MFs[j].Upper, mf.Upper)
		}
		assert.Equal(t, f.Rules, lower.FIS.Rules)
	}
}

func TestTuneStall(t *testing.T) {
	f := smallGrid(t)
	X, Y := trainingSet(20)
	opts := quickOptions(OptimizationLearning)
	opts.MaxGenerations = 100
	opts.StallGenerations = 2
	opts.FunctionTolerance = math.Inf(1)

	res, err := Tune(context.Background(), f, DescribeRules(f, 4), X, Y, opts)
	require.NoError(t, err)
	assert.Equal(t, StopStall, res.Report.StopReason)
	assert.Equal(t, 3, res.Report.Generations)
}

func TestTuneCancelled(t *testing.T) {
	f := smallGrid(t)
	X, Y := trainingSet(20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Tune(ctx, f, DescribeRules(f, 4), X, Y, quickOptions(OptimizationLearning))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestObserverCalledPerGeneration(t *testing.T) {
	f := smallGrid(t)
	X, Y := trainingSet(20)
	opts := quickOptions(OptimizationLearning)
	var seen []int
	opts.Observer = ObserverFunc(func(typ OptimizationType, stats GenerationStats) {
		assert.Equal(t, OptimizationLearning, typ)
		seen = append(seen, stats.Generation)
	})

	res, err := Tune(context.Background(), f, DescribeRules(f, 4), X, Y, opts)
	require.NoError(t, err)
	assert.Len(t, seen, res.Report.Generations)
	assert.Equal(t, 1, seen[0])
}
