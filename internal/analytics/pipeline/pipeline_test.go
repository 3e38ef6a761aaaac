package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/fuzzcast/internal/analytics"
	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/analytics/genetic"
)

func initialGrid(t *testing.T) *fis.FIS {
	t.Helper()
	cfg := fis.DefaultGridConfig()
	cfg.Lags = 1
	cfg.ExogenousName = []string{"humidity"}
	f, err := fis.NewGrid(cfg)
	require.NoError(t, err)
	return f
}

func partition() analytics.Partition {
	rng := rand.New(rand.NewSource(3))
	p := analytics.Partition{}
	for i := 0; i < 40; i++ {
		a, b := rng.Float64(), rng.Float64()
		p.X = append(p.X, []float64{a, b})
		p.Y = append(p.Y, 0.8*a+0.2*(1-b))
	}
	return p
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Options.NumMaxRules = 5
	cfg.Options.PopulationSize = 10
	cfg.Options.MaxGenerations = 4
	cfg.Options.StallGenerations = 0
	return cfg
}

func TestPolicies(t *testing.T) {
	require.Len(t, Policies, 3)
	assert.Equal(t, StageLearning, Policies[0].Stage)
	assert.Equal(t, StageTuning, Policies[1].Stage)
	assert.Equal(t, StageAdvanced, Policies[2].Stage)

	tuning, ok := PolicyFor(StageTuning)
	require.True(t, ok)
	advanced, ok := PolicyFor(StageAdvanced)
	require.True(t, ok)
	assert.Equal(t, tuning.Frozen.Invert().Frozen(), advanced.Frozen.Frozen())
	assert.True(t, tuning.AsymmetricLag)

	_, ok = PolicyFor("bogus")
	assert.False(t, ok)
}

func TestRunReproducible(t *testing.T) {
	f := initialGrid(t)
	data := partition()

	var runs []*Result
	for i := 0; i < 3; i++ {
		res, err := Run(context.Background(), f, data, testConfig())
		require.NoError(t, err)
		runs = append(runs, res)
	}
	for _, s := range []Stage{StageLearning, StageTuning, StageAdvanced} {
		assert.Equal(t, runs[0].Stage(s).FIS, runs[1].Stage(s).FIS, string(s))
		assert.Equal(t, runs[0].Stage(s).FIS, runs[2].Stage(s).FIS, string(s))
	}
}

func TestRunFreezePolicy(t *testing.T) {
	f := initialGrid(t)
	res, err := Run(context.Background(), f, partition(), testConfig())
	require.NoError(t, err)

	v1 := res.Stage(StageLearning).FIS
	v2 := res.Stage(StageTuning).FIS
	v3 := res.Stage(StageAdvanced).FIS

	assert.LessOrEqual(t, len(v1.Rules), 5)
	assert.Equal(t, v1.Rules, v2.Rules)
	assert.Equal(t, v2.Rules, v3.Rules)

	// stage 2 only moves upper sets
	for i, in := range v2.Inputs {
		for j, mf := range in.MFs {
			assert.Equal(t, v1.Inputs[i].MFs[j].LowerScale, mf.LowerScale)
			assert.Equal(t, v1.Inputs[i].MFs[j].LowerLag, mf.LowerLag)
		}
	}
	// stage 3 only moves lower sets
	for i, in := range v3.Inputs {
		for j, mf := range in.MFs {
			assert.Equal(t, v2.Inputs[i].MFs[j].Upper, mf.Upper)
		}
	}
	for j, mf := range v3.Output.MFs {
		assert.Equal(t, v2.Output.MFs[j].Upper, mf.Upper)
	}

	assert.Same(t, v3, res.Final())
	assert.Equal(t, f, res.Initial)
}

func TestRunTuneDisabled(t *testing.T) {
	f := initialGrid(t)
	cfg := testConfig()
	cfg.RunTuneFIS = false

	res, err := Run(context.Background(), f, partition(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Stages, 3)
	for _, s := range res.Stages {
		assert.True(t, s.Skipped)
		assert.Equal(t, f, s.FIS)
	}
	assert.NotSame(t, f, res.Final())
}

func TestRunStageError(t *testing.T) {
	f := initialGrid(t)
	cfg := testConfig()
	cfg.Options.NumMaxRules = 0

	res, err := Run(context.Background(), f, partition(), cfg)
	assert.Nil(t, res)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageLearning, stageErr.Stage)
	assert.ErrorIs(t, err, genetic.ErrSettingsMismatch)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, initialGrid(t), partition(), testConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunObserver(t *testing.T) {
	var events []string
	cfg := testConfig()
	cfg.Observer = StageObserverFunc(func(_ context.Context, ev StageEvent) {
		events = append(events, string(ev.Stage)+":"+string(ev.Status))
		if ev.Status == StatusCompleted {
			assert.NotNil(t, ev.Result)
		}
	})

	_, err := Run(context.Background(), initialGrid(t), partition(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"learning:started", "learning:completed",
		"tuning:started", "tuning:completed",
		"advanced:started", "advanced:completed",
	}, events)
}
