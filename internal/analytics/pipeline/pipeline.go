package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/soltixdb/fuzzcast/internal/analytics"
	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/analytics/genetic"
	"github.com/soltixdb/fuzzcast/internal/logging"
)

// StageError aborts a run. No partially tuned system is returned with it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Status of a stage event
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// StageEvent is delivered to a StageObserver at stage start and finish
type StageEvent struct {
	Stage  Stage
	Status Status
	Result *StageResult
	Err    error
}

// StageObserver receives stage events from the controlling goroutine
type StageObserver interface {
	OnStage(ctx context.Context, ev StageEvent)
}

// StageObserverFunc adapts a function to StageObserver
type StageObserverFunc func(ctx context.Context, ev StageEvent)

func (fn StageObserverFunc) OnStage(ctx context.Context, ev StageEvent) {
	fn(ctx, ev)
}

// Config controls a pipeline run
type Config struct {
	// Options are the GA options shared by every stage. OptimizationType
	// and Seed are overridden per stage.
	Options genetic.Options
	// RunTuneFIS disables every stage when false; each stage then passes its
	// input through unchanged
	RunTuneFIS bool
	// Seed is reset before every stage
	Seed     int64
	Observer StageObserver
	Logger   *logging.Logger
}

// DefaultConfig returns a config running all stages with seed 0
func DefaultConfig() Config {
	return Config{
		Options:    genetic.DefaultOptions(),
		RunTuneFIS: true,
	}
}

// StageResult is the outcome of one stage
type StageResult struct {
	Stage    Stage            `json:"stage"`
	FIS      *fis.FIS         `json:"-"`
	Report   genetic.Report   `json:"report"`
	Settings genetic.Settings `json:"-"`
	Skipped  bool             `json:"skipped"`
}

// Result holds the initial system and every stage outcome in order
type Result struct {
	Initial *fis.FIS
	Stages  []StageResult
}

// Final returns the output of the last stage
func (r *Result) Final() *fis.FIS {
	if len(r.Stages) == 0 {
		return r.Initial
	}
	return r.Stages[len(r.Stages)-1].FIS
}

// Stage returns the result of one stage, nil if it did not run
func (r *Result) Stage(s Stage) *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Stage == s {
			return &r.Stages[i]
		}
	}
	return nil
}

// Run executes the stages listed in Policies on the training partition
func Run(ctx context.Context, initial *fis.FIS, data analytics.Partition, cfg Config) (*Result, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Global()
	}
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("invalid initial system: %w", err)
	}

	r := &runner{cfg: cfg, log: log, data: data}
	res := &Result{Initial: initial.Clone()}

	current := initial.Clone()
	// view is the parameter view produced by the learning stage. Later
	// stages restrict this same view rather than rebuilding it.
	var view genetic.Settings

	for _, p := range Policies {
		r.notify(ctx, StageEvent{Stage: p.Stage, Status: StatusStarted})

		var (
			sr  *StageResult
			err error
		)
		if !cfg.RunTuneFIS {
			sr = r.skip(p, current)
		} else {
			sr, err = r.runStage(ctx, p, current, view)
		}
		if err != nil {
			r.notify(ctx, StageEvent{Stage: p.Stage, Status: StatusFailed, Err: err})
			return nil, &StageError{Stage: p.Stage, Err: err}
		}

		if p.Type == genetic.OptimizationLearning {
			view = sr.Settings
		}
		current = sr.FIS
		res.Stages = append(res.Stages, *sr)

		status := StatusCompleted
		if sr.Skipped {
			status = StatusSkipped
		}
		r.notify(ctx, StageEvent{Stage: p.Stage, Status: status, Result: sr})
	}

	return res, nil
}

type runner struct {
	cfg  Config
	log  *logging.Logger
	data analytics.Partition
}

func (r *runner) notify(ctx context.Context, ev StageEvent) {
	if r.cfg.Observer != nil {
		r.cfg.Observer.OnStage(ctx, ev)
	}
}

func (r *runner) skip(p Policy, in *fis.FIS) *StageResult {
	r.log.Warn("Tuning disabled, passing system through; downstream stages see stale state",
		"stage", string(p.Stage))
	return &StageResult{
		Stage:    p.Stage,
		FIS:      in.Clone(),
		Settings: genetic.DescribeParameters(in, false),
		Skipped:  true,
	}
}

func (r *runner) runStage(ctx context.Context, p Policy, in *fis.FIS, view genetic.Settings) (*StageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var settings genetic.Settings
	switch p.Type {
	case genetic.OptimizationLearning:
		settings = genetic.DescribeRules(in, r.cfg.Options.NumMaxRules)
	case genetic.OptimizationTuning:
		if view.Scope != genetic.ScopeParameters {
			return nil, fmt.Errorf("%w: no parameter view from the learning stage", genetic.ErrSettingsMismatch)
		}
		settings = view.Restrict(p.Frozen, p.AsymmetricLag)
	default:
		return nil, fmt.Errorf("%w: stage %s has type %q", genetic.ErrSettingsMismatch, p.Stage, p.Type)
	}

	opts := r.cfg.Options
	opts.OptimizationType = p.Type
	opts.Seed = r.cfg.Seed
	if opts.Logger == nil {
		opts.Logger = r.log
	}

	start := time.Now()
	r.log.Info("Starting stage",
		"stage", string(p.Stage),
		"settings", settings.Describe(),
		"rules", len(in.Rules))

	out, err := genetic.Tune(ctx, in, settings, r.data.X, r.data.Y, opts)
	if err != nil {
		return nil, err
	}

	r.log.Info("Stage completed",
		"stage", string(p.Stage),
		"best_fitness", out.Report.BestFitness,
		"generations", out.Report.Generations,
		"rules", len(out.FIS.Rules),
		"duration", time.Since(start).String())

	return &StageResult{
		Stage:    p.Stage,
		FIS:      out.FIS,
		Report:   out.Report,
		Settings: out.Settings,
	}, nil
}
