package genetic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/logging"
)

// MethodGA is the only supported search strategy
const MethodGA = "ga"

// OptimizationType selects what a tuning pass searches over
type OptimizationType string

const (
	OptimizationLearning OptimizationType = "learning"
	OptimizationTuning   OptimizationType = "tuning"
)

// Stop reasons reported in Report.StopReason
const (
	StopMaxGenerations = "max_generations"
	StopStall          = "stall"
)

// ErrNoTrainingData is returned when X is empty or does not match Y
var ErrNoTrainingData = errors.New("no training data")

// Options configures one Tune call
type Options struct {
	Method            string
	OptimizationType  OptimizationType
	NumMaxRules       int
	PopulationSize    int
	CrossoverFraction float64
	// EliteCount of 0 means ceil(5% of PopulationSize)
	EliteCount        int
	MaxGenerations    int
	StallGenerations  int
	FunctionTolerance float64
	MutationScale     float64
	TournamentSize    int
	UseParallel       bool
	Workers           int
	Seed              int64
	Fitness           FitnessConfig
	Observer          Observer
	Logger            *logging.Logger
}

// DefaultOptions returns the options used when a field is left zero
func DefaultOptions() Options {
	return Options{
		Method:            MethodGA,
		OptimizationType:  OptimizationTuning,
		NumMaxRules:       20,
		PopulationSize:    50,
		CrossoverFraction: 0.8,
		MaxGenerations:    50,
		StallGenerations:  20,
		FunctionTolerance: 1e-6,
		MutationScale:     0.5,
		TournamentSize:    2,
		Fitness:           FitnessConfig{Metric: MetricRMSE},
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.PopulationSize <= 0 {
		o.PopulationSize = d.PopulationSize
	}
	if o.MaxGenerations <= 0 {
		o.MaxGenerations = d.MaxGenerations
	}
	if o.EliteCount <= 0 {
		o.EliteCount = int(math.Ceil(0.05 * float64(o.PopulationSize)))
	}
	if o.EliteCount >= o.PopulationSize {
		o.EliteCount = o.PopulationSize - 1
	}
	if o.MutationScale <= 0 {
		o.MutationScale = d.MutationScale
	}
	if o.TournamentSize <= 0 {
		o.TournamentSize = d.TournamentSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = logging.Global()
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	if o.Method != "" && o.Method != MethodGA {
		return fmt.Errorf("unsupported tuning method %q", o.Method)
	}
	switch o.OptimizationType {
	case OptimizationLearning, OptimizationTuning:
	default:
		return fmt.Errorf("%w: unknown optimization type %q", ErrSettingsMismatch, o.OptimizationType)
	}
	if o.CrossoverFraction < 0 || o.CrossoverFraction > 1 {
		return fmt.Errorf("crossover fraction %v outside [0,1]", o.CrossoverFraction)
	}
	if o.PopulationSize < 0 || o.MaxGenerations < 0 || o.StallGenerations < 0 {
		return fmt.Errorf("population size, max generations and stall generations must be non-negative")
	}
	if o.PopulationSize == 1 {
		return fmt.Errorf("population size must be at least 2")
	}
	return o.Fitness.Validate()
}

// GenerationStats summarizes one evaluated generation
type GenerationStats struct {
	Generation  int
	BestFitness float64
	MeanFitness float64
	Undefined   int
	Evaluations int
}

// Observer receives per-generation progress. It is called from the
// controlling goroutine only.
type Observer interface {
	OnGeneration(typ OptimizationType, stats GenerationStats)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(typ OptimizationType, stats GenerationStats)

func (fn ObserverFunc) OnGeneration(typ OptimizationType, stats GenerationStats) {
	fn(typ, stats)
}

// Report describes how a Tune call went
type Report struct {
	Generations int           `json:"generations"`
	Evaluations int           `json:"evaluations"`
	Undefined   int           `json:"undefined_rows"`
	BestFitness float64       `json:"best_fitness"`
	History     []float64     `json:"history"`
	StopReason  string        `json:"stop_reason"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Result is the outcome of a Tune call. FIS is a new value; the input is
// never modified.
type Result struct {
	FIS *fis.FIS
	// Settings is a parameter view of FIS with every field free; it is what
	// a learning pass hands to later tuning passes
	Settings Settings
	Report   Report
}

// Tune searches the decision variables selected by settings for the system
// with the lowest training error
func Tune(ctx context.Context, f *fis.FIS, settings Settings, X [][]float64, Y []float64, opts Options) (*Result, error) {
	opts.applyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(f, opts.OptimizationType); err != nil {
		return nil, err
	}
	if len(X) == 0 || len(X) != len(Y) {
		return nil, fmt.Errorf("%w: %d rows and %d targets", ErrNoTrainingData, len(X), len(Y))
	}
	for i, row := range X {
		if len(row) != f.NumInputs() {
			return nil, fmt.Errorf("row %d: %w", i, fis.ErrInputLength)
		}
	}

	codec, err := NewCodec(f, settings)
	if err != nil {
		return nil, err
	}
	t := &tuner{
		base:     f.Clone(),
		codec:    codec,
		genes:    codec.Genes(),
		X:        X,
		Y:        Y,
		opts:     opts,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		selector: TournamentSelector{Size: opts.TournamentSize},
		fitness:  opts.Fitness.withDefaults(f.Output),
	}
	return t.run(ctx)
}

type tuner struct {
	base     *fis.FIS
	codec    Codec
	genes    []Gene
	X        [][]float64
	Y        []float64
	opts     Options
	rng      *rand.Rand
	selector Selector
	fitness  FitnessConfig
}

func (t *tuner) run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := t.opts.Logger.With("type", string(t.opts.OptimizationType))
	log.Debug("Starting genetic tuning",
		"genes", len(t.genes),
		"population", t.opts.PopulationSize,
		"max_generations", t.opts.MaxGenerations,
		"seed", t.opts.Seed)

	population := t.initialPopulation()
	report := Report{StopReason: StopMaxGenerations}
	var best Scored
	stall := 0

	for gen := 0; gen < t.opts.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ranked, err := t.evaluate(ctx, population)
		if err != nil {
			return nil, err
		}
		report.Generations = gen + 1
		report.Evaluations += len(ranked)

		stats := summarize(ranked, gen+1)
		report.Undefined += stats.Undefined
		if t.opts.Observer != nil {
			t.opts.Observer.OnGeneration(t.opts.OptimizationType, stats)
		}

		improved := gen == 0 || best.Fitness-ranked[0].Fitness > t.opts.FunctionTolerance
		if gen == 0 || ranked[0].Fitness < best.Fitness {
			best = Scored{Chromosome: ranked[0].Chromosome.Clone(), Fitness: ranked[0].Fitness, Undefined: ranked[0].Undefined}
		}
		report.History = append(report.History, best.Fitness)
		if improved {
			stall = 0
		} else {
			stall++
		}
		if t.opts.StallGenerations > 0 && stall >= t.opts.StallGenerations {
			report.StopReason = StopStall
			break
		}
		if gen == t.opts.MaxGenerations-1 {
			break
		}
		population = t.nextGeneration(ranked, gen+1)
	}

	tuned, err := t.codec.Decode(t.base, best.Chromosome)
	if err != nil {
		return nil, fmt.Errorf("failed to decode best chromosome: %w", err)
	}
	report.BestFitness = best.Fitness
	report.Elapsed = time.Since(start)

	log.Info("Genetic tuning completed",
		"generations", report.Generations,
		"best_fitness", report.BestFitness,
		"rules", len(tuned.Rules),
		"stop_reason", report.StopReason,
		"elapsed", report.Elapsed.String())

	return &Result{
		FIS:      tuned,
		Settings: DescribeParameters(tuned, false),
		Report:   report,
	}, nil
}

// initialPopulation seeds the current system followed by uniform randoms
func (t *tuner) initialPopulation() []Chromosome {
	pop := make([]Chromosome, t.opts.PopulationSize)
	pop[0] = t.codec.Encode(t.base)
	for i := 1; i < len(pop); i++ {
		pop[i] = randomChromosome(t.rng, t.genes)
	}
	return pop
}

// evaluate scores every chromosome and returns them ranked best first.
// Results are written by index so the ranking does not depend on scheduling.
func (t *tuner) evaluate(ctx context.Context, population []Chromosome) ([]Scored, error) {
	scored := make([]Scored, len(population))
	score := func(i int) {
		scored[i] = t.score(population[i])
	}

	if t.opts.UseParallel && t.opts.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(t.opts.Workers)
		for i := range population {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				score(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range population {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			score(i)
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Fitness < scored[b].Fitness
	})
	return scored, nil
}

// score never fails: a chromosome that cannot be decoded gets MaxFitness
func (t *tuner) score(c Chromosome) Scored {
	candidate, err := t.codec.Decode(t.base, c)
	if err != nil {
		return Scored{Chromosome: c, Fitness: t.fitness.MaxFitness}
	}
	fit, undefined, err := Fitness(candidate, t.X, t.Y, t.fitness)
	if err != nil {
		return Scored{Chromosome: c, Fitness: t.fitness.MaxFitness}
	}
	return Scored{Chromosome: c, Fitness: fit, Undefined: undefined}
}

// nextGeneration copies elites, then fills with crossover and mutation children
func (t *tuner) nextGeneration(ranked []Scored, generation int) []Chromosome {
	size := t.opts.PopulationSize
	next := make([]Chromosome, 0, size)
	for i := 0; i < t.opts.EliteCount && i < len(ranked); i++ {
		next = append(next, ranked[i].Chromosome.Clone())
	}

	rest := size - len(next)
	crossovers := int(math.Round(t.opts.CrossoverFraction * float64(rest)))
	scale := mutationScale(t.opts.MutationScale, generation, t.opts.MaxGenerations)

	for i := 0; i < rest; i++ {
		if i < crossovers {
			a := t.selector.Pick(t.rng, ranked)
			b := t.selector.Pick(t.rng, ranked)
			next = append(next, t.clampAll(scatteredCrossover(t.rng, a, b)))
			continue
		}
		parent := t.selector.Pick(t.rng, ranked)
		next = append(next, gaussianMutation(t.rng, parent, t.genes, scale))
	}
	return next
}

func (t *tuner) clampAll(c Chromosome) Chromosome {
	for i, g := range t.genes {
		c[i] = g.clamp(c[i])
	}
	return c
}

func summarize(ranked []Scored, generation int) GenerationStats {
	stats := GenerationStats{
		Generation:  generation,
		BestFitness: ranked[0].Fitness,
		Evaluations: len(ranked),
	}
	sum := 0.0
	for _, s := range ranked {
		sum += s.Fitness
		stats.Undefined += s.Undefined
	}
	stats.MeanFitness = sum / float64(len(ranked))
	return stats
}
