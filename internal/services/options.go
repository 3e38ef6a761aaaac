package services

import (
	"fmt"
	"math"
	"os"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/analytics/genetic"
	"github.com/soltixdb/fuzzcast/internal/analytics/pipeline"
	"github.com/soltixdb/fuzzcast/internal/config"
	"github.com/soltixdb/fuzzcast/internal/dataset"
	"github.com/soltixdb/fuzzcast/internal/logging"
	"github.com/soltixdb/fuzzcast/internal/models"
)

// GridConfig builds the initial system layout for the given lags and
// exogenous column names
func GridConfig(cfg config.ModelConfig, lags int, exogenous [2]string) fis.GridConfig {
	return fis.GridConfig{
		Name:          cfg.Name,
		Lags:          lags,
		ExogenousName: []string{exogenous[0], exogenous[1]},
		MFsPerInput:   cfg.MFsPerInput,
		Shape:         fis.Kind(cfg.Shape),
		InputRange:    [2]float64{0, 1},
		OutputName:    "forecast",
		OutputRange:   [2]float64{0, 1},
		AndMethod:     fis.AndMethod(cfg.AndMethod),
		MaxGridRules:  cfg.MaxGridRules,
	}
}

// GeneticOptions converts the tuning section into GA options
func GeneticOptions(cfg config.TuningConfig, logger *logging.Logger) genetic.Options {
	return genetic.Options{
		Method:            cfg.Method,
		NumMaxRules:       cfg.NumMaxRules,
		PopulationSize:    cfg.PopulationSize,
		CrossoverFraction: cfg.CrossoverFraction,
		EliteCount:        cfg.EliteCount,
		MaxGenerations:    cfg.MaxGenerations,
		StallGenerations:  cfg.StallGenerations,
		FunctionTolerance: cfg.FunctionTolerance,
		MutationScale:     cfg.MutationScale,
		TournamentSize:    cfg.TournamentSize,
		UseParallel:       cfg.UseParallel,
		Workers:           cfg.Workers,
		Seed:              cfg.Seed,
		Fitness: genetic.FitnessConfig{
			Metric:            genetic.Metric(cfg.Fitness.Metric),
			UndefinedRowError: cfg.Fitness.UndefinedRowError,
			MaxFitness:        cfg.Fitness.MaxFitness,
		},
		Logger: logger,
	}
}

// PipelineConfig converts the tuning section into a stage controller config
func PipelineConfig(cfg config.TuningConfig, logger *logging.Logger) pipeline.Config {
	return pipeline.Config{
		Options:    GeneticOptions(cfg, logger),
		RunTuneFIS: cfg.RunTuneFIS,
		Seed:       cfg.Seed,
		Logger:     logger,
	}
}

// ApplyOverrides returns cfg with every non-nil override applied
func ApplyOverrides(cfg config.TuningConfig, o *models.TuningOverrides) config.TuningConfig {
	if o == nil {
		return cfg
	}
	if o.RunTuneFIS != nil {
		cfg.RunTuneFIS = *o.RunTuneFIS
	}
	if o.NumMaxRules != nil {
		cfg.NumMaxRules = *o.NumMaxRules
	}
	if o.PopulationSize != nil {
		cfg.PopulationSize = *o.PopulationSize
	}
	if o.CrossoverFraction != nil {
		cfg.CrossoverFraction = *o.CrossoverFraction
	}
	if o.MaxGenerations != nil {
		cfg.MaxGenerations = *o.MaxGenerations
	}
	if o.UseParallel != nil {
		cfg.UseParallel = *o.UseParallel
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	return cfg
}

// LoadFrame reads the series selected by the data section
func LoadFrame(cfg config.DataConfig) (*dataset.Frame, error) {
	switch cfg.Source {
	case "csv":
		file, err := os.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		defer func() { _ = file.Close() }()

		cols := dataset.Columns{Target: cfg.Target}
		copy(cols.Exogenous[:], cfg.Exogenous)
		return dataset.LoadCSV(file, cols)
	case "synthetic", "":
		return dataset.SyntheticWeather(cfg.SyntheticRows, cfg.SyntheticSeed), nil
	default:
		return nil, fmt.Errorf("unsupported data source: %s", cfg.Source)
	}
}

// frameFromRequest builds a frame from an inline request. Null cells become
// NaN and are imputed later.
func frameFromRequest(req *models.DataRequest, defaults config.DataConfig) (*dataset.Frame, error) {
	switch req.Source {
	case "", "synthetic":
		rows, seed := req.Rows, req.Seed
		if rows == 0 {
			rows = defaults.SyntheticRows
		}
		if seed == 0 {
			seed = defaults.SyntheticSeed
		}
		return dataset.SyntheticWeather(rows, seed), nil
	case "inline":
	default:
		return nil, fmt.Errorf("data.source must be 'synthetic' or 'inline'")
	}

	n := len(req.Target)
	if n == 0 {
		return nil, fmt.Errorf("data.target is empty")
	}
	if len(req.Exogenous[0]) != n || len(req.Exogenous[1]) != n {
		return nil, fmt.Errorf("data.exogenous series must have %d values", n)
	}

	names := [3]string{defaults.Target, "exogenous_1", "exogenous_2"}
	for k := range req.ExogenousName {
		if req.ExogenousName[k] != "" {
			names[k+1] = req.ExogenousName[k]
		} else if k < len(defaults.Exogenous) {
			names[k+1] = defaults.Exogenous[k]
		}
	}

	f := &dataset.Frame{Names: names}
	f.Target = derefSeries(req.Target)
	f.Exogenous[0] = derefSeries(req.Exogenous[0])
	f.Exogenous[1] = derefSeries(req.Exogenous[1])
	return f, nil
}

func derefSeries(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}
