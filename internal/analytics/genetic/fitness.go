package genetic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
)

// Metric selects how per-row errors are aggregated
type Metric string

const (
	MetricRMSE Metric = "rmse"
	MetricMSE  Metric = "mse"
	MetricMAE  Metric = "mae"
)

// DefaultMaxFitness replaces non-finite fitness values
const DefaultMaxFitness = 1e6

// FitnessConfig parameterizes the training-set error used as fitness
type FitnessConfig struct {
	Metric Metric `mapstructure:"metric" json:"metric"`
	// UndefinedRowError is the absolute error charged for a row where no
	// rule fires. Zero means the output range width.
	UndefinedRowError float64 `mapstructure:"undefined_row_error" json:"undefined_row_error"`
	MaxFitness        float64 `mapstructure:"max_fitness" json:"max_fitness"`
}

func (c FitnessConfig) withDefaults(out fis.Variable) FitnessConfig {
	if c.Metric == "" {
		c.Metric = MetricRMSE
	}
	if c.UndefinedRowError <= 0 {
		c.UndefinedRowError = out.Width()
	}
	if c.MaxFitness <= 0 {
		c.MaxFitness = DefaultMaxFitness
	}
	return c
}

// Validate checks the metric name
func (c FitnessConfig) Validate() error {
	switch c.Metric {
	case "", MetricRMSE, MetricMSE, MetricMAE:
		return nil
	default:
		return fmt.Errorf("unknown fitness metric %q", c.Metric)
	}
}

// Fitness scores f on (X, Y). Lower is better. Rows where no rule fires are
// charged UndefinedRowError and counted; the result is always finite.
func Fitness(f *fis.FIS, X [][]float64, Y []float64, cfg FitnessConfig) (float64, int, error) {
	cfg = cfg.withDefaults(f.Output)
	errs := make([]float64, len(X))
	undefined := 0
	for i, row := range X {
		ev, err := f.Evaluate(row)
		if err != nil {
			return cfg.MaxFitness, undefined, err
		}
		if !ev.Defined {
			undefined++
			errs[i] = cfg.UndefinedRowError
			continue
		}
		errs[i] = math.Abs(ev.Value - Y[i])
	}
	return cfg.aggregate(errs), undefined, nil
}

func (c FitnessConfig) aggregate(errs []float64) float64 {
	if len(errs) == 0 {
		return c.MaxFitness
	}
	var v float64
	switch c.Metric {
	case MetricMAE:
		v = stat.Mean(errs, nil)
	default:
		sq := make([]float64, len(errs))
		for i, e := range errs {
			sq[i] = e * e
		}
		v = stat.Mean(sq, nil)
		if c.Metric == MetricRMSE {
			v = math.Sqrt(v)
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v > c.MaxFitness {
		return c.MaxFitness
	}
	return v
}
