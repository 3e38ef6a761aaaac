// Package metrics exposes training and serving metrics in the Prometheus
// format.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soltixdb/fuzzcast/internal/analytics/genetic"
	"github.com/soltixdb/fuzzcast/internal/analytics/pipeline"
)

// Registry holds every collector on a private prometheus.Registry
type Registry struct {
	reg *prometheus.Registry

	Generations     *prometheus.CounterVec
	Evaluations     *prometheus.CounterVec
	UndefinedRows   *prometheus.CounterVec
	BestFitness     *prometheus.GaugeVec
	MeanFitness     *prometheus.GaugeVec
	StageDuration   *prometheus.HistogramVec
	Stages          *prometheus.CounterVec
	ActiveJobs      prometheus.Gauge
	Jobs            *prometheus.CounterVec
	Forecasts       prometheus.Counter
	ForecastsFailed prometheus.Counter
	UndefinedPreds  prometheus.Counter
}

// NewRegistry creates the collectors under namespace. Go runtime and
// process collectors are included.
func NewRegistry(namespace string) *Registry {
	if namespace == "" {
		namespace = "fuzzcast"
	}
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ga_generations_total",
				Help:      "GA generations evaluated, by stage",
			},
			[]string{"stage"},
		),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ga_fitness_evaluations_total",
				Help:      "Fitness evaluations performed, by stage",
			},
			[]string{"stage"},
		),
		UndefinedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ga_undefined_rows_total",
				Help:      "Training rows where no rule fired during fitness evaluation, by stage",
			},
			[]string{"stage"},
		),
		BestFitness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ga_best_fitness",
				Help:      "Best fitness of the latest generation, by stage",
			},
			[]string{"stage"},
		),
		MeanFitness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ga_mean_fitness",
				Help:      "Mean fitness of the latest generation, by stage",
			},
			[]string{"stage"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of tuning stages in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage", "status"},
		),
		Stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stages_total",
				Help:      "Finished tuning stages, by stage and status",
			},
			[]string{"stage", "status"},
		),
		ActiveJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "training_jobs_active",
				Help:      "Training jobs currently running",
			},
		),
		Jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "training_jobs_total",
				Help:      "Finished training jobs, by status",
			},
			[]string{"status"},
		),
		Forecasts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_rows_total",
				Help:      "Rows evaluated by the forecast endpoint",
			},
		),
		ForecastsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_errors_total",
				Help:      "Forecast requests rejected with an error",
			},
		),
		UndefinedPreds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_undefined_total",
				Help:      "Forecast rows where no rule fired",
			},
		),
	}

	r.reg.MustRegister(
		r.Generations, r.Evaluations, r.UndefinedRows, r.BestFitness, r.MeanFitness,
		r.StageDuration, r.Stages, r.ActiveJobs, r.Jobs,
		r.Forecasts, r.ForecastsFailed, r.UndefinedPreds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the underlying registry, mainly for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// JobStarted marks a training job as running
func (r *Registry) JobStarted() {
	r.ActiveJobs.Inc()
}

// JobFinished records a job's terminal status
func (r *Registry) JobFinished(status string) {
	r.ActiveJobs.Dec()
	r.Jobs.WithLabelValues(status).Inc()
}

// ObserveForecast counts evaluated and undefined forecast rows
func (r *Registry) ObserveForecast(rows, undefined int) {
	r.Forecasts.Add(float64(rows))
	r.UndefinedPreds.Add(float64(undefined))
}

// NewJobObserver returns an observer for one pipeline run. It labels GA
// generations with the stage that is currently running.
func (r *Registry) NewJobObserver() *JobObserver {
	return &JobObserver{reg: r}
}

// JobObserver implements genetic.Observer and pipeline.StageObserver
type JobObserver struct {
	reg *Registry

	mu      sync.Mutex
	stage   string
	started time.Time
}

var (
	_ genetic.Observer       = (*JobObserver)(nil)
	_ pipeline.StageObserver = (*JobObserver)(nil)
)

func (o *JobObserver) currentStage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage == "" {
		return "unknown"
	}
	return o.stage
}

// OnGeneration records one generation of the current stage
func (o *JobObserver) OnGeneration(_ genetic.OptimizationType, stats genetic.GenerationStats) {
	stage := o.currentStage()
	o.reg.Generations.WithLabelValues(stage).Inc()
	o.reg.Evaluations.WithLabelValues(stage).Add(float64(stats.Evaluations))
	o.reg.UndefinedRows.WithLabelValues(stage).Add(float64(stats.Undefined))
	o.reg.BestFitness.WithLabelValues(stage).Set(stats.BestFitness)
	o.reg.MeanFitness.WithLabelValues(stage).Set(stats.MeanFitness)
}

// OnStage tracks the running stage and records finished ones
func (o *JobObserver) OnStage(_ context.Context, ev pipeline.StageEvent) {
	stage := string(ev.Stage)
	if ev.Status == pipeline.StatusStarted {
		o.mu.Lock()
		o.stage = stage
		o.started = time.Now()
		o.mu.Unlock()
		return
	}

	o.mu.Lock()
	elapsed := time.Since(o.started)
	o.mu.Unlock()

	status := string(ev.Status)
	o.reg.Stages.WithLabelValues(stage, status).Inc()
	o.reg.StageDuration.WithLabelValues(stage, status).Observe(elapsed.Seconds())
}
