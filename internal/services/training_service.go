package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soltixdb/fuzzcast/internal/analytics"
	"github.com/soltixdb/fuzzcast/internal/analytics/anomaly"
	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/analytics/forecast"
	"github.com/soltixdb/fuzzcast/internal/analytics/pipeline"
	"github.com/soltixdb/fuzzcast/internal/analytics/report"
	"github.com/soltixdb/fuzzcast/internal/config"
	"github.com/soltixdb/fuzzcast/internal/dataset"
	"github.com/soltixdb/fuzzcast/internal/logging"
	"github.com/soltixdb/fuzzcast/internal/metrics"
	"github.com/soltixdb/fuzzcast/internal/models"
	"github.com/soltixdb/fuzzcast/internal/queue"
	"github.com/soltixdb/fuzzcast/internal/storage"
)

// Snapshot stage names outside the pipeline stages
const (
	SnapshotInitial = "initial"
	SnapshotFinal   = "final"
)

// FinalVersion is the snapshot version of the merged, named system
var FinalVersion = len(pipeline.Policies) + 1

// Job is a prepared training run
type Job struct {
	ID     string
	Name   string
	Frame  *dataset.Frame
	Data   dataset.Config
	Tuning config.TuningConfig
	// Grid is the initial system; NewJob builds it so oversized grids are
	// rejected before any work is scheduled
	Grid *fis.FIS
}

// Outcome is what a completed job produced
type Outcome struct {
	Record  storage.ModelRecord
	Initial *fis.FIS
	Final   *fis.FIS
	Summary report.Summary
}

// TrainingService runs training jobs and persists their results
type TrainingService struct {
	logger  *logging.Logger
	cfg     config.Config
	store   storage.Store
	events  *queue.EventPublisher
	metrics *metrics.Registry

	slots   chan struct{}
	baseCtx context.Context
	stopAll context.CancelFunc
	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewTrainingService creates a TrainingService. events and reg may be nil.
func NewTrainingService(
	logger *logging.Logger,
	cfg config.Config,
	store storage.Store,
	events *queue.EventPublisher,
	reg *metrics.Registry,
) *TrainingService {
	slots := cfg.Server.MaxConcurrentJobs
	if slots < 1 {
		slots = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TrainingService{
		logger:  logger,
		cfg:     cfg,
		store:   store,
		events:  events,
		metrics: reg,
		slots:   make(chan struct{}, slots),
		baseCtx: ctx,
		stopAll: cancel,
		running: make(map[string]context.CancelFunc),
	}
}

// NewJob resolves a request against the configuration. A nil Data section
// uses the configured data source.
func (s *TrainingService) NewJob(req models.TrainRequest) (*Job, error) {
	job := &Job{
		ID:   uuid.NewString(),
		Name: req.Name,
		Data: dataset.Config{
			Lags:          s.cfg.Data.Lags,
			TrainFraction: s.cfg.Data.TrainFraction,
		},
		Tuning: ApplyOverrides(s.cfg.Tuning, req.Tuning),
	}
	if job.Name == "" {
		job.Name = s.cfg.Model.Name
	}

	var err error
	if req.Data == nil {
		job.Frame, err = LoadFrame(s.cfg.Data)
	} else {
		if req.Data.Lags > 0 {
			job.Data.Lags = req.Data.Lags
		}
		if req.Data.TrainFraction > 0 {
			job.Data.TrainFraction = req.Data.TrainFraction
		}
		job.Frame, err = frameFromRequest(req.Data, s.cfg.Data)
	}
	if err != nil {
		return nil, NewServiceError(CodeInvalidRequest, err.Error())
	}

	if err := job.Tuning.Validate(); err != nil {
		return nil, NewServiceError(CodeInvalidRequest, err.Error())
	}
	if job.Frame.Len() <= job.Data.Lags+1 {
		return nil, NewServiceErrorWithDetails(CodeInvalidRequest, "Not enough rows for the requested lags",
			map[string]interface{}{"rows": job.Frame.Len(), "lags": job.Data.Lags})
	}

	job.Grid, err = fis.NewGrid(GridConfig(s.cfg.Model, job.Data.Lags, [2]string{job.Frame.Names[1], job.Frame.Names[2]}))
	if err != nil {
		return nil, NewServiceErrorWithDetails(CodeInvalidRequest, err.Error(),
			map[string]interface{}{
				"lags":           job.Data.Lags,
				"mfs_per_input":  s.cfg.Model.MFsPerInput,
				"max_grid_rules": s.cfg.Model.MaxGridRules,
			})
	}
	return job, nil
}

// Submit stores a pending record and trains in the background
func (s *TrainingService) Submit(ctx context.Context, req models.TrainRequest) (storage.ModelRecord, error) {
	job, err := s.NewJob(req)
	if err != nil {
		return storage.ModelRecord{}, err
	}

	select {
	case s.slots <- struct{}{}:
	default:
		return storage.ModelRecord{}, NewServiceErrorWithDetails(CodeTooManyJobs, "Too many training jobs running",
			map[string]interface{}{"max_concurrent_jobs": cap(s.slots)})
	}

	now := time.Now().UTC()
	rec := storage.ModelRecord{
		ID:        job.ID,
		Name:      job.Name,
		Status:    storage.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Seed:      job.Tuning.Seed,
	}
	if err := s.store.SaveModel(ctx, rec); err != nil {
		<-s.slots
		return storage.ModelRecord{}, NewServiceError(CodeStorageError, fmt.Sprintf("Failed to save model: %v", err))
	}

	jobCtx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	s.running[job.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, job.ID)
			s.mu.Unlock()
			cancel()
			<-s.slots
		}()
		if _, err := s.Run(jobCtx, job); err != nil {
			s.logger.Error("Training job failed", "model_id", job.ID, "error", err)
		}
	}()

	return rec, nil
}

// Active returns the number of running background jobs
func (s *TrainingService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Cancel stops a running background job
func (s *TrainingService) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.running[id]
	if ok {
		cancel()
	}
	return ok
}

// Stop cancels the background job training model id. The job records its
// failed state once the pipeline observes the cancellation.
func (s *TrainingService) Stop(ctx context.Context, id string) (storage.ModelRecord, error) {
	if s.Cancel(id) {
		s.logger.Info("Training job cancelled", "model_id", id)
		return s.Get(ctx, id)
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return storage.ModelRecord{}, err
	}
	return storage.ModelRecord{}, NewServiceErrorWithDetails(CodeJobNotRunning, "Model is not being trained",
		map[string]interface{}{"model_id": id, "status": rec.Status})
}

// Shutdown cancels every running job and waits for them to record their
// final state
func (s *TrainingService) Shutdown(ctx context.Context) error {
	s.stopAll()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run trains job synchronously and stores every intermediate result
func (s *TrainingService) Run(ctx context.Context, job *Job) (*Outcome, error) {
	log := s.logger.With("model_id", job.ID)
	ctx = logging.WithModelID(ctx, job.ID)

	now := time.Now().UTC()
	rec := storage.ModelRecord{
		ID:        job.ID,
		Name:      job.Name,
		Status:    storage.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
		Seed:      job.Tuning.Seed,
	}
	if existing, ok, err := s.store.GetModel(ctx, job.ID); err == nil && ok {
		rec.CreatedAt = existing.CreatedAt
	}
	if err := s.store.SaveModel(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	if s.metrics != nil {
		s.metrics.JobStarted()
	}
	log.Info("Training started", "rows", job.Frame.Len(), "lags", job.Data.Lags, "seed", job.Tuning.Seed)
	start := time.Now()

	out, err := s.train(ctx, job, &rec, log)
	if err != nil {
		rec.Status = storage.StatusFailed
		rec.Error = err.Error()
		rec.UpdatedAt = time.Now().UTC()
		if saveErr := s.store.SaveModel(context.WithoutCancel(ctx), rec); saveErr != nil {
			log.Error("Failed to record job failure", "error", saveErr)
		}
		if s.metrics != nil {
			s.metrics.JobFinished(storage.StatusFailed)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.JobFinished(storage.StatusCompleted)
	}
	log.Info("Training completed",
		"rules", len(out.Final.Rules),
		"validation_rmse", out.Record.Validation["fis"].RMSE,
		"duration", time.Since(start).String())
	return out, nil
}

func (s *TrainingService) train(ctx context.Context, job *Job, rec *storage.ModelRecord, log *logging.Logger) (*Outcome, error) {
	ds, scalers, err := dataset.Build(job.Frame, job.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset: %w", err)
	}
	rec.FeatureNames = ds.FeatureNames
	rec.Scalers = scalers

	grid := job.Grid
	if grid == nil {
		grid, err = fis.NewGrid(GridConfig(s.cfg.Model, job.Data.Lags, [2]string{job.Frame.Names[1], job.Frame.Names[2]}))
		if err != nil {
			return nil, fmt.Errorf("failed to build initial system: %w", err)
		}
	}
	if err := s.saveSnapshot(ctx, job.ID, 0, SnapshotInitial, grid); err != nil {
		return nil, err
	}

	pcfg := PipelineConfig(job.Tuning, log)
	var jobObs *metrics.JobObserver
	if s.metrics != nil {
		jobObs = s.metrics.NewJobObserver()
		pcfg.Options.Observer = jobObs
	}

	// with tuning disabled every stage resolves at once, so its events go out
	// as one batch after the pipeline returns
	var pending []interface{}
	batched := !job.Tuning.RunTuneFIS && s.events.Enabled()
	defer func() {
		if len(pending) > 0 {
			s.flush(context.WithoutCancel(ctx), pending, log)
		}
	}()

	var observerErr error
	pcfg.Observer = pipeline.StageObserverFunc(func(ctx context.Context, ev pipeline.StageEvent) {
		if jobObs != nil {
			jobObs.OnStage(ctx, ev)
		}
		if batched {
			pending = append(pending, StageEventMessage(job.ID, ev, time.Now()))
		} else {
			s.publish(ctx, job.ID, ev, log)
		}

		if ev.Result == nil || observerErr != nil {
			return
		}
		rec.Stages = append(rec.Stages, summarizeStage(ev.Result))
		rec.UpdatedAt = time.Now().UTC()
		if err := s.saveSnapshot(ctx, job.ID, stageVersion(ev.Stage), string(ev.Stage), ev.Result.FIS); err != nil {
			observerErr = err
			return
		}
		if err := s.store.SaveModel(ctx, *rec); err != nil {
			observerErr = fmt.Errorf("failed to save model: %w", err)
		}
	})

	res, err := pipeline.Run(ctx, grid, ds.Train, pcfg)
	if err != nil {
		return nil, err
	}
	if observerErr != nil {
		return nil, observerErr
	}

	final, summary, err := report.Build(res.Final(), res.Initial)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule report: %w", err)
	}
	if err := s.saveSnapshot(ctx, job.ID, FinalVersion, SnapshotFinal, final); err != nil {
		return nil, err
	}

	rec.Validation, rec.Anomalies = s.validate(ds, scalers, final, log)
	rec.OutputNames = summary.OutputNames
	rec.Report = summary.Text
	rec.FinalVersion = FinalVersion
	rec.Status = storage.StatusCompleted
	rec.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveModel(ctx, *rec); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	return &Outcome{Record: *rec, Initial: res.Initial, Final: final, Summary: summary}, nil
}

func (s *TrainingService) saveSnapshot(ctx context.Context, id string, version int, stage string, f *fis.FIS) error {
	err := s.store.SaveSnapshot(ctx, storage.Snapshot{
		ModelID:   id,
		Version:   version,
		Stage:     stage,
		CreatedAt: time.Now().UTC(),
		FIS:       f,
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot %d: %w", version, err)
	}
	return nil
}

// publish sends a stage event; broker errors are logged and never fail the job
func (s *TrainingService) publish(ctx context.Context, id string, ev pipeline.StageEvent, log *logging.Logger) {
	if !s.events.Enabled() {
		return
	}
	msg := StageEventMessage(id, ev, time.Now())
	if err := s.events.PublishEvent(ctx, msg); err != nil {
		log.Warn("Failed to publish stage event", "stage", string(ev.Stage), "status", string(ev.Status), "error", err)
	}
}

// flush publishes buffered stage events in one batch
func (s *TrainingService) flush(ctx context.Context, msgs []interface{}, log *logging.Logger) {
	n, err := s.events.PublishEvents(ctx, msgs...)
	if err != nil || n < len(msgs) {
		log.Warn("Failed to publish stage events", "published", n, "total", len(msgs), "error", err)
	}
}

// StageEventMessage converts a pipeline event to its wire form
func StageEventMessage(id string, ev pipeline.StageEvent, at time.Time) models.StageEvent {
	msg := models.StageEvent{
		ModelID:   id,
		Stage:     string(ev.Stage),
		Status:    string(ev.Status),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	if r := ev.Result; r != nil {
		if !r.Skipped {
			best := r.Report.BestFitness
			msg.BestFitness = &best
		}
		msg.Generations = r.Report.Generations
		if r.FIS != nil {
			msg.Rules = len(r.FIS.Rules)
		}
	}
	return msg
}

func summarizeStage(r *pipeline.StageResult) storage.StageSummary {
	sum := storage.StageSummary{
		Stage:       string(r.Stage),
		Skipped:     r.Skipped,
		BestFitness: r.Report.BestFitness,
		Generations: r.Report.Generations,
		Evaluations: r.Report.Evaluations,
		Undefined:   r.Report.Undefined,
		StopReason:  r.Report.StopReason,
		ElapsedMs:   r.Report.Elapsed.Milliseconds(),
	}
	if p, ok := pipeline.PolicyFor(r.Stage); ok {
		sum.Optimization = string(p.Type)
		sum.AsymmetricLag = p.AsymmetricLag
	}
	if r.FIS != nil {
		sum.Rules = len(r.FIS.Rules)
	}
	return sum
}

// stageVersion is the snapshot version a stage writes: its 1-based position
func stageVersion(stage pipeline.Stage) int {
	for i, p := range pipeline.Policies {
		if p.Stage == stage {
			return i + 1
		}
	}
	return 0
}

// denormalized reports predictions in original target units
type denormalized struct {
	forecast.Forecaster
	scale dataset.MinMax
}

func (d denormalized) Predict(x []float64) (float64, bool) {
	v, ok := d.Forecaster.Predict(x)
	if !ok {
		return 0, false
	}
	return d.scale.Inverse(v), true
}

// validate scores the tuned system and the configured baselines on the
// validation rows, in original units
func (s *TrainingService) validate(ds *analytics.Dataset, sc dataset.Scalers, final *fis.FIS, log *logging.Logger) (map[string]forecast.Scores, []anomaly.Result) {
	actual := make(analytics.Series, len(ds.Validation.Y))
	for i, v := range ds.Validation.Y {
		actual[i] = sc.Target.Inverse(v)
	}

	scores := map[string]forecast.Scores{
		"fis": forecast.Score(denormalized{forecast.NewFISForecaster(final), sc.Target}, ds.Validation.X, actual),
	}
	for _, name := range s.cfg.Validation.Baselines {
		f, err := forecast.GetForecaster(name)
		if err != nil {
			log.Warn("Unknown baseline forecaster", "name", name)
			continue
		}
		if err := f.Fit(ds.Train.X, ds.Train.Y); err != nil {
			log.Warn("Baseline fit failed", "name", name, "error", err)
			continue
		}
		scores[name] = forecast.Score(denormalized{f, sc.Target}, ds.Validation.X, actual)
	}

	detector := s.cfg.Validation.AnomalyDetector
	if detector == "" {
		return scores, nil
	}
	values, _, err := final.EvaluateBatch(ds.Validation.X)
	if err != nil {
		log.Warn("Residual evaluation failed", "error", err)
		return scores, nil
	}
	defined := make([]bool, len(values))
	for i, v := range values {
		defined[i] = !math.IsNaN(v)
		if defined[i] {
			values[i] = sc.Target.Inverse(v)
		}
	}
	residuals, index := anomaly.Residuals(actual, values, defined)
	found, err := anomaly.Detect(detector, residuals, index, anomaly.Config{
		Threshold: s.cfg.Validation.AnomalyThreshold,
		MinPoints: s.cfg.Validation.AnomalyMinPoints,
	})
	if err != nil {
		log.Warn("Residual anomaly detection failed", "detector", detector, "error", err)
		return scores, nil
	}
	if len(found) > 0 {
		log.Info("Validation residual anomalies", "detector", detector, "count", len(found))
	}
	return scores, found
}

// Get returns a model record
func (s *TrainingService) Get(ctx context.Context, id string) (storage.ModelRecord, error) {
	rec, ok, err := s.store.GetModel(ctx, id)
	if err != nil {
		return storage.ModelRecord{}, storageError(err)
	}
	if !ok {
		return storage.ModelRecord{}, NewServiceErrorWithDetails(CodeModelNotFound, "Model not found",
			map[string]interface{}{"model_id": id})
	}
	return rec, nil
}

// List returns every model record, newest first
func (s *TrainingService) List(ctx context.Context) ([]storage.ModelRecord, error) {
	recs, err := s.store.ListModels(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return recs, nil
}

// Completed returns a model that finished training successfully
func (s *TrainingService) Completed(ctx context.Context, id string) (storage.ModelRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return storage.ModelRecord{}, err
	}
	if rec.Status != storage.StatusCompleted {
		return storage.ModelRecord{}, NewServiceErrorWithDetails(CodeModelNotReady, "Model has not completed training",
			map[string]interface{}{"model_id": id, "status": rec.Status, "error": rec.Error})
	}
	return rec, nil
}

func storageError(err error) error {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, storage.ErrInvalidRecord) {
		return NewServiceError(CodeInvalidRequest, err.Error())
	}
	return NewServiceError(CodeStorageError, err.Error())
}
