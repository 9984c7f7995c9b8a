// Package jobexec exposes the job controller: the single entry point through
// which callers create, start, pause, resume, cancel, and observe generation
// jobs. It owns the registry of live jobs and fans transition snapshots out
// to the progress sink, the event bus, metrics, and the storage backend.
package jobexec

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/docugen/docugen/pkg/engine"
	"github.com/docugen/docugen/pkg/event"
	"github.com/docugen/docugen/pkg/metrics"
	"github.com/docugen/docugen/pkg/render"
	"github.com/docugen/docugen/pkg/storage"
)

// ErrJobNotFound is returned when a job ID does not match any registered job.
var ErrJobNotFound = errors.New("job not found")

// ProgressSink receives a snapshot after every item or job state transition.
// Implementations must not block; slow consumers belong on the event bus.
type ProgressSink interface {
	OnProgress(engine.Snapshot)
}

// managedJob bundles a job with its scheduler and the bookkeeping the
// controller needs to diff successive snapshots.
type managedJob struct {
	job       *engine.Job
	scheduler *engine.Scheduler

	mu       sync.Mutex
	prev     engine.Snapshot
	finished bool
}

// Service is the job controller. Jobs live in process memory; the storage
// backend, when attached, keeps a durable metadata shadow so finished jobs
// survive a restart.
type Service struct {
	renderer     render.Renderer
	progressSink ProgressSink
	storage      storage.Backend
	events       *event.Manager
	metrics      *metrics.Collector
	logger       zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*managedJob
}

// NewService builds a controller around the given renderer.
func NewService(renderer render.Renderer) *Service {
	return &Service{
		renderer: renderer,
		logger:   log.With().Str("component", "jobexec").Logger(),
		jobs:     make(map[string]*managedJob),
	}
}

// WithProgressSink attaches a sink to receive progress notifications.
func (s *Service) WithProgressSink(sink ProgressSink) *Service {
	s.progressSink = sink
	return s
}

// WithStorage attaches a storage backend for persisting job metadata.
func (s *Service) WithStorage(backend storage.Backend) *Service {
	s.storage = backend
	return s
}

// WithEvents attaches an event bus for publishing transition snapshots.
func (s *Service) WithEvents(bus *event.Manager) *Service {
	s.events = bus
	return s
}

// WithMetrics attaches a metrics collector.
func (s *Service) WithMetrics(collector *metrics.Collector) *Service {
	s.metrics = collector
	return s
}

// CreateJob validates the request and registers a new job in the Pending
// state. The job does not start dispatching until Start is called.
func (s *Service) CreateJob(ctx context.Context, params Params) (*engine.Job, error) {
	job, err := engine.NewJob(params.Name, params.Items, params.Settings)
	if err != nil {
		return nil, err
	}

	m := &managedJob{job: job, prev: job.Progress()}
	m.scheduler = engine.NewScheduler(job, s.renderer).
		WithTransitionHook(func(snap engine.Snapshot) { s.onTransition(m, snap) })

	s.mu.Lock()
	s.jobs[job.ID()] = m
	s.mu.Unlock()

	s.persistCreate(ctx, job)
	if s.metrics != nil {
		s.metrics.RecordJobCreated()
	}

	s.logger.Info().
		Str("job_id", job.ID()).
		Str("name", job.Name()).
		Int("items", len(params.Items)).
		Int("concurrency", params.Settings.Concurrency).
		Msg("Job created")
	return job, nil
}

// Start begins dispatching the job's items. The supplied context bounds the
// whole run: cancelling it behaves like an operator cancel.
func (s *Service) Start(ctx context.Context, jobID string) error {
	m, err := s.get(jobID)
	if err != nil {
		return err
	}
	return m.scheduler.Start(ctx)
}

// Pause stops dispatch of new items for the job. In-flight renders finish.
func (s *Service) Pause(jobID string) error {
	m, err := s.get(jobID)
	if err != nil {
		return err
	}
	return m.scheduler.Pause()
}

// Resume restarts dispatch for a paused job.
func (s *Service) Resume(jobID string) error {
	m, err := s.get(jobID)
	if err != nil {
		return err
	}
	return m.scheduler.Resume()
}

// Cancel requests best-effort cancellation of the job.
func (s *Service) Cancel(jobID string) error {
	m, err := s.get(jobID)
	if err != nil {
		return err
	}
	return m.scheduler.Cancel()
}

// Progress returns the job's current progress snapshot. Valid in any job
// state, including terminal ones.
func (s *Service) Progress(jobID string) (engine.Snapshot, error) {
	m, err := s.get(jobID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return m.job.Progress(), nil
}

// Results returns the artifacts and failures recorded so far. On a live job
// the result set is partial and Final is false; once the job is terminal the
// terminal-metadata invariants are verified before the results are handed
// out.
func (s *Service) Results(jobID string) (*Results, error) {
	m, err := s.get(jobID)
	if err != nil {
		return nil, err
	}

	state := m.job.State()
	if state.IsTerminal() {
		if err := m.job.Verify(); err != nil {
			return nil, err
		}
	}

	res := &Results{
		JobID:              m.job.ID(),
		State:              state,
		StateLabel:         state.String(),
		Final:              state.IsTerminal(),
		CompletedArtifacts: []ArtifactResult{},
		FailedItems:        []FailedItem{},
	}
	for _, it := range m.job.Items() {
		switch {
		case it.Artifact != nil:
			res.CompletedArtifacts = append(res.CompletedArtifacts, ArtifactResult{
				ItemID:         it.ID,
				DocumentNumber: it.DocumentNumber,
				Artifact:       *it.Artifact,
			})
		case it.Error != nil:
			res.FailedItems = append(res.FailedItems, FailedItem{
				ItemID:         it.ID,
				DocumentNumber: it.DocumentNumber,
				Error:          *it.Error,
			})
		}
	}
	return res, nil
}

// Items returns snapshots of the job's items in insertion order.
func (s *Service) Items(jobID string) ([]engine.ItemSnapshot, error) {
	m, err := s.get(jobID)
	if err != nil {
		return nil, err
	}
	return m.job.Items(), nil
}

// Get returns the job itself, for callers that need settings or timestamps.
func (s *Service) Get(jobID string) (*engine.Job, error) {
	m, err := s.get(jobID)
	if err != nil {
		return nil, err
	}
	return m.job, nil
}

// List returns progress snapshots of every registered job, newest first.
func (s *Service) List() []engine.Snapshot {
	s.mu.RLock()
	managed := make([]*managedJob, 0, len(s.jobs))
	for _, m := range s.jobs {
		managed = append(managed, m)
	}
	s.mu.RUnlock()

	sort.Slice(managed, func(i, j int) bool {
		return managed[i].job.CreatedAt().After(managed[j].job.CreatedAt())
	})

	snaps := make([]engine.Snapshot, 0, len(managed))
	for _, m := range managed {
		snaps = append(snaps, m.job.Progress())
	}
	return snaps
}

// Wait blocks until the job reaches a terminal state or ctx expires.
func (s *Service) Wait(ctx context.Context, jobID string) error {
	m, err := s.get(jobID)
	if err != nil {
		return err
	}
	return m.scheduler.Wait(ctx)
}

// Remove retires a terminal job from the in-memory registry. The persisted
// metadata record and any stored artifacts are untouched.
func (s *Service) Remove(jobID string) error {
	m, err := s.get(jobID)
	if err != nil {
		return err
	}
	if state := m.job.State(); !state.IsTerminal() {
		return &engine.InvalidStateError{Op: "remove", State: state}
	}

	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	return nil
}

func (s *Service) get(jobID string) (*managedJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return m, nil
}

// onTransition fans a snapshot out to the sink, the event bus, metrics, and
// storage. Workers call it concurrently; the per-job mutex serializes the
// diff against the previous snapshot so counter deltas stay consistent.
func (s *Service) onTransition(m *managedJob, snap engine.Snapshot) {
	m.mu.Lock()
	prev := m.prev
	m.prev = snap
	stateChanged := prev.State != snap.State
	justFinished := snap.State.IsTerminal() && !m.finished
	if justFinished {
		m.finished = true
	}
	m.mu.Unlock()

	if s.progressSink != nil {
		s.progressSink.OnProgress(snap)
	}
	if s.events != nil {
		ctx := context.Background()
		s.events.Publish(ctx, event.JobProgress, snap)
		if stateChanged {
			s.events.Publish(ctx, event.JobStateChanged, snap)
		}
	}

	s.recordMetrics(prev, snap, justFinished, m.job)

	if stateChanged {
		s.persistState(m.job, snap, justFinished)
	}
}

// recordMetrics translates a snapshot diff into counter increments. Snapshots
// from racing workers may arrive out of order, so deltas clamp at zero; the
// terminal snapshot carries the authoritative totals.
func (s *Service) recordMetrics(prev, snap engine.Snapshot, justFinished bool, job *engine.Job) {
	if s.metrics == nil {
		return
	}

	for i := 0; i < snap.Completed-prev.Completed; i++ {
		s.metrics.RecordItemCompleted()
	}
	for i := 0; i < snap.Failed-prev.Failed; i++ {
		s.metrics.RecordItemFailed()
	}
	for i := 0; i < snap.Skipped-prev.Skipped; i++ {
		s.metrics.RecordItemSkipped()
	}
	s.metrics.UpdateQueueStats(snap.Remaining-snap.Generating, snap.Generating)

	if justFinished {
		s.metrics.RecordJobFinished(snap.StateLabel)
		for _, it := range job.Items() {
			if it.Duration > 0 {
				s.metrics.ObserveRenderDuration(it.Duration.Seconds())
			}
		}
	}
}

// persistCreate writes the initial metadata record. Persistence failures are
// logged and swallowed: the engine runs from memory either way.
func (s *Service) persistCreate(ctx context.Context, job *engine.Job) {
	if s.storage == nil {
		return
	}

	settings := job.Settings()
	meta := &storage.JobMetadata{
		ID:           job.ID(),
		Name:         job.Name(),
		TemplateID:   settings.TemplateID,
		OutputFormat: settings.OutputFormat.String(),
		Status:       storage.StatusPending.String(),
		ItemCount:    job.Progress().Total,
	}

	if err := s.storage.Jobs().Create(ctx, meta); err != nil {
		log.Warn().
			Str("component", "jobexec").
			Str("job_id", job.ID()).
			Err(err).
			Msg("Failed to create job metadata in storage, continuing without persistence")
	} else {
		log.Debug().
			Str("component", "jobexec").
			Str("job_id", job.ID()).
			Msg("Created job metadata in storage")
	}
}

// persistState updates the durable record after a job-level state change.
// Terminal transitions additionally freeze the item counters and duration.
func (s *Service) persistState(job *engine.Job, snap engine.Snapshot, terminal bool) {
	if s.storage == nil {
		return
	}

	status := snap.StateLabel
	updates := storage.JobUpdates{Status: &status}

	if startedAt := job.StartedAt(); !startedAt.IsZero() {
		updates.StartedAt = &startedAt
	}

	if terminal {
		updates.CompletedCount = &snap.Completed
		updates.FailedCount = &snap.Failed
		updates.SkippedCount = &snap.Skipped

		completedAt := job.CompletedAt()
		if completedAt.IsZero() {
			completedAt = time.Now()
		}
		updates.CompletedAt = &completedAt
		if startedAt := job.StartedAt(); !startedAt.IsZero() {
			duration := int(completedAt.Sub(startedAt).Seconds())
			updates.Duration = &duration
		}
		if snap.Failed > 0 {
			msg := fmt.Sprintf("%d of %d items failed", snap.Failed, snap.Total)
			updates.ErrorMessage = &msg
		}
	}

	if err := s.storage.Jobs().Update(context.Background(), job.ID(), updates); err != nil {
		log.Warn().
			Str("component", "jobexec").
			Str("job_id", job.ID()).
			Err(err).
			Msg("Failed to update job status in storage")
	} else {
		log.Debug().
			Str("component", "jobexec").
			Str("job_id", job.ID()).
			Str("status", status).
			Msg("Updated job status in storage")
	}
}
