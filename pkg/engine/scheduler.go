package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/docugen/docugen/pkg/render"
)

// TransitionHook receives a fresh progress snapshot after every item or job
// state transition. Hooks run on the worker/dispatcher goroutine and must not
// block; anything slow belongs behind a channel or the event bus.
type TransitionHook func(Snapshot)

// Scheduler drives one job's items from Pending to a terminal state through
// a fixed-size worker pool, honoring the pause/resume/cancel protocol.
//
// The concurrency cap is enforced by pool slots, not advisory: at no point do
// more than Settings.Concurrency items hold the Generating state. Workers
// hold no locks while awaiting the renderer.
type Scheduler struct {
	job      *Job
	renderer render.Renderer
	logger   zerolog.Logger
	onChange TransitionHook

	mu         sync.Mutex
	started    bool
	cancelC    chan struct{}
	cancelOnce sync.Once

	// wake coalesces dispatcher wakeups (item resolved, resume, cancel).
	// Buffered so a signal sent between the dispatcher's condition check and
	// its wait is never lost.
	wake chan struct{}

	done chan struct{}
}

// NewScheduler builds a scheduler for the given job. The job must be in the
// Pending state; Start performs the actual transition.
func NewScheduler(job *Job, renderer render.Renderer) *Scheduler {
	return &Scheduler{
		job:      job,
		renderer: renderer,
		logger: log.With().
			Str("component", "scheduler").
			Str("job_id", job.ID()).
			Logger(),
		cancelC: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// WithLogger overrides the scheduler's logger.
func (s *Scheduler) WithLogger(logger zerolog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// WithTransitionHook attaches a hook invoked after every state transition.
func (s *Scheduler) WithTransitionHook(hook TransitionHook) *Scheduler {
	s.onChange = hook
	return s
}

// Start transitions the job to Running and begins dispatching in the
// background. Returns an InvalidStateError if the job is not Pending.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return &InvalidStateError{Op: "start", State: s.job.State()}
	}
	if err := s.job.begin(); err != nil {
		return err
	}
	s.started = true

	s.logger.Info().
		Int("items", len(s.job.items)).
		Int("concurrency", s.job.settings.Concurrency).
		Msg("Job started")
	s.notify()

	go s.run(ctx)
	return nil
}

// Pause stops dispatch of new items. In-flight renders finish naturally.
// Returns an InvalidStateError unless the job is Running.
func (s *Scheduler) Pause() error {
	if err := s.job.pause(); err != nil {
		return err
	}
	s.logger.Info().Msg("Job paused")
	s.notify()
	return nil
}

// Resume restarts dispatch after a pause. Returns an InvalidStateError
// unless the job is Paused.
func (s *Scheduler) Resume() error {
	if err := s.job.resume(); err != nil {
		return err
	}
	s.logger.Info().Msg("Job resumed")
	s.signalWake()
	s.notify()
	return nil
}

// Cancel flags the job for cancellation. Pending items are skipped
// immediately; in-flight renders are cancelled cooperatively through their
// context and any late result is discarded. The job reaches Cancelled once
// the pool has drained. Valid from Running or Paused.
func (s *Scheduler) Cancel() error {
	if err := s.job.requestCancel(); err != nil {
		return err
	}
	s.cancelOnce.Do(func() { close(s.cancelC) })
	s.logger.Info().Msg("Job cancellation requested")
	s.signalWake()
	s.notify()
	return nil
}

// Done is closed once the job has reached a terminal state and all workers
// have exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the job finishes or ctx expires.
func (s *Scheduler) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the dispatch loop. It owns the worker pool and is the only
// goroutine that claims pending items.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	// Render context: cancelled when the job is cancelled or the caller
	// context expires. Workers pass it to the renderer.
	renderCtx, stopRenders := context.WithCancel(ctx)
	defer stopRenders()
	go func() {
		select {
		case <-s.cancelC:
			stopRenders()
		case <-renderCtx.Done():
		}
	}()

	slots := make(chan struct{}, s.job.settings.Concurrency)
	var workers sync.WaitGroup

dispatch:
	for {
		if s.job.cancelled() {
			break dispatch
		}
		if s.job.allTerminal() {
			break dispatch
		}

		if !s.dispatchable() {
			// Paused, or everything pending is already in flight. Wait for
			// a worker to resolve, a resume, a cancel, or caller shutdown.
			select {
			case <-s.wake:
			case <-s.cancelC:
				break dispatch
			case <-ctx.Done():
				// Caller shutdown behaves like an operator cancel.
				_ = s.Cancel()
				break dispatch
			}
			continue
		}

		select {
		case slots <- struct{}{}:
		case <-s.cancelC:
			break dispatch
		case <-ctx.Done():
			_ = s.Cancel()
			break dispatch
		}

		item := s.job.claimNext()
		if item == nil {
			// Raced with a pause or cancel between the check and the claim.
			<-slots
			continue
		}

		workers.Add(1)
		go func(it *Item) {
			defer workers.Done()
			defer func() {
				<-slots
				s.signalWake()
			}()
			s.renderOne(renderCtx, it)
		}(item)
	}

	workers.Wait()

	if err := s.job.finalize(); err != nil {
		s.logger.Error().Err(err).Msg("Job finalization fault")
	}

	snap := s.job.Progress()
	s.logger.Info().
		Str("state", snap.StateLabel).
		Int("completed", snap.Completed).
		Int("failed", snap.Failed).
		Int("skipped", snap.Skipped).
		Msg("Job finished")
	s.notify()
}

// dispatchable reports whether the dispatcher should try to claim an item:
// the job is Running and at least one item is still Pending.
func (s *Scheduler) dispatchable() bool {
	s.job.mu.RLock()
	defer s.job.mu.RUnlock()

	if s.job.state != JobRunning {
		return false
	}
	for _, it := range s.job.items {
		if it.state == ItemPending {
			return true
		}
	}
	return false
}

// renderOne invokes the renderer for a single claimed item and records the
// outcome. The item timeout, when configured, is applied here so a stuck
// renderer surfaces as a KindTimeout failure instead of wedging the pool.
func (s *Scheduler) renderOne(ctx context.Context, it *Item) {
	req := render.Request{
		JobID:          s.job.id,
		ItemID:         it.id,
		TemplateID:     s.job.settings.TemplateID,
		DocumentType:   it.documentType.String(),
		DocumentNumber: it.documentNumber,
		Amount:         it.amount,
		Currency:       it.currency,
		OutputFormat:   s.job.settings.OutputFormat.String(),
	}

	renderCtx := ctx
	if timeout := s.job.settings.ItemTimeout; timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	artifact, err := s.renderer.Render(renderCtx, req)

	if resolveErr := s.job.resolve(it, artifact, err); resolveErr != nil {
		s.logger.Error().Err(resolveErr).Str("item_id", it.id).Msg("Item resolution fault")
		return
	}

	switch {
	case s.job.cancelled():
		s.logger.Debug().Str("item_id", it.id).Msg("In-flight result discarded after cancel")
	case err != nil:
		s.logger.Warn().
			Str("item_id", it.id).
			Str("document", it.documentNumber).
			Str("kind", string(render.Classify(err))).
			Err(err).
			Msg("Item render failed")
	default:
		s.logger.Debug().
			Str("item_id", it.id).
			Str("document", it.documentNumber).
			Str("artifact", artifact.Location).
			Msg("Item rendered")
	}

	s.notify()
}

// signalWake nudges the dispatcher without blocking; concurrent signals
// coalesce into one.
func (s *Scheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// notify pushes a snapshot to the transition hook, if attached.
func (s *Scheduler) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.job.Progress())
}
