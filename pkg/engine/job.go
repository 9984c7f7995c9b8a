// pkg/engine/job.go
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docugen/docugen/pkg/render"
)

// OutputFormat selects how rendered artifacts are grouped for delivery.
// The engine records the choice on every render request; packaging itself is
// the renderer/host's concern.
type OutputFormat string

const (
	OutputSingleArchive   OutputFormat = "single_archive"
	OutputIndividualFiles OutputFormat = "individual_files"
)

// IsValid checks if the OutputFormat is one of the supported modes.
func (f OutputFormat) IsValid() bool {
	return f == OutputSingleArchive || f == OutputIndividualFiles
}

// String returns the string representation of OutputFormat.
func (f OutputFormat) String() string {
	return string(f)
}

// Settings holds the per-job generation parameters, fixed at creation.
type Settings struct {
	// TemplateID selects the document template used for every item.
	TemplateID string `json:"template_id"`

	// OutputFormat groups artifacts as one archive or individual files.
	// Defaults to OutputIndividualFiles.
	OutputFormat OutputFormat `json:"output_format"`

	// Concurrency is the hard cap on simultaneous renders for this job.
	// Must be at least 1.
	Concurrency int `json:"concurrency"`

	// EmailOnCompletion asks the host to notify when the job finishes.
	// Carried as metadata; delivery is outside the engine.
	EmailOnCompletion bool `json:"email_on_completion"`

	// ItemTimeout bounds a single render call. Zero disables the deadline:
	// a render that never returns is then a renderer defect the engine
	// cannot recover from.
	ItemTimeout time.Duration `json:"item_timeout,omitempty"`
}

// Validate checks the settings and normalizes defaulted fields.
func (s *Settings) Validate() error {
	if s.Concurrency < 1 {
		return NewValidationError("concurrency", "must be at least 1")
	}
	if s.OutputFormat == "" {
		s.OutputFormat = OutputIndividualFiles
	}
	if !s.OutputFormat.IsValid() {
		return NewValidationError("output_format", "must be single_archive or individual_files")
	}
	if s.ItemTimeout < 0 {
		return NewValidationError("item_timeout", "must not be negative")
	}
	return nil
}

// JobState tracks a job through its lifecycle.
//
// Apart from the operator-driven Cancelled state and the Pending->Running
// start transition, the job state is a pure function of its items' states
// plus whether cancellation was requested.
type JobState int

const (
	JobPending JobState = iota
	JobRunning
	JobPaused
	JobCompleted
	JobFailed
	JobCancelled
)

// String returns the string representation of the JobState value.
func (s JobState) String() string {
	return [...]string{"pending", "running", "paused", "completed", "failed", "cancelled"}[s]
}

// IsTerminal returns true if the state has no outgoing transitions.
func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// ParseJobState converts an API/storage string into a JobState.
func ParseJobState(s string) (JobState, bool) {
	for st := JobPending; st <= JobCancelled; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return JobPending, false
}

// Job is a bounded batch of items plus run-time control state. The item set
// is fixed at creation; items are owned exclusively by their job and mutated
// only under its lock, so concurrent progress polls always observe a
// consistent snapshot.
type Job struct {
	id        string
	name      string
	createdAt time.Time
	settings  Settings

	mu              sync.RWMutex
	items           []*Item
	state           JobState
	cancelRequested bool
	startedAt       time.Time
	completedAt     time.Time
}

// NewJob validates the request and builds a job in the Pending state.
// Item IDs left empty are assigned; duplicate IDs are rejected.
func NewJob(name string, specs []ItemSpec, settings Settings) (*Job, error) {
	if len(specs) == 0 {
		return nil, NewValidationError("items", "at least one item is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if !spec.DocumentType.IsValid() {
			return nil, NewValidationError("items", "unknown document type "+string(spec.DocumentType))
		}
		id := spec.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, dup := seen[id]; dup {
			return nil, NewValidationError("items", "duplicate item id "+id)
		}
		seen[id] = struct{}{}

		items = append(items, &Item{
			id:             id,
			documentType:   spec.DocumentType,
			documentNumber: spec.DocumentNumber,
			amount:         spec.Amount,
			currency:       spec.Currency,
			priority:       spec.Priority,
			state:          ItemPending,
		})
	}

	return &Job{
		id:        uuid.New().String(),
		name:      name,
		createdAt: time.Now(),
		settings:  settings,
		items:     items,
		state:     JobPending,
	}, nil
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Name returns the caller-supplied job name.
func (j *Job) Name() string { return j.name }

// CreatedAt returns the job creation time.
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// Settings returns a copy of the job settings.
func (j *Job) Settings() Settings { return j.settings }

// State returns the current job state.
func (j *Job) State() JobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// StartedAt returns when the job entered Running, or zero if never started.
func (j *Job) StartedAt() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.startedAt
}

// CompletedAt returns when the job reached a terminal state, or zero.
func (j *Job) CompletedAt() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.completedAt
}

// Items returns consistent snapshots of every item, in insertion order.
func (j *Job) Items() []ItemSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snaps := make([]ItemSnapshot, 0, len(j.items))
	for _, it := range j.items {
		snaps = append(snaps, it.snapshot())
	}
	return snaps
}

// ============================================================================
// Control transitions (scheduler/controller side)
// ============================================================================

// begin moves the job from Pending to Running.
func (j *Job) begin() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobPending {
		return &InvalidStateError{Op: "start", State: j.state}
	}
	j.state = JobRunning
	j.startedAt = time.Now()
	return nil
}

// pause moves the job from Running to Paused. In-flight renders keep going;
// only dispatch of new items stops.
func (j *Job) pause() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobRunning {
		return &InvalidStateError{Op: "pause", State: j.state}
	}
	j.state = JobPaused
	return nil
}

// resume moves the job from Paused back to Running.
func (j *Job) resume() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobPaused {
		return &InvalidStateError{Op: "resume", State: j.state}
	}
	j.state = JobRunning
	return nil
}

// requestCancel flags the job for cancellation and immediately skips every
// still-pending item. The job stays in its current state until the scheduler
// has drained in-flight work and calls finalize.
func (j *Job) requestCancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobRunning && j.state != JobPaused {
		return &InvalidStateError{Op: "cancel", State: j.state}
	}
	j.cancelRequested = true
	for _, it := range j.items {
		if it.state == ItemPending {
			it.state = ItemSkipped
		}
	}
	return nil
}

// cancelled reports whether cancellation has been requested.
func (j *Job) cancelled() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.cancelRequested
}

// finalize derives the terminal job state once no more dispatch will happen.
// Cancelled wins regardless of item outcomes; otherwise Failed means
// "completed with at least one item failure".
func (j *Job) finalize() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.IsTerminal() {
		return nil
	}

	if j.cancelRequested {
		j.state = JobCancelled
		j.completedAt = time.Now()
		return nil
	}

	failed := 0
	for _, it := range j.items {
		if !it.state.IsTerminal() {
			return faultf("finalize with non-terminal item %s in state %s", it.id, it.state)
		}
		if it.state == ItemFailed {
			failed++
		}
	}

	if failed > 0 {
		j.state = JobFailed
	} else {
		j.state = JobCompleted
	}
	j.completedAt = time.Now()
	return nil
}

// ============================================================================
// Item transitions (worker side)
// ============================================================================

// claimNext picks the next pending item (highest priority first, insertion
// order as tie-breaker), marks it Generating, and returns it. Returns nil
// when nothing is pending or the job is not Running — the state check is
// what makes an acknowledged pause airtight: once pause() has returned, no
// further claim can succeed.
func (j *Job) claimNext() *Item {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobRunning {
		return nil
	}

	var next *Item
	for _, it := range j.items {
		if it.state != ItemPending {
			continue
		}
		if next == nil || it.priority > next.priority {
			next = it
		}
	}
	if next == nil {
		return nil
	}

	next.state = ItemGenerating
	next.startedAt = time.Now()
	return next
}

// resolve records the outcome of a render. If cancellation was requested
// while the render was in flight, the outcome is discarded and the item is
// Skipped per the best-effort cancellation contract.
func (j *Job) resolve(it *Item, artifact render.ArtifactRef, renderErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if it.state != ItemGenerating {
		return faultf("resolve item %s in state %s", it.id, it.state)
	}

	if j.cancelRequested {
		it.state = ItemSkipped
		return nil
	}

	it.generatedAt = time.Now()
	if renderErr != nil {
		it.state = ItemFailed
		it.err = &ItemError{
			Kind:    render.Classify(renderErr),
			Message: renderErr.Error(),
		}
		return nil
	}

	it.state = ItemCompleted
	it.artifact = &artifact
	return nil
}

// generatingCount returns the number of items currently in flight.
func (j *Job) generatingCount() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := 0
	for _, it := range j.items {
		if it.state == ItemGenerating {
			n++
		}
	}
	return n
}

// allTerminal reports whether every item has reached a terminal state.
func (j *Job) allTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, it := range j.items {
		if !it.state.IsTerminal() {
			return false
		}
	}
	return true
}

// Verify checks the terminal-metadata invariants on every item: Completed
// implies artifact set and error unset, Failed implies the converse. A
// violation is an engine bug, reported as ErrEngineFault.
func (j *Job) Verify() error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, it := range j.items {
		switch it.state {
		case ItemCompleted:
			if it.artifact == nil || it.err != nil {
				return faultf("completed item %s missing artifact or carrying error", it.id)
			}
		case ItemFailed:
			if it.err == nil || it.artifact != nil {
				return faultf("failed item %s missing error or carrying artifact", it.id)
			}
		case ItemSkipped:
			if it.err != nil || it.artifact != nil {
				return faultf("skipped item %s carrying terminal metadata", it.id)
			}
		}
	}
	return nil
}
