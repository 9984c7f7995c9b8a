package engine

import (
	"math"
	"time"
)

// Snapshot is the read-side projection of a job's progress. All counters are
// derived from item states at the moment of the call; there are no separate
// counters to drift out of sync. Taking a snapshot never blocks dispatch and
// never mutates job or item state.
type Snapshot struct {
	JobID string   `json:"job_id"`
	Name  string   `json:"name,omitempty"`
	State JobState `json:"-"`

	// StateLabel is the string form of State, for JSON consumers.
	StateLabel string `json:"state"`

	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Generating int `json:"generating"`
	Remaining  int `json:"remaining"`

	// Percentage counts every terminal item (completed, failed, skipped)
	// as done, rounded to the nearest integer. Zero when the job is empty.
	Percentage int `json:"percentage"`

	// AverageItemDuration is the running mean of measured render durations
	// over items that reached Completed or Failed. Zero until the first
	// item resolves.
	AverageItemDuration time.Duration `json:"average_item_duration_ms,omitempty"`

	// EstimatedCompletion is now + remaining * AverageItemDuration.
	// Zero (no ETA) until at least one item has a measured duration.
	EstimatedCompletion time.Time `json:"estimated_completion,omitzero"`

	// TakenAt is when this snapshot was computed.
	TakenAt time.Time `json:"taken_at"`
}

// Done reports whether every item is accounted for.
func (s Snapshot) Done() bool {
	return s.Remaining == 0
}

// Progress computes the current snapshot. Safe to call at any rate,
// including from a polling UI; repeated calls without intervening item
// transitions differ only in TakenAt and the ETA's anchor time.
func (j *Job) Progress() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	now := time.Now()
	snap := Snapshot{
		JobID:      j.id,
		Name:       j.name,
		State:      j.state,
		StateLabel: j.state.String(),
		Total:      len(j.items),
		TakenAt:    now,
	}

	var durTotal time.Duration
	var durCount int
	for _, it := range j.items {
		switch it.state {
		case ItemCompleted:
			snap.Completed++
		case ItemFailed:
			snap.Failed++
		case ItemSkipped:
			snap.Skipped++
		case ItemGenerating:
			snap.Generating++
		}
		if d, ok := it.duration(); ok {
			durTotal += d
			durCount++
		}
	}

	snap.Remaining = snap.Total - snap.Completed - snap.Failed - snap.Skipped
	if snap.Total > 0 {
		done := snap.Completed + snap.Failed + snap.Skipped
		snap.Percentage = int(math.Round(100 * float64(done) / float64(snap.Total)))
	}

	if durCount > 0 {
		snap.AverageItemDuration = durTotal / time.Duration(durCount)
		if snap.Remaining > 0 {
			snap.EstimatedCompletion = now.Add(time.Duration(snap.Remaining) * snap.AverageItemDuration)
		} else {
			snap.EstimatedCompletion = now
		}
	}

	return snap
}
