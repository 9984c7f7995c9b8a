package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"
)

// GCOptions defines options for garbage collection.
type GCOptions struct {
	// DryRun reports which jobs would be deleted without deleting them.
	DryRun bool

	// Retention overrides the backend's configured retention policy.
	// If nil, the backend default is used.
	Retention *RetentionConfig
}

// GCResult contains the results of a garbage collection operation.
type GCResult struct {
	// JobsDeleted is the number of jobs deleted.
	JobsDeleted int

	// DeletedJobIDs is the list of job IDs that were deleted.
	DeletedJobIDs []string

	// Errors contains any errors encountered during deletion.
	// GC continues even if individual deletions fail.
	Errors []error
}

// IsEnabled reports whether any retention rule is active.
func (r RetentionConfig) IsEnabled() bool {
	return r.MaxAgeDays > 0 || r.MaxJobs > 0
}

// GarbageCollect deletes finished jobs that violate the retention policy:
// jobs older than MaxAgeDays, then the oldest jobs beyond MaxJobs. Live jobs
// (non-terminal status) are never deleted.
func (b *LocalBackend) GarbageCollect(ctx context.Context, opts GCOptions) (*GCResult, error) {
	retention := b.cfg.Retention
	if opts.Retention != nil {
		retention = *opts.Retention
	}

	if !retention.IsEnabled() {
		return &GCResult{}, nil
	}

	result := &GCResult{
		DeletedJobIDs: make([]string, 0),
		Errors:        make([]error, 0),
	}

	all, err := b.Jobs().List(ctx, JobFilter{})
	if err != nil {
		return result, fmt.Errorf("list jobs: %w", err)
	}

	// Only terminal jobs are GC candidates.
	jobs := make([]*JobMetadata, 0, len(all))
	for _, job := range all {
		if JobStatus(job.Status).IsTerminal() {
			jobs = append(jobs, job)
		}
	}
	if len(jobs) == 0 {
		return result, nil
	}

	// Oldest first.
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	toDelete := make([]string, 0)

	// Phase 1: jobs older than MaxAgeDays.
	if retention.MaxAgeDays > 0 {
		ageCutoff := time.Now().AddDate(0, 0, -retention.MaxAgeDays)
		for _, job := range jobs {
			if job.CreatedAt.Before(ageCutoff) {
				toDelete = append(toDelete, job.ID)
			}
		}
	}

	// Phase 2: oldest jobs beyond MaxJobs.
	if retention.MaxJobs > 0 {
		remaining := make([]*JobMetadata, 0, len(jobs))
		for _, job := range jobs {
			if !slices.Contains(toDelete, job.ID) {
				remaining = append(remaining, job)
			}
		}
		if len(remaining) > retention.MaxJobs {
			excess := len(remaining) - retention.MaxJobs
			for i := range excess {
				toDelete = append(toDelete, remaining[i].ID)
			}
		}
	}

	for _, jobID := range toDelete {
		if opts.DryRun {
			result.DeletedJobIDs = append(result.DeletedJobIDs, jobID)
			result.JobsDeleted++
			continue
		}
		if err := b.Jobs().Delete(ctx, jobID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete job %s: %w", jobID, err))
			continue
		}
		result.DeletedJobIDs = append(result.DeletedJobIDs, jobID)
		result.JobsDeleted++
	}

	return result, nil
}
