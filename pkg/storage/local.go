package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

func init() {
	// Register LocalBackend as the default factory.
	DefaultFactory = func(ctx context.Context, cfg *Config) (Backend, error) {
		return NewLocalBackend(ctx, cfg)
	}
}

// LocalBackend implements Backend using file-based storage.
//
// Storage layout:
//
//	{workspace}/
//	  jobs/
//	    {job-id}/
//	      metadata.json
//	      artifacts/
//	        {document-number}.pdf
//
// Thread-safety: metadata reads and writes are protected by file locks, so
// concurrent processes (CLI run alongside the server) stay consistent.
type LocalBackend struct {
	cfg      *Config
	jobStore *LocalJobStore
	mu       sync.RWMutex
	closed   bool
}

// NewLocalBackend creates a new file-based backend.
func NewLocalBackend(ctx context.Context, cfg *Config) (*LocalBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &LocalBackend{
		cfg: cfg,
		jobStore: &LocalJobStore{
			workspace: cfg.WorkspaceRoot,
			root:      filepath.Join(cfg.WorkspaceRoot, "jobs"),
		},
	}, nil
}

// Initialize prepares the backend for use.
func (b *LocalBackend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	dirs := []string{
		filepath.Join(b.cfg.WorkspaceRoot, "jobs"),
		filepath.Join(b.cfg.WorkspaceRoot, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Close releases resources held by the backend.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}

// Jobs returns the job storage interface.
func (b *LocalBackend) Jobs() JobStore {
	return b.jobStore
}

// LocalJobStore implements JobStore using file-based storage.
type LocalJobStore struct {
	workspace string // workspace root, for workspace-relative locations
	root      string // job directory root (workspace/jobs)
}

// List returns job records matching the filter, newest first.
func (s *LocalJobStore) List(ctx context.Context, filter JobFilter) ([]*JobMetadata, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return []*JobMetadata{}, nil
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	var jobs []*JobMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metadata, err := s.Get(ctx, entry.Name())
		if err != nil {
			// Skip jobs with unreadable metadata.
			continue
		}
		if s.matchesFilter(metadata, filter) {
			jobs = append(jobs, metadata)
		}
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return []*JobMetadata{}, nil
		}
		jobs = jobs[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(jobs) {
		jobs = jobs[:filter.Limit]
	}

	return jobs, nil
}

// matchesFilter checks if a job record matches the given filter.
func (s *LocalJobStore) matchesFilter(metadata *JobMetadata, filter JobFilter) bool {
	if filter.Status != "" && metadata.Status != filter.Status {
		return false
	}
	if filter.Name != "" && !strings.Contains(metadata.Name, filter.Name) {
		return false
	}
	return true
}

// Get retrieves the record for a specific job.
func (s *LocalJobStore) Get(ctx context.Context, jobID string) (*JobMetadata, error) {
	metadataPath := s.metadataPath(jobID)

	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		return nil, NewNotFoundError("job", jobID)
	}

	lock := flock.New(metadataPath + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to acquire read lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata JobMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &metadata, nil
}

// Create writes a new job record.
func (s *LocalJobStore) Create(ctx context.Context, job *JobMetadata) error {
	if job.ID == "" {
		return NewInvalidInputError("ID", "job ID is required")
	}
	if !JobStatus(job.Status).IsValid() {
		return NewInvalidInputError("Status", fmt.Sprintf("unknown status %q", job.Status))
	}

	jobDir := s.jobDir(job.ID)
	metadataPath := s.metadataPath(job.ID)

	if _, err := os.Stat(metadataPath); err == nil {
		return NewAlreadyExistsError("job", job.ID)
	}

	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = now
	}

	lock := flock.New(metadataPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metadataPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// Update applies a partial update to an existing record.
func (s *LocalJobStore) Update(ctx context.Context, jobID string, updates JobUpdates) error {
	metadataPath := s.metadataPath(jobID)

	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		return NewNotFoundError("job", jobID)
	}

	lock := flock.New(metadataPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata JobMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}

	// Apply updates (only non-nil fields).
	if updates.Status != nil {
		metadata.Status = *updates.Status
	}
	if updates.CompletedCount != nil {
		metadata.CompletedCount = *updates.CompletedCount
	}
	if updates.FailedCount != nil {
		metadata.FailedCount = *updates.FailedCount
	}
	if updates.SkippedCount != nil {
		metadata.SkippedCount = *updates.SkippedCount
	}
	if updates.StartedAt != nil {
		metadata.StartedAt = *updates.StartedAt
	}
	if updates.CompletedAt != nil {
		metadata.CompletedAt = *updates.CompletedAt
	}
	if updates.Duration != nil {
		metadata.Duration = *updates.Duration
	}
	if updates.ErrorMessage != nil {
		metadata.ErrorMessage = *updates.ErrorMessage
	}
	metadata.UpdatedAt = time.Now()

	data, err = json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metadataPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// Delete removes a job record and all of its artifacts.
func (s *LocalJobStore) Delete(ctx context.Context, jobID string) error {
	jobDir := s.jobDir(jobID)

	if _, err := os.Stat(jobDir); os.IsNotExist(err) {
		return NewNotFoundError("job", jobID)
	}

	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("failed to delete job directory: %w", err)
	}

	// Remove lock file if it exists.
	_ = os.Remove(s.metadataPath(jobID) + ".lock")

	return nil
}

// WriteArtifact stores one rendered artifact under the job.
func (s *LocalJobStore) WriteArtifact(ctx context.Context, jobID, name string, data io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", NewInvalidInputError("name", "artifact name must be a bare file name")
	}

	artifactDir := s.artifactDir(jobID)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	path := filepath.Join(artifactDir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, data); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	rel, err := filepath.Rel(s.workspace, path)
	if err != nil {
		return path, nil
	}
	return rel, nil
}

// OpenArtifact opens a stored artifact for reading.
func (s *LocalJobStore) OpenArtifact(ctx context.Context, jobID, name string) (io.ReadCloser, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, NewInvalidInputError("name", "artifact name must be a bare file name")
	}

	path := filepath.Join(s.artifactDir(jobID), name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewNotFoundError("artifact", name)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return file, nil
}

// ListArtifacts enumerates the artifacts stored for a job.
func (s *LocalJobStore) ListArtifacts(ctx context.Context, jobID string) ([]ArtifactInfo, error) {
	artifactDir := s.artifactDir(jobID)

	if _, err := os.Stat(artifactDir); os.IsNotExist(err) {
		return []ArtifactInfo{}, nil
	}

	entries, err := os.ReadDir(artifactDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	artifacts := make([]ArtifactInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(artifactDir, entry.Name())
		location := path
		if rel, err := filepath.Rel(s.workspace, path); err == nil {
			location = rel
		}

		artifacts = append(artifacts, ArtifactInfo{
			Name:     entry.Name(),
			Location: location,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	return artifacts, nil
}

// Helper methods

func (s *LocalJobStore) jobDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

func (s *LocalJobStore) metadataPath(jobID string) string {
	return filepath.Join(s.jobDir(jobID), "metadata.json")
}

func (s *LocalJobStore) artifactDir(jobID string) string {
	return filepath.Join(s.jobDir(jobID), "artifacts")
}
