// Package storage provides the persistence layer for the document
// generation engine.
//
// The Backend interface abstracts job metadata records and rendered
// artifact files. The bundled LocalBackend keeps everything on the local
// filesystem (metadata.json per job plus an artifacts directory); hosts
// needing a database or object store can supply their own Backend.
//
// Live job state is owned by the engine in process memory — the backend is
// a durable shadow, never the source of truth for scheduling.
package storage

import (
	"context"
	"io"
)

// DefaultFactory builds the edition's default backend. The local backend
// registers itself here in its init.
var DefaultFactory func(ctx context.Context, cfg *Config) (Backend, error)

// NewBackend constructs a backend from the registered default factory.
func NewBackend(ctx context.Context, cfg *Config) (Backend, error) {
	return DefaultFactory(ctx, cfg)
}

// Backend is the main storage abstraction interface.
//
// Thread-safety: all methods must be safe for concurrent use.
type Backend interface {
	// Initialize prepares the backend for use, creating directories or
	// running migrations as needed.
	Initialize(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error

	// Jobs returns the job storage interface.
	Jobs() JobStore

	// GarbageCollect removes finished jobs per the retention policy.
	// Returns statistics about deleted jobs and any per-job errors.
	GarbageCollect(ctx context.Context, opts GCOptions) (*GCResult, error)
}

// JobStore manages job metadata records and artifact files.
//
// Thread-safety: all methods must be safe for concurrent use.
type JobStore interface {
	// List returns job records matching the filter, newest first.
	// Returns an empty slice when nothing matches.
	List(ctx context.Context, filter JobFilter) ([]*JobMetadata, error)

	// Get retrieves the record for a specific job.
	// Returns a NotFoundError if the job does not exist.
	Get(ctx context.Context, jobID string) (*JobMetadata, error)

	// Create writes a new job record. The record needs at minimum ID and
	// Status. Returns an AlreadyExistsError on ID collision.
	Create(ctx context.Context, job *JobMetadata) error

	// Update applies a partial update to an existing record.
	// Only non-nil fields in updates are applied.
	// Returns a NotFoundError if the job does not exist.
	Update(ctx context.Context, jobID string, updates JobUpdates) error

	// Delete removes a job record and all of its artifacts.
	// Returns a NotFoundError if the job does not exist.
	Delete(ctx context.Context, jobID string) error

	// WriteArtifact stores one rendered artifact under the job and returns
	// its workspace-relative location.
	WriteArtifact(ctx context.Context, jobID, name string, data io.Reader) (string, error)

	// OpenArtifact opens a stored artifact for reading. The caller closes
	// the returned ReadCloser.
	// Returns a NotFoundError if the artifact does not exist.
	OpenArtifact(ctx context.Context, jobID, name string) (io.ReadCloser, error)

	// ListArtifacts enumerates the artifacts stored for a job.
	ListArtifacts(ctx context.Context, jobID string) ([]ArtifactInfo, error)
}
