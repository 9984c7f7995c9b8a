package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds storage backend configuration.
type Config struct {
	// WorkspaceRoot is the base directory for all persisted data.
	// Layout: {WorkspaceRoot}/jobs/{job-id}/metadata.json
	//         {WorkspaceRoot}/jobs/{job-id}/artifacts/{file}
	WorkspaceRoot string `koanf:"workspace_root"`

	// Retention configures garbage collection of finished jobs.
	Retention RetentionConfig `koanf:"retention"`
}

// RetentionConfig controls which finished jobs garbage collection removes.
type RetentionConfig struct {
	// MaxAgeDays deletes jobs whose last update is older than this many
	// days. Zero disables age-based deletion.
	MaxAgeDays int `koanf:"max_age_days"`

	// MaxJobs caps the number of retained jobs; oldest are deleted first.
	// Zero disables count-based deletion.
	MaxJobs int `koanf:"max_jobs"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.WorkspaceRoot == "" {
		return NewInvalidInputError("workspace_root", "must not be empty")
	}
	if c.Retention.MaxAgeDays < 0 {
		return NewInvalidInputError("retention.max_age_days", "must not be negative")
	}
	if c.Retention.MaxJobs < 0 {
		return NewInvalidInputError("retention.max_jobs", "must not be negative")
	}
	return nil
}

// DefaultConfig returns the default storage configuration rooted under the
// user's home directory. The DOCUGEN_WORKSPACE environment variable
// overrides the location.
func DefaultConfig() (*Config, error) {
	if root := os.Getenv("DOCUGEN_WORKSPACE"); root != "" {
		return &Config{WorkspaceRoot: root}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	return &Config{
		WorkspaceRoot: filepath.Join(home, ".docugen", "workspace"),
	}, nil
}

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const configKey contextKey = "storage-config"

// WithConfig attaches a storage configuration to the context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// ConfigFromContext retrieves the storage configuration from the context.
func ConfigFromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey).(*Config)
	return cfg, ok
}
