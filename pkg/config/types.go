// pkg/config/types.go
package config

import "time"

// Config is the root application configuration, merged from defaults, the
// optional YAML config file, DOCUGEN_* environment variables, and CLI flags.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	Engine  EngineConfig  `koanf:"engine"`
	Storage StorageConfig `koanf:"storage"`
}

// LogConfig controls application logging.
type LogConfig struct {
	// Level is the minimum level emitted (debug, info, warn, error).
	Level string `koanf:"level"`

	// Format selects the output encoding (text, json).
	Format string `koanf:"format"`

	// File is an optional log file path; empty logs to stderr.
	File string `koanf:"file"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Addr string `koanf:"addr"`
	Port int    `koanf:"port"`

	// MetricsEnabled exposes the Prometheus /metrics endpoint.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// ReadTimeout / WriteTimeout bound request handling, in seconds.
	ReadTimeout  int `koanf:"read_timeout"`
	WriteTimeout int `koanf:"write_timeout"`
}

// EngineConfig holds defaults applied to jobs that do not specify their own
// settings.
type EngineConfig struct {
	// Concurrency is the default per-job render concurrency cap.
	Concurrency int `koanf:"concurrency"`

	// OutputFormat is the default artifact grouping mode.
	OutputFormat string `koanf:"output_format"`

	// TemplateID is the default document template.
	TemplateID string `koanf:"template_id"`

	// ItemTimeout bounds a single render call. Zero disables the deadline.
	ItemTimeout time.Duration `koanf:"item_timeout"`

	// TemplatesDir is an optional directory of template manifests merged
	// into the built-in template catalog.
	TemplatesDir string `koanf:"templates_dir"`
}

// StorageConfig controls the local workspace backend.
type StorageConfig struct {
	// WorkspaceRoot is the base directory for job metadata and artifacts.
	// Empty falls back to DOCUGEN_WORKSPACE or ~/.docugen/workspace.
	WorkspaceRoot string `koanf:"workspace_root"`

	// MaxAgeDays removes terminal jobs older than this many days during
	// garbage collection. Zero disables age-based cleanup.
	MaxAgeDays int `koanf:"max_age_days"`

	// MaxJobs caps the number of retained terminal jobs, oldest removed
	// first. Zero disables count-based cleanup.
	MaxJobs int `koanf:"max_jobs"`
}
