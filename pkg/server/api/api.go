package api

import (
	"sync/atomic"

	"github.com/docugen/docugen/pkg/jobexec"
	"github.com/docugen/docugen/pkg/metrics"
	"github.com/docugen/docugen/pkg/storage"
)

// Deps holds dependencies for API handlers.
// This pattern enables dependency injection and easier testing.
type Deps struct {
	// Controller is the job engine façade the handlers drive.
	Controller *jobexec.Service

	// Storage backend for job history and artifacts.
	Storage storage.Backend

	// Metrics exposes the Prometheus registry for the /metrics endpoint.
	// Nil disables the endpoint.
	Metrics *metrics.Collector

	// Config holds API-level configuration (limits, defaults).
	Config Config

	// Ready flag for readiness check
	Ready *atomic.Bool
}

// Config holds API-level limits and defaults.
type Config struct {
	// MaxItemsPerJob caps the item count accepted on job creation.
	MaxItemsPerJob int

	// DefaultListLimit is applied when a list request carries no limit.
	DefaultListLimit int

	// MaxListLimit caps the per-page size of list requests.
	MaxListLimit int
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		MaxItemsPerJob:   10000,
		DefaultListLimit: 50,
		MaxListLimit:     100,
	}
}
