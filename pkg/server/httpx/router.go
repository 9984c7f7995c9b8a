// Package httpx wires the HTTP routes for the docugen server: health and
// readiness probes, the versioned job API, and the Prometheus endpoint.
package httpx

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/docugen/docugen/pkg/config"
	"github.com/docugen/docugen/pkg/server/api"
	v1 "github.com/docugen/docugen/pkg/server/api/v1"
)

// NewRouter builds the server's route table. Routes are mounted
// conditionally on the dependencies actually provided so a partially wired
// server (e.g. no metrics collector) degrades to 404 instead of panicking.
func NewRouter(cfg config.ServerConfig, deps *api.Deps) http.Handler {
	mux := http.NewServeMux()

	// Liveness and readiness probes are always available.
	mux.HandleFunc("GET /healthz", HealthzHandler)
	mux.Handle("GET /readyz", v1.ReadyzHandler(deps.Ready))

	if deps.Controller == nil {
		log.Info().
			Str("component", "httpx.router").
			Msg("Controller not provided - skipping job API routes")
	} else {
		log.Info().
			Str("component", "httpx.router").
			Msg("mounting job API routes")

		mux.Handle("POST /api/v1/jobs", v1.CreateJobHandler(deps))
		mux.Handle("GET /api/v1/jobs", v1.ListJobsHandler(deps))
		mux.Handle("GET /api/v1/jobs/history", v1.JobHistoryHandler(deps))
		mux.Handle("GET /api/v1/jobs/{id}", v1.GetJobHandler(deps))
		mux.Handle("GET /api/v1/jobs/{id}/progress", v1.JobProgressHandler(deps))
		mux.Handle("GET /api/v1/jobs/{id}/results", v1.JobResultsHandler(deps))
		mux.Handle("POST /api/v1/jobs/{id}/start", v1.StartJobHandler(deps))
		mux.Handle("POST /api/v1/jobs/{id}/pause", v1.PauseJobHandler(deps))
		mux.Handle("POST /api/v1/jobs/{id}/resume", v1.ResumeJobHandler(deps))
		mux.Handle("POST /api/v1/jobs/{id}/cancel", v1.CancelJobHandler(deps))
	}

	if cfg.MetricsEnabled && deps.Metrics != nil {
		log.Info().
			Str("component", "httpx.router").
			Msg("mounting metrics endpoint")
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	return mux
}

// HealthzHandler answers the liveness probe. It returns 200 "OK"
// unconditionally: if this handler runs at all, the process is alive.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
