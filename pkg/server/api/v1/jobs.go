package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/docugen/docugen/pkg/engine"
	"github.com/docugen/docugen/pkg/jobexec"
	"github.com/docugen/docugen/pkg/server/api"
	"github.com/docugen/docugen/pkg/storage"
)

// DTO Evolution Policy
// The request/response payloads handled in this file are part of the public
// API contract. To evolve them safely without breaking existing clients:
//
// 1) Additive-only changes
//    - You MAY add new optional fields
//    - You MAY NOT remove or rename existing fields
//    - Breaking changes require a new API version (v2)
//
// 2) Zero-value semantics
//    - New fields MUST have safe zero-value behavior
//    - Prefer `omitempty` for optional JSON fields to preserve old behavior

// CreateJobRequest is the payload for POST /api/v1/jobs.
type CreateJobRequest struct {
	Name     string             `json:"name"`
	Items    []ItemRequest      `json:"items"`
	Settings JobSettingsRequest `json:"settings"`
}

// ItemRequest describes one document to generate.
type ItemRequest struct {
	ID             string  `json:"id,omitempty"`
	DocumentType   string  `json:"document_type"`
	DocumentNumber string  `json:"document_number"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Priority       string  `json:"priority,omitempty"`
}

// JobSettingsRequest carries the per-job generation parameters.
type JobSettingsRequest struct {
	TemplateID         string `json:"template_id"`
	OutputFormat       string `json:"output_format,omitempty"`
	Concurrency        int    `json:"concurrency"`
	EmailOnCompletion  bool   `json:"email_on_completion,omitempty"`
	ItemTimeoutSeconds int    `json:"item_timeout_seconds,omitempty"`
}

// CreateJobResponse is returned on successful job creation.
type CreateJobResponse struct {
	JobID     string `json:"job_id"`
	State     string `json:"state"`
	ItemCount int    `json:"item_count"`
}

// CreateJobHandler handles POST /api/v1/jobs
//
// Creates a job in the pending state. The job does not start generating
// until POST /api/v1/jobs/{id}/start is called.
//
// Returns 400 for validation failures (no items, bad document type,
// concurrency < 1) and 201 with the job ID on success.
func CreateJobHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "INVALID_JSON", err.Error())
			return
		}

		if max := deps.Config.MaxItemsPerJob; max > 0 && len(req.Items) > max {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "TOO_MANY_ITEMS",
				fmt.Sprintf("job exceeds the %d item limit", max))
			return
		}

		params, err := toParams(req)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		job, err := deps.Controller.CreateJob(r.Context(), params)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		api.WriteJSON(w, http.StatusCreated, CreateJobResponse{
			JobID:     job.ID(),
			State:     job.State().String(),
			ItemCount: len(job.Items()),
		})
	}
}

// StartJobHandler handles POST /api/v1/jobs/{id}/start
//
// Transitions a pending job to running. Returns 409 if the job is in any
// other state and 404 if the ID is unknown.
func StartJobHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "JOB_ID_REQUIRED", "job id is required")
			return
		}

		// The run outlives this request; the request context would kill the
		// job as soon as the response is written.
		if err := deps.Controller.Start(context.Background(), id); err != nil {
			api.WriteError(w, r, err)
			return
		}

		progress, err := deps.Controller.Progress(id)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, progress)
	}
}

// PauseJobHandler handles POST /api/v1/jobs/{id}/pause
func PauseJobHandler(deps *api.Deps) http.HandlerFunc {
	return controlHandler(deps, func(c *jobexec.Service, id string) error {
		return c.Pause(id)
	})
}

// ResumeJobHandler handles POST /api/v1/jobs/{id}/resume
func ResumeJobHandler(deps *api.Deps) http.HandlerFunc {
	return controlHandler(deps, func(c *jobexec.Service, id string) error {
		return c.Resume(id)
	})
}

// CancelJobHandler handles POST /api/v1/jobs/{id}/cancel
//
// Cancellation is best-effort: items already generating may still complete
// their render, but their results are discarded and recorded as skipped.
func CancelJobHandler(deps *api.Deps) http.HandlerFunc {
	return controlHandler(deps, func(c *jobexec.Service, id string) error {
		return c.Cancel(id)
	})
}

// controlHandler wraps the shared shape of the pause/resume/cancel handlers:
// look up the job, apply the transition, answer with fresh progress.
func controlHandler(deps *api.Deps, apply func(*jobexec.Service, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "JOB_ID_REQUIRED", "job id is required")
			return
		}

		if err := apply(deps.Controller, id); err != nil {
			api.WriteError(w, r, err)
			return
		}

		progress, err := deps.Controller.Progress(id)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, progress)
	}
}

// ListJobsHandler handles GET /api/v1/jobs
//
// Returns progress snapshots of every job in the live registry, newest
// first. For jobs from previous runs, see the history endpoint.
func ListJobsHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snaps := deps.Controller.List()
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"jobs":  snaps,
			"total": len(snaps),
		})
	}
}

// JobHistoryHandler handles GET /api/v1/jobs/history
//
// Lists persisted job metadata from the storage backend, covering jobs from
// earlier process runs as well.
//
// Query parameters:
//   - status: filter by job status (pending, running, paused, completed, failed, cancelled)
//   - limit: number of results (default and max from API config)
//   - offset: number of results to skip
func JobHistoryHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			api.WriteJSONError(w, http.StatusNotImplemented, "Not Implemented", "NO_STORAGE",
				"no storage backend configured")
			return
		}

		filter, err := parseHistoryQuery(r, deps.Config)
		if err != nil {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "INVALID_QUERY", err.Error())
			return
		}

		jobs, err := deps.Storage.Jobs().List(r.Context(), filter)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]any{
			"jobs":  jobs,
			"total": len(jobs),
		})
	}
}

// GetJobHandler handles GET /api/v1/jobs/{id}
//
// Returns the job's progress snapshot plus per-item detail.
func GetJobHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "JOB_ID_REQUIRED", "job id is required")
			return
		}

		progress, err := deps.Controller.Progress(id)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		items, err := deps.Controller.Items(id)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]any{
			"progress": progress,
			"items":    items,
		})
	}
}

// JobProgressHandler handles GET /api/v1/jobs/{id}/progress
//
// Returns the progress snapshot alone. Cheap enough to poll at UI refresh
// rates; snapshots are computed from item states and never block dispatch.
func JobProgressHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "JOB_ID_REQUIRED", "job id is required")
			return
		}

		progress, err := deps.Controller.Progress(id)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, progress)
	}
}

// JobResultsHandler handles GET /api/v1/jobs/{id}/results
//
// Returns completed artifacts and failed items. Valid on a live job (the
// set is partial and "final" is false) as well as after completion.
func JobResultsHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "JOB_ID_REQUIRED", "job id is required")
			return
		}

		results, err := deps.Controller.Results(id)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, results)
	}
}

// toParams converts the request DTO into controller params. Document type
// and priority strings are validated here so a bad request never reaches
// the engine as a half-built item list.
func toParams(req CreateJobRequest) (jobexec.Params, error) {
	items := make([]engine.ItemSpec, 0, len(req.Items))
	for _, it := range req.Items {
		docType, err := engine.ParseDocumentType(it.DocumentType)
		if err != nil {
			return jobexec.Params{}, engine.NewValidationError("items", err.Error())
		}
		priority, err := engine.ParsePriority(it.Priority)
		if err != nil {
			return jobexec.Params{}, engine.NewValidationError("items", err.Error())
		}
		items = append(items, engine.ItemSpec{
			ID:             it.ID,
			DocumentType:   docType,
			DocumentNumber: it.DocumentNumber,
			Amount:         it.Amount,
			Currency:       it.Currency,
			Priority:       priority,
		})
	}

	return jobexec.Params{
		Name:  req.Name,
		Items: items,
		Settings: engine.Settings{
			TemplateID:        req.Settings.TemplateID,
			OutputFormat:      engine.OutputFormat(req.Settings.OutputFormat),
			Concurrency:       req.Settings.Concurrency,
			EmailOnCompletion: req.Settings.EmailOnCompletion,
			ItemTimeout:       time.Duration(req.Settings.ItemTimeoutSeconds) * time.Second,
		},
	}, nil
}

func parseHistoryQuery(r *http.Request, cfg api.Config) (storage.JobFilter, error) {
	q := r.URL.Query()

	filter := storage.JobFilter{
		Status: q.Get("status"),
		Name:   q.Get("name"),
		Limit:  cfg.DefaultListLimit,
	}

	if filter.Status != "" && !storage.JobStatus(filter.Status).IsValid() {
		return storage.JobFilter{}, fmt.Errorf("unknown status %q", filter.Status)
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return storage.JobFilter{}, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	if cfg.MaxListLimit > 0 && filter.Limit > cfg.MaxListLimit {
		filter.Limit = cfg.MaxListLimit
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return storage.JobFilter{}, fmt.Errorf("invalid offset %q", raw)
		}
		filter.Offset = offset
	}

	return filter, nil
}
