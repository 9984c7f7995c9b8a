package httpx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/docugen/docugen/pkg/config"
	"github.com/docugen/docugen/pkg/jobexec"
	"github.com/docugen/docugen/pkg/metrics"
	"github.com/docugen/docugen/pkg/server/api"
)

func TestNewRouter(t *testing.T) {
	cfg := config.DefaultConfig().Server
	deps := &api.Deps{
		Ready: &atomic.Bool{},
	}
	router := NewRouter(cfg, deps)

	require.NotNil(t, router)
}

func TestNewRouter_HealthzMounted(t *testing.T) {
	cfg := config.DefaultConfig().Server
	deps := &api.Deps{
		Ready: &atomic.Bool{},
	}
	router := NewRouter(cfg, deps)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestHealthzHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	HealthzHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestHealthzHandler_AlwaysReturnsOK(t *testing.T) {
	// Test multiple calls to ensure idempotency
	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()

		HealthzHandler(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "OK", w.Body.String())
	}
}

func TestNewRouter_ReadyzMounted(t *testing.T) {
	cfg := config.DefaultConfig().Server
	ready := &atomic.Bool{}
	deps := &api.Deps{Ready: ready}
	router := NewRouter(cfg, deps)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready.Store(true)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Ready", w.Body.String())
}

// TestJobRoutes_NotMounted_WhenControllerIsNil tests that job routes are NOT
// mounted when the controller is nil.
func TestJobRoutes_NotMounted_WhenControllerIsNil(t *testing.T) {
	cfg := config.DefaultConfig().Server

	// Capture logs
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf).Level(zerolog.InfoLevel)

	deps := &api.Deps{
		Ready:      &atomic.Bool{},
		Controller: nil, // No controller
		Config:     api.DefaultConfig(),
	}

	router := NewRouter(cfg, deps)

	jobEndpoints := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/jobs"},
		{http.MethodGet, "/api/v1/jobs"},
		{http.MethodGet, "/api/v1/jobs/some-job"},
		{http.MethodPost, "/api/v1/jobs/some-job/start"},
		{http.MethodPost, "/api/v1/jobs/some-job/cancel"},
	}

	for _, endpoint := range jobEndpoints {
		req := httptest.NewRequest(endpoint.method, endpoint.path, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code,
			"Expected 404 for %s %s when Controller=nil, got %d", endpoint.method, endpoint.path, w.Code)
	}

	require.Contains(t, buf.String(), "Controller not provided - skipping job API routes")
}

// TestJobRoutes_Mounted_WhenControllerExists tests that job routes ARE
// mounted when a controller is present.
func TestJobRoutes_Mounted_WhenControllerExists(t *testing.T) {
	cfg := config.DefaultConfig().Server

	// Capture logs
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf).Level(zerolog.InfoLevel)

	controller := jobexec.NewService(nil)
	deps := &api.Deps{
		Ready:      &atomic.Bool{},
		Controller: controller,
		Config:     api.DefaultConfig(),
	}

	router := NewRouter(cfg, deps)

	// Routes should be mounted, so NOT 404 from the mux itself. Handlers may
	// answer 400/404 for the unknown job ID; the mux-level 405 vs 404
	// distinction is enough to prove mounting.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.Contains(t, buf.String(), "mounting job API routes")
}

func TestMetricsRoute_MountedWhenEnabled(t *testing.T) {
	cfg := config.DefaultConfig().Server
	cfg.MetricsEnabled = true

	deps := &api.Deps{
		Ready:   &atomic.Bool{},
		Metrics: metrics.NewCollector(),
		Config:  api.DefaultConfig(),
	}

	router := NewRouter(cfg, deps)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsRoute_NotMountedWhenDisabled(t *testing.T) {
	cfg := config.DefaultConfig().Server
	cfg.MetricsEnabled = false

	deps := &api.Deps{
		Ready:   &atomic.Bool{},
		Metrics: metrics.NewCollector(),
		Config:  api.DefaultConfig(),
	}

	router := NewRouter(cfg, deps)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
