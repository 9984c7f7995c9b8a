package v1

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func probeReadyz(t *testing.T, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	return rec
}

func TestReadyzHandler(t *testing.T) {
	t.Run("not ready before startup finishes", func(t *testing.T) {
		ready := &atomic.Bool{}

		rec := probeReadyz(t, ReadyzHandler(ready))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "Not Ready", rec.Body.String())
	})

	t.Run("ready after the flag flips", func(t *testing.T) {
		ready := &atomic.Bool{}
		handler := ReadyzHandler(ready)

		rec := probeReadyz(t, handler)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		// Startup finished: storage initialized, routes mounted.
		ready.Store(true)

		rec = probeReadyz(t, handler)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Ready", rec.Body.String())
	})

	t.Run("nil flag reads as not ready", func(t *testing.T) {
		rec := probeReadyz(t, ReadyzHandler(nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
