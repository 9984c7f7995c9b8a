package v1

import (
	"net/http"
	"sync/atomic"
)

// ReadyzHandler returns a readiness probe handler. It answers 200 "Ready"
// once startup has finished (storage initialized, routes mounted) and
// 503 "Not Ready" before that.
func ReadyzHandler(ready *atomic.Bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready == nil || !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Not Ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	}
}
