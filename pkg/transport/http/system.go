package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/transport"
)

// Healthz is the liveness probe. It never touches dependencies.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Readyz is the readiness probe: it checks the metadata store and the
// blob backend and reports per-component status.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	status := api.SystemStatus{
		Storage: "ok",
		Blob:    "ok",
		Time:    time.Now().UTC(),
	}
	healthy := true

	if err := h.store.HealthCheck(r.Context()); err != nil {
		h.logger.Error("storage health check", slog.String("error", err.Error()))
		status.Storage = "unavailable"
		healthy = false
	}
	if err := h.blobs.HealthCheck(r.Context()); err != nil {
		h.logger.Error("blob health check", slog.String("error", err.Error()))
		status.Blob = "unavailable"
		healthy = false
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	transport.WriteJSON(w, code, status)
}
