package handler

import (
	"context"
	"net/http"
	"time"
)

// Health answers {status, watchers} and fails with 503 when the upload
// store is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out := map[string]interface{}{"status": "ok", "watchers": 0}
	if h.ws != nil {
		out["watchers"] = h.ws.Clients()
	}
	if err := h.exec.Healthy(ctx); err != nil {
		out["status"] = "degraded"
		out["error"] = err.Error()
		writeStatus(w, http.StatusServiceUnavailable, out)
		return
	}
	writeJSON(w, out)
}
