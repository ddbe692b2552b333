// ABOUTME: Health handler
// ABOUTME: Reports liveness and which upstream families have a webhook URL

package handlers

import (
	"net/http"

	"github.com/famquest/gateway/models"
)

// Health returns API status and per-family upstream configuration. It never
// calls the upstreams.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Upstreams: h.cfg.Upstreams.Status(),
	})
}
