// ABOUTME: Guild Master chat handler
// ABOUTME: Relays a chat message upstream and returns the reply with any quest updates

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/services"
)

// Orchestrator forwards a chat message to the Guild Master workflow. The
// payload carries no action field; the workflow routes on the message itself.
func (h *Handler) Orchestrator(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		h.writeCodedError(w, "Not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}

	var req models.OrchestratorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeError(w, "Message is required", "", http.StatusBadRequest)
		return
	}

	payload := h.newPayload(r, "").
		With("message", req.Message).
		With("userId", req.UserID).
		With("userEmail", req.UserEmail).
		With("userName", req.UserName).
		With("token", token)
	if req.ImageData != "" {
		payload.With("imageData", req.ImageData)
	}

	data, perr := h.callUpstream(r, config.FamilyOrchestrator, payload, services.NormalizeOptions{
		Policy:         services.LenientSuccess,
		FailureMessage: "The Guild Master could not answer",
	})
	if perr != nil {
		switch {
		case perr.Kind == services.KindUpstreamHTTP && perr.Status == http.StatusNotFound:
			h.writeError(w, "upstream webhook endpoint not found",
				"The webhook configured in "+config.KeyWebhook+" returned 404. Please check if the webhook is active.",
				http.StatusNotFound)
		case perr.Kind == services.KindTransport:
			h.writeError(w, "The mists have clouded the connection. Please try again.", "", http.StatusInternalServerError)
		default:
			h.writeProxyError(w, perr)
		}
		return
	}

	message := firstText(data, "message")
	if message == "" {
		message = models.DefaultGuildMasterReply
	}

	h.writeJSON(w, http.StatusOK, models.OrchestratorResponse{
		Success:       true,
		Message:       message,
		QuestsUpdated: data.Get("questsUpdated").Type == gjson.True,
		Quests:        json.RawMessage(rawOr(data.Get("quests"), "[]")),
	})
}
