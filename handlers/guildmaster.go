// ABOUTME: Guild Master intro handler
// ABOUTME: Fetches the opening chat message, tolerating the several reply shapes upstream produces

package handlers

import (
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/services"
)

// introMessagePaths are tried in order; the last is the raw model-output shape.
var introMessagePaths = []string{
	"assistant_message",
	"message",
	"intro_message",
	"output.0.content.0.text",
}

// GuildmasterIntro returns the Guild Master's greeting for the client's local time.
func (h *Handler) GuildmasterIntro(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		h.writeCodedError(w, "Not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}

	var req models.IntroRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		h.writeError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	state := models.ClientState{}
	if req.ClientState != nil {
		state = *req.ClientState
	}
	if state.LocalTime == "" {
		state.LocalTime = models.FormatTimestamp(time.Now())
	}
	if state.TimeZone == "" {
		state.TimeZone = "UTC"
	}

	payload := h.newPayload(r, models.ActionIntro).
		With("token", token).
		With("clientState", state)

	data, perr := h.callUpstream(r, config.FamilyGuildmasterIntro, payload, services.NormalizeOptions{
		Policy:         services.ReportedSuccess,
		FailureMessage: "Failed to get intro message",
	})
	if perr != nil {
		if perr.Kind == services.KindTransport {
			h.writeError(w, "Failed to get intro message", "", http.StatusInternalServerError)
			return
		}
		h.writeProxyError(w, perr)
		return
	}

	message := firstText(data, introMessagePaths...)
	if message == "" {
		h.writeError(w, "No intro message in upstream response",
			"The workflow did not return an intro message in the expected format.",
			http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, models.IntroResponse{
		Success: true,
		OK:      data.Get("ok").Type != gjson.False,
		Message: message,
	})
}
