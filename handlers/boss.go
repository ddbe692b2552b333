// ABOUTME: Boss battle handler
// ABOUTME: Returns the family's boss and progress; absent fields come back as null

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/services"
)

// GetBoss fetches boss battle state for a user.
func (h *Handler) GetBoss(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		h.writeCodedError(w, "Not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.writeError(w, "User ID required", "", http.StatusBadRequest)
		return
	}
	if err := services.ValidateIdentifier("userId", userID); err != nil {
		h.writeError(w, err.Error(), "", http.StatusBadRequest)
		return
	}

	payload := h.newPayload(r, models.ActionGetBoss).
		With("userId", userID).
		With("token", token)

	data, perr := h.callUpstream(r, config.FamilyBoss, payload, services.NormalizeOptions{
		Policy:         services.LenientSuccess,
		FailureMessage: "Failed to fetch boss data",
	})
	if perr != nil {
		details := ""
		switch perr.Kind {
		case services.KindConfiguration:
			details = perr.Details
		case services.KindEmptyBody, services.KindInvalidBody:
			details = perr.Message
		}
		h.writeError(w, "Failed to fetch boss data", details, http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, models.BossResponse{
		Boss:     json.RawMessage(rawOr(data.Get("boss"), "null")),
		Progress: json.RawMessage(rawOr(data.Get("progress"), "null")),
	})
}
