// ABOUTME: Microstep toggle handler
// ABOUTME: Reports the toggled microstep and the quest's resulting progress

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/services"
)

// ToggleMicrostep flips one microstep of a quest upstream.
func (h *Handler) ToggleMicrostep(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		h.writeToggleError(w, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	var req models.ToggleMicrostepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeToggleError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if missing := services.MissingFields(
		services.RequiredField{Name: "action", Value: req.Action},
		services.RequiredField{Name: "userId", Value: req.UserID},
		services.RequiredField{Name: "questId", Value: req.QuestID},
		services.RequiredField{Name: "microstepId", Value: req.MicrostepID},
	); len(missing) > 0 {
		h.writeToggleError(w, http.StatusBadRequest, "Missing required fields: action, userId, questId, microstepId", nil)
		return
	}

	payload := h.newPayload(r, models.ActionToggleMicrostep).
		With("userId", req.UserID).
		With("questId", req.QuestID).
		With("microstepId", req.MicrostepID).
		With("token", token)
	if req.Timestamp != "" {
		payload.With("timestamp", req.Timestamp)
	}

	data, perr := h.callUpstream(r, config.FamilyMicrostepToggle, payload, services.NormalizeOptions{
		Policy:         services.StrictSuccess,
		FailureMessage: "Microstep toggle failed",
	})
	if perr != nil {
		switch perr.Kind {
		case services.KindUpstreamHTTP:
			message := perr.UpstreamMessage()
			if message == "" {
				message = perr.BodyText
			}
			if message == "" {
				message = "Failed to toggle microstep"
			}
			h.writeToggleError(w, perr.HTTPStatus(), message, rawOr(perr.Upstream.Get("errors"), "[]"))
		case services.KindLogical:
			status := http.StatusBadRequest
			if code := perr.Upstream.Get("code"); code.Type == gjson.Number && services.MapStatus(int(code.Int())) == int(code.Int()) {
				status = int(code.Int())
			}
			h.writeToggleError(w, status, perr.Message, nil)
		case services.KindEmptyBody:
			h.writeToggleError(w, http.StatusInternalServerError, "Empty response from microstep service", nil)
		case services.KindInvalidBody:
			h.writeToggleError(w, http.StatusInternalServerError, "Invalid response from microstep service", nil)
		case services.KindTransport:
			h.writeToggleError(w, http.StatusInternalServerError, "Failed to toggle microstep", nil)
		default:
			h.writeToggleError(w, perr.HTTPStatus(), perr.Message, nil)
		}
		return
	}

	questID := firstText(data, "questId")
	if questID == "" {
		questID = req.QuestID
	}

	microstep, ok := data.Get("microstep").Value().(map[string]any)
	if !ok {
		microstep = map[string]any{}
	}
	fillMicrostepDefaults(microstep, req.MicrostepID, time.Now())

	completed := data.Get("questCompleted").Type == gjson.True
	questStatus := firstText(data, "questStatus")
	if questStatus == "" {
		questStatus = models.QuestStatusOpen
		if completed {
			questStatus = models.QuestStatusCompleted
		}
	}

	h.writeJSON(w, http.StatusOK, models.ToggleMicrostepResponse{
		OK:             true,
		Code:           http.StatusOK,
		QuestID:        questID,
		Microstep:      microstep,
		OpenSteps:      data.Get("open_steps").Float(),
		TotalSteps:     data.Get("total_steps").Float(),
		QuestCompleted: completed,
		QuestStatus:    questStatus,
	})
}

func (h *Handler) writeToggleError(w http.ResponseWriter, status int, message string, errs []byte) {
	h.writeJSON(w, status, models.CodedFailureResponse{
		Code:    status,
		Message: message,
		Errors:  json.RawMessage(errs),
	})
}

// fillMicrostepDefaults sets each field the upstream left out or left blank.
// A present done flag is kept even when false.
func fillMicrostepDefaults(microstep map[string]any, microstepID string, now time.Time) {
	if isBlank(microstep["id"]) {
		microstep["id"] = microstepID
	}
	if isBlank(microstep["status"]) {
		microstep["status"] = models.MicrostepStatusDone
	}
	if _, ok := microstep["done"]; !ok {
		microstep["done"] = true
	}
	if isBlank(microstep["updatedAt"]) {
		microstep["updatedAt"] = models.FormatTimestamp(now)
	}
}

func isBlank(v any) bool {
	s, isString := v.(string)
	return v == nil || (isString && s == "")
}
