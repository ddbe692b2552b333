// ABOUTME: Quest handlers: list, accept and assign
// ABOUTME: Forwards quest actions with the session token and fills safe defaults

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/services"
)

// ListQuests returns the user's quest array (empty when the upstream has none).
func (h *Handler) ListQuests(w http.ResponseWriter, r *http.Request) {
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

	payload := h.newPayload(r, models.ActionGetQuests).
		With("userId", userID).
		With("token", token)

	data, perr := h.callUpstream(r, config.FamilyQuests, payload, services.NormalizeOptions{
		Policy:         services.LenientSuccess,
		FailureMessage: "Failed to fetch quests",
	})
	if perr != nil {
		switch perr.Kind {
		case services.KindConfiguration:
			h.writeError(w, "Failed to fetch quests", perr.Details, http.StatusInternalServerError)
		case services.KindEmptyBody, services.KindInvalidBody:
			h.writeError(w, "Failed to fetch quests", perr.Message, http.StatusInternalServerError)
		default:
			h.writeError(w, "Failed to fetch quests", "", http.StatusBadGateway)
		}
		return
	}

	quests := data.Get("quests")
	if !quests.IsArray() {
		h.writeJSON(w, http.StatusOK, json.RawMessage("[]"))
		return
	}
	h.writeJSON(w, http.StatusOK, json.RawMessage(quests.Raw))
}

// AcceptQuest accepts a quest for a user.
func (h *Handler) AcceptQuest(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		h.writeJSON(w, http.StatusUnauthorized, models.FailureResponse{Message: "Not authenticated"})
		return
	}

	var req models.AcceptQuestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, models.FailureResponse{Message: "Invalid request body"})
		return
	}

	if missing := services.MissingFields(
		services.RequiredField{Name: "questId", Value: req.QuestID},
		services.RequiredField{Name: "userId", Value: req.UserID},
	); len(missing) > 0 {
		h.writeJSON(w, http.StatusBadRequest, models.FailureResponse{
			Message: "Missing required fields: questId and userId are required",
		})
		return
	}

	payload := h.newPayload(r, models.ActionAcceptQuest).
		With("questId", req.QuestID).
		With("userId", req.UserID).
		With("token", token)

	data, perr := h.callUpstream(r, config.FamilyQuestAccept, payload, services.NormalizeOptions{
		Policy:         services.StrictSuccess,
		FailureMessage: "Quest acceptance failed",
	})
	if perr != nil {
		message := perr.Message
		switch perr.Kind {
		case services.KindUpstreamHTTP:
			message = perr.UpstreamMessage()
			if message == "" {
				message = "Failed to accept quest"
			}
		case services.KindEmptyBody:
			message = "Empty response from quest service"
		case services.KindInvalidBody:
			message = "Invalid response from quest service"
		case services.KindTransport:
			message = "Failed to accept quest"
		}
		h.writeJSON(w, perr.HTTPStatus(), models.FailureResponse{Message: message})
		return
	}

	quest := data.Get("quest")
	if quest.IsObject() {
		h.writeJSON(w, http.StatusOK, models.QuestResponse{OK: true, Quest: json.RawMessage(quest.Raw)})
		return
	}
	h.writeJSON(w, http.StatusOK, models.QuestResponse{
		OK: true,
		Quest: models.QuestSummary{
			ID:         req.QuestID,
			Status:     models.QuestStatusAssigned,
			AssignedTo: req.UserID,
		},
	})
}

// AssignQuest assigns a quest to the session's own user, resolved upstream
// through the same token validation Me uses.
func (h *Handler) AssignQuest(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		h.writeCodedError(w, "Not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}

	var req models.AssignQuestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeCodedError(w, "Invalid request body", "INVALID_REQUEST", http.StatusBadRequest)
		return
	}
	if req.QuestID == "" {
		h.writeCodedError(w, "Quest ID is required", "MISSING_QUEST_ID", http.StatusBadRequest)
		return
	}

	user, perr := h.validateToken(r, token)
	if perr != nil {
		if perr.Kind == services.KindConfiguration {
			h.writeCodedError(w, perr.Message, "CONFIG_ERROR", http.StatusInternalServerError)
			return
		}
		h.writeCodedError(w, "Failed to get user information", "AUTH_FAILED", http.StatusUnauthorized)
		return
	}
	userID := user.Get("id")
	if !userID.Exists() || userID.String() == "" {
		h.writeCodedError(w, "User ID not found", "USER_NOT_FOUND", http.StatusUnauthorized)
		return
	}

	payload := h.newPayload(r, models.ActionAssignQuest).
		With("userId", userID.Value()).
		With("questId", req.QuestID).
		With("token", token)

	data, perr := h.callUpstream(r, config.FamilyQuests, payload, services.NormalizeOptions{
		Policy:         services.StrictSuccess,
		FailureMessage: "Quest assignment failed",
	})
	if perr != nil {
		h.writeAssignError(w, perr)
		return
	}

	quest := data.Get("quest")
	if quest.IsObject() {
		h.writeJSON(w, http.StatusOK, models.QuestResponse{OK: true, Quest: json.RawMessage(quest.Raw)})
		return
	}
	h.writeJSON(w, http.StatusOK, models.QuestResponse{
		OK: true,
		Quest: models.QuestSummary{
			ID:         req.QuestID,
			Status:     models.QuestStatusOpen,
			AssignedTo: userID.String(),
		},
	})
}

func (h *Handler) writeAssignError(w http.ResponseWriter, perr *services.ProxyError) {
	switch perr.Kind {
	case services.KindConfiguration:
		h.writeCodedError(w, perr.Message, "CONFIG_ERROR", http.StatusInternalServerError)
	case services.KindEmptyBody:
		h.writeCodedError(w, "Empty response from quest service", "EMPTY_RESPONSE", http.StatusInternalServerError)
	case services.KindInvalidBody:
		h.writeCodedError(w, "Invalid response from quest service", "INVALID_RESPONSE", http.StatusInternalServerError)
	case services.KindTransport:
		h.writeCodedError(w, "Failed to assign quest", "SERVER_ERROR", http.StatusInternalServerError)
	case services.KindUpstreamHTTP:
		message := perr.UpstreamMessage()
		var code, fallback string
		switch perr.Status {
		case http.StatusConflict:
			code, fallback = "QUEST_NOT_AVAILABLE", "Quest is not available"
		case http.StatusForbidden:
			code, fallback = "NOT_ALLOWED", "Not allowed to assign this quest"
		case http.StatusNotFound:
			code, fallback = "NOT_FOUND", "Quest not found"
		default:
			code, fallback = "ASSIGN_FAILED", "Failed to assign quest"
		}
		if message == "" {
			message = fallback
		}
		h.writeCodedError(w, message, code, perr.HTTPStatus())
	default:
		code := perr.Code
		if code == "" {
			code = "ASSIGN_FAILED"
		}
		h.writeCodedError(w, perr.Message, code, http.StatusBadRequest)
	}
}
