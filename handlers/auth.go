// ABOUTME: Auth handlers implementing the session cookie BFF pattern
// ABOUTME: Login, register, logout and identity lookup against the workflow backend

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/services"
)

// Login forwards credentials upstream and, on success, sets the session cookie.
// The token itself never appears in the response body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.writeError(w, "Email and password are required", "", http.StatusBadRequest)
		return
	}

	payload := h.newPayload(r, models.ActionLogin).
		With("email", req.Email).
		With("password", req.Password)

	data, perr := h.callUpstream(r, config.FamilyLogin, payload, services.NormalizeOptions{
		Policy:         services.StrictSuccess,
		FailureMessage: "Invalid credentials",
	})
	if perr != nil {
		switch perr.Kind {
		case services.KindLogical:
			h.writeLoginRejected(w, perr.Message, perr.Code)
		case services.KindTransport:
			h.writeError(w, "Login failed. Please try again.", "", http.StatusInternalServerError)
		default:
			h.writeProxyError(w, perr)
		}
		return
	}

	token := data.Get("token")
	if token.Type != gjson.String || token.String() == "" {
		slog.Warn("Login succeeded upstream without a token", "email", req.Email)
		h.writeLoginRejected(w, firstText(data, "message", "error"), "")
		return
	}

	expiresAt := firstText(data, "expiresAt")
	expiry, err := services.ParseExpiry(expiresAt)
	if err != nil {
		slog.Warn("Unparseable session expiry, issuing a browser-session cookie", "expires_at", expiresAt, "error", err)
	}
	h.sessions.Issue(w, services.Session{Token: token.String(), ExpiresAt: expiry})

	action := firstText(data, "action")
	if action == "" {
		action = models.ActionLogin
	}

	slog.Info("User logged in", "email", req.Email)

	h.writeJSON(w, http.StatusOK, models.LoginResponse{
		OK:        true,
		Success:   true,
		Action:    action,
		ExpiresAt: expiresAt,
	})
}

func (h *Handler) writeLoginRejected(w http.ResponseWriter, message, code string) {
	if message == "" {
		message = "Invalid credentials"
	}
	if code == "" {
		code = "AUTH_ERROR"
	}
	h.writeCodedError(w, message, code, http.StatusUnauthorized)
}

// Register creates a family account upstream. It never sets a cookie; the
// client logs in afterwards.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	missing := services.MissingFields(
		services.RequiredField{Name: "familyName", Value: req.FamilyName},
		services.RequiredField{Name: "name", Value: req.Name},
		services.RequiredField{Name: "email", Value: req.Email},
		services.RequiredField{Name: "password", Value: req.Password},
	)
	if len(missing) > 0 {
		h.writeError(w, "Missing required fields", strings.Join(missing, ", "), http.StatusBadRequest)
		return
	}

	payload := h.newPayload(r, models.ActionRegister).
		With("familyName", req.FamilyName).
		With("name", req.Name).
		With("email", req.Email).
		With("password", req.Password)

	data, perr := h.callUpstream(r, config.FamilyRegister, payload, services.NormalizeOptions{
		Policy:         services.LenientSuccess,
		FailureMessage: "Registration failed",
	})
	if perr != nil {
		switch {
		case perr.Kind == services.KindUpstreamHTTP && perr.Status == http.StatusNotFound:
			h.writeError(w, "Registration webhook not found",
				"The registration workflow returned 404. Check that "+config.KeyWebhook+
					" points at the production webhook URL and that the workflow is active.",
				http.StatusNotFound)
		case perr.Kind == services.KindTransport:
			h.writeError(w, "Registration failed. Please try again.", "", http.StatusInternalServerError)
		default:
			h.writeProxyError(w, perr)
		}
		return
	}

	message := firstText(data, "message")
	if message == "" {
		message = "Registration successful"
	}

	slog.Info("Family registered", "email", req.Email)

	h.writeJSON(w, http.StatusOK, models.RegisterResponse{
		Success: true,
		User:    json.RawMessage(rawOr(data.Get("user"), "null")),
		Message: message,
	})
}

// Logout revokes the session cookie unconditionally and tells the upstream on
// a best-effort basis. It always answers 200.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	result := services.LogoutResult{LocalCleared: true}
	if token, ok := h.sessions.Read(r); ok {
		result = h.logoutUpstream(r, token)
	}

	h.sessions.Revoke(w)

	h.writeJSON(w, http.StatusOK, models.LogoutResponse{
		Success: result.LocalCleared,
		Warning: result.Warning,
	})
}

func (h *Handler) logoutUpstream(r *http.Request, token string) services.LogoutResult {
	result := services.LogoutResult{LocalCleared: true}

	payload := h.newPayload(r, models.ActionLogout).With("token", token)
	_, perr := h.callUpstream(r, config.FamilyLogout, payload, services.NormalizeOptions{
		Policy: services.LenientSuccess,
	})
	switch {
	case perr == nil:
		result.UpstreamAcknowledged = true
	case perr.Kind == services.KindConfiguration:
		result.Warning = "Logout webhook URL not configured; session cleared locally"
	default:
		slog.Warn("Upstream logout failed, session cleared locally", "error", perr)
		result.Warning = "Logout completed locally"
	}
	return result
}

// Me returns the identity bound to the session cookie. Validity is checked
// upstream on every call.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := h.sessions.Read(r)
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, models.FailureResponse{Error: "No token found"})
		return
	}

	user, perr := h.validateToken(r, token)
	if perr != nil {
		status := http.StatusUnauthorized
		message := perr.Message
		switch perr.Kind {
		case services.KindUpstreamHTTP:
			message = "Token validation failed"
		case services.KindConfiguration, services.KindTransport, services.KindEmptyBody, services.KindInvalidBody:
			status = http.StatusInternalServerError
		}
		h.writeJSON(w, status, models.FailureResponse{Error: message})
		return
	}

	h.writeJSON(w, http.StatusOK, models.MeResponse{
		OK:   true,
		User: json.RawMessage(user.Raw),
	})
}

// MePost validates a token from the body, falling back to the cookie.
func (h *Handler) MePost(w http.ResponseWriter, r *http.Request) {
	var req models.MeRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, models.FailureResponse{Error: "Invalid request body"})
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = h.sessionToken(r)
	}
	if token == "" {
		h.writeJSON(w, http.StatusBadRequest, models.FailureResponse{Error: "Missing token"})
		return
	}

	user, perr := h.validateToken(r, token)
	if perr != nil {
		status := http.StatusUnauthorized
		if perr.Kind == services.KindConfiguration {
			status = http.StatusInternalServerError
		}
		message := perr.Message
		if message == "" {
			message = "Unauthorized"
		}
		h.writeJSON(w, status, models.FailureResponse{Error: message})
		return
	}

	h.writeJSON(w, http.StatusOK, models.MeResponse{
		OK:   true,
		User: json.RawMessage(user.Raw),
	})
}

// validateToken asks the upstream who token belongs to. Success requires a
// success flag and a user object.
func (h *Handler) validateToken(r *http.Request, token string) (gjson.Result, *services.ProxyError) {
	payload := h.newPayload(r, models.ActionValidateToken).With("token", token)

	data, perr := h.callUpstream(r, config.FamilyMe, payload, services.NormalizeOptions{
		Policy:         services.StrictSuccess,
		FailureMessage: "Invalid token",
	})
	if perr != nil {
		return gjson.Result{}, perr
	}

	user := data.Get("user")
	if !user.IsObject() {
		message := firstText(data, "message", "error")
		if message == "" {
			message = "Invalid token"
		}
		return gjson.Result{}, &services.ProxyError{
			Kind:     services.KindLogical,
			Message:  message,
			Upstream: data,
		}
	}
	return user, nil
}
