// ABOUTME: HTTP handlers for the FamQuest gateway API
// ABOUTME: Shared handler state, JSON response helpers and request decoding

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/services"
)

// maxRequestBytes bounds inbound JSON bodies; image uploads ride on orchestrator messages.
const maxRequestBytes = 8 << 20

// Webhook sends one action payload to one upstream URL.
type Webhook interface {
	Send(ctx context.Context, url string, payload models.ActionPayload) (*services.RawResponse, error)
}

type Handler struct {
	cfg      *config.Config
	webhook  Webhook
	sessions *services.SessionManager
	frontend http.Handler
}

// NewHandler wires handlers to cfg and webhook. Both may be nil (route table
// inspection in tests); upstream routes then fail as unconfigured.
func NewHandler(cfg *config.Config, webhook Webhook) *Handler {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if cfg.Upstreams == nil {
		cfg.Upstreams = config.NewUpstreams(nil)
	}

	h := &Handler{
		cfg:      cfg,
		webhook:  webhook,
		sessions: services.NewSessionManager(cfg.CookieSecure),
	}
	h.frontend = newFrontend(cfg.FrontendURL)
	return h
}

// writeJSON writes data as JSON with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError writes the {error, details} envelope.
func (h *Handler) writeError(w http.ResponseWriter, message, details string, status int) {
	h.writeJSON(w, status, models.ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// writeCodedError writes the {error, code} envelope.
func (h *Handler) writeCodedError(w http.ResponseWriter, message, code string, status int) {
	h.writeJSON(w, status, models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeProxyError writes err with its mapped status and client-safe fields.
func (h *Handler) writeProxyError(w http.ResponseWriter, err *services.ProxyError) {
	h.writeJSON(w, err.HTTPStatus(), models.ErrorResponse{
		Error:   err.Message,
		Details: err.Details,
		Code:    err.Code,
	})
}

var errEmptyBody = errors.New("empty request body")

// decodeJSON decodes the request body into dst. An empty body yields errEmptyBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for routes whose body may be omitted.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := decodeJSON(w, r, dst); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}
