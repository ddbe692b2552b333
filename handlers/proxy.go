// ABOUTME: Upstream call plumbing shared by every proxied route
// ABOUTME: Resolves the family's webhook URL, sends the payload and normalizes the answer

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/middleware"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/services"
)

// newPayload starts an action payload carrying the request's correlation ID.
func (h *Handler) newPayload(r *http.Request, action string) models.ActionPayload {
	return models.NewActionPayload(action, middleware.RequestIDFrom(r.Context()))
}

// sessionToken returns the session cookie value, or "" when there is none.
func (h *Handler) sessionToken(r *http.Request) string {
	token, _ := h.sessions.Read(r)
	return token
}

// callUpstream sends payload to family's webhook and returns the unwrapped
// payload on success. Every failure arrives as a *services.ProxyError.
func (h *Handler) callUpstream(r *http.Request, family config.UpstreamFamily, payload models.ActionPayload, opts services.NormalizeOptions) (gjson.Result, *services.ProxyError) {
	url, err := h.cfg.Upstreams.Resolve(family)
	if err != nil {
		var missing *config.MissingURLError
		if errors.As(err, &missing) {
			slog.Error("Webhook URL not configured", "family", family, "key", missing.Key)
			return gjson.Result{}, services.NewConfigError(missing.Key)
		}
		slog.Error("Webhook URL resolution failed", "family", family, "error", err)
		return gjson.Result{}, &services.ProxyError{
			Kind:    services.KindConfiguration,
			Message: "upstream webhook URL not configured",
			Err:     err,
		}
	}

	if h.webhook == nil {
		return gjson.Result{}, &services.ProxyError{
			Kind:    services.KindConfiguration,
			Message: "upstream webhook client not configured",
		}
	}

	raw, err := h.webhook.Send(r.Context(), url, payload)
	if err != nil {
		var perr *services.ProxyError
		if errors.As(err, &perr) {
			return gjson.Result{}, perr
		}
		return gjson.Result{}, services.NewTransportError(err)
	}

	result := services.Normalize(raw, opts)
	if !result.OK {
		slog.Warn("Upstream call failed",
			"family", family,
			"request_id", middleware.RequestIDFrom(r.Context()),
			"kind", result.Err.Kind.String(),
			"status", result.Err.Status,
			"error", result.ErrorMessage(),
			"details", result.ErrorDetails(),
		)
		return gjson.Result{}, result.Err
	}
	return result.Payload, nil
}

// rawOr returns v's raw JSON, or fallback when v is absent or null.
func rawOr(v gjson.Result, fallback string) []byte {
	if !v.Exists() || v.Type == gjson.Null {
		return []byte(fallback)
	}
	return []byte(v.Raw)
}

// firstText returns the first non-empty string among paths in v.
func firstText(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if f := v.Get(p); f.Type == gjson.String && f.String() != "" {
			return f.String()
		}
	}
	return ""
}
