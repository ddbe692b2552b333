// ABOUTME: Client for the workflow backend's HTTP webhooks
// ABOUTME: Sends one JSON POST per call and returns the raw response; no retries, no body interpretation

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/famquest/gateway/metrics"
	"github.com/famquest/gateway/models"
	"github.com/famquest/gateway/tracing"
)

// maxResponseBytes bounds how much of an upstream body is buffered.
const maxResponseBytes = 4 << 20

// RawResponse is an upstream answer before any interpretation.
type RawResponse struct {
	StatusCode  int
	Status      string // status text without the numeric code
	ContentType string
	Body        []byte
	ReadErr     error // set when the body could not be read completely
}

// OK reports a 2xx status.
func (r *RawResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// WebhookClient posts action payloads to webhook URLs.
type WebhookClient struct {
	httpClient *http.Client
}

// NewWebhookClient creates a client with the given per-call timeout. allProxy, when
// set, tunnels upstream traffic through an SSH SOCKS5 jumpbox.
func NewWebhookClient(timeout time.Duration, allProxy string) (*WebhookClient, error) {
	transport, err := newUpstreamTransport(allProxy)
	if err != nil {
		return nil, err
	}

	return NewWebhookClientWithHTTPClient(&http.Client{
		Timeout:   timeout,
		Transport: transport,
	}), nil
}

// NewWebhookClientWithHTTPClient wraps an existing client (useful for testing).
// Redirects are never followed: an upstream redirect is surfaced as a non-2xx result.
func NewWebhookClientWithHTTPClient(client *http.Client) *WebhookClient {
	c := *client
	c.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &WebhookClient{httpClient: &c}
}

// CloseIdleConnections releases pooled upstream connections (on shutdown).
func (c *WebhookClient) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Send POSTs payload as JSON to rawURL. A non-2xx status is a valid result; only
// failures to reach the upstream are returned as errors (*ProxyError of KindTransport,
// or KindConfiguration for an unusable URL).
func (c *WebhookClient) Send(ctx context.Context, rawURL string, payload models.ActionPayload) (*RawResponse, error) {
	action := payload.Action()
	if action == "" {
		action = "message"
	}

	if err := validateWebhookURL(rawURL); err != nil {
		return nil, &ProxyError{
			Kind:    KindConfiguration,
			Message: "upstream webhook URL is invalid",
			Details: "Webhook URLs must be absolute http(s) URLs",
			Err:     err,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", action, err)
	}

	ctx, span := tracing.StartSpan(ctx, "webhook.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(tracing.AttrAction.String(action))
	if id, ok := payload["requestId"].(string); ok {
		span.SetAttributes(tracing.AttrRequestID.String(id))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, NewTransportError(fmt.Errorf("failed to create webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	slog.Debug("Sending webhook request", "action", action, "url", redactURL(rawURL), "payload", payload.Redacted())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(action, metrics.OutcomeTransportError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		slog.Error("Webhook request failed", "action", action, "url", redactURL(rawURL), "error", err)
		return nil, NewTransportError(err)
	}
	defer resp.Body.Close()

	raw := &RawResponse{
		StatusCode:  resp.StatusCode,
		Status:      statusText(resp),
		ContentType: resp.Header.Get("Content-Type"),
	}
	raw.Body, raw.ReadErr = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if raw.ReadErr != nil {
		slog.Warn("Webhook response body read failed", "action", action, "error", raw.ReadErr)
	}

	span.SetAttributes(tracing.AttrUpstreamStatus.Int(resp.StatusCode))
	outcome := metrics.OutcomeOK
	if !raw.OK() {
		outcome = metrics.OutcomeHTTPError
		span.SetStatus(codes.Error, "upstream status "+strconv.Itoa(resp.StatusCode))
		slog.Warn("Webhook returned error status",
			"action", action,
			"status", resp.StatusCode,
			"status_text", raw.Status,
			"body", excerpt(string(raw.Body), bodyExcerptLen),
		)
	}
	metrics.UpstreamRequests.WithLabelValues(action, outcome).Inc()

	slog.Debug("Webhook response received",
		"action", action,
		"status", resp.StatusCode,
		"content_type", raw.ContentType,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return raw, nil
}

func validateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("not an absolute http(s) URL")
	}
	return nil
}

// statusText strips the numeric prefix from resp.Status ("404 Not Found" -> "Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// redactURL drops query strings, which webhook providers sometimes use for secrets.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[unparseable]"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
