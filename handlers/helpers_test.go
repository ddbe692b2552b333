package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/services"
)

const testToken = "tok-abc123"

// fakeUpstream is a webhook endpoint that records payloads and replies with a
// fixed status and body.
type fakeUpstream struct {
	*httptest.Server

	mu       sync.Mutex
	payloads []map[string]any
	status   int
	body     string
}

func newFakeUpstream(t *testing.T, status int, body string) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{status: status, body: body}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)

		u.mu.Lock()
		u.payloads = append(u.payloads, payload)
		status, body := u.status, u.body
		u.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *fakeUpstream) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.payloads)
}

func (u *fakeUpstream) LastPayload(t *testing.T) map[string]any {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	require.NotEmpty(t, u.payloads, "upstream was never called")
	return u.payloads[len(u.payloads)-1]
}

// newTestHandler builds a handler whose upstream keys point at the given URLs.
func newTestHandler(t *testing.T, urls map[string]string) *Handler {
	t.Helper()
	client := services.NewWebhookClientWithHTTPClient(&http.Client{Timeout: 5 * time.Second})
	t.Cleanup(client.CloseIdleConnections)
	return NewHandler(&config.Config{Upstreams: config.NewUpstreams(urls)}, client)
}

// serve runs one request through handler. A non-empty token becomes the session cookie.
func serve(handler http.HandlerFunc, method, target, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: services.SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == services.SessionCookieName {
			return c
		}
	}
	return nil
}
