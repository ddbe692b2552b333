// ABOUTME: Test helpers for e2e tests
// ABOUTME: Runs the full gateway against a fake workflow backend that answers by action

package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/server"
	"github.com/famquest/gateway/services"
)

const sessionToken = "tok-e2e-7f3a"

// fakeBackend stands in for the workflow backend. Every webhook key points at
// it; replies are chosen by the payload's action field.
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	replies  map[string]string
	payloads []map[string]any
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{replies: map[string]string{
		"login":         `[{"ok":true,"token":"` + sessionToken + `","expiresAt":"2099-01-01T00:00:00Z"}]`,
		"validateToken": `{"ok":true,"user":{"id":"u1","name":"Arya","role":"child"}}`,
		"logout":        `{"success":true}`,
		"getQuests":     `{"quests":[{"id":"q1","title":"Feed the dragon"}]}`,
		"acceptQuest":   `{"ok":true,"quest":{"id":"q1","status":"ASSIGNED"}}`,
	}}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)
		action, _ := payload["action"].(string)

		b.mu.Lock()
		b.payloads = append(b.payloads, payload)
		reply, ok := b.replies[action]
		b.mu.Unlock()

		if !ok {
			http.Error(w, `{"message":"unknown action"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, reply)
	}))
	t.Cleanup(b.Close)
	return b
}

// Actions lists the actions received so far, in order.
func (b *fakeBackend) Actions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	actions := make([]string, 0, len(b.payloads))
	for _, p := range b.payloads {
		a, _ := p["action"].(string)
		actions = append(actions, a)
	}
	return actions
}

func (b *fakeBackend) Last() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.payloads) == 0 {
		return nil
	}
	return b.payloads[len(b.payloads)-1]
}

// webhookEnv points every webhook key at url.
func webhookEnv(url string) map[string]string {
	env := map[string]string{}
	for _, family := range config.Families() {
		for _, key := range family.Keys() {
			env[key] = url
		}
	}
	return env
}

// startGateway loads configuration from env the way serve does and runs the
// full router on an httptest server.
func startGateway(t *testing.T, env map[string]string) *httptest.Server {
	t.Helper()

	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_ENV", config.EnvTest)
	for _, family := range config.Families() {
		for _, key := range family.Keys() {
			t.Setenv(key, "")
		}
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	webhook := services.NewWebhookClientWithHTTPClient(&http.Client{Timeout: 5 * time.Second})
	t.Cleanup(webhook.CloseIdleConnections)

	gw := httptest.NewServer(server.New(ctx, cfg, webhook).Handler())
	t.Cleanup(gw.Close)
	return gw
}

// browser is an HTTP client with a cookie jar that does not follow redirects.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
