// ABOUTME: Action payload sent to the workflow backend
// ABOUTME: A tagged JSON object carrying an action name, action fields and trace metadata

package models

import "time"

// Action names understood by the workflow backend.
const (
	ActionLogin           = "login"
	ActionRegister        = "register"
	ActionLogout          = "logout"
	ActionValidateToken   = "validateToken"
	ActionGetQuests       = "getQuests"
	ActionAcceptQuest     = "acceptQuest"
	ActionAssignQuest     = "assignQuest"
	ActionToggleMicrostep = "toggleMicrostep"
	ActionGetBoss         = "getBoss"
	ActionIntro           = "intro"
)

// timestampLayout matches what the workflow backend has always received (ISO-8601, ms, UTC).
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ActionPayload is the JSON object POSTed to a webhook. Built per call, never persisted.
type ActionPayload map[string]any

// NewActionPayload starts a payload tagged with action. An empty action leaves
// the discriminant out, which is what the orchestrator workflow expects.
func NewActionPayload(action, requestID string) ActionPayload {
	p := ActionPayload{
		"timestamp": FormatTimestamp(time.Now()),
	}
	if action != "" {
		p["action"] = action
	}
	if requestID != "" {
		p["requestId"] = requestID
	}
	return p
}

// With sets a field and returns the payload for chaining.
func (p ActionPayload) With(key string, value any) ActionPayload {
	p[key] = value
	return p
}

// Action returns the discriminant, or "" when the payload has none.
func (p ActionPayload) Action() string {
	a, _ := p["action"].(string)
	return a
}

// Redacted returns a copy safe to log: credentials and tokens are masked.
func (p ActionPayload) Redacted() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		switch k {
		case "password", "token", "imageData":
			out[k] = "[REDACTED]"
		default:
			out[k] = v
		}
	}
	return out
}

// FormatTimestamp renders t the way payload timestamps are rendered.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
