// ABOUTME: Tests for quest list, accept, assign and microstep toggle handlers

package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famquest/gateway/config"
)

func TestListQuests(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `[{"quests":[{"id":"q1"},{"id":"q2"}]}]`)
	h := newTestHandler(t, map[string]string{config.KeyQuest: up.URL})

	rec := serve(h.ListQuests, http.MethodGet, "/api/quests?userId=u1", "", testToken)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[{"id":"q1"},{"id":"q2"}]`, rec.Body.String())

	payload := up.LastPayload(t)
	assert.Equal(t, "getQuests", payload["action"])
	assert.Equal(t, "u1", payload["userId"])
	assert.Equal(t, testToken, payload["token"])
}

func TestListQuests_DefaultsToEmptyArray(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"something":"else"}`)
	h := newTestHandler(t, map[string]string{config.KeyWebhook: up.URL})

	rec := serve(h.ListQuests, http.MethodGet, "/api/quests?userId=u1", "", testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListQuests_Failures(t *testing.T) {
	up := newFakeUpstream(t, http.StatusServiceUnavailable, `down`)
	h := newTestHandler(t, map[string]string{config.KeyQuest: up.URL})

	rec := serve(h.ListQuests, http.MethodGet, "/api/quests?userId=u1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h.ListQuests, http.MethodGet, "/api/quests", "", testToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User ID required", decodeObject(t, rec)["error"])
	assert.Zero(t, up.Calls())

	rec = serve(h.ListQuests, http.MethodGet, "/api/quests?userId=u1", "", testToken)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to fetch quests", decodeObject(t, rec)["error"])

	rec = serve(newTestHandler(t, nil).ListQuests, http.MethodGet, "/api/quests?userId=u1", "", testToken)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListQuests_MalformedUpstreamBody(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantDetails string
	}{
		{"empty body", ``, "upstream webhook returned empty response"},
		{"whitespace body", "  \n", "upstream webhook returned empty response"},
		{"not json", `not json`, "invalid response from upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t, http.StatusOK, tt.body)
			h := newTestHandler(t, map[string]string{config.KeyQuest: up.URL})

			rec := serve(h.ListQuests, http.MethodGet, "/api/quests?userId=u1", "", testToken)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decodeObject(t, rec)
			assert.Equal(t, "Failed to fetch quests", body["error"])
			assert.Equal(t, tt.wantDetails, body["details"])
		})
	}
}

func TestAcceptQuest(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "upstream quest passed through",
			status:     http.StatusOK,
			body:       `{"ok":true,"quest":{"id":"q1","status":"ASSIGNED","xp":50}}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true,"quest":{"id":"q1","status":"ASSIGNED","xp":50}}`,
		},
		{
			name:       "default quest",
			status:     http.StatusOK,
			body:       `[{"ok":true}]`,
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true,"quest":{"id":"q1","status":"ASSIGNED","assigned_to":"u1"}}`,
		},
		{
			name:       "logical failure",
			status:     http.StatusOK,
			body:       `{"ok":false,"message":"Already taken"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"ok":false,"message":"Already taken"}`,
		},
		{
			name:       "missing flag",
			status:     http.StatusOK,
			body:       `{"quest":{"id":"q1"}}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"ok":false,"message":"Quest acceptance failed"}`,
		},
		{
			name:       "upstream conflict",
			status:     http.StatusConflict,
			body:       `{"message":"Quest is locked"}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"ok":false,"message":"Quest is locked"}`,
		},
		{
			name:       "upstream teapot",
			status:     http.StatusTeapot,
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"ok":false,"message":"Failed to accept quest"}`,
		},
		{
			name:       "empty body",
			status:     http.StatusOK,
			body:       ``,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"ok":false,"message":"Empty response from quest service"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t, tt.status, tt.body)
			h := newTestHandler(t, map[string]string{config.KeyQuestAccept: up.URL})

			rec := serve(h.AcceptQuest, http.MethodPost, "/api/quests/accept", `{"questId":"q1","userId":"u1"}`, testToken)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestAcceptQuest_RequestChecks(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"ok":true}`)
	h := newTestHandler(t, map[string]string{config.KeyQuestAccept: up.URL})

	rec := serve(h.AcceptQuest, http.MethodPost, "/api/quests/accept", `{"questId":"q1","userId":"u1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"Not authenticated"}`, rec.Body.String())

	rec = serve(h.AcceptQuest, http.MethodPost, "/api/quests/accept", `{"questId":"q1"}`, testToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"Missing required fields: questId and userId are required"}`, rec.Body.String())

	rec = serve(h.AcceptQuest, http.MethodPost, "/api/quests/accept", `not json`, testToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, up.Calls())
}

// newAssignUpstreams serves validateToken from one server and assignQuest from another.
func newAssignUpstreams(t *testing.T, meBody string, assignStatus int, assignBody string) (*Handler, *fakeUpstream) {
	t.Helper()
	me := newFakeUpstream(t, http.StatusOK, meBody)
	quest := newFakeUpstream(t, assignStatus, assignBody)
	h := newTestHandler(t, map[string]string{
		config.KeyAuthMe: me.URL,
		config.KeyQuest:  quest.URL,
	})
	return h, quest
}

func TestAssignQuest(t *testing.T) {
	const validUser = `{"ok":true,"user":{"id":"u7"}}`

	tests := []struct {
		name       string
		meBody     string
		status     int
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "default quest",
			meBody:     validUser,
			status:     http.StatusOK,
			body:       `{"ok":true}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true,"quest":{"id":"q1","status":"OPEN","assigned_to":"u7"}}`,
		},
		{
			name:       "conflict",
			meBody:     validUser,
			status:     http.StatusConflict,
			body:       `{}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"Quest is not available","code":"QUEST_NOT_AVAILABLE"}`,
		},
		{
			name:       "forbidden",
			meBody:     validUser,
			status:     http.StatusForbidden,
			body:       `{"message":"Parents only"}`,
			wantStatus: http.StatusForbidden,
			wantBody:   `{"error":"Parents only","code":"NOT_ALLOWED"}`,
		},
		{
			name:       "not found",
			meBody:     validUser,
			status:     http.StatusNotFound,
			body:       ``,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Quest not found","code":"NOT_FOUND"}`,
		},
		{
			name:       "server error",
			meBody:     validUser,
			status:     http.StatusBadGateway,
			body:       ``,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Failed to assign quest","code":"ASSIGN_FAILED"}`,
		},
		{
			name:       "logical failure with code",
			meBody:     validUser,
			status:     http.StatusOK,
			body:       `{"ok":false,"message":"Too many quests","code":"LIMIT"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Too many quests","code":"LIMIT"}`,
		},
		{
			name:       "invalid body",
			meBody:     validUser,
			status:     http.StatusOK,
			body:       `<html>`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Invalid response from quest service","code":"INVALID_RESPONSE"}`,
		},
		{
			name:       "token rejected",
			meBody:     `{"ok":false}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Failed to get user information","code":"AUTH_FAILED"}`,
		},
		{
			name:       "user without id",
			meBody:     `{"ok":true,"user":{"name":"Arya"}}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"User ID not found","code":"USER_NOT_FOUND"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := tt.status
			if status == 0 {
				status = http.StatusOK
			}
			h, quest := newAssignUpstreams(t, tt.meBody, status, tt.body)

			rec := serve(h.AssignQuest, http.MethodPost, "/api/quests/assign", `{"questId":"q1"}`, testToken)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			if tt.status == 0 {
				assert.Zero(t, quest.Calls(), "assign must not run without a resolved user")
			}
		})
	}
}

func TestAssignQuest_PayloadUsesResolvedUser(t *testing.T) {
	h, quest := newAssignUpstreams(t, `{"ok":true,"user":{"id":"u7"}}`, http.StatusOK, `{"ok":true}`)

	serve(h.AssignQuest, http.MethodPost, "/api/quests/assign", `{"questId":"q1","userId":"someone-else"}`, testToken)

	payload := quest.LastPayload(t)
	assert.Equal(t, "assignQuest", payload["action"])
	assert.Equal(t, "u7", payload["userId"])
	assert.Equal(t, "q1", payload["questId"])
}

func TestAssignQuest_RequestChecks(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := serve(h.AssignQuest, http.MethodPost, "/api/quests/assign", `{"questId":"q1"}`, "")
	assert.JSONEq(t, `{"error":"Not authenticated","code":"UNAUTHORIZED"}`, rec.Body.String())

	rec = serve(h.AssignQuest, http.MethodPost, "/api/quests/assign", `{}`, testToken)
	assert.JSONEq(t, `{"error":"Quest ID is required","code":"MISSING_QUEST_ID"}`, rec.Body.String())

	rec = serve(h.AssignQuest, http.MethodPost, "/api/quests/assign", `{"questId":"q1"}`, testToken)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "CONFIG_ERROR", decodeObject(t, rec)["code"])
}

func TestToggleMicrostep_Success(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `[{"ok":true,"open_steps":"2","total_steps":5,"microstep":{"id":"m1","status":"OPEN","done":false,"updatedAt":"2024-05-01T10:00:00.000Z"}}]`)
	h := newTestHandler(t, map[string]string{config.KeyMicrostepToggle: up.URL})

	rec := serve(h.ToggleMicrostep, http.MethodPost, "/api/microsteps/toggle",
		`{"action":"toggle","userId":"u1","questId":"q1","microstepId":"m1","timestamp":"2024-05-01T10:00:00.000Z"}`, testToken)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"ok": true,
		"code": 200,
		"questId": "q1",
		"microstep": {"id":"m1","status":"OPEN","done":false,"updatedAt":"2024-05-01T10:00:00.000Z"},
		"open_steps": 2,
		"total_steps": 5,
		"questCompleted": false,
		"questStatus": "OPEN"
	}`, rec.Body.String())

	payload := up.LastPayload(t)
	assert.Equal(t, "toggleMicrostep", payload["action"])
	assert.Equal(t, "2024-05-01T10:00:00.000Z", payload["timestamp"], "client timestamp is kept")
	assert.Equal(t, testToken, payload["token"])
}

func TestToggleMicrostep_Defaults(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"ok":true,"questCompleted":true}`)
	h := newTestHandler(t, map[string]string{config.KeyMicrostepToggle: up.URL})

	rec := serve(h.ToggleMicrostep, http.MethodPost, "/api/microsteps/toggle",
		`{"action":"toggle","userId":"u1","questId":"q1","microstepId":"m1"}`, testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, "COMPLETED", body["questStatus"])
	assert.Equal(t, true, body["questCompleted"])
	assert.Equal(t, float64(0), body["open_steps"])

	microstep, ok := body["microstep"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "m1", microstep["id"])
	assert.Equal(t, "DONE", microstep["status"])
	assert.Equal(t, true, microstep["done"])
	assert.NotEmpty(t, microstep["updatedAt"])
}

func TestToggleMicrostep_PartialMicrostepGetsDefaults(t *testing.T) {
	tests := []struct {
		name      string
		microstep string
		wantDone  bool
	}{
		{"id only", `{"id":"m1"}`, true},
		{"blank fields", `{"id":"","status":"","updatedAt":""}`, true},
		{"done false kept", `{"done":false}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t, http.StatusOK, `{"ok":true,"microstep":`+tt.microstep+`}`)
			h := newTestHandler(t, map[string]string{config.KeyMicrostepToggle: up.URL})

			rec := serve(h.ToggleMicrostep, http.MethodPost, "/api/microsteps/toggle",
				`{"action":"toggle","userId":"u1","questId":"q1","microstepId":"m1"}`, testToken)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			microstep, ok := decodeObject(t, rec)["microstep"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "m1", microstep["id"])
			assert.Equal(t, "DONE", microstep["status"])
			assert.Equal(t, tt.wantDone, microstep["done"])
			updatedAt, _ := microstep["updatedAt"].(string)
			_, err := time.Parse(time.RFC3339, updatedAt)
			assert.NoError(t, err, "updatedAt = %q", updatedAt)
		})
	}
}

func TestToggleMicrostep_Failures(t *testing.T) {
	const body = `{"action":"toggle","userId":"u1","questId":"q1","microstepId":"m1"}`

	tests := []struct {
		name       string
		status     int
		upstream   string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "upstream 404 with errors",
			status:     http.StatusNotFound,
			upstream:   `{"message":"No such step","errors":["m1"]}`,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"ok":false,"code":404,"message":"No such step","errors":["m1"]}`,
		},
		{
			name:       "upstream 500 plain text",
			status:     http.StatusInternalServerError,
			upstream:   `boom`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"ok":false,"code":500,"message":"boom","errors":[]}`,
		},
		{
			name:       "upstream 500 empty body",
			status:     http.StatusInternalServerError,
			upstream:   ``,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"ok":false,"code":500,"message":"Failed to toggle microstep","errors":[]}`,
		},
		{
			name:       "upstream 404 json without message",
			status:     http.StatusNotFound,
			upstream:   `{"detail":"gone"}`,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"ok":false,"code":404,"message":"Failed to toggle microstep","errors":[]}`,
		},
		{
			name:       "logical failure with mapped code",
			status:     http.StatusOK,
			upstream:   `{"ok":false,"code":409,"message":"Quest closed"}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"ok":false,"code":409,"message":"Quest closed"}`,
		},
		{
			name:       "logical failure with odd code",
			status:     http.StatusOK,
			upstream:   `{"ok":false,"code":299}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"ok":false,"code":400,"message":"Microstep toggle failed"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t, tt.status, tt.upstream)
			h := newTestHandler(t, map[string]string{config.KeyMicrostepToggle: up.URL})

			rec := serve(h.ToggleMicrostep, http.MethodPost, "/api/microsteps/toggle", body, testToken)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestToggleMicrostep_RequestChecks(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := serve(h.ToggleMicrostep, http.MethodPost, "/api/microsteps/toggle", `{}`, "")
	assert.JSONEq(t, `{"ok":false,"code":401,"message":"Not authenticated"}`, rec.Body.String())

	rec = serve(h.ToggleMicrostep, http.MethodPost, "/api/microsteps/toggle", `{"userId":"u1"}`, testToken)
	assert.JSONEq(t, `{"ok":false,"code":400,"message":"Missing required fields: action, userId, questId, microstepId"}`, rec.Body.String())
}

func TestUpstreamCallCarriesRequestContext(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		close(blocked)
		<-r.Context().Done()
	}))
	defer srv.Close()

	h := newTestHandler(t, map[string]string{config.KeyBoss: srv.URL})
	req := httptest.NewRequest(http.MethodGet, "/api/boss?userId=u1", nil)
	req.AddCookie(&http.Cookie{Name: "famquest_token", Value: testToken})
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	go func() {
		<-blocked
		cancel()
	}()

	rec := httptest.NewRecorder()
	h.GetBoss(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch boss data"}`, rec.Body.String())
}
