// ABOUTME: Quest and microstep request/response models
// ABOUTME: Upstream quest objects pass through as raw JSON; defaults fill gaps

package models

import "encoding/json"

// Quest statuses the gateway fills in when the upstream omits the quest object.
const (
	QuestStatusOpen      = "OPEN"
	QuestStatusAssigned  = "ASSIGNED"
	QuestStatusCompleted = "COMPLETED"
	MicrostepStatusDone  = "DONE"
)

// AcceptQuestRequest accepts a quest on behalf of userId
type AcceptQuestRequest struct {
	QuestID string `json:"questId"`
	UserID  string `json:"userId"`
}

// AssignQuestRequest assigns a quest to the session's user
type AssignQuestRequest struct {
	QuestID string `json:"questId"`
}

// QuestSummary is the fallback quest shape
type QuestSummary struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	AssignedTo string `json:"assigned_to"`
}

// QuestResponse wraps a quest returned by accept or assign
type QuestResponse struct {
	OK    bool `json:"ok"`
	Quest any  `json:"quest"`
}

// ToggleMicrostepRequest toggles one microstep of a quest
type ToggleMicrostepRequest struct {
	Action      string `json:"action"`
	UserID      string `json:"userId"`
	QuestID     string `json:"questId"`
	MicrostepID string `json:"microstepId"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// ToggleMicrostepResponse reports the microstep and quest state after a toggle
type ToggleMicrostepResponse struct {
	OK             bool           `json:"ok"`
	Code           int            `json:"code"`
	QuestID        string         `json:"questId"`
	Microstep      map[string]any `json:"microstep"`
	OpenSteps      float64        `json:"open_steps"`
	TotalSteps     float64        `json:"total_steps"`
	QuestCompleted bool           `json:"questCompleted"`
	QuestStatus    string         `json:"questStatus"`
}

// BossResponse carries the family's boss battle state; absent fields are null.
type BossResponse struct {
	Boss     json.RawMessage `json:"boss"`
	Progress json.RawMessage `json:"progress"`
}
