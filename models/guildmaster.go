// ABOUTME: Guild Master chat models for the orchestrator and intro routes
// ABOUTME: The chat itself runs upstream; these are the proxy contracts

package models

import "encoding/json"

// DefaultGuildMasterReply is used when the orchestrator answers without a message.
const DefaultGuildMasterReply = "The Guild Master acknowledges your request."

// OrchestratorRequest is a chat message for the Guild Master
type OrchestratorRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"userId,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
	UserName  string `json:"userName,omitempty"`
	ImageData string `json:"imageData,omitempty"`
}

// OrchestratorResponse is the Guild Master's reply
type OrchestratorResponse struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	QuestsUpdated bool            `json:"questsUpdated"`
	Quests        json.RawMessage `json:"quests"`
}

// ClientState describes the browser's clock for greeting selection
type ClientState struct {
	LocalTime string `json:"localTime"`
	TimeZone  string `json:"timeZone"`
}

// IntroRequest is the optional body of the intro route
type IntroRequest struct {
	ClientState *ClientState `json:"clientState,omitempty"`
}

// IntroResponse carries the Guild Master's opening message
type IntroResponse struct {
	Success bool   `json:"success"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// HealthResponse reports liveness and which upstream families are configured
type HealthResponse struct {
	Status    string            `json:"status"`
	Upstreams map[string]string `json:"upstreams"`
}
