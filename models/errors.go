// ABOUTME: Error response envelopes returned by API routes
// ABOUTME: Routes pick the envelope matching their documented failure shape

package models

import "encoding/json"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// FailureResponse is the {ok:false,...} envelope used by identity and quest routes.
type FailureResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// CodedFailureResponse carries a numeric status code in the body.
type CodedFailureResponse struct {
	OK      bool            `json:"ok"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}
