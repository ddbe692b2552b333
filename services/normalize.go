// ABOUTME: Normalizes raw webhook responses into one success/failure shape
// ABOUTME: Handles non-2xx, empty and non-JSON bodies, array envelopes and ok/success flags

package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	// bodyExcerptLen bounds how much of an upstream body reaches logs and responses.
	bodyExcerptLen = 200

	readFailurePlaceholder = "No error details available"
)

// successFields are the flag names upstream workflows use to signal success.
var successFields = []string{"ok", "success"}

// SuccessPolicy decides how a payload without any success flag is treated.
type SuccessPolicy int

const (
	// StrictSuccess requires a success flag that is present and true.
	StrictSuccess SuccessPolicy = iota
	// LenientSuccess accepts a payload with no flag; an explicit false still fails.
	LenientSuccess
	// ReportedSuccess never fails on the flags; the caller reads them itself.
	ReportedSuccess
)

// NormalizeOptions tune Normalize for a route.
type NormalizeOptions struct {
	Policy SuccessPolicy
	// FailureMessage is used when the upstream reports failure without a message.
	FailureMessage string
}

// Result is a normalized upstream answer. Exactly one of Payload (OK) or Err (!OK) is meaningful.
type Result struct {
	OK      bool
	Payload gjson.Result
	Err     *ProxyError
}

// ErrorMessage returns the failure summary, or "" on success.
func (r *Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// ErrorDetails returns the failure diagnostics, or "" on success.
func (r *Result) ErrorDetails() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Details
}

// Normalize interprets raw. Any ambiguity resolves to failure.
func Normalize(raw *RawResponse, opts NormalizeOptions) *Result {
	fallback := opts.FailureMessage
	if fallback == "" {
		fallback = "Request failed"
	}

	if !raw.OK() {
		text := string(raw.Body)
		if raw.ReadErr != nil && len(raw.Body) == 0 {
			text = readFailurePlaceholder
		}
		details := excerpt(strings.TrimSpace(text), bodyExcerptLen)
		if details == "" {
			details = fmt.Sprintf("HTTP %d error", raw.StatusCode)
		}
		perr := &ProxyError{
			Kind:    KindUpstreamHTTP,
			Status:  raw.StatusCode,
			Message: "upstream webhook failed: " + raw.Status,
			Details: details,
		}
		if gjson.Valid(text) {
			perr.Upstream = unwrapEnvelope(gjson.Parse(text))
			perr.Code = codeToken(perr.Upstream)
		} else {
			perr.BodyText = excerpt(strings.TrimSpace(text), bodyExcerptLen)
		}
		return &Result{Err: perr}
	}

	text := string(raw.Body)
	if strings.TrimSpace(text) == "" {
		return &Result{Err: &ProxyError{
			Kind:    KindEmptyBody,
			Status:  raw.StatusCode,
			Message: "upstream webhook returned empty response",
			Details: "The workflow did not return any data. Please ensure it returns a JSON response.",
		}}
	}

	if !gjson.Valid(text) {
		return &Result{Err: &ProxyError{
			Kind:    KindInvalidBody,
			Status:  raw.StatusCode,
			Message: "invalid response from upstream",
			Details: "upstream returned non-JSON response: " + excerpt(text, bodyExcerptLen),
		}}
	}

	payload := unwrapEnvelope(gjson.Parse(text))
	if !payload.IsObject() {
		return &Result{Err: &ProxyError{
			Kind:    KindLogical,
			Status:  raw.StatusCode,
			Message: fallback,
			Details: "upstream response did not contain an object",
		}}
	}

	if !successful(payload, opts.Policy) {
		msg := firstString(payload, "message", "error")
		if msg == "" {
			msg = fallback
		}
		return &Result{Err: &ProxyError{
			Kind:     KindLogical,
			Status:   raw.StatusCode,
			Message:  msg,
			Code:     codeToken(payload),
			Upstream: payload,
		}}
	}

	return &Result{OK: true, Payload: payload}
}

// unwrapEnvelope collapses the [obj, ...] batch shape to obj. An empty array
// stays an array, which callers treat as "no payload".
func unwrapEnvelope(v gjson.Result) gjson.Result {
	if v.IsArray() {
		if first := v.Get("0"); first.Exists() {
			return first
		}
	}
	return v
}

// successful applies policy to the ok/success flags of payload. Only JSON true
// counts; strings like "true" or numbers do not.
func successful(payload gjson.Result, policy SuccessPolicy) bool {
	if policy == ReportedSuccess {
		return true
	}
	seen := false
	for _, field := range successFields {
		flag := payload.Get(field)
		if !flag.Exists() || flag.Type == gjson.Null {
			continue
		}
		if flag.Type != gjson.True {
			return false
		}
		seen = true
	}
	if seen {
		return true
	}
	return policy == LenientSuccess
}

// codeToken returns the upstream "code" as a string token when it is one.
func codeToken(v gjson.Result) string {
	code := v.Get("code")
	if code.Type == gjson.String {
		return code.String()
	}
	return ""
}

// firstString returns the first non-empty string field among names.
func firstString(v gjson.Result, names ...string) string {
	for _, name := range names {
		if f := v.Get(name); f.Type == gjson.String && f.String() != "" {
			return f.String()
		}
	}
	return ""
}

// excerpt truncates s to at most n runes.
func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
