// ABOUTME: Error taxonomy for upstream webhook calls
// ABOUTME: Classifies configuration, transport, HTTP, body and logical failures into client-visible statuses

package services

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorKind classifies why an upstream call did not produce a usable payload.
type ErrorKind int

const (
	// KindConfiguration means the webhook URL for the route is not configured.
	KindConfiguration ErrorKind = iota + 1
	// KindTransport means the upstream could not be reached (DNS, connect, timeout).
	KindTransport
	// KindUpstreamHTTP means the upstream answered with a non-2xx status.
	KindUpstreamHTTP
	// KindEmptyBody means the upstream answered 2xx with an empty or blank body.
	KindEmptyBody
	// KindInvalidBody means the upstream body was not JSON.
	KindInvalidBody
	// KindLogical means the upstream reported failure (or no success) in its payload.
	KindLogical
	// KindAuthMissing means the request carried no session cookie.
	KindAuthMissing
	// KindBadRequest means the inbound request was malformed or incomplete.
	KindBadRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindUpstreamHTTP:
		return "upstream_http"
	case KindEmptyBody:
		return "empty_body"
	case KindInvalidBody:
		return "invalid_body"
	case KindLogical:
		return "logical"
	case KindAuthMissing:
		return "auth_missing"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// ProxyError is the single error type handlers receive from the upstream path.
type ProxyError struct {
	Kind    ErrorKind
	Status  int    // upstream HTTP status, 0 when no response was received
	Message string // client-safe summary
	Details string // client-safe diagnostics (bounded excerpt, remediation hint)
	Code    string // upstream-supplied error code token, if any

	// MissingKey names the environment variable to set for KindConfiguration.
	MissingKey string

	// Upstream is the parsed (unwrapped) upstream body when it was JSON.
	Upstream gjson.Result

	// BodyText is a bounded excerpt of a non-JSON upstream error body.
	BodyText string

	Err error
}

func (e *ProxyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}

// UpstreamMessage returns the message the upstream put in its body, if any.
func (e *ProxyError) UpstreamMessage() string {
	if e == nil || !e.Upstream.Exists() {
		return ""
	}
	return firstString(e.Upstream, "message", "error")
}

// HTTPStatus maps the error onto the closed set of client-facing statuses.
func (e *ProxyError) HTTPStatus() int {
	switch e.Kind {
	case KindUpstreamHTTP:
		return MapStatus(e.Status)
	case KindLogical, KindBadRequest:
		return http.StatusBadRequest
	case KindAuthMissing:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// MapStatus folds an upstream status into {400,401,403,404,409,500}.
func MapStatus(status int) int {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusConflict:
		return status
	}
	if status >= 400 && status < 500 {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// NewConfigError reports a missing webhook URL with a remediation hint naming key.
func NewConfigError(key string) *ProxyError {
	return &ProxyError{
		Kind:       KindConfiguration,
		Message:    "upstream webhook URL not configured",
		Details:    fmt.Sprintf("Please set %s in your .env file", key),
		MissingKey: key,
	}
}

// NewTransportError wraps a failure to reach the upstream.
func NewTransportError(err error) *ProxyError {
	return &ProxyError{
		Kind:    KindTransport,
		Message: "upstream webhook unreachable",
		Err:     err,
	}
}
