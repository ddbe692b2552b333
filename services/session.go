// ABOUTME: Session cookie management for the BFF pattern
// ABOUTME: Issues, reads and revokes the opaque famquest_token cookie; the server keeps no session table

package services

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the upstream-issued session token.
const SessionCookieName = "famquest_token"

// sessionCookiePath must stay "/": the auth gate runs ahead of route dispatch and
// only sees cookies scoped to every path.
const sessionCookiePath = "/"

// Session is the client-held credential. Token is opaque and never parsed here.
type Session struct {
	Token     string
	ExpiresAt *time.Time // nil means a browser-session cookie
}

// LogoutResult separates the guaranteed local effect from the best-effort upstream one.
type LogoutResult struct {
	LocalCleared         bool
	UpstreamAcknowledged bool
	Warning              string
}

// SessionManager reads and writes the session cookie on a single request/response pair.
type SessionManager struct {
	secure bool
}

// NewSessionManager creates a manager. secure sets the cookie's Secure flag
// (production deployments only; browsers drop Secure cookies on plain-http localhost).
func NewSessionManager(secure bool) *SessionManager {
	return &SessionManager{secure: secure}
}

// Issue sets the session cookie on w.
func (m *SessionManager) Issue(w http.ResponseWriter, s Session) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.Token,
		Path:     sessionCookiePath,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.ExpiresAt != nil {
		cookie.Expires = s.ExpiresAt.UTC()
	}
	http.SetCookie(w, cookie)
}

// Read returns the session token from r. An empty cookie counts as absent.
func (m *SessionManager) Read(r *http.Request) (string, bool) {
	return ReadSessionToken(r)
}

// Revoke deletes the session cookie unconditionally.
func (m *SessionManager) Revoke(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     sessionCookiePath,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// ReadSessionToken reads the session cookie without a manager (used by middleware).
func ReadSessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// expiryLayouts are the timestamp shapes upstream workflows have produced.
var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseExpiry parses an upstream expiry timestamp. Zone-less values are UTC.
// An empty string yields (nil, nil): no expiry, session cookie.
func ParseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized expiry timestamp %q", s)
}
