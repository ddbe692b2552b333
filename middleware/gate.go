// ABOUTME: Auth gate for protected page routes
// ABOUTME: Redirects to the login page when the session cookie is absent; presence only, no validation

package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/famquest/gateway/metrics"
	"github.com/famquest/gateway/services"
)

// NextParam is the query parameter carrying the originally requested path.
const NextParam = "next"

// GateConfig configures AuthGate.
type GateConfig struct {
	ProtectedPrefixes []string
	LoginPath         string
}

// IsProtected reports whether path equals a prefix or lies beneath one.
// "/dashboardx" is not under "/dashboard".
func IsProtected(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// AuthGate returns middleware that sends cookie-less requests for protected
// paths to the login page with a return path. Unprotected paths pass through
// without their cookies being read. Token validity is left to the first data
// fetch the page makes.
func AuthGate(cfg GateConfig) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !IsProtected(cfg.ProtectedPrefixes, r.URL.Path) {
				next(w, r)
				return
			}

			if _, ok := services.ReadSessionToken(r); ok {
				next(w, r)
				return
			}

			target := cfg.LoginPath + "?" + url.Values{NextParam: {r.URL.Path}}.Encode()
			slog.Debug("Auth gate redirect", "path", sanitizePath(r.URL.Path))
			metrics.GateRedirects.Inc()
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		}
	}
}
