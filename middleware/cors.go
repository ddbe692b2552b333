// ABOUTME: CORS middleware for API cross-origin requests
// ABOUTME: Echoes whitelisted origins with credentials and answers preflight requests

package middleware

import (
	"net/http"
	"slices"
)

// CORSWithConfig returns middleware that allows credentialed cross-origin
// requests from allowedOrigins only. A wildcard is never emitted: the session
// cookie rides on these requests. OPTIONS preflight requests return 204 without
// calling the wrapped handler.
func CORSWithConfig(allowedOrigins []string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
			}

			if origin != "" && slices.Contains(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next(w, r)
		}
	}
}
