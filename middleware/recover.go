// ABOUTME: Panic recovery middleware
// ABOUTME: Converts a handler panic into a logged JSON 500 instead of a dropped connection

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recover turns panics into a JSON 500. If the handler already started the
// response, the status cannot change and the panic is only logged.
func Recover(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped := wrapResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("Handler panic",
				"request_id", RequestIDFrom(r.Context()),
				"path", sanitizePath(r.URL.Path),
				"panic", rec,
				"stack", string(debug.Stack()),
			)

			if !wrapped.wroteHeader {
				writeJSONError(wrapped, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
			}
		}()

		next(wrapped, r)
	}
}
