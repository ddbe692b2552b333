// ABOUTME: Page routes served behind the auth gate
// ABOUTME: Reverse proxies to the frontend server, or serves a minimal built-in shell

package handlers

import (
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

//go:embed shell.html
var shellHTML string

var shellTemplate = template.Must(template.New("shell").Parse(shellHTML))

// shellPages maps page paths to titles for the built-in shell.
var shellPages = map[string]string{
	"/":          "FamQuest",
	"/login":     "Log in",
	"/register":  "Join the guild",
	"/dashboard": "Quest board",
}

// newFrontend returns the page handler: a reverse proxy when frontendURL is
// set (validated at config load), otherwise the built-in shell.
func newFrontend(frontendURL string) http.Handler {
	if frontendURL == "" {
		return http.HandlerFunc(serveShell)
	}

	target, err := url.Parse(frontendURL)
	if err != nil {
		slog.Error("Invalid frontend URL, serving built-in shell", "error", err)
		return http.HandlerFunc(serveShell)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("Frontend proxy failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Frontend unavailable", http.StatusBadGateway)
	}
	return proxy
}

// Frontend serves page routes. Unknown API paths get a JSON 404 rather than a page.
func (h *Handler) Frontend(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		h.writeError(w, "Not found", "", http.StatusNotFound)
		return
	}
	h.frontend.ServeHTTP(w, r)
}

func serveShell(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Path
	if strings.HasPrefix(page, "/dashboard/") {
		page = "/dashboard"
	}
	title, ok := shellPages[page]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := shellTemplate.Execute(w, struct{ Title, Path string }{title, r.URL.Path}); err != nil {
		slog.Error("Failed to render page shell", "error", err)
	}
}
