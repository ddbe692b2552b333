// ABOUTME: Handler for serving OpenAPI specification
// ABOUTME: Embeds openapi.yaml at compile time; converts to JSON on request

package handlers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiSpec []byte

var openapiJSON = sync.OnceValues(func() ([]byte, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(openapiSpec, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse embedded OpenAPI document: %w", err)
	}
	return json.Marshal(doc)
})

// OpenAPISpec serves the embedded OpenAPI document as YAML, or as JSON when
// asked with ?format=json or Accept: application/json.
func (h *Handler) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		body, err := openapiJSON()
		if err != nil {
			slog.Error("OpenAPI conversion failed", "error", err)
			h.writeError(w, "OpenAPI document unavailable", "", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Write(openapiSpec)
}
