// ABOUTME: Declarative route table for API endpoints
// ABOUTME: Defines all routes with their HTTP methods, handlers and rate limit tiers

package handlers

import "net/http"

// RateTier selects the rate limiter applied to a route.
type RateTier string

const (
	RateTierNone RateTier = ""
	RateTierAuth RateTier = "auth" // credential submission
)

// Route defines an API endpoint with its HTTP method and handler.
type Route struct {
	Method    string           // HTTP method (GET, POST, etc.)
	Path      string           // URL path (e.g., "/api/health")
	Handler   http.HandlerFunc // Handler function
	RateLimit RateTier         // Rate limit tier (none by default)
}

// Routes returns all API routes for registration.
func (h *Handler) Routes() []Route {
	return []Route{
		// Health & Documentation
		{Method: http.MethodGet, Path: "/api/health", Handler: h.Health},
		{Method: http.MethodGet, Path: "/api/openapi.yaml", Handler: h.OpenAPISpec},

		// Auth
		{Method: http.MethodPost, Path: "/api/auth/login", Handler: h.Login, RateLimit: RateTierAuth},
		{Method: http.MethodPost, Path: "/api/auth/register", Handler: h.Register, RateLimit: RateTierAuth},
		{Method: http.MethodPost, Path: "/api/auth/logout", Handler: h.Logout},
		{Method: http.MethodGet, Path: "/api/auth/me", Handler: h.Me},
		{Method: http.MethodPost, Path: "/api/auth/me", Handler: h.MePost},

		// Quests
		{Method: http.MethodGet, Path: "/api/quests", Handler: h.ListQuests},
		{Method: http.MethodPost, Path: "/api/quests/accept", Handler: h.AcceptQuest},
		{Method: http.MethodPost, Path: "/api/quests/assign", Handler: h.AssignQuest},
		{Method: http.MethodPost, Path: "/api/microsteps/toggle", Handler: h.ToggleMicrostep},

		// Boss & Guild Master
		{Method: http.MethodGet, Path: "/api/boss", Handler: h.GetBoss},
		{Method: http.MethodPost, Path: "/api/orchestrator", Handler: h.Orchestrator},
		{Method: http.MethodPost, Path: "/api/guildmaster/intro", Handler: h.GuildmasterIntro},
	}
}
