// ABOUTME: Auth request/response models for the session cookie BFF pattern
// ABOUTME: Defines login, register, logout and identity API contracts

package models

import "encoding/json"

// LoginRequest represents credentials for authentication
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login. The session token travels only
// in the cookie and has no field here.
type LoginResponse struct {
	OK        bool   `json:"ok"`
	Success   bool   `json:"success"`
	Action    string `json:"action"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// RegisterRequest represents a new family account
type RegisterRequest struct {
	FamilyName string `json:"familyName"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// RegisterResponse represents a successful registration
type RegisterResponse struct {
	Success bool            `json:"success"`
	User    json.RawMessage `json:"user,omitempty"`
	Message string          `json:"message,omitempty"`
}

// LogoutResponse is always successful; Warning notes an upstream problem.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Warning string `json:"warning,omitempty"`
}

// MeRequest is the optional body of POST /api/auth/me
type MeRequest struct {
	Token string `json:"token"`
}

// MeResponse represents the identity bound to the current session
type MeResponse struct {
	OK    bool            `json:"ok"`
	User  json.RawMessage `json:"user,omitempty"`
	Error string          `json:"error,omitempty"`
}
