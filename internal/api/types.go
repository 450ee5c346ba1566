package api

import "time"

// TokenRequest represents the request payload for token issuance
type TokenRequest struct {
	Email  string `json:"email" validate:"required"`
	APIKey string `json:"api_key" validate:"required"`
}

// TokenResponse represents the response payload for token issuance
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// HealthResponse reports service liveness and load.
type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	ActiveSessions int    `json:"active_sessions"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
