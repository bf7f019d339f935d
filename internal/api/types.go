package api

import (
	"time"

	"github.com/satriahrh/fluenty/server/domain/entities"
)

// RegisterResponse is returned when a new app install registers
type RegisterResponse struct {
	ClientID  string    `json:"client_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SettingsResponse shows the saved settings with the API key masked
type SettingsResponse struct {
	Configured bool   `json:"configured"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
}

// SaveAPIKeyRequest represents the request payload for saving an API key
type SaveAPIKeyRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// SaveModelRequest represents the request payload for selecting a model
type SaveModelRequest struct {
	Model string `json:"model" validate:"required"`
}

// ModelsResponse lists the selectable models
type ModelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// TranscriptsResponse lists archived turns, newest first
type TranscriptsResponse struct {
	Transcripts []*entities.Transcript `json:"transcripts"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
