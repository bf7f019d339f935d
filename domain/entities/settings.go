package entities

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Keys used in the encrypted settings store
const (
	SettingsKeyAPIKey = "API_KEY"
	SettingsKeyModel  = "MODEL"
)

// AvailableModels lists the models a client may pick. The first entry is the default.
var AvailableModels = []string{
	"gemini-1.5-pro-002",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
	"gemini-1.5-flash-002",
	"gemini-1.5-flash-8b",
	"gemini-exp-1114",
	"gemini-1.0-pro",
}

// DefaultModel is used until a client saves a model of their own
var DefaultModel = AvailableModels[0]

// Settings holds the per-install credential and model selection
type Settings struct {
	APIKey string `json:"-"`
	Model  string `json:"model"`
}

// IsConfigured reports whether an API key has been saved
func (s Settings) IsConfigured() bool {
	return s.APIKey != ""
}

// MaskedAPIKey hides all but the last four characters of the key
func (s Settings) MaskedAPIKey() string {
	if len(s.APIKey) <= 4 {
		return strings.Repeat("*", len(s.APIKey))
	}
	return strings.Repeat("*", len(s.APIKey)-4) + s.APIKey[len(s.APIKey)-4:]
}

// ValidateModel checks the model against AvailableModels
func ValidateModel(model string) error {
	if model == "" {
		return errors.New("model is required")
	}
	if !slices.Contains(AvailableModels, model) {
		return fmt.Errorf("model %q is not available", model)
	}
	return nil
}
