package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
	"github.com/satriahrh/fluenty/server/internal/errx"
)

// ErrNotConfigured is returned when a session is opened without an API key
var ErrNotConfigured = errors.New("api key not configured")

// NotConfiguredMessage asks the user to finish setup
const NotConfiguredMessage = "Please add your Gemini API key in settings"

// HomeStatus tells the client which practice modes are ready
type HomeStatus struct {
	Configured bool            `json:"configured"`
	Model      string          `json:"model"`
	Modes      []entities.Mode `json:"modes"`
}

// SettingsService reads and writes the per-client credential and model
type SettingsService struct {
	store         repositories.SettingsStore
	llm           repositories.LargeLanguageModel
	defaultAPIKey string
	defaultModel  string
	logger        *zap.Logger
}

// NewSettingsService creates a new settings service. defaultAPIKey and
// defaultModel apply until a client saves values of their own.
func NewSettingsService(
	store repositories.SettingsStore,
	llm repositories.LargeLanguageModel,
	defaultAPIKey string,
	defaultModel string,
	logger *zap.Logger,
) *SettingsService {
	if defaultModel == "" {
		defaultModel = entities.DefaultModel
	}
	return &SettingsService{
		store:         store,
		llm:           llm,
		defaultAPIKey: defaultAPIKey,
		defaultModel:  defaultModel,
		logger:        logger,
	}
}

// Load returns the client's settings with defaults filled in
func (s *SettingsService) Load(ctx context.Context, clientID string) (entities.Settings, error) {
	settings := entities.Settings{
		APIKey: s.defaultAPIKey,
		Model:  s.defaultModel,
	}

	apiKey, err := s.get(ctx, clientID, entities.SettingsKeyAPIKey)
	if err != nil {
		return entities.Settings{}, err
	}
	if apiKey != "" {
		settings.APIKey = apiKey
	}

	model, err := s.get(ctx, clientID, entities.SettingsKeyModel)
	if err != nil {
		return entities.Settings{}, err
	}
	if model != "" {
		settings.Model = model
	}

	return settings, nil
}

func (s *SettingsService) get(ctx context.Context, clientID, key string) (string, error) {
	value, err := s.store.Get(ctx, clientID, key)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		s.logger.Error("Failed to read setting", zap.String("clientID", clientID), zap.String("key", key), zap.Error(err))
		return "", errx.WrapStore(err)
	}
	return value, nil
}

// SaveAPIKey stores the client's Gemini API key
func (s *SettingsService) SaveAPIKey(ctx context.Context, clientID, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errx.BadRequest(errors.New("api key is required"))
	}

	if err := s.store.Set(ctx, clientID, entities.SettingsKeyAPIKey, apiKey); err != nil {
		s.logger.Error("Failed to save API key", zap.String("clientID", clientID), zap.Error(err))
		return errx.WrapStore(err)
	}
	s.logger.Info("API key saved", zap.String("clientID", clientID))
	return nil
}

// SaveModel stores the client's model selection
func (s *SettingsService) SaveModel(ctx context.Context, clientID, model string) error {
	if err := entities.ValidateModel(model); err != nil {
		return errx.BadRequest(err)
	}

	if err := s.store.Set(ctx, clientID, entities.SettingsKeyModel, model); err != nil {
		s.logger.Error("Failed to save model", zap.String("clientID", clientID), zap.Error(err))
		return errx.WrapStore(err)
	}
	s.logger.Info("Model saved", zap.String("clientID", clientID), zap.String("model", model))
	return nil
}

// Home reports whether the practice modes can be used
func (s *SettingsService) Home(ctx context.Context, clientID string) (HomeStatus, error) {
	settings, err := s.Load(ctx, clientID)
	if err != nil {
		return HomeStatus{}, err
	}

	status := HomeStatus{
		Configured: settings.IsConfigured(),
		Model:      settings.Model,
		Modes:      []entities.Mode{},
	}
	if status.Configured {
		status.Modes = []entities.Mode{entities.ModeConversation, entities.ModePractice}
	}
	return status, nil
}

// AvailableModels lists the selectable models
func (s *SettingsService) AvailableModels() []string {
	models := make([]string, len(entities.AvailableModels))
	copy(models, entities.AvailableModels)
	return models
}

// OpenChat creates a chat session using the client's settings
func (s *SettingsService) OpenChat(ctx context.Context, clientID string) (repositories.ChatSession, error) {
	settings, err := s.Load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !settings.IsConfigured() {
		return nil, errx.New(ErrNotConfigured, http.StatusPreconditionFailed, NotConfiguredMessage)
	}

	return s.llm.GenerateChat(ctx, repositories.ChatConfig{
		APIKey: settings.APIKey,
		Model:  settings.Model,
	})
}
