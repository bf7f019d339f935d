package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response")

// GeminiChatSession implements the ChatSession interface
type GeminiChatSession struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	topP            float32
	topK            float32
	maxOutputTokens int
	systemPrompt    string

	mu      sync.Mutex
	history []*genai.Content
}

var _ repositories.ChatSession = (*GeminiChatSession)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	// Gemini accepts temperatures up to 2
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}

	if config.TopP < 0 || config.TopP > 1 {
		return fmt.Errorf("topP must be between 0 and 1, got %f", config.TopP)
	}

	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}

	return nil
}

// NewGeminiChatSession creates a new chat session with an empty history
func NewGeminiChatSession(client *genai.Client, config GeminiConfig, logger *zap.Logger) (*GeminiChatSession, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = float32(defaultTemperature)
		logger.Debug("Using default temperature", zap.Float32("temperature", temperature))
	}

	topP := config.TopP
	if topP == 0 {
		topP = float32(defaultTopP)
		logger.Debug("Using default topP", zap.Float32("topP", topP))
	}

	topK := config.TopK
	if topK == 0 {
		topK = float32(defaultTopK)
		logger.Debug("Using default topK", zap.Float32("topK", topK))
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
		logger.Debug("Using default maxOutputTokens", zap.Int("maxOutputTokens", maxOutputTokens))
	}

	systemPrompt := config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = TutorPrompt
	}

	return &GeminiChatSession{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		topP:            topP,
		topK:            topK,
		maxOutputTokens: maxOutputTokens,
		systemPrompt:    systemPrompt,
	}, nil
}

// SendMessage records the user turn, calls the model and records the reply.
// A failed call leaves the user turn in the history.
func (s *GeminiChatSession) SendMessage(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	userContent := toGeminiContent(message)

	s.mu.Lock()
	s.history = append(s.history, userContent)
	contents := make([]*genai.Content, len(s.history))
	copy(contents, s.history)
	s.mu.Unlock()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(s.systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(s.temperature),
		TopP:              genai.Ptr(s.topP),
		TopK:              genai.Ptr(s.topK),
		MaxOutputTokens:   int32(s.maxOutputTokens),
		ResponseMIMEType:  defaultResponseMIMEType,
	}

	response, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		s.logger.Error("Failed to send message in chat session", zap.String("model", s.model), zap.Error(err))
		return repositories.ChatMessage{}, fmt.Errorf("generate content: %w", err)
	}

	responseText := extractText(response)
	if responseText == "" {
		s.logger.Warn("Empty response in chat session", zap.String("model", s.model))
		return repositories.ChatMessage{}, ErrEmptyResponse
	}

	s.mu.Lock()
	s.history = append(s.history, genai.NewContentFromText(responseText, genai.RoleModel))
	historyLength := len(s.history)
	s.mu.Unlock()

	s.logger.Info("Chat session message processed",
		zap.String("user_message", preview(message.Content)),
		zap.Bool("has_audio", len(message.Audio) > 0),
		zap.String("response_preview", preview(responseText)),
		zap.Int("history_length", historyLength))

	return repositories.ChatMessage{
		Role:    repositories.TutorRole,
		Content: responseText,
	}, nil
}

// History returns the current conversation history
func (s *GeminiChatSession) History() ([]repositories.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return convertGeminiToRepositoryFormat(s.history), nil
}

func extractText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text += part.Text
		}
	}
	return text
}

// preview returns at most the first 50 runes of text
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= 50 {
		return text
	}
	return string(runes[:50])
}

// toGeminiContent converts a repository message to Gemini format. Audio is
// sent as an inline blob followed by the text instruction.
func toGeminiContent(message repositories.ChatMessage) *genai.Content {
	role := genai.Role(genai.RoleUser)
	if message.Role == repositories.TutorRole {
		role = genai.RoleModel
	}

	var parts []*genai.Part
	if len(message.Audio) > 0 {
		parts = append(parts, genai.NewPartFromBytes(message.Audio, message.MimeType))
	}
	if message.Content != "" {
		parts = append(parts, genai.NewPartFromText(message.Content))
	}
	return genai.NewContentFromParts(parts, role)
}

// convertGeminiToRepositoryFormat converts Gemini content to repository messages
func convertGeminiToRepositoryFormat(contents []*genai.Content) []repositories.ChatMessage {
	var messages []repositories.ChatMessage

	for _, content := range contents {
		role := repositories.UserRole
		if content.Role == string(genai.RoleModel) {
			role = repositories.TutorRole
		}

		message := repositories.ChatMessage{Role: role}
		for _, part := range content.Parts {
			if part.Text != "" {
				message.Content += part.Text
			}
			if part.InlineData != nil {
				message.Audio = part.InlineData.Data
				message.MimeType = part.InlineData.MIMEType
			}
		}

		if message.Content != "" || len(message.Audio) > 0 {
			messages = append(messages, message)
		}
	}

	return messages
}
