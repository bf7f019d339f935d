package llm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

// MockGeminiClient answers without calling any cloud API
type MockGeminiClient struct {
	logger *zap.Logger
}

// NewMockGeminiClient creates a new mock Gemini client
func NewMockGeminiClient(logger *zap.Logger) *MockGeminiClient {
	return &MockGeminiClient{logger: logger}
}

// GenerateChat implements repositories.LargeLanguageModel
func (g *MockGeminiClient) GenerateChat(ctx context.Context, config repositories.ChatConfig) (repositories.ChatSession, error) {
	g.logger.Info("Creating mock chat session", zap.String("model", config.Model))
	return &MockGeminiChatSession{}, nil
}

// MockGeminiChatSession implements repositories.ChatSession
type MockGeminiChatSession struct {
	mu      sync.Mutex
	history []repositories.ChatMessage
}

// SendMessage implements repositories.ChatSession
func (g *MockGeminiChatSession) SendMessage(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.history = append(g.history, message)

	var response string
	switch {
	case len(message.Audio) > 0:
		response = "Your pronunciation was clear. Try to stress the second syllable a little more."
	case len(g.history) == 1:
		response = "Hello! What did you do today?"
	default:
		response = fmt.Sprintf("You said: %s. That sounds good! Can you tell me more?", message.Content)
	}

	responseMessage := repositories.ChatMessage{
		Role:    repositories.TutorRole,
		Content: response,
	}
	g.history = append(g.history, responseMessage)

	return responseMessage, nil
}

// History implements repositories.ChatSession
func (g *MockGeminiChatSession) History() ([]repositories.ChatMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]repositories.ChatMessage, len(g.history))
	copy(out, g.history)
	return out, nil
}
