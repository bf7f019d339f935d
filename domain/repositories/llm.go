package repositories

import "context"

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// GenerateChat creates a chat session with an empty history
	GenerateChat(ctx context.Context, config ChatConfig) (ChatSession, error)
}

// ChatConfig carries per-session credentials and model selection.
// Empty fields fall back to the provider defaults.
type ChatConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
}

// ChatSession represents an ongoing conversation session. The history is
// kept in memory for the lifetime of the session and the user turn is
// recorded before the provider is called.
type ChatSession interface {
	SendMessage(ctx context.Context, message ChatMessage) (ChatMessage, error)
	History() ([]ChatMessage, error)
}

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Audio    []byte `json:"-"`
	MimeType string `json:"mime_type,omitempty"`
}

// Role defines the type of message sender
type Role string

const (
	UserRole  Role = "user"
	TutorRole Role = "tutor"
)
