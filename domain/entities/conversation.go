package entities

import (
	"time"

	"github.com/google/uuid"
)

// Mode identifies which practice screen a message list belongs to
type Mode string

const (
	ModeConversation Mode = "conversation"
	ModePractice     Mode = "practice"
)

// ConversationState is the turn-taking state of a live conversation
type ConversationState string

const (
	StateIdle              ConversationState = "idle"
	StateListeningToUser   ConversationState = "listening_to_user"
	StateProcessingRequest ConversationState = "processing_request"
	StateSpeakingResponse  ConversationState = "speaking_response"
	StateRecoverableError  ConversationState = "recoverable_error"
)

// CanStartListening reports whether a new speech turn may begin
func (s ConversationState) CanStartListening() bool {
	return s == StateIdle || s == StateRecoverableError
}

// ConversationMessage is one bubble on a practice screen
type ConversationMessage struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	IsUser     bool      `json:"is_user"`
	IsError    bool      `json:"is_error"`
	IsEditable bool      `json:"is_editable"`
	AudioPath  string    `json:"audio_path,omitempty"`
	IsPlaying  bool      `json:"is_playing"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUserMessage creates an in-progress user message
func NewUserMessage(text string) ConversationMessage {
	return ConversationMessage{
		ID:         uuid.New().String(),
		Text:       text,
		IsUser:     true,
		IsEditable: true,
		CreatedAt:  time.Now(),
	}
}

// NewAssistantMessage creates an empty tutor placeholder
func NewAssistantMessage() ConversationMessage {
	return ConversationMessage{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
}

// MessageList is an append-only list of messages. Only the last element may
// be changed in place, and only the last element may be removed.
type MessageList struct {
	messages []ConversationMessage
}

// Len returns the number of messages
func (l *MessageList) Len() int {
	return len(l.messages)
}

// Append adds a message to the end of the list
func (l *MessageList) Append(msg ConversationMessage) {
	l.messages = append(l.messages, msg)
}

// Last returns a copy of the last message
func (l *MessageList) Last() (ConversationMessage, bool) {
	if len(l.messages) == 0 {
		return ConversationMessage{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// UpdateLast mutates the last message in place
func (l *MessageList) UpdateLast(fn func(msg *ConversationMessage)) bool {
	if len(l.messages) == 0 {
		return false
	}
	fn(&l.messages[len(l.messages)-1])
	return true
}

// RemoveLast drops the last message
func (l *MessageList) RemoveLast() bool {
	if len(l.messages) == 0 {
		return false
	}
	l.messages = l.messages[:len(l.messages)-1]
	return true
}

// Find returns the message with the given id
func (l *MessageList) Find(id string) (ConversationMessage, bool) {
	for _, msg := range l.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return ConversationMessage{}, false
}

// SetPlaying marks the message with the given id as the only one playing.
// The playing flag is presentation state and may change on any message.
func (l *MessageList) SetPlaying(id string) {
	for i := range l.messages {
		l.messages[i].IsPlaying = l.messages[i].ID == id
	}
}

// ClearPlaying resets the playing flag on every message
func (l *MessageList) ClearPlaying() {
	l.SetPlaying("")
}

// Snapshot returns a copy safe to hand to other goroutines
func (l *MessageList) Snapshot() []ConversationMessage {
	out := make([]ConversationMessage, len(l.messages))
	copy(out, l.messages)
	return out
}
