package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Transcript is an archived, completed turn
type Transcript struct {
	ID            string    `json:"id" bson:"_id"`
	ClientID      string    `json:"client_id" bson:"client_id"`
	Mode          Mode      `json:"mode" bson:"mode"`
	UserText      string    `json:"user_text" bson:"user_text"`
	AssistantText string    `json:"assistant_text" bson:"assistant_text"`
	RecordingPath string    `json:"recording_path,omitempty" bson:"recording_path,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// NewTranscript creates a transcript for a finished turn
func NewTranscript(clientID string, mode Mode, userText, assistantText string) *Transcript {
	return &Transcript{
		ID:            uuid.New().String(),
		ClientID:      clientID,
		Mode:          mode,
		UserText:      userText,
		AssistantText: assistantText,
		CreatedAt:     time.Now(),
	}
}

// Validate validates the transcript data
func (t *Transcript) Validate() error {
	if t.ClientID == "" {
		return errors.New("client_id is required")
	}
	if t.Mode != ModeConversation && t.Mode != ModePractice {
		return errors.New("invalid mode")
	}
	if t.AssistantText == "" {
		return errors.New("assistant_text is required")
	}
	return nil
}
