package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/usecase"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client commands
const (
	MessageTypeStartListening  MessageType = "start_listening"
	MessageTypeStopListening   MessageType = "stop_listening"
	MessageTypeResend          MessageType = "resend"
	MessageTypeStartRecording  MessageType = "start_recording"
	MessageTypeStopRecording   MessageType = "stop_recording"
	MessageTypeCancelRecording MessageType = "cancel_recording"
	MessageTypePlayRecording   MessageType = "play_recording"
	MessageTypeStopPlayback    MessageType = "stop_playback"
	MessageTypePing            MessageType = "ping"
)

// Server messages
const (
	MessageTypeScreen       MessageType = "screen"
	MessageTypeNotification MessageType = "notification"
	MessageTypePong         MessageType = "pong"
	MessageTypeError        MessageType = "error"
)

var modeCommands = map[entities.Mode]map[MessageType]bool{
	entities.ModeConversation: {
		MessageTypeStartListening: true,
		MessageTypeStopListening:  true,
		MessageTypeResend:         true,
		MessageTypePing:           true,
	},
	entities.ModePractice: {
		MessageTypeStartRecording:  true,
		MessageTypeStopRecording:   true,
		MessageTypeCancelRecording: true,
		MessageTypeResend:          true,
		MessageTypePlayRecording:   true,
		MessageTypeStopPlayback:    true,
		MessageTypePing:            true,
	},
}

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// CommandMessage is a client intent. MessageID is only used by play_recording.
type CommandMessage struct {
	BaseMessage
	MessageID string `json:"message_id,omitempty"`
	Data      string `json:"data,omitempty"`
}

// ScreenMessage carries a full screen snapshot
type ScreenMessage struct {
	BaseMessage
	Screen usecase.Screen `json:"screen"`
}

// NotificationMessage is a one-shot message for a toast
type NotificationMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// ParseCommand decodes and validates a client command for the given mode
func ParseCommand(mode entities.Mode, data []byte) (*CommandMessage, error) {
	var msg CommandMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message type is required")
	}
	if !modeCommands[mode][msg.Type] {
		return nil, fmt.Errorf("unsupported message type for %s: %s", mode, msg.Type)
	}
	if msg.Type == MessageTypePlayRecording && msg.MessageID == "" {
		return nil, fmt.Errorf("message_id is required")
	}
	return &msg, nil
}

func newBase(messageType MessageType) BaseMessage {
	return BaseMessage{
		Type:      messageType,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// CreateScreenMessage wraps a screen snapshot
func CreateScreenMessage(screen usecase.Screen) *ScreenMessage {
	return &ScreenMessage{BaseMessage: newBase(MessageTypeScreen), Screen: screen}
}

// CreateNotificationMessage creates a one-shot notification
func CreateNotificationMessage(message string) *NotificationMessage {
	return &NotificationMessage{BaseMessage: newBase(MessageTypeNotification), Message: message}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{BaseMessage: newBase(MessageTypeError), Code: code, Message: message}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{BaseMessage: newBase(MessageTypePong), Data: data}
}
