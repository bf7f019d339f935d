package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const (
	intentBuffer   = 64
	archiveTimeout = 5 * time.Second

	// SpeechFailedMessage is shown when the tutor reply cannot be spoken
	SpeechFailedMessage = "Something went wrong while using TextToSpeech"
)

// Screen is a snapshot of what a client should display
type Screen struct {
	Mode     entities.Mode                  `json:"mode"`
	State    string                         `json:"state"`
	Playback entities.PlaybackState         `json:"playback,omitempty"`
	Messages []entities.ConversationMessage `json:"messages"`
}

// Sink receives everything a session produces. Implementations must not
// block; they are called from the session loop.
type Sink interface {
	// Render publishes the current screen
	Render(screen Screen)
	// Notify delivers a one-shot message that is not kept in the screen
	Notify(message string)
	// Audio delivers synthesized speech or recording playback
	Audio(chunk []byte)
}

// SessionDeps are the collaborators owned by one screen session
type SessionDeps struct {
	ClientID     string
	Chat         repositories.ChatSession
	SpeechToText repositories.SpeechToText
	TextToSpeech repositories.TextToSpeech
	Recorder     repositories.Recorder
	Player       repositories.Player
	Transcripts  repositories.TranscriptRepository
	AudioConfig  repositories.AudioConfig
	Sink         Sink
	Logger       *zap.Logger
}

type chatResult struct {
	reply repositories.ChatMessage
	err   error
}

// sendChat runs one chat request and delivers its result to replies
func sendChat(ctx context.Context, chat repositories.ChatSession, message repositories.ChatMessage, replies chan<- chatResult) {
	reply, err := chat.SendMessage(ctx, message)
	select {
	case replies <- chatResult{reply: reply, err: err}:
	case <-ctx.Done():
	}
}

// archive stores a finished turn without blocking the session loop
func archive(ctx context.Context, deps SessionDeps, transcript *entities.Transcript) {
	if deps.Transcripts == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()

		if err := deps.Transcripts.Save(ctx, transcript); err != nil {
			deps.Logger.Error("Failed to archive transcript",
				zap.String("clientID", transcript.ClientID),
				zap.Error(err))
		}
	}()
}
