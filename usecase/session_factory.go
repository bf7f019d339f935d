package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

// SessionFactory wires the shared adapters into per-screen services. Each
// session gets its own chat history and its own player.
type SessionFactory struct {
	Settings     *SettingsService
	SpeechToText repositories.SpeechToText
	TextToSpeech repositories.TextToSpeech
	Recorder     repositories.Recorder
	NewPlayer    func() repositories.Player
	Transcripts  repositories.TranscriptRepository
	AudioConfig  repositories.AudioConfig
	Logger       *zap.Logger
}

func (f *SessionFactory) deps(ctx context.Context, clientID string, sink Sink) (SessionDeps, error) {
	chat, err := f.Settings.OpenChat(ctx, clientID)
	if err != nil {
		return SessionDeps{}, err
	}

	deps := SessionDeps{
		ClientID:     clientID,
		Chat:         chat,
		SpeechToText: f.SpeechToText,
		TextToSpeech: f.TextToSpeech,
		Recorder:     f.Recorder,
		Transcripts:  f.Transcripts,
		AudioConfig:  f.AudioConfig,
		Sink:         sink,
		Logger:       f.Logger,
	}
	if f.NewPlayer != nil {
		deps.Player = f.NewPlayer()
	}
	return deps, nil
}

// NewConversation creates a conversation session for the client
func (f *SessionFactory) NewConversation(ctx context.Context, clientID string, sink Sink) (*ConversationService, error) {
	deps, err := f.deps(ctx, clientID, sink)
	if err != nil {
		return nil, err
	}
	return NewConversationService(deps), nil
}

// NewPractice creates a record-and-playback session for the client
func (f *SessionFactory) NewPractice(ctx context.Context, clientID string, sink Sink) (*PracticeService, error) {
	deps, err := f.deps(ctx, clientID, sink)
	if err != nil {
		return nil, err
	}
	return NewPracticeService(deps), nil
}
