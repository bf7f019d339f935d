package tts

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

// MockTextToSpeech is a placeholder implementation for text-to-speech.
// It speaks one word per WordInterval and sends silence as audio.
type MockTextToSpeech struct {
	logger       *zap.Logger
	WordInterval time.Duration
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{
		logger:       logger,
		WordInterval: 150 * time.Millisecond,
	}
}

// Speak implements repositories.TextToSpeech
func (t *MockTextToSpeech) Speak(ctx context.Context, text string) (repositories.SpeechStream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	t.logger.Info("Processing mock text-to-speech", zap.Int("textLength", len(text)))

	ctx, cancel := context.WithCancel(ctx)
	stream := &speechStream{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan repositories.SpeechEvent, 8),
	}

	go func() {
		defer close(stream.events)
		defer cancel()

		if !stream.emit(repositories.SpeechEvent{Kind: repositories.SpeechStarted}) {
			return
		}

		var words wordAligner
		for _, r := range words.feed(splitRunes(text)) {
			if !t.speakWord(stream, r) {
				return
			}
		}
		if r, ok := words.flush(); ok {
			if !t.speakWord(stream, r) {
				return
			}
		}

		stream.emit(repositories.SpeechEvent{Kind: repositories.SpeechDone})
	}()

	return stream, nil
}

func (t *MockTextToSpeech) speakWord(stream *speechStream, r repositories.SpeechEvent) bool {
	if !stream.emit(r) {
		return false
	}
	// 24kHz 16-bit silence, proportional to the word length
	silence := make([]byte, 4800*utf8.RuneCountInString(r.Text))
	if !stream.emit(repositories.SpeechEvent{Kind: repositories.SpeechAudio, Audio: silence}) {
		return false
	}

	if t.WordInterval > 0 {
		select {
		case <-time.After(t.WordInterval):
		case <-stream.ctx.Done():
			return false
		}
	}
	return true
}

func splitRunes(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}
