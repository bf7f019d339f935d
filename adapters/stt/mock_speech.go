package stt

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

// mockScript is revealed word by word as audio arrives
var mockScript = strings.Fields("Yesterday I go to the market and buy some vegetables")

// MockSpeechToText is a placeholder implementation for speech recognition
type MockSpeechToText struct {
	logger *zap.Logger
	// BytesPerWord controls how much audio reveals one more word of the script
	BytesPerWord int
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{
		logger:       logger,
		BytesPerWord: 3200,
	}
}

// Listen creates a new mock recognition stream
func (s *MockSpeechToText) Listen(ctx context.Context, config repositories.AudioConfig) (repositories.RecognitionStream, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	ctx, cancel := context.WithCancel(ctx)
	return &mockRecognitionStream{
		ctx:          ctx,
		cancel:       cancel,
		logger:       s.logger,
		bytesPerWord: max(1, s.BytesPerWord),
		events:       make(chan repositories.RecognitionEvent, len(mockScript)+2),
	}, nil
}

type mockRecognitionStream struct {
	ctx          context.Context
	cancel       context.CancelFunc
	logger       *zap.Logger
	bytesPerWord int
	events       chan repositories.RecognitionEvent

	mu       sync.Mutex
	received int
	words    int
	closed   bool
}

func (m *mockRecognitionStream) Events() <-chan repositories.RecognitionEvent {
	return m.events
}

// Write reveals more of the script, emitting a partial per new word
func (m *mockRecognitionStream) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("recognition stream already stopped")
	}

	m.received += len(data)
	words := min(len(mockScript), m.received/m.bytesPerWord)
	if words > m.words {
		m.words = words
		m.send(repositories.RecognitionEvent{
			Kind: repositories.RecognitionPartial,
			Text: strings.Join(mockScript[:words], " "),
		})
	}
	return nil
}

func (m *mockRecognitionStream) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.logger.Info("Ending mock transcription stream", zap.Int("words", m.words))
	if m.words == 0 {
		m.send(repositories.RecognitionEvent{Kind: repositories.RecognitionError, Err: errors.New("no speech detected in audio")})
	} else {
		m.send(repositories.RecognitionEvent{Kind: repositories.RecognitionFinal, Text: strings.Join(mockScript[:m.words], " ")})
	}
	m.closeLocked()
	return nil
}

func (m *mockRecognitionStream) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel()
	m.closeLocked()
}

func (m *mockRecognitionStream) send(event repositories.RecognitionEvent) {
	select {
	case m.events <- event:
	case <-m.ctx.Done():
	}
}

func (m *mockRecognitionStream) closeLocked() {
	if !m.closed {
		m.closed = true
		close(m.events)
	}
}
