package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Listen opens a recognition stream. Audio is pushed with Write and
	// results arrive on the stream's Events channel.
	Listen(ctx context.Context, config AudioConfig) (RecognitionStream, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// RecognitionEventKind tells partial, final and failed results apart
type RecognitionEventKind string

const (
	RecognitionPartial RecognitionEventKind = "partial"
	RecognitionFinal   RecognitionEventKind = "final"
	RecognitionError   RecognitionEventKind = "error"
)

// RecognitionEvent is a single recognizer callback
type RecognitionEvent struct {
	Kind RecognitionEventKind
	Text string
	Err  error
}

// RecognitionStream is a single recognition attempt. The Events channel is
// closed after a final or error event, or after Cancel.
type RecognitionStream interface {
	Write(audio []byte) error
	// Stop marks the end of audio input; a final event follows.
	Stop() error
	// Cancel aborts recognition and releases the underlying resources.
	Cancel()
	Events() <-chan RecognitionEvent
}
