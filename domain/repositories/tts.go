package repositories

import "context"

type TextToSpeech interface {
	Speak(ctx context.Context, text string) (SpeechStream, error)
}

// SpeechEventKind identifies utterance progress callbacks
type SpeechEventKind string

const (
	SpeechStarted SpeechEventKind = "started"
	SpeechRange   SpeechEventKind = "range"
	SpeechAudio   SpeechEventKind = "audio"
	SpeechDone    SpeechEventKind = "done"
	SpeechError   SpeechEventKind = "error"
)

// SpeechEvent is a single synthesis callback. Range events carry the rune
// offsets and the text of the fragment about to be spoken.
type SpeechEvent struct {
	Kind  SpeechEventKind
	Start int
	End   int
	Text  string
	Audio []byte
	Err   error
}

// SpeechStream is one utterance. Events is closed after done, error or Cancel.
type SpeechStream interface {
	Events() <-chan SpeechEvent
	Cancel()
}
