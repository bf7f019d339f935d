package repositories

import (
	"context"

	"github.com/satriahrh/fluenty/server/domain/entities"
)

// Recorder persists captured audio into files
type Recorder interface {
	Start(ctx context.Context) (RecordingSession, error)
}

// RecordingSession is one in-progress recording
type RecordingSession interface {
	Write(audio []byte) error
	// Stop finalizes the file and returns its description
	Stop() (entities.Recording, error)
	// Cancel discards the file
	Cancel()
}

// Player plays at most one recording at a time
type Player interface {
	// Play stops any playback in progress and starts the given file
	Play(ctx context.Context, path string) (PlaybackStream, error)
}

// PlaybackEventKind identifies playback progress callbacks
type PlaybackEventKind string

const (
	PlaybackStarted PlaybackEventKind = "started"
	PlaybackAudio   PlaybackEventKind = "audio"
	PlaybackDone    PlaybackEventKind = "done"
	PlaybackError   PlaybackEventKind = "error"
)

// PlaybackEvent is a single player callback
type PlaybackEvent struct {
	Kind  PlaybackEventKind
	Audio []byte
	Err   error
}

// PlaybackStream is one playback. Events is closed after done, error or Stop.
type PlaybackStream interface {
	Events() <-chan PlaybackEvent
	Stop()
}
