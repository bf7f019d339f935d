package entities

import "time"

// PracticeState is the state of the record-and-playback practice screen
type PracticeState string

const (
	PracticeInitial             PracticeState = "initial"
	PracticeRecordingAudio      PracticeState = "recording_audio"
	PracticeProcessingRecording PracticeState = "processing_recording"
	PracticeListeningToResponse PracticeState = "listening_to_response"
	PracticeErrorRecording      PracticeState = "error_recording"
	PracticeRetry               PracticeState = "retry"
)

// CanStartRecording reports whether a new recording may begin
func (s PracticeState) CanStartRecording() bool {
	return s == PracticeInitial || s == PracticeRetry || s == PracticeErrorRecording
}

// CanPlayRecording reports whether a stored recording may be played back
func (s PracticeState) CanPlayRecording() bool {
	return s != PracticeRecordingAudio && s != PracticeListeningToResponse
}

// PlaybackState is the recording playback sub-state of the practice screen
type PlaybackState string

const (
	PlaybackStopped               PlaybackState = "stopped"
	PlaybackPlayingRecording      PlaybackState = "playing_recording"
	PlaybackErrorPlayingRecording PlaybackState = "error_playing_recording"
)

// Recording is a finished audio file in the cache directory
type Recording struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
