package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
	"github.com/satriahrh/fluenty/server/internal/errx"
)

// RecordingPrompt accompanies every recording sent to the tutor
const RecordingPrompt = "Understand the audio and respond accordingly."

const (
	RecordingFailedMessage = "Unable to start recording, please try again"
	EmptyRecordingMessage  = "Nothing was recorded, please try again"
	PlaybackFailedMessage  = "Unable to play the recording"
)

type practiceIntent int

const (
	intentStartRecording practiceIntent = iota
	intentStopRecording
	intentCancelRecording
	intentResendRecording
	intentPlayRecording
	intentStopPlayback
	intentPracticeAudio
)

type practiceCommand struct {
	kind      practiceIntent
	audio     []byte
	messageID string
}

// PracticeService orchestrates the record-and-playback loop: the user
// records a clip, the tutor critiques it out loud, and earlier clips can be
// played back on demand.
type PracticeService struct {
	deps   SessionDeps
	logger *zap.Logger

	intents chan practiceCommand
	replies chan chatResult
	done    chan struct{}

	state         entities.PracticeState
	playbackState entities.PlaybackState
	messages      entities.MessageList

	recording     repositories.RecordingSession
	lastRecording *entities.Recording
	playback      repositories.PlaybackStream
	speech        repositories.SpeechStream
	highlighter   *Highlighter
}

// NewPracticeService creates a new practice service
func NewPracticeService(deps SessionDeps) *PracticeService {
	return &PracticeService{
		deps:          deps,
		logger:        deps.Logger.With(zap.String("clientID", deps.ClientID), zap.String("mode", string(entities.ModePractice))),
		intents:       make(chan practiceCommand, intentBuffer),
		replies:       make(chan chatResult, 1),
		done:          make(chan struct{}),
		state:         entities.PracticeInitial,
		playbackState: entities.PlaybackStopped,
	}
}

// StartRecording begins capturing a new recording
func (s *PracticeService) StartRecording() {
	s.dispatch(practiceCommand{kind: intentStartRecording})
}

// StopRecording finishes the recording and sends it for feedback
func (s *PracticeService) StopRecording() {
	s.dispatch(practiceCommand{kind: intentStopRecording})
}

// CancelRecording discards the recording in progress
func (s *PracticeService) CancelRecording() {
	s.dispatch(practiceCommand{kind: intentCancelRecording})
}

// ResendLastRecording retries the last recording after a failure
func (s *PracticeService) ResendLastRecording() {
	s.dispatch(practiceCommand{kind: intentResendRecording})
}

// PlayRecording plays back the recording attached to a message
func (s *PracticeService) PlayRecording(messageID string) {
	s.dispatch(practiceCommand{kind: intentPlayRecording, messageID: messageID})
}

// StopPlayback stops any recording that is playing
func (s *PracticeService) StopPlayback() {
	s.dispatch(practiceCommand{kind: intentStopPlayback})
}

// WriteAudio appends microphone audio to the active recording
func (s *PracticeService) WriteAudio(chunk []byte) {
	s.dispatch(practiceCommand{kind: intentPracticeAudio, audio: chunk})
}

// Done is closed once Run has returned
func (s *PracticeService) Done() <-chan struct{} {
	return s.done
}

func (s *PracticeService) dispatch(cmd practiceCommand) {
	select {
	case s.intents <- cmd:
	case <-s.done:
	}
}

// Run processes intents and adapter events until ctx is cancelled
func (s *PracticeService) Run(ctx context.Context) {
	defer close(s.done)
	defer s.teardown()

	s.render()

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-s.intents:
			s.handle(ctx, cmd)

		case event, ok := <-s.speechEvents():
			if !ok {
				s.onSpeechClosed()
				continue
			}
			s.onSpeech(ctx, event)

		case event, ok := <-s.playbackEvents():
			if !ok {
				s.onPlaybackClosed()
				continue
			}
			s.onPlayback(event)

		case result := <-s.replies:
			s.onReply(ctx, result)
		}
	}
}

func (s *PracticeService) handle(ctx context.Context, cmd practiceCommand) {
	switch cmd.kind {
	case intentStartRecording:
		s.startRecording(ctx)
	case intentStopRecording:
		s.stopRecording(ctx)
	case intentCancelRecording:
		s.cancelRecording()
	case intentResendRecording:
		s.resend(ctx)
	case intentPlayRecording:
		s.playRecording(ctx, cmd.messageID)
	case intentStopPlayback:
		s.stopPlayback()
		s.render()
	case intentPracticeAudio:
		s.writeAudio(cmd.audio)
	}
}

func (s *PracticeService) speechEvents() <-chan repositories.SpeechEvent {
	if s.speech == nil {
		return nil
	}
	return s.speech.Events()
}

func (s *PracticeService) playbackEvents() <-chan repositories.PlaybackEvent {
	if s.playback == nil {
		return nil
	}
	return s.playback.Events()
}

func (s *PracticeService) startRecording(ctx context.Context) {
	if !s.state.CanStartRecording() {
		s.logger.Debug("Ignoring start recording", zap.String("state", string(s.state)))
		return
	}
	s.stopPlayback()

	session, err := s.deps.Recorder.Start(ctx)
	if err != nil {
		s.logger.Error("Failed to start recording", zap.Error(err))
		s.deps.Sink.Notify(RecordingFailedMessage)
		s.setState(entities.PracticeErrorRecording)
		return
	}

	s.recording = session
	s.setState(entities.PracticeRecordingAudio)
}

func (s *PracticeService) writeAudio(chunk []byte) {
	if s.state != entities.PracticeRecordingAudio || s.recording == nil {
		return
	}
	if err := s.recording.Write(chunk); err != nil {
		s.logger.Warn("Failed to write recording", zap.Error(err))
	}
}

func (s *PracticeService) stopRecording(ctx context.Context) {
	if s.state != entities.PracticeRecordingAudio || s.recording == nil {
		return
	}

	recording, err := s.recording.Stop()
	s.recording = nil
	if err != nil {
		s.logger.Error("Failed to finish recording", zap.Error(err))
		s.deps.Sink.Notify(EmptyRecordingMessage)
		s.setState(entities.PracticeErrorRecording)
		return
	}

	s.lastRecording = &recording
	message := entities.NewUserMessage("")
	message.IsEditable = false
	message.AudioPath = recording.Path
	s.messages.Append(message)

	s.submit(ctx, recording)
}

func (s *PracticeService) cancelRecording() {
	if s.state != entities.PracticeRecordingAudio || s.recording == nil {
		return
	}
	s.recording.Cancel()
	s.recording = nil
	s.setState(entities.PracticeInitial)
}

func (s *PracticeService) resend(ctx context.Context) {
	if s.state != entities.PracticeRetry || s.lastRecording == nil {
		s.logger.Debug("Ignoring resend", zap.String("state", string(s.state)))
		return
	}
	last, ok := s.messages.Last()
	if !ok || !last.IsUser {
		s.logger.Debug("Nothing to resend")
		return
	}

	s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
		msg.IsError = false
	})
	s.submit(ctx, *s.lastRecording)
}

func (s *PracticeService) submit(ctx context.Context, recording entities.Recording) {
	s.messages.Append(entities.NewAssistantMessage())
	s.setState(entities.PracticeProcessingRecording)

	go func() {
		audio, err := os.ReadFile(recording.Path)
		if err != nil {
			select {
			case s.replies <- chatResult{err: fmt.Errorf("read recording: %w", err)}:
			case <-ctx.Done():
			}
			return
		}

		sendChat(ctx, s.deps.Chat, repositories.ChatMessage{
			Role:     repositories.UserRole,
			Content:  RecordingPrompt,
			Audio:    audio,
			MimeType: recording.MimeType,
		}, s.replies)
	}()
}

func (s *PracticeService) onReply(ctx context.Context, result chatResult) {
	if s.state != entities.PracticeProcessingRecording {
		return
	}

	if result.err != nil {
		s.logger.Error("Failed to generate response", zap.Error(result.err))
		s.failTurn(errx.UserMessage(result.err))
		return
	}

	s.stopPlayback()
	s.highlighter = NewHighlighter(result.reply.Content)

	stream, err := s.deps.TextToSpeech.Speak(ctx, result.reply.Content)
	if err != nil {
		s.speechFailed(err)
		return
	}
	s.speech = stream
	s.setState(entities.PracticeListeningToResponse)
}

func (s *PracticeService) onSpeech(ctx context.Context, event repositories.SpeechEvent) {
	if s.state != entities.PracticeListeningToResponse {
		return
	}

	switch event.Kind {
	case repositories.SpeechRange:
		if fragment := s.highlighter.Next(event.Text); fragment != "" {
			s.appendToLast(fragment)
			s.render()
		}

	case repositories.SpeechAudio:
		s.deps.Sink.Audio(event.Audio)

	case repositories.SpeechDone:
		s.appendToLast(s.highlighter.Flush())
		s.closeSpeech()
		s.setState(entities.PracticeInitial)

		if last, ok := s.messages.Last(); ok {
			transcript := entities.NewTranscript(s.deps.ClientID, entities.ModePractice, "", last.Text)
			if s.lastRecording != nil {
				transcript.RecordingPath = s.lastRecording.Path
			}
			archive(ctx, s.deps, transcript)
		}

	case repositories.SpeechError:
		s.speechFailed(event.Err)
	}
}

func (s *PracticeService) onSpeechClosed() {
	s.speech = nil
	if s.state == entities.PracticeListeningToResponse {
		s.speechFailed(errors.New("speech stream closed"))
	}
}

func (s *PracticeService) speechFailed(err error) {
	s.logger.Error("Failed to speak response", zap.Error(err))
	s.closeSpeech()
	if s.highlighter != nil {
		s.appendToLast(s.highlighter.Flush())
	}
	s.failTurn(SpeechFailedMessage)
}

// failTurn drops an empty tutor placeholder and marks the last message errored
func (s *PracticeService) failTurn(notification string) {
	if last, ok := s.messages.Last(); ok && !last.IsUser && last.Text == "" {
		s.messages.RemoveLast()
	}
	s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
		msg.IsError = true
	})
	s.deps.Sink.Notify(notification)
	s.setState(entities.PracticeRetry)
}

func (s *PracticeService) playRecording(ctx context.Context, messageID string) {
	if !s.state.CanPlayRecording() {
		s.logger.Debug("Ignoring play recording", zap.String("state", string(s.state)))
		return
	}
	message, ok := s.messages.Find(messageID)
	if !ok || message.AudioPath == "" {
		s.logger.Warn("No recording for message", zap.String("messageID", messageID))
		return
	}

	s.stopPlayback()
	stream, err := s.deps.Player.Play(ctx, message.AudioPath)
	if err != nil {
		s.playbackFailed(err)
		return
	}

	s.playback = stream
	s.playbackState = entities.PlaybackPlayingRecording
	s.messages.SetPlaying(messageID)
	s.render()
}

func (s *PracticeService) onPlayback(event repositories.PlaybackEvent) {
	switch event.Kind {
	case repositories.PlaybackAudio:
		s.deps.Sink.Audio(event.Audio)
	case repositories.PlaybackDone:
		s.stopPlayback()
		s.render()
	case repositories.PlaybackError:
		s.playbackFailed(event.Err)
	}
}

func (s *PracticeService) onPlaybackClosed() {
	s.playback = nil
	if s.playbackState == entities.PlaybackPlayingRecording {
		s.playbackState = entities.PlaybackStopped
		s.messages.ClearPlaying()
		s.render()
	}
}

func (s *PracticeService) playbackFailed(err error) {
	s.logger.Error("Failed to play recording", zap.Error(err))
	if s.playback != nil {
		s.playback.Stop()
		s.playback = nil
	}
	s.playbackState = entities.PlaybackErrorPlayingRecording
	s.messages.ClearPlaying()
	s.deps.Sink.Notify(PlaybackFailedMessage)
	s.render()
}

// stopPlayback stops any recording playback; it does not render
func (s *PracticeService) stopPlayback() {
	if s.playback != nil {
		s.playback.Stop()
		s.playback = nil
	}
	s.playbackState = entities.PlaybackStopped
	s.messages.ClearPlaying()
}

func (s *PracticeService) appendToLast(fragment string) {
	if fragment == "" {
		return
	}
	s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
		if !msg.IsUser {
			msg.Text += fragment
		}
	})
}

func (s *PracticeService) closeSpeech() {
	if s.speech != nil {
		s.speech.Cancel()
		s.speech = nil
	}
}

func (s *PracticeService) teardown() {
	if s.recording != nil {
		s.recording.Cancel()
		s.recording = nil
	}
	s.stopPlayback()
	s.closeSpeech()
	s.logger.Info("Practice closed", zap.Int("messages", s.messages.Len()))
}

func (s *PracticeService) setState(state entities.PracticeState) {
	if s.state != state {
		s.logger.Debug("State changed", zap.String("from", string(s.state)), zap.String("to", string(state)))
	}
	s.state = state
	s.render()
}

func (s *PracticeService) render() {
	s.deps.Sink.Render(Screen{
		Mode:     entities.ModePractice,
		State:    string(s.state),
		Playback: s.playbackState,
		Messages: s.messages.Snapshot(),
	})
}
