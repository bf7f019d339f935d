package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
	"github.com/satriahrh/fluenty/server/internal/errx"
)

// OpeningPrompt is sent, hidden from the message list, when a conversation
// opens so the tutor speaks first
const OpeningPrompt = "Just start the conversation now."

// ErrNoSpeech is reported when recognition finishes without any text
var ErrNoSpeech = errors.New("no speech recognized")

type conversationIntent int

const (
	intentOpen conversationIntent = iota
	intentStartListening
	intentStopListening
	intentResend
	intentConversationAudio
)

type conversationCommand struct {
	kind  conversationIntent
	audio []byte
}

// ConversationService orchestrates the live speaking loop: speech
// recognition, the tutor reply and its spoken playback. All state is owned
// by the Run loop.
type ConversationService struct {
	deps   SessionDeps
	logger *zap.Logger

	intents chan conversationCommand
	replies chan chatResult
	done    chan struct{}

	state       entities.ConversationState
	messages    entities.MessageList
	recognition repositories.RecognitionStream
	speech      repositories.SpeechStream
	highlighter *Highlighter
	userText    string
}

// NewConversationService creates a new conversation service
func NewConversationService(deps SessionDeps) *ConversationService {
	return &ConversationService{
		deps:    deps,
		logger:  deps.Logger.With(zap.String("clientID", deps.ClientID), zap.String("mode", string(entities.ModeConversation))),
		intents: make(chan conversationCommand, intentBuffer),
		replies: make(chan chatResult, 1),
		done:    make(chan struct{}),
		state:   entities.StateIdle,
	}
}

// Open asks the tutor to start the conversation
func (s *ConversationService) Open() { s.dispatch(conversationCommand{kind: intentOpen}) }

// StartListening begins a new speech turn
func (s *ConversationService) StartListening() {
	s.dispatch(conversationCommand{kind: intentStartListening})
}

// StopListening ends the audio input; the final transcript follows
func (s *ConversationService) StopListening() {
	s.dispatch(conversationCommand{kind: intentStopListening})
}

// ResendLastMessage retries the last user message after a failure
func (s *ConversationService) ResendLastMessage() {
	s.dispatch(conversationCommand{kind: intentResend})
}

// WriteAudio forwards microphone audio to the active recognition
func (s *ConversationService) WriteAudio(chunk []byte) {
	s.dispatch(conversationCommand{kind: intentConversationAudio, audio: chunk})
}

// Done is closed once Run has returned
func (s *ConversationService) Done() <-chan struct{} {
	return s.done
}

func (s *ConversationService) dispatch(cmd conversationCommand) {
	select {
	case s.intents <- cmd:
	case <-s.done:
	}
}

// Run processes intents and adapter events until ctx is cancelled. Active
// streams are torn down before Run returns, and nothing is applied after.
func (s *ConversationService) Run(ctx context.Context) {
	defer close(s.done)
	defer s.teardown()

	s.render()

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-s.intents:
			s.handle(ctx, cmd)

		case event, ok := <-s.recognitionEvents():
			if !ok {
				s.onRecognitionClosed()
				continue
			}
			s.onRecognition(ctx, event)

		case event, ok := <-s.speechEvents():
			if !ok {
				s.onSpeechClosed()
				continue
			}
			s.onSpeech(ctx, event)

		case result := <-s.replies:
			s.onReply(ctx, result)
		}
	}
}

func (s *ConversationService) handle(ctx context.Context, cmd conversationCommand) {
	switch cmd.kind {
	case intentOpen:
		s.open(ctx)
	case intentStartListening:
		s.startListening(ctx)
	case intentStopListening:
		s.stopListening()
	case intentResend:
		s.resend(ctx)
	case intentConversationAudio:
		s.writeAudio(cmd.audio)
	}
}

func (s *ConversationService) recognitionEvents() <-chan repositories.RecognitionEvent {
	if s.recognition == nil {
		return nil
	}
	return s.recognition.Events()
}

func (s *ConversationService) speechEvents() <-chan repositories.SpeechEvent {
	if s.speech == nil {
		return nil
	}
	return s.speech.Events()
}

func (s *ConversationService) open(ctx context.Context) {
	if s.state != entities.StateIdle || s.messages.Len() > 0 {
		s.logger.Debug("Ignoring open", zap.String("state", string(s.state)))
		return
	}
	s.userText = ""
	s.submit(ctx, OpeningPrompt)
}

func (s *ConversationService) startListening(ctx context.Context) {
	if !s.state.CanStartListening() {
		s.logger.Debug("Ignoring start listening", zap.String("state", string(s.state)))
		return
	}

	stream, err := s.deps.SpeechToText.Listen(ctx, s.deps.AudioConfig)
	if err != nil {
		s.logger.Error("Failed to start speech recognition", zap.Error(err))
		s.setState(entities.StateRecoverableError)
		return
	}

	s.recognition = stream
	s.messages.Append(entities.NewUserMessage(""))
	s.setState(entities.StateListeningToUser)
}

func (s *ConversationService) writeAudio(chunk []byte) {
	if s.state != entities.StateListeningToUser || s.recognition == nil {
		return
	}
	if err := s.recognition.Write(chunk); err != nil {
		s.logger.Warn("Failed to forward audio to recognizer", zap.Error(err))
	}
}

func (s *ConversationService) stopListening() {
	if s.state != entities.StateListeningToUser || s.recognition == nil {
		return
	}
	if err := s.recognition.Stop(); err != nil {
		s.recognitionFailed(err)
	}
}

func (s *ConversationService) resend(ctx context.Context) {
	if s.state != entities.StateRecoverableError {
		s.logger.Debug("Ignoring resend", zap.String("state", string(s.state)))
		return
	}
	last, ok := s.messages.Last()
	if !ok || !last.IsUser || last.Text == "" {
		s.logger.Debug("Nothing to resend")
		return
	}

	s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
		msg.IsError = false
	})
	s.userText = last.Text
	s.submit(ctx, last.Text)
}

func (s *ConversationService) onRecognition(ctx context.Context, event repositories.RecognitionEvent) {
	if s.state != entities.StateListeningToUser {
		return
	}

	switch event.Kind {
	case repositories.RecognitionPartial:
		s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
			if msg.IsUser {
				msg.Text = event.Text
			}
		})
		s.render()

	case repositories.RecognitionFinal:
		text := strings.TrimSpace(event.Text)
		if text == "" {
			s.recognitionFailed(ErrNoSpeech)
			return
		}
		s.closeRecognition()
		s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
			msg.Text = text
			msg.IsEditable = false
			msg.IsError = false
		})
		s.userText = text
		s.submit(ctx, text)

	case repositories.RecognitionError:
		s.recognitionFailed(event.Err)
	}
}

func (s *ConversationService) onRecognitionClosed() {
	s.recognition = nil
	if s.state == entities.StateListeningToUser {
		s.recognitionFailed(ErrNoSpeech)
	}
}

// recognitionFailed drops an empty turn silently. A turn that captured some
// text is kept and marked errored so it can be resent.
func (s *ConversationService) recognitionFailed(err error) {
	s.logger.Info("Speech recognition failed", zap.Error(err))
	s.closeRecognition()

	if last, ok := s.messages.Last(); ok && last.IsUser {
		if strings.TrimSpace(last.Text) == "" {
			s.messages.RemoveLast()
		} else {
			s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
				msg.IsEditable = false
				msg.IsError = true
			})
		}
	}
	s.setState(entities.StateRecoverableError)
}

func (s *ConversationService) submit(ctx context.Context, text string) {
	s.messages.Append(entities.NewAssistantMessage())
	s.setState(entities.StateProcessingRequest)

	go sendChat(ctx, s.deps.Chat, repositories.ChatMessage{
		Role:    repositories.UserRole,
		Content: text,
	}, s.replies)
}

func (s *ConversationService) onReply(ctx context.Context, result chatResult) {
	if s.state != entities.StateProcessingRequest {
		return
	}

	if result.err != nil {
		s.logger.Error("Failed to generate response", zap.Error(result.err))
		if last, ok := s.messages.Last(); ok && !last.IsUser && last.Text == "" {
			s.messages.RemoveLast()
		}
		s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
			msg.IsError = true
		})
		s.deps.Sink.Notify(errx.UserMessage(result.err))
		s.setState(entities.StateRecoverableError)
		return
	}

	s.logger.Info("Response generated", zap.Int("length", len(result.reply.Content)))
	s.highlighter = NewHighlighter(result.reply.Content)

	stream, err := s.deps.TextToSpeech.Speak(ctx, result.reply.Content)
	if err != nil {
		s.speechFailed(err)
		return
	}
	s.speech = stream
	s.setState(entities.StateSpeakingResponse)
}

func (s *ConversationService) onSpeech(ctx context.Context, event repositories.SpeechEvent) {
	if s.state != entities.StateSpeakingResponse {
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
		s.setState(entities.StateIdle)

		if last, ok := s.messages.Last(); ok {
			archive(ctx, s.deps, entities.NewTranscript(s.deps.ClientID, entities.ModeConversation, s.userText, last.Text))
		}

	case repositories.SpeechError:
		s.speechFailed(event.Err)
	}
}

func (s *ConversationService) onSpeechClosed() {
	s.speech = nil
	if s.state == entities.StateSpeakingResponse {
		s.speechFailed(errors.New("speech stream closed"))
	}
}

// speechFailed shows the whole reply, marked errored
func (s *ConversationService) speechFailed(err error) {
	s.logger.Error("Failed to speak response", zap.Error(err))
	s.closeSpeech()

	if s.highlighter != nil {
		s.appendToLast(s.highlighter.Flush())
	}
	if last, ok := s.messages.Last(); ok && !last.IsUser && last.Text == "" {
		s.messages.RemoveLast()
	}
	s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
		msg.IsError = true
	})
	s.deps.Sink.Notify(SpeechFailedMessage)
	s.setState(entities.StateRecoverableError)
}

func (s *ConversationService) appendToLast(fragment string) {
	if fragment == "" {
		return
	}
	s.messages.UpdateLast(func(msg *entities.ConversationMessage) {
		if !msg.IsUser {
			msg.Text += fragment
		}
	})
}

func (s *ConversationService) closeRecognition() {
	if s.recognition != nil {
		s.recognition.Cancel()
		s.recognition = nil
	}
}

func (s *ConversationService) closeSpeech() {
	if s.speech != nil {
		s.speech.Cancel()
		s.speech = nil
	}
}

func (s *ConversationService) teardown() {
	s.closeRecognition()
	s.closeSpeech()
	s.logger.Info("Conversation closed", zap.Int("messages", s.messages.Len()))
}

func (s *ConversationService) setState(state entities.ConversationState) {
	if s.state != state {
		s.logger.Debug("State changed", zap.String("from", string(s.state)), zap.String("to", string(state)))
	}
	s.state = state
	s.render()
}

func (s *ConversationService) render() {
	s.deps.Sink.Render(Screen{
		Mode:     entities.ModeConversation,
		State:    string(s.state),
		Messages: s.messages.Snapshot(),
	})
}
