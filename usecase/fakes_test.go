package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/fluenty/server/adapters/memory"
	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const waitTimeout = 2 * time.Second

// recordingSink keeps every screen and notification it receives
type recordingSink struct {
	mu            sync.Mutex
	screens       []Screen
	notifications []string
	audioChunks   int
}

func (s *recordingSink) Render(screen Screen) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens = append(s.screens, screen)
}

func (s *recordingSink) Notify(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, message)
}

func (s *recordingSink) Audio(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioChunks++
}

func (s *recordingSink) audioCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioChunks
}

func (s *recordingSink) last() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.screens) == 0 {
		return Screen{}
	}
	return s.screens[len(s.screens)-1]
}

func (s *recordingSink) allScreens() []Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Screen, len(s.screens))
	copy(out, s.screens)
	return out
}

func (s *recordingSink) notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// states returns the sequence of distinct states rendered so far
func (s *recordingSink) states() []string {
	var out []string
	for _, screen := range s.allScreens() {
		if len(out) == 0 || out[len(out)-1] != screen.State {
			out = append(out, screen.State)
		}
	}
	return out
}

func waitFor(t *testing.T, sink *recordingSink, what string, cond func(Screen) bool) Screen {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if screen := sink.last(); cond(screen) {
			return screen
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s, last screen: %+v", what, sink.last())
	return Screen{}
}

func waitForState(t *testing.T, sink *recordingSink, state string) Screen {
	t.Helper()
	return waitFor(t, sink, "state "+state, func(s Screen) bool { return s.State == state })
}

// fakeChat hands every request to the test through requests and waits for
// the reply on replies
type fakeChat struct {
	requests chan repositories.ChatMessage
	replies  chan chatResult
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		requests: make(chan repositories.ChatMessage, 8),
		replies:  make(chan chatResult, 8),
	}
}

func (c *fakeChat) SendMessage(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	c.requests <- message
	select {
	case result := <-c.replies:
		return result.reply, result.err
	case <-ctx.Done():
		return repositories.ChatMessage{}, ctx.Err()
	}
}

func (c *fakeChat) History() ([]repositories.ChatMessage, error) {
	return nil, nil
}

func (c *fakeChat) reply(text string) {
	c.replies <- chatResult{reply: repositories.ChatMessage{Role: repositories.TutorRole, Content: text}}
}

func (c *fakeChat) fail(err error) {
	c.replies <- chatResult{err: err}
}

func (c *fakeChat) nextRequest(t *testing.T) repositories.ChatMessage {
	t.Helper()
	select {
	case message := <-c.requests:
		return message
	case <-time.After(waitTimeout):
		t.Fatal("Timed out waiting for chat request")
		return repositories.ChatMessage{}
	}
}

type fakeRecognition struct {
	events    chan repositories.RecognitionEvent
	mu        sync.Mutex
	written   int
	stopped   bool
	cancelled bool
}

func (r *fakeRecognition) Write(audio []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written += len(audio)
	return nil
}

func (r *fakeRecognition) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

func (r *fakeRecognition) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

func (r *fakeRecognition) Events() <-chan repositories.RecognitionEvent {
	return r.events
}

func (r *fakeRecognition) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

type fakeSTT struct {
	mu      sync.Mutex
	streams []*fakeRecognition
	err     error
}

func (s *fakeSTT) Listen(ctx context.Context, config repositories.AudioConfig) (repositories.RecognitionStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	stream := &fakeRecognition{events: make(chan repositories.RecognitionEvent, 16)}
	s.streams = append(s.streams, stream)
	return stream, nil
}

func (s *fakeSTT) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

func (s *fakeSTT) stream(t *testing.T, i int) *fakeRecognition {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.streams) > i {
			stream := s.streams[i]
			s.mu.Unlock()
			return stream
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Recognition stream %d was never opened", i)
	return nil
}

type fakeSpeech struct {
	text      string
	events    chan repositories.SpeechEvent
	mu        sync.Mutex
	cancelled bool
}

func (s *fakeSpeech) Events() <-chan repositories.SpeechEvent {
	return s.events
}

func (s *fakeSpeech) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

type fakeTTS struct {
	mu      sync.Mutex
	streams []*fakeSpeech
	err     error
}

func (s *fakeTTS) Speak(ctx context.Context, text string) (repositories.SpeechStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	stream := &fakeSpeech{text: text, events: make(chan repositories.SpeechEvent, 16)}
	s.streams = append(s.streams, stream)
	return stream, nil
}

func (s *fakeTTS) stream(t *testing.T, i int) *fakeSpeech {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.streams) > i {
			stream := s.streams[i]
			s.mu.Unlock()
			return stream
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Speech stream %d was never opened", i)
	return nil
}

// speak plays fragments as range events followed by done
func (s *fakeSpeech) speak(fragments ...string) {
	s.events <- repositories.SpeechEvent{Kind: repositories.SpeechStarted}
	for _, fragment := range fragments {
		s.events <- repositories.SpeechEvent{Kind: repositories.SpeechRange, Text: fragment}
		s.events <- repositories.SpeechEvent{Kind: repositories.SpeechAudio, Audio: []byte{0, 0}}
	}
	s.events <- repositories.SpeechEvent{Kind: repositories.SpeechDone}
}

type fakePlayback struct {
	path    string
	events  chan repositories.PlaybackEvent
	mu      sync.Mutex
	stopped bool
}

func (p *fakePlayback) Events() <-chan repositories.PlaybackEvent {
	return p.events
}

func (p *fakePlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

func (p *fakePlayback) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

type fakePlayer struct {
	mu      sync.Mutex
	streams []*fakePlayback
	err     error
}

func (p *fakePlayer) Play(ctx context.Context, path string) (repositories.PlaybackStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	stream := &fakePlayback{path: path, events: make(chan repositories.PlaybackEvent, 8)}
	p.streams = append(p.streams, stream)
	return stream, nil
}

func (p *fakePlayer) stream(t *testing.T, i int) *fakePlayback {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		if len(p.streams) > i {
			stream := p.streams[i]
			p.mu.Unlock()
			return stream
		}
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Playback %d was never started", i)
	return nil
}

type failingRecorder struct{}

func (failingRecorder) Start(ctx context.Context) (repositories.RecordingSession, error) {
	return nil, errors.New("microphone busy")
}

type harness struct {
	deps        SessionDeps
	sink        *recordingSink
	chat        *fakeChat
	stt         *fakeSTT
	tts         *fakeTTS
	player      *fakePlayer
	transcripts *memory.TranscriptRepository
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		sink:        &recordingSink{},
		chat:        newFakeChat(),
		stt:         &fakeSTT{},
		tts:         &fakeTTS{},
		player:      &fakePlayer{},
		transcripts: memory.NewTranscriptRepository(),
	}
	h.deps = SessionDeps{
		ClientID:     "client-1",
		Chat:         h.chat,
		SpeechToText: h.stt,
		TextToSpeech: h.tts,
		Player:       h.player,
		Transcripts:  h.transcripts,
		AudioConfig:  repositories.AudioConfig{SampleRate: 16000, Encoding: "LINEAR16", Language: "en-IN"},
		Sink:         h.sink,
		Logger:       zaptest.NewLogger(t),
	}
	return h
}

func (h *harness) waitForTranscripts(t *testing.T, n int) []*entities.Transcript {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		list, _ := h.transcripts.ListByClientID(context.Background(), h.deps.ClientID, 0)
		if len(list) >= n {
			return list
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d archived transcripts", n)
	return nil
}

func lastMessage(screen Screen) entities.ConversationMessage {
	if len(screen.Messages) == 0 {
		return entities.ConversationMessage{}
	}
	return screen.Messages[len(screen.Messages)-1]
}
