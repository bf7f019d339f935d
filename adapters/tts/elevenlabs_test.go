package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

func collect(t *testing.T, stream repositories.SpeechStream) []repositories.SpeechEvent {
	t.Helper()

	var events []repositories.SpeechEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-timeout:
			t.Fatal("Timed out waiting for speech events")
		}
	}
}

func alignmentLine(audio []byte, chars string) string {
	var quoted []string
	var times []string
	for i, r := range chars {
		quoted = append(quoted, fmt.Sprintf("%q", string(r)))
		times = append(times, fmt.Sprintf("%.2f", float64(i)*0.05))
	}
	return fmt.Sprintf(`{"audio_base64":%q,"alignment":{"characters":[%s],"character_start_times_seconds":[%s],"character_end_times_seconds":[%s]}}`+"\n",
		base64.StdEncoding.EncodeToString(audio),
		strings.Join(quoted, ","),
		strings.Join(times, ","),
		strings.Join(times, ","))
}

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewElevenLabsTTS(ElevenLabsConfig{}, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}

	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}

	if _, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", Stability: 1.5}, logger); err == nil {
		t.Error("Expected error for stability out of range")
	}
}

func TestElevenLabsTTS_Speak_EmptyText(t *testing.T) {
	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.Speak(context.Background(), ""); err == nil {
		t.Error("Expected error for empty text")
	}
	if _, err := tts.Speak(context.Background(), "   "); err == nil {
		t.Error("Expected error for whitespace-only text")
	}
}

func TestElevenLabsTTS_Speak_RangesFromTimestamps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/stream/with-timestamps") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-api-key" {
			t.Errorf("Missing API key header")
		}
		// "Good mor" + "ning!" splits a word across chunks
		w.Write([]byte(alignmentLine([]byte{1, 2}, "Good mor")))
		w.Write([]byte(alignmentLine([]byte{3}, "ning!")))
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	stream, err := tts.Speak(context.Background(), "Good morning!")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	events := collect(t, stream)

	var ranges []repositories.SpeechEvent
	audioBytes := 0
	for _, event := range events {
		switch event.Kind {
		case repositories.SpeechRange:
			ranges = append(ranges, event)
		case repositories.SpeechAudio:
			audioBytes += len(event.Audio)
		case repositories.SpeechError:
			t.Fatalf("Unexpected error event: %v", event.Err)
		}
	}

	if events[0].Kind != repositories.SpeechStarted {
		t.Errorf("Expected first event to be started, got %s", events[0].Kind)
	}
	if events[len(events)-1].Kind != repositories.SpeechDone {
		t.Errorf("Expected last event to be done, got %s", events[len(events)-1].Kind)
	}
	if audioBytes != 3 {
		t.Errorf("Expected 3 audio bytes, got %d", audioBytes)
	}
	if len(ranges) != 2 {
		t.Fatalf("Expected 2 ranges, got %d", len(ranges))
	}
	if ranges[0].Text != "Good" || ranges[0].Start != 0 || ranges[0].End != 4 {
		t.Errorf("Unexpected first range: %+v", ranges[0])
	}
	if ranges[1].Text != "morning!" || ranges[1].Start != 5 || ranges[1].End != 13 {
		t.Errorf("Unexpected second range: %+v", ranges[1])
	}
}

func TestElevenLabsTTS_Speak_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key"}}`))
	}))
	defer server.Close()

	tts, _ := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "bad", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	stream, err := tts.Speak(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	events := collect(t, stream)
	if len(events) != 1 || events[0].Kind != repositories.SpeechError {
		t.Fatalf("Expected a single error event, got %+v", events)
	}
}

func TestElevenLabsTTS_Speak_Cancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(alignmentLine([]byte{1}, "Hello ")))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	tts, _ := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	stream, err := tts.Speak(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	stream.Cancel()
	for event := range stream.Events() {
		if event.Kind == repositories.SpeechDone {
			t.Error("Did not expect done after cancel")
		}
	}
}

func TestElevenLabsTTS_Voices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" || r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("Unexpected request %s with key %q", r.URL.Path, r.Header.Get("xi-api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":[{"voice_id":"v1","name":"Rachel","category":"premade","labels":{"accent":"american"}},{"voice_id":"v2","name":"Arjun","category":"cloned"}]}`))
	}))
	defer server.Close()

	tts, _ := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	voices, err := tts.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("Expected 2 voices, got %d", len(voices))
	}
	if voices[0].VoiceID != "v1" || voices[0].Name != "Rachel" || voices[0].Labels["accent"] != "american" {
		t.Errorf("Unexpected first voice: %+v", voices[0])
	}
}

func TestElevenLabsTTS_Voices_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key"}}`))
	}))
	defer server.Close()

	tts, _ := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "bad", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if _, err := tts.Voices(context.Background()); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected 401 error, got %v", err)
	}
}

func TestWordAligner(t *testing.T) {
	var w wordAligner
	ranges := w.feed([]string{"H", "i", " ", " ", "y", "o"})
	if len(ranges) != 1 || ranges[0].Text != "Hi" {
		t.Fatalf("Expected range 'Hi', got %+v", ranges)
	}

	last, ok := w.flush()
	if !ok || last.Text != "yo" || last.Start != 4 || last.End != 6 {
		t.Errorf("Unexpected flushed range: %+v", last)
	}
	if _, ok := w.flush(); ok {
		t.Error("Second flush should be empty")
	}
}

func TestMockTextToSpeech(t *testing.T) {
	mock := NewMockTextToSpeech(zap.NewNop())
	mock.WordInterval = 0

	stream, err := mock.Speak(context.Background(), "Good morning!")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	var words []string
	var last repositories.SpeechEventKind
	for _, event := range collect(t, stream) {
		if event.Kind == repositories.SpeechRange {
			words = append(words, event.Text)
		}
		last = event.Kind
	}

	if strings.Join(words, "|") != "Good|morning!" {
		t.Errorf("Expected 'Good|morning!', got '%s'", strings.Join(words, "|"))
	}
	if last != repositories.SpeechDone {
		t.Errorf("Expected done as last event, got %s", last)
	}
}

// Integration test - only runs if ELEVEN_LABS_API_KEY is set with real API key
func TestElevenLabsTTS_Speak_Integration(t *testing.T) {
	apiKey := os.Getenv("ELEVEN_LABS_API_KEY")
	if apiKey == "" || apiKey == "test-api-key" {
		t.Skip("Skipping integration test - set ELEVEN_LABS_API_KEY environment variable with real API key")
	}

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: apiKey}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stream, err := tts.Speak(ctx, "Good morning! How was your weekend?")
	if err != nil {
		t.Fatalf("Failed to convert text to speech: %v", err)
	}

	ranges := 0
	for event := range stream.Events() {
		if event.Kind == repositories.SpeechRange {
			ranges++
		}
		if event.Kind == repositories.SpeechError {
			t.Fatalf("Synthesis failed: %v", event.Err)
		}
	}
	if ranges == 0 {
		t.Error("No word ranges received")
	}
}
