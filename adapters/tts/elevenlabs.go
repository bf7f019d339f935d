package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM"   // Rachel voice
	defaultOutputFormat = "pcm_24000"              // PCM format for real-time applications
	defaultModelID      = "eleven_multilingual_v2" // Default model ID
	defaultLanguageCode = "en"
	defaultStability    = 0.5  // Default voice stability
	defaultClarity      = 0.75 // Default voice clarity/similarity_boost
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - VoiceID: The voice ID to use (default: "21m00Tcm4TlvDq8ikWAM" - Rachel voice)
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - OutputFormat: The output format (default: "pcm_24000")
// - Stability: Voice stability value between 0 and 1 (default: 0.5)
// - Clarity: Voice clarity/similarity boost value between 0 and 1 (default: 0.75)
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Stability    float64
	Clarity      float64
}

// ElevenLabsTTS implements TextToSpeech using the Eleven Labs streaming
// endpoint with character timestamps, which drive the range events.
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	stability    float64
	clarity      float64
	httpClient   *http.Client
	logger       *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	LanguageCode           string                  `json:"language_code,omitempty"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ElevenLabsAlignment holds per-character timings of one streamed chunk
type ElevenLabsAlignment struct {
	Characters                 []string  `json:"characters"`
	CharacterStartTimesSeconds []float64 `json:"character_start_times_seconds"`
	CharacterEndTimesSeconds   []float64 `json:"character_end_times_seconds"`
}

// ElevenLabsTimestampChunk is one line of the with-timestamps stream
type ElevenLabsTimestampChunk struct {
	AudioBase64 string               `json:"audio_base64"`
	Alignment   *ElevenLabsAlignment `json:"alignment"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", voiceID))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", modelID))
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
		logger.Info("Using default output format", zap.String("outputFormat", outputFormat))
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	return &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		voiceID:      voiceID,
		modelID:      modelID,
		outputFormat: outputFormat,
		stability:    stability,
		clarity:      clarity,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		logger:       logger,
	}, nil
}

// Speak starts synthesis of text and streams audio and word ranges
func (e *ElevenLabsTTS) Speak(ctx context.Context, text string) (repositories.SpeechStream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	requestBody, err := json.Marshal(ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		LanguageCode:           defaultLanguageCode,
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream/with-timestamps?output_format=%s&enable_logging=false",
		e.apiBaseURL, e.voiceID, e.outputFormat)

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	e.logger.Info("Converting text to speech",
		zap.Int("textLength", len(text)),
		zap.String("voiceID", e.voiceID),
		zap.String("modelID", e.modelID))

	stream := &speechStream{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan repositories.SpeechEvent, 32),
	}
	go e.stream(stream, httpReq)

	return stream, nil
}

func (e *ElevenLabsTTS) stream(s *speechStream, httpReq *http.Request) {
	defer close(s.events)
	defer s.cancel()

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if s.ctx.Err() == nil {
			e.logger.Error("Failed to execute HTTP request", zap.Error(err))
			s.emit(repositories.SpeechEvent{Kind: repositories.SpeechError, Err: fmt.Errorf("failed to execute HTTP request: %w", err)})
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		e.logger.Error("Eleven Labs API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		s.emit(repositories.SpeechEvent{Kind: repositories.SpeechError, Err: fmt.Errorf("API returned error %d: %s", resp.StatusCode, string(errorBody))})
		return
	}

	if !s.emit(repositories.SpeechEvent{Kind: repositories.SpeechStarted}) {
		return
	}

	var words wordAligner
	decoder := json.NewDecoder(resp.Body)
	totalBytes := 0

	for {
		var chunk ElevenLabsTimestampChunk
		err := decoder.Decode(&chunk)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			e.logger.Error("Error reading response body", zap.Error(err))
			s.emit(repositories.SpeechEvent{Kind: repositories.SpeechError, Err: fmt.Errorf("failed to decode chunk: %w", err)})
			return
		}

		if chunk.AudioBase64 != "" {
			audio, err := base64.StdEncoding.DecodeString(chunk.AudioBase64)
			if err != nil {
				s.emit(repositories.SpeechEvent{Kind: repositories.SpeechError, Err: fmt.Errorf("failed to decode audio: %w", err)})
				return
			}
			totalBytes += len(audio)
			if !s.emit(repositories.SpeechEvent{Kind: repositories.SpeechAudio, Audio: audio}) {
				return
			}
		}

		if chunk.Alignment != nil {
			for _, r := range words.feed(chunk.Alignment.Characters) {
				if !s.emit(r) {
					return
				}
			}
		}
	}

	if r, ok := words.flush(); ok {
		if !s.emit(r) {
			return
		}
	}

	e.logger.Info("Finished streaming audio data", zap.Int("totalBytes", totalBytes))
	s.emit(repositories.SpeechEvent{Kind: repositories.SpeechDone})
}

// Voice is one entry of the Eleven Labs voice library
type Voice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// VoiceID returns the voice used for synthesis
func (e *ElevenLabsTTS) VoiceID() string {
	return e.voiceID
}

// Voices lists the voices available to the configured API key
func (e *ElevenLabsTTS) Voices(ctx context.Context) ([]Voice, error) {
	url := fmt.Sprintf("%s/voices", e.apiBaseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned error %d: %s", resp.StatusCode, string(errorBody))
	}

	var body struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	e.logger.Debug("Retrieved available voices", zap.Int("count", len(body.Voices)))
	return body.Voices, nil
}

// speechStream is shared by the Eleven Labs and mock synthesizers
type speechStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan repositories.SpeechEvent
}

func (s *speechStream) Events() <-chan repositories.SpeechEvent {
	return s.events
}

func (s *speechStream) Cancel() {
	s.cancel()
}

func (s *speechStream) emit(event repositories.SpeechEvent) bool {
	select {
	case s.events <- event:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// wordAligner groups streamed characters into whitespace-separated words
// and reports each word as a range event once it is complete.
type wordAligner struct {
	offset int
	start  int
	word   []rune
}

func (w *wordAligner) feed(characters []string) []repositories.SpeechEvent {
	var ranges []repositories.SpeechEvent
	for _, character := range characters {
		for _, r := range character {
			if unicode.IsSpace(r) {
				if ev, ok := w.flush(); ok {
					ranges = append(ranges, ev)
				}
				w.offset++
				w.start = w.offset
				continue
			}
			if len(w.word) == 0 {
				w.start = w.offset
			}
			w.word = append(w.word, r)
			w.offset++
		}
	}
	return ranges
}

func (w *wordAligner) flush() (repositories.SpeechEvent, bool) {
	if len(w.word) == 0 {
		return repositories.SpeechEvent{}, false
	}
	ev := repositories.SpeechEvent{
		Kind:  repositories.SpeechRange,
		Start: w.start,
		End:   w.start + len(w.word),
		Text:  string(w.word),
	}
	w.word = w.word[:0]
	return ev, true
}
