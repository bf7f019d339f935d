package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const defaultLanguage = "en-IN"

// GoogleSpeechConfig holds configuration for the Google Cloud recognizer
type GoogleSpeechConfig struct {
	// CredentialsFile is optional; application default credentials are used otherwise
	CredentialsFile string
	// Language is used when a Listen call does not name one
	Language string
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	credentialsFile string
	language        string
	logger          *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a Google Cloud Speech recognizer
func NewGoogleSpeechToText(config GoogleSpeechConfig, logger *zap.Logger) *GoogleSpeechToText {
	language := config.Language
	if language == "" {
		language = defaultLanguage
		logger.Info("Using default recognition language", zap.String("language", language))
	}

	return &GoogleSpeechToText{
		credentialsFile: config.CredentialsFile,
		language:        language,
		logger:          logger,
	}
}

// Listen opens a streaming recognition with interim results enabled
func (g *GoogleSpeechToText) Listen(ctx context.Context, config repositories.AudioConfig) (repositories.RecognitionStream, error) {
	var opts []option.ClientOption
	if g.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(g.credentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		client.Close()
		return nil, err
	}

	language := config.Language
	if language == "" {
		language = g.language
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   encoding,
					SampleRateHertz:            int32(config.SampleRate),
					LanguageCode:               language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: true,
			},
		},
	}); err != nil {
		cancel()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	g.logger.Info("Recognition stream opened",
		zap.String("language", language),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	s := &googleRecognitionStream{
		client: client,
		stream: stream,
		ctx:    streamCtx,
		cancel: cancel,
		events: make(chan repositories.RecognitionEvent, 16),
		logger: g.logger,
	}
	go s.receiveResults()

	return s, nil
}

type googleRecognitionStream struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	ctx    context.Context
	cancel context.CancelFunc
	events chan repositories.RecognitionEvent
	logger *zap.Logger

	mu            sync.Mutex
	stopped       bool
	audioReceived bool
}

func (g *googleRecognitionStream) Events() <-chan repositories.RecognitionEvent {
	return g.events
}

func (g *googleRecognitionStream) Write(data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return errors.New("recognition stream already stopped")
	}
	if len(data) == 0 {
		return nil
	}
	g.audioReceived = true

	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

func (g *googleRecognitionStream) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return nil
	}
	g.stopped = true

	if err := g.stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close send stream: %w", err)
	}
	return nil
}

func (g *googleRecognitionStream) Cancel() {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	g.cancel()
}

// emit delivers an event unless the stream was cancelled
func (g *googleRecognitionStream) emit(event repositories.RecognitionEvent) bool {
	select {
	case g.events <- event:
		return true
	case <-g.ctx.Done():
		return false
	}
}

func (g *googleRecognitionStream) receiveResults() {
	defer close(g.events)
	defer g.client.Close()
	defer g.cancel()

	var finalized []string

	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			transcript := strings.TrimSpace(strings.Join(finalized, " "))
			if transcript == "" {
				g.emit(repositories.RecognitionEvent{Kind: repositories.RecognitionError, Err: errors.New("no speech detected in audio")})
				return
			}
			g.emit(repositories.RecognitionEvent{Kind: repositories.RecognitionFinal, Text: transcript})
			return
		}
		if err != nil {
			if g.ctx.Err() != nil {
				return
			}
			g.logger.Warn("Recognition failed", zap.Error(err))
			g.emit(repositories.RecognitionEvent{Kind: repositories.RecognitionError, Err: fmt.Errorf("failed to receive response: %w", err)})
			return
		}

		var interim []string
		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			transcript := strings.TrimSpace(result.Alternatives[0].Transcript)
			if result.IsFinal {
				finalized = append(finalized, transcript)
			} else {
				interim = append(interim, transcript)
			}
		}

		partial := strings.TrimSpace(strings.Join(append(append([]string{}, finalized...), interim...), " "))
		if partial == "" {
			continue
		}
		if !g.emit(repositories.RecognitionEvent{Kind: repositories.RecognitionPartial, Text: partial}) {
			return
		}
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}
