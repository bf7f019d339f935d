package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/adapters/audio"
	"github.com/satriahrh/fluenty/server/adapters/badgerdb"
	"github.com/satriahrh/fluenty/server/adapters/llm"
	"github.com/satriahrh/fluenty/server/adapters/memory"
	"github.com/satriahrh/fluenty/server/adapters/mongo"
	"github.com/satriahrh/fluenty/server/adapters/stt"
	"github.com/satriahrh/fluenty/server/adapters/tts"
	"github.com/satriahrh/fluenty/server/domain/repositories"
	"github.com/satriahrh/fluenty/server/internal/config"
	"github.com/satriahrh/fluenty/server/usecase"
)

// app holds the long-lived adapters shared by every session
type app struct {
	store       repositories.SettingsStore
	settings    *usecase.SettingsService
	transcripts repositories.TranscriptRepository
	sessions    *usecase.SessionFactory
	mongo       *mongo.Client
	logger      *zap.Logger
}

func newLanguageModel(cfg *config.Config, logger *zap.Logger) repositories.LargeLanguageModel {
	if cfg.UseMocks {
		return llm.NewMockGeminiClient(logger)
	}
	return llm.NewGeminiLLM(llm.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.DefaultModel,
	}, logger)
}

func newTextToSpeech(cfg *config.Config, logger *zap.Logger) (repositories.TextToSpeech, error) {
	if cfg.UseMocks {
		return tts.NewMockTextToSpeech(logger), nil
	}
	return tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:       cfg.ElevenLabs.APIKey,
		APIBaseURL:   cfg.ElevenLabs.APIBaseURL,
		VoiceID:      cfg.ElevenLabs.VoiceID,
		ModelID:      cfg.ElevenLabs.ModelID,
		OutputFormat: cfg.ElevenLabs.OutputFormat,
		Stability:    cfg.ElevenLabs.Stability,
		Clarity:      cfg.ElevenLabs.Clarity,
	}, logger)
}

func newSpeechToText(cfg *config.Config, logger *zap.Logger) repositories.SpeechToText {
	if cfg.UseMocks {
		return stt.NewMockSpeechToText(logger)
	}
	return stt.NewGoogleSpeechToText(stt.GoogleSpeechConfig{
		CredentialsFile: cfg.Speech.CredentialsFile,
		Language:        cfg.Speech.Language,
	}, logger)
}

// newSettings opens the encrypted store and the settings service on top of it
func newSettings(cfg *config.Config, logger *zap.Logger) (repositories.SettingsStore, *usecase.SettingsService, error) {
	store, err := badgerdb.NewSettingsStore(badgerdb.Options{
		Dir:           cfg.Store.Dir,
		EncryptionKey: []byte(cfg.Store.EncryptionKey),
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	settings := usecase.NewSettingsService(store, newLanguageModel(cfg, logger), cfg.Gemini.APIKey, cfg.Gemini.DefaultModel, logger)
	return store, settings, nil
}

// newApp wires every adapter the server needs
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{logger: logger}

	store, settings, err := newSettings(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store, a.settings = store, settings

	if cfg.Mongo.URI != "" {
		client, err := mongo.NewClient(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database}, logger)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.mongo = client

		repo := mongo.NewTranscriptRepository(client.Database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to create transcript indexes", zap.Error(err))
		}
		a.transcripts = repo
	} else {
		logger.Info("MONGODB_URI not set, keeping transcripts in memory")
		a.transcripts = memory.NewTranscriptRepository()
	}

	speaker, err := newTextToSpeech(cfg, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	recorder, err := audio.NewFileRecorder(audio.RecorderConfig{
		CacheDir:  cfg.Audio.CacheDir,
		Extension: cfg.Audio.Extension,
	}, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	playerConfig := audio.PlayerConfig{
		ChunkSize:     cfg.Audio.ChunkSize,
		ChunkInterval: cfg.Audio.ChunkInterval,
	}

	a.sessions = &usecase.SessionFactory{
		Settings:     settings,
		SpeechToText: newSpeechToText(cfg, logger),
		TextToSpeech: speaker,
		Recorder:     recorder,
		NewPlayer: func() repositories.Player {
			return audio.NewFilePlayer(playerConfig, logger)
		},
		Transcripts: a.transcripts,
		AudioConfig: repositories.AudioConfig{
			SampleRate: cfg.Speech.SampleRate,
			Encoding:   cfg.Speech.Encoding,
			Language:   cfg.Speech.Language,
		},
		Logger: logger,
	}
	return a, nil
}

// Close releases the settings store and the MongoDB connection
func (a *app) Close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close settings store", zap.Error(err))
		}
	}
	if a.mongo != nil {
		a.mongo.Close(ctx)
	}
}
