package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Environment represents the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// Config defines all configurable parameters of the server, sourced from
// environment variables (loaded from .env for local runs).
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	Port        string      `envconfig:"PORT" default:"8080"`
	UseMocks    bool        `envconfig:"USE_MOCKS" default:"false"`

	Auth       AuthConfig
	Gemini     GeminiConfig
	Speech     SpeechConfig
	ElevenLabs ElevenLabsConfig
	Audio      AudioConfig
	Store      StoreConfig
	Mongo      MongoConfig
}

type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"JWT_TOKEN_TTL" default:"720h"`
}

type GeminiConfig struct {
	// APIKey is used for clients that have not saved a key of their own.
	APIKey       string `envconfig:"GEMINI_API_KEY"`
	BaseURL      string `envconfig:"GEMINI_BASE_URL"`
	DefaultModel string `envconfig:"GEMINI_DEFAULT_MODEL" default:"gemini-1.5-pro-002"`
}

type SpeechConfig struct {
	Language        string `envconfig:"SPEECH_LANGUAGE" default:"en-IN"`
	SampleRate      int    `envconfig:"SPEECH_SAMPLE_RATE" default:"16000"`
	Encoding        string `envconfig:"SPEECH_ENCODING" default:"LINEAR16"`
	CredentialsFile string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type ElevenLabsConfig struct {
	APIKey       string  `envconfig:"ELEVEN_LABS_API_KEY"`
	APIBaseURL   string  `envconfig:"ELEVEN_LABS_API_BASE_URL"`
	VoiceID      string  `envconfig:"ELEVEN_LABS_VOICE_ID"`
	ModelID      string  `envconfig:"ELEVEN_LABS_MODEL_ID"`
	OutputFormat string  `envconfig:"ELEVEN_LABS_OUTPUT_FORMAT"`
	Stability    float64 `envconfig:"ELEVEN_LABS_STABILITY"`
	Clarity      float64 `envconfig:"ELEVEN_LABS_CLARITY"`
}

type AudioConfig struct {
	CacheDir      string        `envconfig:"AUDIO_CACHE_DIR" default:"./cache/recordings"`
	Extension     string        `envconfig:"AUDIO_RECORDING_EXTENSION" default:"webm"`
	ChunkSize     int           `envconfig:"AUDIO_PLAYBACK_CHUNK_SIZE" default:"4096"`
	ChunkInterval time.Duration `envconfig:"AUDIO_PLAYBACK_CHUNK_INTERVAL" default:"100ms"`
	CacheMaxAge   time.Duration `envconfig:"AUDIO_CACHE_MAX_AGE" default:"24h"`
	SweepInterval time.Duration `envconfig:"AUDIO_CACHE_SWEEP_INTERVAL" default:"30m"`
}

type StoreConfig struct {
	Dir string `envconfig:"STORE_DIR" default:"./data/settings"`
	// EncryptionKey must be 16, 24 or 32 bytes to select AES-128, 192 or 256.
	EncryptionKey string `envconfig:"STORE_ENCRYPTION_KEY" required:"true"`
}

type MongoConfig struct {
	// URI is optional; without it transcripts are kept in memory.
	URI      string `envconfig:"MONGODB_URI"`
	Database string `envconfig:"MONGODB_DATABASE" default:"fluenty"`
}

// Load reads .env (when present) and binds the environment into Config.
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		logger.Debug("Could not load .env file", zap.Error(err))
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch len(c.Store.EncryptionKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("STORE_ENCRYPTION_KEY must be 16, 24 or 32 bytes, got %d", len(c.Store.EncryptionKey))
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("AUDIO_PLAYBACK_CHUNK_SIZE must be positive, got %d", c.Audio.ChunkSize)
	}
	if c.Audio.SweepInterval <= 0 {
		return fmt.Errorf("AUDIO_CACHE_SWEEP_INTERVAL must be positive, got %s", c.Audio.SweepInterval)
	}
	if !c.UseMocks && c.ElevenLabs.APIKey == "" {
		return fmt.Errorf("ELEVEN_LABS_API_KEY is required unless USE_MOCKS is set")
	}
	return nil
}

// NewLogger builds the zap logger for the environment.
func NewLogger(env Environment) (*zap.Logger, error) {
	if env.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
