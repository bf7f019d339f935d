package config

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_ENCRYPTION_KEY", "0123456789abcdef")
	t.Setenv("USE_MOCKS", "true")

	cfg, err := Load(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != Development {
		t.Errorf("Expected environment %s, got %s", Development, cfg.Environment)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.Speech.Language != "en-IN" {
		t.Errorf("Expected language en-IN, got %s", cfg.Speech.Language)
	}
	if cfg.Gemini.DefaultModel != "gemini-1.5-pro-002" {
		t.Errorf("Expected default model gemini-1.5-pro-002, got %s", cfg.Gemini.DefaultModel)
	}
	if cfg.Audio.ChunkInterval != 100*time.Millisecond {
		t.Errorf("Expected chunk interval 100ms, got %s", cfg.Audio.ChunkInterval)
	}
	if cfg.Audio.CacheMaxAge != 24*time.Hour {
		t.Errorf("Expected cache max age 24h, got %s", cfg.Audio.CacheMaxAge)
	}
	if cfg.Auth.TokenTTL != 720*time.Hour {
		t.Errorf("Expected token TTL 720h, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Mongo.URI != "" {
		t.Errorf("Expected empty Mongo URI, got %s", cfg.Mongo.URI)
	}
}

func TestLoadRejectsBadEncryptionKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_ENCRYPTION_KEY", "short")
	t.Setenv("USE_MOCKS", "true")

	if _, err := Load(zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error for a 5 byte encryption key")
	}
}

func TestLoadRequiresElevenLabsKeyWithoutMocks(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("USE_MOCKS", "false")
	t.Setenv("ELEVEN_LABS_API_KEY", "")

	if _, err := Load(zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error when ELEVEN_LABS_API_KEY is missing")
	}
}
