package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
)

func TestSettingsStore(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore()

	if _, err := store.Get(ctx, "client-1", entities.SettingsKeyAPIKey); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, "client-1", entities.SettingsKeyAPIKey, "secret"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err := store.Get(ctx, "client-1", entities.SettingsKeyAPIKey)
	if err != nil || value != "secret" {
		t.Errorf("Expected 'secret', got '%s' (%v)", value, err)
	}

	if err := store.Set(ctx, "", entities.SettingsKeyAPIKey, "x"); err == nil {
		t.Error("Expected error for empty client ID")
	}

	store.Close()
	if err := store.Set(ctx, "client-1", entities.SettingsKeyModel, "m"); err == nil {
		t.Error("Expected error after Close")
	}
}

func TestTranscriptRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTranscriptRepository()

	older := entities.NewTranscript("client-1", entities.ModeConversation, "hi", "Hello!")
	older.CreatedAt = time.Now().Add(-time.Minute)
	newer := entities.NewTranscript("client-1", entities.ModePractice, "", "Nice pronunciation.")
	other := entities.NewTranscript("client-2", entities.ModeConversation, "yo", "Hey!")

	for _, tr := range []*entities.Transcript{older, newer, other} {
		if err := repo.Save(ctx, tr); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	list, err := repo.ListByClientID(ctx, "client-1", 10)
	if err != nil {
		t.Fatalf("ListByClientID failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 transcripts, got %d", len(list))
	}
	if list[0].ID != newer.ID {
		t.Error("Expected newest transcript first")
	}

	limited, _ := repo.ListByClientID(ctx, "client-1", 1)
	if len(limited) != 1 {
		t.Errorf("Expected limit to apply, got %d", len(limited))
	}

	if err := repo.Save(ctx, &entities.Transcript{ClientID: "client-1"}); err == nil {
		t.Error("Expected validation error")
	}
	if err := repo.Save(ctx, nil); err == nil {
		t.Error("Expected error for nil transcript")
	}
}
