package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/fluenty/server/domain/entities"
)

// ErrNotFound is returned when a stored value does not exist
var ErrNotFound = errors.New("not found")

// SettingsStore is an encrypted key-value store scoped per client install
type SettingsStore interface {
	Get(ctx context.Context, clientID, key string) (string, error)
	Set(ctx context.Context, clientID, key, value string) error
	Close() error
}

// TranscriptRepository archives completed turns
type TranscriptRepository interface {
	Save(ctx context.Context, transcript *entities.Transcript) error
	ListByClientID(ctx context.Context, clientID string, limit int) ([]*entities.Transcript, error)
}
