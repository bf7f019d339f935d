package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
)

// TranscriptRepository keeps archived turns in memory, newest last
type TranscriptRepository struct {
	mu       sync.RWMutex
	byClient map[string][]*entities.Transcript
}

var _ repositories.TranscriptRepository = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates an empty in-memory transcript repository
func NewTranscriptRepository() *TranscriptRepository {
	return &TranscriptRepository{
		byClient: make(map[string][]*entities.Transcript),
	}
}

// Save implements repositories.TranscriptRepository
func (r *TranscriptRepository) Save(_ context.Context, transcript *entities.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}
	if err := transcript.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to prevent external modifications
	stored := *transcript
	r.byClient[transcript.ClientID] = append(r.byClient[transcript.ClientID], &stored)
	return nil
}

// ListByClientID returns up to limit transcripts, newest first
func (r *TranscriptRepository) ListByClientID(_ context.Context, clientID string, limit int) ([]*entities.Transcript, error) {
	if clientID == "" {
		return nil, errors.New("client ID cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.byClient[clientID]
	result := make([]*entities.Transcript, 0, len(stored))
	for _, t := range stored {
		transcriptCopy := *t
		result = append(result, &transcriptCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
