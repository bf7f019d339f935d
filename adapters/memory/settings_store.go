package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

// SettingsStore is an in-memory implementation of repositories.SettingsStore.
// Values are lost when the process exits; use it for tests and mock mode.
type SettingsStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string // clientID -> key -> value
	closed bool
}

var _ repositories.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates an empty in-memory settings store
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		values: make(map[string]map[string]string),
	}
}

func (s *SettingsStore) Get(_ context.Context, clientID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", errors.New("settings store closed")
	}
	value, ok := s.values[clientID][key]
	if !ok {
		return "", repositories.ErrNotFound
	}
	return value, nil
}

func (s *SettingsStore) Set(_ context.Context, clientID, key, value string) error {
	if clientID == "" {
		return errors.New("client ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("settings store closed")
	}
	if s.values[clientID] == nil {
		s.values[clientID] = make(map[string]string)
	}
	s.values[clientID][key] = value
	return nil
}

func (s *SettingsStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
