package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const keyPrefix = "settings"

// Options configures the settings store
type Options struct {
	// Dir is the directory for badger data files
	Dir string
	// EncryptionKey must be 16, 24 or 32 bytes. Values are encrypted at rest.
	EncryptionKey []byte
}

// SettingsStore keeps per-client key-value settings in an encrypted badger DB
type SettingsStore struct {
	db     *badger.DB
	logger *zap.Logger
}

var _ repositories.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore opens (or creates) the settings database
func NewSettingsStore(opts Options, logger *zap.Logger) (*SettingsStore, error) {
	if opts.Dir == "" {
		return nil, errors.New("settings store directory is required")
	}
	switch len(opts.EncryptionKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24 or 32 bytes, got %d", len(opts.EncryptionKey))
	}

	dbOpts := badger.DefaultOptions(opts.Dir).
		WithEncryptionKey(opts.EncryptionKey).
		WithIndexCacheSize(16 << 20).
		WithLogger(zapLogger{logger.Sugar()})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}

	logger.Info("Settings store opened", zap.String("dir", opts.Dir))
	return &SettingsStore{db: db, logger: logger}, nil
}

// Get returns repositories.ErrNotFound when the key was never set
func (s *SettingsStore) Get(_ context.Context, clientID, key string) (string, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(clientID, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", repositories.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return string(value), nil
}

// Set stores a value for the client, overwriting any previous one
func (s *SettingsStore) Set(_ context.Context, clientID, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(clientID, key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.logger.Debug("Setting saved", zap.String("clientID", clientID), zap.String("key", key))
	return nil
}

// Close closes the underlying database
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

func storeKey(clientID, key string) []byte {
	return []byte(strings.Join([]string{keyPrefix, clientID, key}, ":"))
}

// zapLogger routes badger's internal logging through zap
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...any)   { l.s.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...any)    { l.s.Debugf(format, args...) }
func (l zapLogger) Debugf(format string, args ...any)   { l.s.Debugf(format, args...) }

var _ badger.Logger = zapLogger{}
