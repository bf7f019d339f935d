package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const defaultExtension = "webm"

// ErrNoAudio is returned when a recording is stopped before any audio arrived
var ErrNoAudio = errors.New("no audio recorded")

// RecorderConfig configures where recordings are written
type RecorderConfig struct {
	CacheDir  string
	Extension string
}

// FileRecorder writes client-streamed audio to <cache dir>/<uuid>.<ext>
type FileRecorder struct {
	cacheDir  string
	extension string
	logger    *zap.Logger
}

var _ repositories.Recorder = (*FileRecorder)(nil)

// NewFileRecorder creates a recorder writing into config.CacheDir
func NewFileRecorder(config RecorderConfig, logger *zap.Logger) (*FileRecorder, error) {
	if config.CacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}

	extension := strings.TrimPrefix(config.Extension, ".")
	if extension == "" {
		extension = defaultExtension
		logger.Info("Using default recording extension", zap.String("extension", extension))
	}

	return &FileRecorder{
		cacheDir:  config.CacheDir,
		extension: extension,
		logger:    logger,
	}, nil
}

// Start creates a new recording file
func (r *FileRecorder) Start(ctx context.Context) (repositories.RecordingSession, error) {
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	id := uuid.New().String()
	path := filepath.Join(r.cacheDir, id+"."+r.extension)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	r.logger.Info("Recording started", zap.String("recordingID", id), zap.String("path", path))

	return &fileRecordingSession{
		id:       id,
		path:     path,
		mimeType: MimeTypeFor(path),
		file:     file,
		logger:   r.logger,
	}, nil
}

type fileRecordingSession struct {
	id       string
	path     string
	mimeType string
	logger   *zap.Logger

	mu     sync.Mutex
	file   *os.File
	size   int64
	closed bool
}

func (s *fileRecordingSession) Write(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("recording already finished")
	}
	n, err := s.file.Write(audio)
	s.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}

func (s *fileRecordingSession) Stop() (entities.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entities.Recording{}, errors.New("recording already finished")
	}
	s.closed = true

	if err := s.file.Close(); err != nil {
		os.Remove(s.path)
		return entities.Recording{}, fmt.Errorf("failed to close recording: %w", err)
	}
	if s.size == 0 {
		os.Remove(s.path)
		return entities.Recording{}, ErrNoAudio
	}

	s.logger.Info("Recording finished", zap.String("recordingID", s.id), zap.Int64("size", s.size))

	return entities.Recording{
		ID:        s.id,
		Path:      s.path,
		MimeType:  s.mimeType,
		Size:      s.size,
		CreatedAt: time.Now(),
	}, nil
}

func (s *fileRecordingSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.file.Close()
	os.Remove(s.path)
	s.logger.Info("Recording cancelled", zap.String("recordingID", s.id))
}

// MimeTypeFor maps a recording file extension to the MIME type sent to the model
func MimeTypeFor(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "3gp":
		return "audio/3gpp"
	case "amr":
		return "audio/amr"
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mp3"
	case "ogg", "opus":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "aac":
		return "audio/aac"
	case "webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}
