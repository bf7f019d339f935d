package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const (
	defaultChunkSize     = 4096
	defaultChunkInterval = 100 * time.Millisecond
)

// PlayerConfig controls playback pacing
type PlayerConfig struct {
	ChunkSize     int
	ChunkInterval time.Duration
}

// FilePlayer streams a recording back in paced chunks. A player plays at
// most one file at a time.
type FilePlayer struct {
	chunkSize     int
	chunkInterval time.Duration
	logger        *zap.Logger

	mu      sync.Mutex
	current *filePlayback
}

var _ repositories.Player = (*FilePlayer)(nil)

// NewFilePlayer creates a new player
func NewFilePlayer(config PlayerConfig, logger *zap.Logger) *FilePlayer {
	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	chunkInterval := config.ChunkInterval
	if chunkInterval < 0 {
		chunkInterval = defaultChunkInterval
	}

	return &FilePlayer{
		chunkSize:     chunkSize,
		chunkInterval: chunkInterval,
		logger:        logger,
	}
}

// Play stops the current playback, if any, and starts path
func (p *FilePlayer) Play(ctx context.Context, path string) (repositories.PlaybackStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.Stop()
		p.current = nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	playback := &filePlayback{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan repositories.PlaybackEvent, 4),
	}
	p.current = playback

	p.logger.Info("Playback started", zap.String("path", path))
	go p.stream(playback, file)

	return playback, nil
}

func (p *FilePlayer) stream(playback *filePlayback, file *os.File) {
	defer close(playback.events)
	defer file.Close()
	defer p.release(playback)

	if !playback.emit(repositories.PlaybackEvent{Kind: repositories.PlaybackStarted}) {
		return
	}

	buffer := make([]byte, p.chunkSize)
	var ticker *time.Ticker
	if p.chunkInterval > 0 {
		ticker = time.NewTicker(p.chunkInterval)
		defer ticker.Stop()
	}

	for {
		n, err := file.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			if !playback.emit(repositories.PlaybackEvent{Kind: repositories.PlaybackAudio, Audio: chunk}) {
				return
			}
		}

		if errors.Is(err, io.EOF) {
			playback.emit(repositories.PlaybackEvent{Kind: repositories.PlaybackDone})
			return
		}
		if err != nil {
			p.logger.Error("Failed to read recording", zap.Error(err))
			playback.emit(repositories.PlaybackEvent{Kind: repositories.PlaybackError, Err: fmt.Errorf("failed to read recording: %w", err)})
			return
		}

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-playback.ctx.Done():
				return
			}
		}
	}
}

func (p *FilePlayer) release(playback *filePlayback) {
	playback.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == playback {
		p.current = nil
	}
}

type filePlayback struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan repositories.PlaybackEvent
}

func (f *filePlayback) Events() <-chan repositories.PlaybackEvent {
	return f.events
}

func (f *filePlayback) Stop() {
	f.cancel()
}

func (f *filePlayback) emit(event repositories.PlaybackEvent) bool {
	select {
	case f.events <- event:
		return true
	case <-f.ctx.Done():
		return false
	}
}
