package audio

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CacheJanitor removes old recordings from the cache directory
type CacheJanitor struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewCacheJanitor creates a janitor that deletes files older than maxAge
// every interval
func NewCacheJanitor(dir string, maxAge, interval time.Duration, logger *zap.Logger) *CacheJanitor {
	return &CacheJanitor{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (j *CacheJanitor) Start() {
	go j.cleanupLoop()
	j.logger.Info("Recording cache janitor started",
		zap.String("dir", j.dir),
		zap.Duration("maxAge", j.maxAge))
}

// Stop gracefully stops the janitor
func (j *CacheJanitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		j.logger.Info("Recording cache janitor stopped")
	})
}

func (j *CacheJanitor) cleanupLoop() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Sweep once shortly after startup
	initialTimer := time.NewTimer(time.Minute)
	defer initialTimer.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-initialTimer.C:
			j.Sweep()
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep deletes expired recordings and returns how many were removed
func (j *CacheJanitor) Sweep() int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Error("Failed to read recording cache", zap.Error(err))
		}
		return 0
	}

	cutoff := time.Now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err != nil {
			j.logger.Warn("Failed to remove expired recording", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("Recording cache sweep completed", zap.Int("removed", removed))
	}
	return removed
}
