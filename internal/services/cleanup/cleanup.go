package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/sirupsen/logrus"
)

// Service removes transcoder scratch directories that outlived their call,
// which only happens when the process died mid-transcode.
type Service struct {
	tempDir         string
	maxAge          time.Duration
	cleanupInterval time.Duration
	logger          logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service
func NewService(tempDir string, maxAge, cleanupInterval time.Duration, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		tempDir:         tempDir,
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
		logger:          logger.WithField("component", "cleanup"),
	}
}

// Start sweeps once, then every cleanupInterval until ctx ends or Stop is
// called. It returns immediately.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.Sweep()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-ctx.Done():
				s.logger.Info("Cleanup service stopped")
				return
			}
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"interval": s.cleanupInterval,
		"max_age":  s.maxAge,
		"dir":      s.tempDir,
	}).Info("Cleanup service started")
}

// Stop stops the cleanup service and waits for the loop to exit
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Sweep removes stale scratch entries and returns how many were removed
func (s *Service) Sweep() int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Error("Cleanup read error")
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), audio.TempPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // vanished between ReadDir and Info
		}
		if time.Since(info.ModTime()) <= s.maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Failed to remove stale scratch entry")
			continue
		}
		s.logger.WithField("path", path).Debug("Removed stale scratch entry")
		removed++
	}

	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Cleaned up stale transcoder scratch")
	}
	return removed
}
