// Package sessions keeps orchestrator sessions in memory, keyed by a random
// id, and expires the ones left idle. Nothing here is persisted.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrTooMany  = errors.New("too many active sessions")
)

// Factory builds a new orchestrator session for id.
type Factory func(id string) *orchestrator.Session

// Store is a concurrency-safe session registry.
type Store struct {
	factory     Factory
	idleTTL     time.Duration
	maxSessions int
	logger      logrus.FieldLogger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*orchestrator.Session
}

// NewStore creates an empty registry. idleTTL <= 0 disables expiry and
// maxSessions <= 0 disables the cap.
func NewStore(factory Factory, idleTTL time.Duration, maxSessions int, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		factory:     factory,
		idleTTL:     idleTTL,
		maxSessions: maxSessions,
		logger:      logger.WithField("component", "sessions"),
		now:         time.Now,
		sessions:    make(map[string]*orchestrator.Session),
	}
}

// Create registers a new Idle session.
func (s *Store) Create() (*orchestrator.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return nil, ErrTooMany
	}

	id := uuid.NewString()
	session := s.factory(id)
	s.sessions[id] = session

	s.logger.WithField("session_id", id).Debug("Session created")
	return session, nil
}

// Get returns the session or ErrNotFound.
func (s *Store) Get(id string) (*orchestrator.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

// Delete removes a session. A busy session is refused with
// orchestrator.ErrBusy.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if session.Busy() {
		return orchestrator.ErrBusy
	}
	delete(s.sessions, id)

	s.logger.WithField("session_id", id).Debug("Session deleted")
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Expire drops idle sessions past the TTL and returns how many went.
func (s *Store) Expire() int {
	if s.idleTTL <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for id, session := range s.sessions {
		if session.Busy() || session.LastUsed().After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		expired++
	}

	if expired > 0 {
		s.logger.WithFields(logrus.Fields{"expired": expired, "remaining": len(s.sessions)}).Info("Expired idle sessions")
	}
	return expired
}

// Run calls Expire every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.idleTTL <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Expire()
		case <-ctx.Done():
			return
		}
	}
}
