package session

import (
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/metrics"
)

// Factory builds the collaborators for a new session.
type Factory func() (Analyzer, Speaker)

// Store keeps sessions in memory, keyed by id. Nothing is persisted.
type Store struct {
	factory Factory
	idle    time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns a store whose sessions expire after idle without activity.
// A non-positive idle keeps sessions until the process exits.
func NewStore(factory Factory, idle time.Duration, logger *logging.Logger) *Store {
	return &Store{factory: factory, idle: idle, logger: logger, sessions: map[string]*Session{}}
}

// Get returns the session for id, creating one when id is empty or unknown.
// The second result reports whether the session was created.
func (s *Store) Get(id string) (*Session, bool) {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.touch()
			return sess, false
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	analyzer, speaker := s.factory()
	sess := New(id, analyzer, speaker, s.logger)
	s.sessions[id] = sess
	metrics.SetActiveSessions(len(s.sessions))
	if s.logger != nil {
		s.logger.Debug("Session created", zap.String("session_id", id))
	}
	return sess, true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Prune drops sessions idle since before now-idle and returns how many were removed.
// Sessions with an analysis or playback in flight are kept.
func (s *Store) Prune(now time.Time) int {
	if s.idle <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if !sess.LastSeen().Before(cutoff) {
			continue
		}
		st := sess.Snapshot()
		if st.Loading || st.Speaking {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	if removed > 0 {
		metrics.SetActiveSessions(len(s.sessions))
	}
	return removed
}
