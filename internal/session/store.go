package session

import (
	"context"
	"sync"
	"time"

	"menu-scorecard/internal/analysis"
	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/metrics"

	"github.com/google/uuid"
)

// Store keeps sessions in memory. A session untouched for longer than the
// TTL is reset and dropped by Sweep.
type Store struct {
	analyzer  analysis.Analyzer
	submitter LeadSubmitter
	ttl       time.Duration
	logger    logger.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(analyzer analysis.Analyzer, submitter LeadSubmitter, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		analyzer:  analyzer,
		submitter: submitter,
		ttl:       ttl,
		logger:    log,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

func (st *Store) Create() *Session {
	s := New(uuid.NewString(), st.analyzer, st.submitter, st.logger)
	s.now = st.now
	s.lastSeen = st.now()

	st.mu.Lock()
	st.sessions[s.id] = s
	n := len(st.sessions)
	st.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	st.logger.Debug("Session created", map[string]interface{}{"sessionId": s.id})
	return s
}

// Get returns the session and marks it as seen.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	s.touch()
	return s, nil
}

// Delete resets the session, which cancels its analysis and releases its
// camera, then forgets it.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()

	if !ok {
		return apperrors.NewSessionNotFoundError(id)
	}
	s.Reset()
	metrics.SessionsActive.Set(float64(n))
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.idleSince(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	for _, s := range expired {
		s.Reset()
	}
	if len(expired) > 0 {
		st.logger.Info("Expired sessions removed", map[string]interface{}{
			"expired":   len(expired),
			"remaining": n,
		})
	}
	metrics.SessionsActive.Set(float64(n))
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Close resets every session.
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range sessions {
		s.Reset()
	}
	metrics.SessionsActive.Set(0)
}
