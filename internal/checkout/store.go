package checkout

import (
	"sync"
	"time"
)

const (
	// DefaultSessionTTL is how long an idle checkout session survives
	// before the background cleanup abandons it.
	DefaultSessionTTL = 30 * time.Minute

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = time.Minute
)

// SessionStore keeps at most one live checkout session per user in memory.
// Sessions that sit idle past the TTL are dropped by a background loop.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	ttl time.Duration

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

// NewSessionStore creates a session store and starts its cleanup goroutine.
// A non-positive ttl falls back to DefaultSessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &SessionStore{
		sessions:    make(map[int64]*Session),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *SessionStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireSessions()
		case <-s.stopCleanup:
			return
		}
	}
}

// expireSessions drops every session idle for longer than the TTL.
func (s *SessionStore) expireSessions() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, userID)
		}
	}
}

// Get returns the user's live session, or nil when none exists.
func (s *SessionStore) Get(userID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

// Put stores sess, replacing any previous session for the same user.
func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
}

// Delete removes the user's session, if any.
func (s *SessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the background cleanup and waits for it to finish
func (s *SessionStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}
