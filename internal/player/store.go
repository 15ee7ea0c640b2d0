package player

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"readquest/internal/logger"
	"readquest/internal/models"
)

// Session ties a player to who is playing and what
type Session struct {
	ID         string
	UserID     string
	BookID     string
	Difficulty models.Difficulty
	Player     *Player
	CreatedAt  time.Time

	mu         sync.Mutex
	lastSeen   time.Time
	completion *models.CompletionResult
}

// Anonymous reports whether the attempt has no signed-in user
func (s *Session) Anonymous() bool {
	return s.UserID == ""
}

// SetCompletion stores the stats update produced when the attempt finished
func (s *Session) SetCompletion(result *models.CompletionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completion = result
}

func (s *Session) Completion() *models.CompletionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store keeps live sessions in memory. Sessions idle for longer than the TTL
// are cancelled and dropped by Sweep.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Add registers a session under a fresh id
func (s *Store) Add(sess *Session) {
	now := s.now()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.CreatedAt = now
	sess.touch(now)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

// Get returns a session and marks it as active
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		sess.touch(s.now())
	}
	return sess, ok
}

// Remove drops a session without touching its player
func (s *Store) Remove(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	return sess, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep cancels and removes expired sessions, returning how many went
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Player.Cancel()
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.Debug("swept idle quiz sessions", "count", n)
			}
		}
	}
}
