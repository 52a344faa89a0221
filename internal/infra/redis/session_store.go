package redis

import (
	"context"
	"sync"
	"time"

	"sessq-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Session state itself stays in-process (the hub and the answer ledger
//     need in-memory locking), so a local map holds the live sessions.
//   - Redis marks code liveness, which keeps codes unique across instances
//     sharing the same Redis and lets operators see active codes.
//   - For true distribution you'd pair this with a pub/sub projector that
//     fans broadcasts out across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Insert(code string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.sessions[code]; taken {
		return false
	}
	// SETNX guards against another instance holding the code.
	ok, err := s.client.SetNX(context.Background(), s.key(code), "1", s.ttl).Result()
	if err == nil && !ok {
		return false
	}
	s.sessions[code] = session
	return true
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) MarkEnded(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[code]; !ok {
		return
	}
	// The session stays in the local map for summary reads; only the
	// liveness key is dropped so the code can be reused.
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

func (s *SessionStore) key(code string) string {
	return "session:live:" + code
}
