package memory

import (
	"context"
	"sync"
	"time"

	"sessq-service/internal/domain"
)

// TokenStore keeps refresh tokens in memory with expiry. Suitable for
// single-instance deployments and tests; use the Redis store otherwise.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]storedToken
}

type storedToken struct {
	hostID    string
	expiresAt time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]storedToken)}
}

func (s *TokenStore) SaveRefresh(_ context.Context, token, hostID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = storedToken{hostID: hostID, expiresAt: time.Now().Add(ttl)}
	return nil
}

// ConsumeRefresh resolves and deletes a refresh token (rotation).
func (s *TokenStore) ConsumeRefresh(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return "", domain.ErrInvalidCredentials
	}
	delete(s.tokens, token)
	if time.Now().After(entry.expiresAt) {
		return "", domain.ErrInvalidCredentials
	}
	return entry.hostID, nil
}
