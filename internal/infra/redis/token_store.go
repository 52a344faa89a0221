package redis

import (
	"context"
	"time"

	"sessq-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TokenStore holds refresh tokens in Redis, keyed "refresh:{token}", so
// host logins survive restarts and work across instances.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) SaveRefresh(ctx context.Context, token, hostID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(token), hostID, ttl).Err()
}

// ConsumeRefresh resolves and deletes a refresh token (rotation).
func (s *TokenStore) ConsumeRefresh(ctx context.Context, token string) (string, error) {
	hostID, err := s.client.GetDel(ctx, s.key(token)).Result()
	if err != nil {
		return "", domain.ErrInvalidCredentials
	}
	return hostID, nil
}

func (s *TokenStore) key(token string) string {
	return "refresh:" + token
}
