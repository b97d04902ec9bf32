package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTokenNotFound = errors.New("token not found")

const (
	refreshPrefix = "refresh:"
	denyPrefix    = "denied:"
)

// TokenStore tracks live refresh tokens (whitelist) and revoked access
// tokens (denylist) by jti. Entries expire with their tokens, so the store
// never grows past the set of currently valid tokens.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// SaveRefresh registers a refresh token jti as live for its lifetime.
func (s *TokenStore) SaveRefresh(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, refreshPrefix+jti, userID, ttl).Err()
}

// ConsumeRefresh atomically removes a live refresh jti, returning the user
// it belonged to. A second consume of the same jti fails, which is what
// makes refresh tokens single-use.
func (s *TokenStore) ConsumeRefresh(ctx context.Context, jti string) (string, error) {
	userID, err := s.client.GetDel(ctx, refreshPrefix+jti).Result()
	if err == redis.Nil {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// DeleteRefresh revokes a refresh token outright (logout).
func (s *TokenStore) DeleteRefresh(ctx context.Context, jti string) error {
	return s.client.Del(ctx, refreshPrefix+jti).Err()
}

// DenyAccess blacklists an access token jti until it would have expired
// anyway.
func (s *TokenStore) DenyAccess(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, denyPrefix+jti, "1", ttl).Err()
}

// IsAccessDenied reports whether an access jti has been revoked.
func (s *TokenStore) IsAccessDenied(ctx context.Context, jti string) (bool, error) {
	_, err := s.client.Get(ctx, denyPrefix+jti).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
