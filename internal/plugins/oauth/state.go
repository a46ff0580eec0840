package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore issues and redeems single-use OAuth state values.
type StateStore interface {
	// Issue creates a new state value that stays redeemable for the TTL.
	Issue(ctx context.Context) (string, error)

	// Consume redeems state. Returns false if it was never issued, has
	// expired or was already used.
	Consume(ctx context.Context, state string) (bool, error)
}

// redisStateStore keeps state values in Redis with a TTL.
type redisStateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStateStore creates a Redis-backed state store.
func NewRedisStateStore(rdb *redis.Client, ttl time.Duration) StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &redisStateStore{rdb: rdb, ttl: ttl}
}

func (s *redisStateStore) Issue(ctx context.Context) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	if err := s.rdb.Set(ctx, stateKeyPrefix+state, "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("storing oauth state: %w", err)
	}
	return state, nil
}

func (s *redisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	err := s.rdb.GetDel(ctx, stateKeyPrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redeeming oauth state: %w", err)
	}
	return true, nil
}
