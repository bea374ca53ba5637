package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeStore tracks notification dedupe keys in Redis.
type DedupeStore struct {
	client *redis.Client
}

// NewDedupeStore creates a new DedupeStore.
func NewDedupeStore(client *redis.Client) *DedupeStore {
	return &DedupeStore{client: client}
}

// Acquire attempts to claim the given dedupe key. Returns true if this is
// the first claim within the TTL, false if the key is already held.
func (s *DedupeStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, "dedupe:"+key, "1", ttl).Result()
}
