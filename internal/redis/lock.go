package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore is the Redis backend of the trip lock coordinator.
type LockStore struct {
	client redis.Cmdable
}

// NewLockStore creates a new LockStore.
func NewLockStore(client redis.Cmdable) *LockStore {
	return &LockStore{client: client}
}

// SetNX sets key to value with a millisecond expiry only if it does not exist (SET key value PX ttl NX).
// Returns true if the key was created, false if already held.
func (s *LockStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// Del deletes the key and returns how many keys were removed.
func (s *LockStore) Del(ctx context.Context, key string) (int64, error) {
	return s.client.Del(ctx, key).Result()
}

// PTTL returns the remaining lifetime of key.
// Like Redis it returns -2 for a missing key and -1 for a key without expiry.
func (s *LockStore) PTTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.PTTL(ctx, key).Result()
}
