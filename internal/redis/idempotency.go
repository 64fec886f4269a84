package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"ride-trip/internal/middleware"
)

const idempotencyPrefix = "idempotency:"

// IdempotencyStore keeps replayable HTTP responses in Redis.
type IdempotencyStore struct {
	client redis.Cmdable
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func (s *IdempotencyStore) LoadResponse(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, middleware.ErrResponseNotFound
	}
	return data, err
}

func (s *IdempotencyStore) SaveResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyPrefix+key, data, ttl).Err()
}
