package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/config"
)

const defaultKeyPrefix = "sync:idempotency:"

// RedisIdempotencyStore implements IdempotencyStore on Redis.
// Suitable for distributed deployments where multiple instances need to
// share idempotency state. Expiry is handled by Redis TTLs, so Sweep is
// a no-op for this backend.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a Redis-backed store and verifies the
// connection before returning
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}, nil
}

// NewRedisIdempotencyStoreWithClient creates a store with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisIdempotencyStore) redisKey(tenantID uuid.UUID, key string) string {
	return s.keyPrefix + tenantID.String() + ":" + key
}

// Seen reports whether the tenant has already recorded the key
func (s *RedisIdempotencyStore) Seen(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.redisKey(tenantID, key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return exists > 0, nil
}

// Record marks the key as seen for the tenant. Returns true if the key was
// newly recorded, false if it already existed. SETNX makes the check-and-set
// atomic across instances.
func (s *RedisIdempotencyStore) Record(ctx context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, error) {
	set, err := s.client.SetNX(ctx, s.redisKey(tenantID, key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return set, nil
}

// Release deletes the tenant's entry for the key
func (s *RedisIdempotencyStore) Release(ctx context.Context, tenantID uuid.UUID, key string) error {
	if err := s.client.Del(ctx, s.redisKey(tenantID, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Sweep is a no-op; Redis expires keys on its own
func (s *RedisIdempotencyStore) Sweep(ctx context.Context) (int64, error) {
	return 0, nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
