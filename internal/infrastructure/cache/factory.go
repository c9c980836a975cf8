package cache

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/config"
)

// NewIdempotencyStore creates the store named by cfg.Backend.
//
// "database" is the default and the only backend that survives restarts.
// "redis" shares state across instances but delegates durability to Redis
// persistence settings. "memory" is for tests and single-instance dev runs.
func NewIdempotencyStore(cfg config.IdempotencyConfig, redisCfg config.RedisConfig, db *gorm.DB, log *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.Backend {
	case "database", "":
		log.Info("using database idempotency store")
		return NewDatabaseIdempotencyStore(db), nil
	case "redis":
		store, err := NewRedisIdempotencyStore(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis idempotency store: %w", err)
		}
		log.Info("using Redis idempotency store")
		return store, nil
	case "memory":
		log.Warn("using in-memory idempotency store; duplicate suppression does not survive restarts or span instances")
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
	}
}
