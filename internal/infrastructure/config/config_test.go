package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "erpsync", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 1, cfg.RateLimit.SyncPerMinute)
	assert.Equal(t, 30, cfg.RateLimit.SyncPerHour)
	assert.Equal(t, 10, cfg.RateLimit.AIPerHour)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, "database", cfg.Idempotency.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.RefreshSkew)
}

func TestValidate(t *testing.T) {
	t.Run("production requires secrets", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.App.Env = "production"
		require.Error(t, cfg.Validate())

		cfg.JWT.Secret = "s"
		cfg.SystemAuth.Key = "k"
		cfg.Vault.MasterKey = "m"
		require.NoError(t, cfg.Validate())
	})

	t.Run("rejects unknown idempotency backend", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Idempotency.Backend = "dynamo"
		require.Error(t, cfg.Validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "erpsync", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=erpsync sslmode=require", cfg.DSN())
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
