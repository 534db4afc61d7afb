package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagepass/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "stagepass")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_x")
}

func TestNew_ReadsEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CHECKOUT_RATE_LIMIT", "5")
	t.Setenv("CHECKOUT_RATE_WINDOW_SECONDS", "30")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "600")

	cfg, err := config.New()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 5, cfg.App.CheckoutRateLimit)
	assert.Equal(t, 30*time.Second, cfg.App.CheckoutRateWindow)
	assert.Equal(t, 10*time.Minute, cfg.App.IdempotencyTTL)
}

func TestNew_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("CHECKOUT_RATE_LIMIT", "")
	t.Setenv("CHECKOUT_RATE_WINDOW_SECONDS", "")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "")

	cfg, err := config.New()
	require.NoError(t, err)

	assert.Empty(t, cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 10, cfg.App.CheckoutRateLimit)
	assert.Equal(t, time.Minute, cfg.App.CheckoutRateWindow)
	assert.Equal(t, 2*time.Hour, cfg.App.IdempotencyTTL)
}

func TestNew_RejectsMalformedInt(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := config.New()
	assert.Error(t, err)
}
