package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 2*time.Second, c.RefillInterval)
	assert.Equal(t, 10*time.Second, c.TTL)
	assert.True(t, c.Enabled)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "off")

	c := LoadCacheConfig()
	assert.False(t, c.Enabled)
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.Equal(t, 30*time.Second, c.TTL)
}

func TestLoad(t *testing.T) {
	t.Setenv("DB_USER", "loyalty")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "loyalty")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "30")
	t.Setenv("AMQP_URL", "amqp://mq/")
	t.Setenv("OTP_TTL", "5m")

	c := Load()
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, 15, c.AccessTTLMin)
	assert.Equal(t, "amqp://mq/", c.AMQPURL)
	assert.Equal(t, 5*time.Minute, c.OTP.TTL)
	assert.Equal(t, 5, c.OTP.MaxAttempts)
}

func TestLoadClient(t *testing.T) {
	t.Setenv("LOYALTY_API_URL", "https://api.example.com/")
	t.Setenv("LOYALTY_REFRESH_TOKEN", " abc ")
	t.Setenv("LOYALTY_INIT_TIMEOUT", "")

	c := LoadClient()
	assert.Equal(t, "https://api.example.com", c.APIURL)
	assert.Equal(t, "abc", c.RefreshToken)
	assert.Equal(t, 10*time.Second, c.InitTimeout)
	assert.Equal(t, 500*time.Millisecond, c.ProfileRetryDelay)
}
