package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SESSION_BACKEND", "STEWARD_ADDR", "SESSION_TTL_HOURS", "SESSION_COOKIE_SECURE", "AUTH_SERVICE_TIMEOUT_SECONDS", "FORM_RATE_LIMIT", "FORM_RATE_WINDOW_SECONDS"} {
		unsetenv(t, key)
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoreCookie, cfg.Session.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 10*time.Second, cfg.Auth.RequestTimeout)
	assert.Equal(t, 10, cfg.RateLimit.FormAttempts)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SESSION_BACKEND", StoreRedis)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TOKEN_VERIFY_KEY", "k")
	t.Setenv("SESSION_TTL_HOURS", "2")

	cfg := Load()

	assert.Equal(t, StoreRedis, cfg.Session.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "k", cfg.Auth.TokenVerifyKey)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Auth:    Auth{ServiceURL: "http://auth"},
		Session: Session{Backend: StoreCookie, CookieHashKey: strings.Repeat("h", 32)},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"short hash key":    func(c *Config) { c.Session.CookieHashKey = "short" },
		"odd block key":     func(c *Config) { c.Session.CookieBlockKey = "12345" },
		"redis without url":  func(c *Config) { c.Session.Backend = StoreRedis },
		"unknown backend":   func(c *Config) { c.Session.Backend = "localstorage" },
		"missing auth url":  func(c *Config) { c.Auth.ServiceURL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			require.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}

	mem := valid
	mem.Session = Session{Backend: StoreMemory}
	require.NoError(t, mem.Validate())
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
