// Package config loads console configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Store backends for session records.
const (
	StoreCookie = "cookie"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	MetricsAddr string
	LogLevel    string
}

// Auth configures the external auth/account service and token handling.
type Auth struct {
	ServiceURL     string
	RequestTimeout time.Duration
	// TokenVerifyKey is the HS256 key tokens are checked against. Empty means tokens
	// are treated as opaque and only decoded.
	TokenVerifyKey string
	// DevSigningKey enables the issue-token command for local development.
	DevSigningKey string
}

// Session configures where session records are kept.
type Session struct {
	Backend        string
	TTL            time.Duration
	CookieSecure   bool
	CookieHashKey  string
	CookieBlockKey string
}

// RedisConfig configures the Redis client used by the redis session backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Audit configures where audit events are written. Without a DatabaseURL events are
// kept in memory and logged.
type Audit struct {
	DatabaseURL string
	BufferSize  int
}

// RateLimit throttles the sign-in and public forms per client address.
type RateLimit struct {
	FormAttempts int
	Window       time.Duration
	Disabled     bool
}

type Config struct {
	Server    Server
	Auth      Auth
	Session   Session
	Redis     RedisConfig
	Audit     Audit
	RateLimit RateLimit
}

// Load builds a Config from environment variables so main stays lean.
func Load() Config {
	loadDotEnv()

	return Config{
		Server: Server{
			Addr:        env.GetString("STEWARD_ADDR", ":8080"),
			MetricsAddr: env.GetString("STEWARD_METRICS_ADDR", ":9090"),
			LogLevel:    env.GetString("LOG_LEVEL", "info"),
		},
		Auth: Auth{
			ServiceURL:     env.GetString("AUTH_SERVICE_URL", "http://localhost:5000/api"),
			RequestTimeout: env.GetDuration("AUTH_SERVICE_TIMEOUT_SECONDS", 10, time.Second),
			TokenVerifyKey: env.GetString("TOKEN_VERIFY_KEY", ""),
			DevSigningKey:  env.GetString("DEV_SIGNING_KEY", ""),
		},
		Session: Session{
			Backend:        env.GetString("SESSION_BACKEND", StoreCookie),
			TTL:            env.GetDuration("SESSION_TTL_HOURS", 12, time.Hour),
			CookieSecure:   env.GetBool("SESSION_COOKIE_SECURE", true),
			CookieHashKey:  env.GetString("SESSION_COOKIE_HASH_KEY", ""),
			CookieBlockKey: env.GetString("SESSION_COOKIE_BLOCK_KEY", ""),
		},
		Redis: RedisConfig{
			URL:          env.GetString("REDIS_URL", ""),
			PoolSize:     env.GetInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.GetInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.GetDuration("REDIS_DIAL_TIMEOUT_MS", 500, time.Millisecond),
			ReadTimeout:  env.GetDuration("REDIS_READ_TIMEOUT_MS", 250, time.Millisecond),
			WriteTimeout: env.GetDuration("REDIS_WRITE_TIMEOUT_MS", 250, time.Millisecond),
		},
		Audit: Audit{
			DatabaseURL: env.GetString("AUDIT_DATABASE_URL", ""),
			BufferSize:  env.GetInt("AUDIT_BUFFER_SIZE", 256),
		},
		RateLimit: RateLimit{
			FormAttempts: env.GetInt("FORM_RATE_LIMIT", 10),
			Window:       env.GetDuration("FORM_RATE_WINDOW_SECONDS", 60, time.Second),
			Disabled:     env.GetBool("DISABLE_RATE_LIMITING", false),
		},
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.Session.Backend {
	case StoreCookie:
		if len(c.Session.CookieHashKey) < 32 {
			return fmt.Errorf("%w: SESSION_COOKIE_HASH_KEY must be at least 32 bytes", ErrInvalidConfig)
		}
		if n := len(c.Session.CookieBlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
			return fmt.Errorf("%w: SESSION_COOKIE_BLOCK_KEY must be 16, 24 or 32 bytes", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("%w: REDIS_URL is required for the redis session backend", ErrInvalidConfig)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: unknown SESSION_BACKEND %q", ErrInvalidConfig, c.Session.Backend)
	}
	if c.Auth.ServiceURL == "" {
		return fmt.Errorf("%w: AUTH_SERVICE_URL is required", ErrInvalidConfig)
	}
	return nil
}

// loadDotEnv walks up from the working directory and loads the first .env it finds.
// A missing file is not an error.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
