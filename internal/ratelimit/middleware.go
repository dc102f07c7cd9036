package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Middleware applies a Store to HTTP handlers.
type Middleware struct {
	store    *Store
	limit    int
	window   time.Duration
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns throttling off (local development, demos).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(store *Store, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled || m.limit <= 0 {
		m.disabled = true
		logger.Info("form rate limiting disabled")
	}
	return m
}

// Limit throttles next per client address. class separates the budgets of
// unrelated forms.
func (m *Middleware) Limit(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			res := m.store.Allow(class+":"+ip, m.limit, m.window)
			addHeaders(w, res)
			if !res.Allowed {
				m.logger.WarnContext(r.Context(), "rate limit exceeded", "class", class, "client_ip", ip)
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(res.RetryAfter)))
				http.Error(w, "Too many attempts. Wait a minute and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retrySeconds rounds d up to whole seconds, never below one.
func retrySeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return max(secs, 1)
}

func addHeaders(w http.ResponseWriter, res Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

// clientIP expects chi's RealIP to have run, so RemoteAddr is already the client.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
