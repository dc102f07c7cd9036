package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(now *time.Time) *Store {
	s := NewStore()
	s.now = func() time.Time { return *now }
	return s
}

func TestStore_Allow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)

	for i := range 3 {
		res := s.Allow("login:1.2.3.4", 3, time.Minute)
		require.True(t, res.Allowed, "attempt %d", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res := s.Allow("login:1.2.3.4", 3, time.Minute)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)
	assert.Equal(t, time.Minute, res.RetryAfter)

	t.Run("other keys have their own window", func(t *testing.T) {
		assert.True(t, s.Allow("login:5.6.7.8", 3, time.Minute).Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		now = now.Add(time.Minute + time.Second)
		assert.True(t, s.Allow("login:1.2.3.4", 3, time.Minute).Allowed)
	})

	t.Run("reset", func(t *testing.T) {
		s.Reset("login:1.2.3.4")
		res := s.Allow("login:1.2.3.4", 3, time.Minute)
		assert.Equal(t, 2, res.Remaining)
	})
}

func TestStore_Sweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)
	s.Allow("a", 5, time.Minute)
	s.Allow("b", 5, time.Hour)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Len(t, s.buckets, 1)
}

func TestRetrySeconds(t *testing.T) {
	assert.Equal(t, 1, retrySeconds(0))
	assert.Equal(t, 1, retrySeconds(200*time.Millisecond))
	assert.Equal(t, 30, retrySeconds(30*time.Second))
	assert.Equal(t, 31, retrySeconds(30*time.Second+time.Millisecond))
}

func TestMiddleware_Limit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("throttles per client", func(t *testing.T) {
		h := New(NewStore(), 2, time.Minute, logger).Limit("login")(ok)

		send := func(addr string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = addr
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			return rr
		}

		assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1234").Code)
		assert.Equal(t, http.StatusNoContent, send("10.0.0.1:5555").Code)
		rr := send("10.0.0.1:1234")
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))

		assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1234").Code)
	})

	t.Run("retry after follows the store clock", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		store := newTestStore(&now)
		h := New(store, 1, time.Minute, logger).Limit("login")(ok)

		send := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = "10.0.0.3:1234"
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			return rr
		}

		require.Equal(t, http.StatusNoContent, send().Code)
		now = now.Add(15*time.Second + 500*time.Millisecond)
		rr := send()
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "45", rr.Header().Get("Retry-After"))
	})

	t.Run("disabled", func(t *testing.T) {
		h := New(NewStore(), 1, time.Minute, logger, WithDisabled(true)).Limit("login")(ok)
		for range 3 {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
			assert.Equal(t, http.StatusNoContent, rr.Code)
		}
	})
}
