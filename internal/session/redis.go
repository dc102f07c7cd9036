package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"steward/internal/platform/metrics"
)

const recordKeyPrefix = "steward:session:"

// RedisStore keeps records in Redis hashes keyed by the browser id cookie, so every
// console instance sees the same session for a browser.
type RedisStore struct {
	client  redis.Cmdable
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewRedisStore(client redis.Cmdable, opts Options, m *metrics.Metrics, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, opts: opts, metrics: m, logger: logger}
}

func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, rec Record) error {
	id, previous := rotateBrowserID(w, r, s.opts)
	key := recordKeyPrefix + id
	fields := make(map[string]any, 4)
	for k, v := range rec.values() {
		fields[k] = v
	}

	_, err := s.client.TxPipelined(r.Context(), func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(r.Context(), recordKeyPrefix+previous)
		}
		pipe.HSet(r.Context(), key, fields)
		if s.opts.TTL > 0 {
			pipe.Expire(r.Context(), key, s.opts.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session record: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(r *http.Request) (Record, bool) {
	id, ok := browserID(r)
	if !ok {
		return Record{}, false
	}

	start := time.Now()
	defer func() {
		s.metrics.ObserveSessionLoad(time.Since(start).Seconds())
	}()

	values, err := s.client.HGetAll(r.Context(), recordKeyPrefix+id).Result()
	if err != nil {
		s.logger.WarnContext(r.Context(), "session store unavailable, treating request as anonymous", "error", err)
		return Record{}, false
	}
	return recordFromValues(values)
}

func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	id, ok := browserID(r)
	expireCookie(w, browserCookie, s.opts)
	if !ok {
		return nil
	}
	if err := s.client.Del(r.Context(), recordKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
