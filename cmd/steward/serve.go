package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"
	"golang.org/x/sync/errgroup"

	"steward/internal/access"
	"steward/internal/authclient"
	"steward/internal/console"
	"steward/internal/guard"
	"steward/internal/lifecycle"
	"steward/internal/platform/config"
	"steward/internal/platform/httpserver"
	"steward/internal/platform/logger"
	"steward/internal/platform/metrics"
	"steward/internal/ratelimit"
	redisclient "steward/internal/platform/redis"
	"steward/internal/session"
	"steward/internal/token"
	audit "steward/pkg/platform/audit"
	"steward/pkg/platform/audit/publisher"
	"steward/pkg/platform/audit/store/memory"
	"steward/pkg/platform/audit/store/postgres"
)

const shutdownTimeout = 10 * time.Second

type infra struct {
	store   session.Store
	redis   *redisclient.Client
	db      *sql.DB
	audit   *publisher.Publisher
	closers []func() error
}

func (i *infra) close(log *slog.Logger) {
	i.audit.Close()
	for _, c := range i.closers {
		if err := c(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}
}

func runServe(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg.Server.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := metrics.New(nil)
	deps, err := buildInfra(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	if cfg.Auth.TokenVerifyKey == "" {
		log.Warn("TOKEN_VERIFY_KEY not set; session tokens are decoded without signature verification")
	}
	eval := access.NewEvaluator(token.NewDecoder(cfg.Auth.TokenVerifyKey), log)
	flashKey := []byte(cfg.Session.CookieHashKey)
	if len(flashKey) == 0 {
		// Notices only live across one redirect, so a per-process key is enough.
		flashKey = securecookie.GenerateRandomKey(32)
	}
	flash := guard.NewFlash(flashKey, cfg.Session.CookieSecure)
	g := guard.New(deps.store, eval, flash, deps.audit, m, log, guard.DefaultPaths)

	api := authclient.New(cfg.Auth.ServiceURL, cfg.Auth.RequestTimeout, m)
	lc := lifecycle.New(api, deps.store, deps.audit, m, log)
	attempts := ratelimit.NewStore()
	limiter := ratelimit.New(attempts, cfg.RateLimit.FormAttempts, cfg.RateLimit.Window, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)
	xsrf := guard.NewXSRF(flashKey, cfg.Session.CookieSecure)
	h, err := console.New(g, flash, xsrf, lc, api, log,
		console.WithFormLimiter(limiter),
		console.WithAuditLog(deps.audit),
	)
	if err != nil {
		return fmt.Errorf("build console: %w", err)
	}

	srv := httpserver.New(cfg.Server.Addr, h.Routes())
	metricsSrv := httpserver.New(cfg.Server.MetricsAddr, opsRouter(m, deps))

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info("console listening", "addr", cfg.Server.Addr, "session_backend", cfg.Session.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("console server: %w", err)
		}
		return nil
	})
	grp.Go(func() error {
		log.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	if cfg.RateLimit.Window > 0 {
		grp.Go(func() error {
			ticker := time.NewTicker(cfg.RateLimit.Window)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					attempts.Sweep()
				}
			}
		})
	}
	grp.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})
	return grp.Wait()
}

func buildInfra(ctx context.Context, cfg config.Config, m *metrics.Metrics, log *slog.Logger) (*infra, error) {
	deps := &infra{}
	opts := session.Options{Secure: cfg.Session.CookieSecure, TTL: cfg.Session.TTL}

	switch cfg.Session.Backend {
	case config.StoreRedis:
		rc, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.redis = rc
		deps.closers = append(deps.closers, rc.Close)
		deps.store = session.NewRedisStore(rc, opts, m, log)
	case config.StoreMemory:
		log.Warn("memory session backend: sessions are lost on restart")
		deps.store = session.NewMemoryStore(opts)
	default:
		var block []byte
		if k := cfg.Session.CookieBlockKey; k != "" {
			block = []byte(k)
		}
		deps.store = session.NewCookieStore([]byte(cfg.Session.CookieHashKey), block, opts, log)
	}

	var sink audit.Store = memory.NewInMemoryStore()
	if cfg.Audit.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open audit database: %w", err)
		}
		deps.db = db
		deps.closers = append(deps.closers, db.Close)
		pg := postgres.New(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate audit database: %w", err)
		}
		sink = pg
	}
	deps.audit = publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
	)
	return deps, nil
}

func opsRouter(m *metrics.Metrics, deps *infra) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", m.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.redis != nil {
			if err := deps.redis.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if deps.db != nil {
			if err := deps.db.PingContext(r.Context()); err != nil {
				http.Error(w, "audit database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
