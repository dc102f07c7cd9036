// Package console serves the admin console: the public site, sign-in, the gated
// management screens and the JSON session API.
package console

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"steward/internal/access"
	"steward/internal/authclient"
	"steward/internal/guard"
	"steward/internal/lifecycle"
	"steward/internal/ratelimit"
	audit "steward/pkg/platform/audit"
)

// Lifecycle starts and ends sessions and applies account changes.
type Lifecycle interface {
	Login(w http.ResponseWriter, r *http.Request, in lifecycle.LoginInput) error
	Logout(w http.ResponseWriter, r *http.Request, viewer *access.Viewer) error
	ChangeRights(w http.ResponseWriter, r *http.Request, viewer *access.Viewer, accountID string, values []string) (lifecycle.Result, error)
	ChangeDetails(w http.ResponseWriter, r *http.Request, viewer *access.Viewer, accountID string, in lifecycle.DetailsInput) (lifecycle.Result, error)
	ChangePassword(w http.ResponseWriter, r *http.Request, viewer *access.Viewer, accountID string, in lifecycle.PasswordInput) (lifecycle.Result, error)
}

// Directory is the read side of the account API plus the public submissions.
type Directory interface {
	ListAccounts(ctx context.Context, bearer string) ([]authclient.Account, error)
	SubmitMessage(ctx context.Context, m authclient.Message) error
	Subscribe(ctx context.Context, email string) error
}

// AuditLog is the read side of the audit trail.
type AuditLog interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Handler serves every console route.
type Handler struct {
	guard     *guard.Guard
	flash     *guard.Flash
	xsrf      *guard.XSRF
	lifecycle Lifecycle
	directory Directory
	auditLog  AuditLog
	limiter   *ratelimit.Middleware
	logger    *slog.Logger
	templates map[string]*template.Template
}

type Option func(*Handler)

// WithAuditLog exposes recent audit events to sessions holding view_reports.
func WithAuditLog(l AuditLog) Option {
	return func(h *Handler) {
		h.auditLog = l
	}
}

// WithFormLimiter throttles the sign-in and public forms.
func WithFormLimiter(m *ratelimit.Middleware) Option {
	return func(h *Handler) {
		h.limiter = m
	}
}

func New(
	g *guard.Guard,
	flash *guard.Flash,
	xsrf *guard.XSRF,
	lc Lifecycle,
	directory Directory,
	logger *slog.Logger,
	opts ...Option) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		guard:     g,
		flash:     flash,
		xsrf:      xsrf,
		lifecycle: lc,
		directory: directory,
		logger:    logger,
		templates: templates,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Routes returns the console router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleHome)
	r.With(h.throttle("public_form")).Post("/contact", h.handleContact)
	r.With(h.throttle("public_form")).Post("/subscribe", h.handleSubscribe)
	r.Get("/login", h.handleLoginForm)
	r.With(h.throttle("login")).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.With(h.guard.Protect(screenDashboard)).Get("/dashboard", h.handleDashboard)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(screenPassword))
		r.Use(h.xsrf.Validate)
		r.Get("/account/password", h.handlePasswordForm)
		r.Post("/account/password", h.handleOwnPassword)
	})

	for _, rt := range gated {
		r.With(h.guard.Protect(rt.Screen)).Get(rt.Path, h.handleScreen(rt.Screen))
	}

	r.Route("/accounts", func(r chi.Router) {
		r.Use(h.guard.Protect(screenAccounts))
		r.Use(h.xsrf.Validate)
		r.Get("/", h.handleAccounts)
		r.Post("/{id}/rights", h.handleAccountRights)
		r.Post("/{id}/details", h.handleAccountDetails)
		r.Post("/{id}/password", h.handleAccountPassword)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.handleSession)
		r.Get("/session/capabilities/{id}", h.handleCapability)
		r.Get("/rights", h.handleRights)
		if h.auditLog != nil {
			r.With(h.guard.ProtectAPI(screenReports)).Get("/audit/recent", h.handleRecentAudit)
		}
	})

	return r
}

func (h *Handler) throttle(class string) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limiter.Limit(class)
}
