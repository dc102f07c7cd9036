// Package guard wraps console screens and decides, per request, whether to render
// them, send the browser to the login page, or turn it away with a notice.
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"steward/internal/access"
	"steward/internal/platform/metrics"
	"steward/internal/rights"
	"steward/internal/session"
	audit "steward/pkg/platform/audit"
)

const tracerName = "steward/guard"

// Outcome is the result of guarding one request.
type Outcome int

const (
	Authorized Outcome = iota
	// Unauthenticated: no usable session; the browser is sent to the login page.
	Unauthenticated
	// Forbidden: the session lacks the screen's capability.
	Forbidden
	// PasswordChangeRequired: the session must set a new password first.
	PasswordChangeRequired
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case PasswordChangeRequired:
		return "password_change_required"
	default:
		return "unknown"
	}
}

// Screen is a navigable page or action and the capability it requires.
type Screen struct {
	// Name is shown to the user in denial notices, e.g. "Leadership".
	Name string
	// Requires is the capability needed; empty means any signed-in session.
	Requires rights.ID
	// PasswordChange marks the screen reachable while a password change is pending.
	PasswordChange bool
}

// Result is the full decision for one request.
type Result struct {
	Outcome  Outcome
	Decision access.Decision
	Viewer   *access.Viewer
}

// Auditor records access events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Paths are the locations the guard redirects to.
type Paths struct {
	Login          string
	Landing        string
	PasswordChange string
}

// DefaultPaths are the console's standard locations.
var DefaultPaths = Paths{
	Login:          "/login",
	Landing:        "/dashboard",
	PasswordChange: "/account/password",
}

type Guard struct {
	store   session.Store
	eval    *access.Evaluator
	flash   *Flash
	auditor Auditor
	metrics *metrics.Metrics
	logger  *slog.Logger
	paths   Paths
}

func New(
	store session.Store,
	eval *access.Evaluator,
	flash *Flash,
	auditor Auditor,
	m *metrics.Metrics,
	logger *slog.Logger,
	paths Paths) *Guard {
	return &Guard{
		store:   store,
		eval:    eval,
		flash:   flash,
		auditor: auditor,
		metrics: m,
		logger:  logger,
		paths:   paths,
	}
}

// Paths returns the redirect locations the guard uses.
func (g *Guard) Paths() Paths {
	return g.paths
}

// Decide evaluates screen for r without writing a response.
func (g *Guard) Decide(r *http.Request, screen Screen) Result {
	ctx := r.Context()

	rec, ok := g.store.Load(r)
	if !ok {
		return Result{Outcome: Unauthenticated, Decision: access.NoSession}
	}

	viewer, d := g.eval.Inspect(ctx, rec.Token)
	if d != access.Allow {
		// The stored token is unusable; there is no session to hold capabilities.
		return Result{Outcome: Unauthenticated, Decision: d}
	}
	viewer.Profile = rec

	d = viewer.Decide(ctx, screen.Requires)
	if d != access.Allow {
		return Result{Outcome: Forbidden, Decision: d, Viewer: viewer}
	}
	if viewer.Claims.MustChangePassword && !screen.PasswordChange {
		return Result{Outcome: PasswordChangeRequired, Decision: d, Viewer: viewer}
	}
	return Result{Outcome: Authorized, Decision: d, Viewer: viewer}
}

// Protect renders next only for sessions that may open screen.
func (g *Guard) Protect(screen Screen) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := otel.Tracer(tracerName).Start(r.Context(), "guard.Protect")
			defer span.End()
			r = r.WithContext(ctx)

			res := g.Decide(r, screen)
			span.SetAttributes(
				attribute.String("screen", screen.Name),
				attribute.String("outcome", res.Outcome.String()),
			)
			g.metrics.ObserveGuard(screen.Name, res.Outcome.String())

			switch res.Outcome {
			case Authorized:
				next.ServeHTTP(w, r.WithContext(access.WithViewer(ctx, res.Viewer)))
			case Unauthenticated:
				g.redirectToLogin(w, r, res.Decision)
			case Forbidden:
				g.deny(w, r, screen, res)
				http.Redirect(w, r, g.paths.Landing, http.StatusSeeOther)
			case PasswordChangeRequired:
				http.Redirect(w, r, g.paths.PasswordChange, http.StatusSeeOther)
			}
		})
	}
}

// ProtectAPI is Protect for JSON endpoints: it answers 401/403 instead of redirecting.
func (g *Guard) ProtectAPI(screen Screen) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := g.Decide(r, screen)
			g.metrics.ObserveGuard(screen.Name, res.Outcome.String())

			switch res.Outcome {
			case Authorized, PasswordChangeRequired:
				next.ServeHTTP(w, r.WithContext(access.WithViewer(r.Context(), res.Viewer)))
			case Unauthenticated:
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Sign in to continue")
			case Forbidden:
				g.record(r, screen, res)
				writeJSONError(w, http.StatusForbidden, "forbidden", DenialMessage(screen))
			}
		})
	}
}

// Viewer returns the signed-in viewer for r whether or not the route is guarded.
// Public pages use it to decide what navigation to show.
func (g *Guard) Viewer(r *http.Request) (*access.Viewer, bool) {
	if v, ok := access.ViewerFrom(r.Context()); ok {
		return v, true
	}
	rec, ok := g.store.Load(r)
	if !ok {
		return nil, false
	}
	v, d := g.eval.Inspect(r.Context(), rec.Token)
	if d != access.Allow {
		return nil, false
	}
	v.Profile = rec
	return v, true
}

// DenialMessage is the notice shown when screen is refused.
func DenialMessage(screen Screen) string {
	return fmt.Sprintf("You do not have access to %s.", screen.Name)
}

func (g *Guard) redirectToLogin(w http.ResponseWriter, r *http.Request, d access.Decision) {
	if d == access.MalformedToken {
		if err := g.store.Clear(w, r); err != nil {
			g.logger.ErrorContext(r.Context(), "failed to clear unusable session", "error", err)
		}
	}
	target := g.paths.Login
	if r.Method == http.MethodGet {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, screen Screen, res Result) {
	g.record(r, screen, res)
	if err := g.flash.Set(w, Notice{Level: LevelError, Message: DenialMessage(screen)}); err != nil {
		g.logger.ErrorContext(r.Context(), "failed to set denial notice", "error", err)
	}
}

func (g *Guard) record(r *http.Request, screen Screen, res Result) {
	ctx := r.Context()
	if res.Decision != access.UnknownCapability {
		g.logger.InfoContext(ctx, "access denied",
			"screen", screen.Name,
			"capability", string(screen.Requires),
			"subject_id", res.Viewer.SubjectID(),
			"request_id", middleware.GetReqID(ctx),
		)
	}
	if g.auditor == nil {
		return
	}
	err := g.auditor.Emit(ctx, audit.Event{
		SubjectID: res.Viewer.SubjectID(),
		Action:    string(audit.EventAccessDenied),
		Screen:    screen.Name,
		Decision:  res.Decision.String(),
		Reason:    string(screen.Requires),
		RequestID: middleware.GetReqID(ctx),
		ClientIP:  r.RemoteAddr,
		Device:    audit.DeviceLabel(r.UserAgent()),
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to record access denial", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
