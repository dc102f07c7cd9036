// Package lifecycle starts and ends console sessions and applies account changes.
//
// A session's capabilities are fixed when its token is issued. When an administrator
// changes the rights, details or password of the account the acting session belongs
// to, the stored session is cleared as soon as the API confirms the change, and the
// browser must sign in again to receive a token reflecting the new state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"steward/internal/access"
	"steward/internal/authclient"
	"steward/internal/platform/metrics"
	"steward/internal/rights"
	"steward/internal/session"
	audit "steward/pkg/platform/audit"
	"steward/pkg/platform/sentinel"
	pkgstrings "steward/pkg/platform/strings"
)

// ErrInvalidCredentials is returned by Login when the API rejects the credentials.
var ErrInvalidCredentials = errors.New("invalid username or password")

// AccountClient is the subset of the REST API the lifecycle needs.
type AccountClient interface {
	Login(ctx context.Context, username, password string) (*authclient.LoginResult, error)
	UpdateRights(ctx context.Context, bearer, accountID string, rights []string) error
	UpdateDetails(ctx context.Context, bearer, accountID string, d authclient.Details) error
	ChangePassword(ctx context.Context, bearer, accountID, password string) error
}

// Auditor records lifecycle events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Result reports what an account change did to the acting session.
type Result struct {
	// ForceReauth is set when the acting session was cleared and the browser must
	// be sent to the login page.
	ForceReauth bool
}

type Service struct {
	accounts AccountClient
	store    session.Store
	auditor  Auditor
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func New(accounts AccountClient, store session.Store, auditor Auditor, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		store:    store,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Login authenticates against the API and stores the issued session. The store write
// completes before Login returns, so a redirect issued afterwards sees the session.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, in LoginInput) error {
	ctx := r.Context()
	if err := in.Validate(); err != nil {
		return err
	}

	res, err := s.accounts.Login(ctx, in.Username, in.Password)
	if err != nil {
		s.metrics.IncrementLogins("failure")
		if errors.Is(err, sentinel.ErrUnauthorized) {
			s.emit(ctx, r, audit.Event{Action: string(audit.EventLoginFailed), Reason: "invalid_credentials"})
			return ErrInvalidCredentials
		}
		return fmt.Errorf("login: %w", err)
	}

	lastLogin := res.LastLogin
	if lastLogin.IsZero() {
		lastLogin = s.now()
	}
	rec := session.Record{
		Token:     res.Token,
		Name:      res.Name,
		Role:      res.Position,
		LastLogin: lastLogin,
	}
	if err := s.store.Save(w, r, rec); err != nil {
		s.metrics.IncrementLogins("failure")
		return fmt.Errorf("store session: %w", err)
	}

	s.metrics.IncrementLogins("success")
	s.emit(ctx, r, audit.Event{Action: string(audit.EventLogin)})
	return nil
}

// Logout clears the stored session. It is safe to call without a session.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request, viewer *access.Viewer) error {
	if err := s.store.Clear(w, r); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if viewer != nil {
		s.emit(r.Context(), r, audit.Event{SubjectID: viewer.SubjectID(), Action: string(audit.EventLogout)})
	}
	return nil
}

// ChangeRights replaces the capabilities of accountID.
func (s *Service) ChangeRights(w http.ResponseWriter, r *http.Request, viewer *access.Viewer, accountID string, values []string) (Result, error) {
	known, unknown := rights.Parse(pkgstrings.DedupeAndTrim(values))
	if len(unknown) > 0 {
		return Result{}, fmt.Errorf("%w: %w: %v", sentinel.ErrInvalidInput, rights.ErrUnknownCapability, unknown)
	}
	granted := make([]string, 0, len(known))
	for _, id := range known {
		granted = append(granted, string(id))
	}
	return s.apply(w, r, viewer, accountID, "rights", func(ctx context.Context, bearer string) error {
		return s.accounts.UpdateRights(ctx, bearer, accountID, granted)
	})
}

// ChangeDetails updates the profile fields of accountID.
func (s *Service) ChangeDetails(w http.ResponseWriter, r *http.Request, viewer *access.Viewer, accountID string, in DetailsInput) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	return s.apply(w, r, viewer, accountID, "details", func(ctx context.Context, bearer string) error {
		return s.accounts.UpdateDetails(ctx, bearer, accountID, authclient.Details(in))
	})
}

// ChangePassword sets a new password for accountID.
func (s *Service) ChangePassword(w http.ResponseWriter, r *http.Request, viewer *access.Viewer, accountID string, in PasswordInput) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	return s.apply(w, r, viewer, accountID, "password", func(ctx context.Context, bearer string) error {
		return s.accounts.ChangePassword(ctx, bearer, accountID, in.Password)
	})
}

func (s *Service) apply(
	w http.ResponseWriter,
	r *http.Request,
	viewer *access.Viewer,
	accountID string,
	change string,
	call func(ctx context.Context, bearer string) error) (Result, error) {
	ctx := r.Context()
	if viewer == nil {
		return Result{}, sentinel.ErrUnauthorized
	}
	if accountID == "" {
		return Result{}, fmt.Errorf("%w: account id required", sentinel.ErrInvalidInput)
	}

	if err := call(ctx, viewer.Profile.Token); err != nil {
		return Result{}, fmt.Errorf("change %s: %w", change, err)
	}

	actor := viewer.SubjectID()
	s.emit(ctx, r, audit.Event{
		SubjectID: actor,
		Action:    string(audit.EventAccountChanged),
		Reason:    change,
		TargetID:  accountID,
	})

	if accountID != actor {
		return Result{}, nil
	}

	// The acting session's own account changed; its token no longer reflects the server.
	if err := s.store.Clear(w, r); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear session after self-modification",
			"error", err,
			"subject_id", actor,
		)
	}
	s.metrics.IncrementForcedReauth()
	s.emit(ctx, r, audit.Event{
		SubjectID: actor,
		Action:    string(audit.EventSessionInvalidated),
		Reason:    change,
		TargetID:  accountID,
	})
	return Result{ForceReauth: true}, nil
}

func (s *Service) emit(ctx context.Context, r *http.Request, e audit.Event) {
	if s.auditor == nil {
		return
	}
	e.RequestID = middleware.GetReqID(ctx)
	e.ClientIP = r.RemoteAddr
	e.Device = audit.DeviceLabel(r.UserAgent())
	if err := s.auditor.Emit(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event", "error", err, "action", e.Action)
	}
}
