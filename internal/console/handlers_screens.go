package console

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"steward/internal/access"
	"steward/internal/authclient"
	"steward/internal/guard"
	"steward/internal/lifecycle"
	"steward/internal/rights"
	"steward/pkg/platform/sentinel"
)

type dashboardView struct {
	Rights []rights.Right
}

type screenView struct {
	Name        string
	Description string
}

type accountRow struct {
	authclient.Account
	Self bool
}

type accountsView struct {
	Accounts []accountRow
	Rights   []rights.Right
	Error    string
}

type passwordView struct {
	Error string
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	viewer, _ := access.ViewerFrom(r.Context())
	var held []rights.Right
	for _, id := range viewer.Rights() {
		// Rights the registry no longer knows are not shown.
		if right, err := rights.Describe(id); err == nil {
			held = append(held, right)
		}
	}
	h.render(w, r, http.StatusOK, "dashboard.html", screenDashboard.Name, dashboardView{Rights: held})
}

func (h *Handler) handleScreen(screen guard.Screen) http.HandlerFunc {
	view := screenView{Name: screen.Name}
	if right, err := rights.Describe(screen.Requires); err == nil {
		view.Description = right.Description
	}
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, "screen.html", screen.Name, view)
	}
}

func (h *Handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := access.ViewerFrom(ctx)
	view := accountsView{}
	for right := range rights.All() {
		view.Rights = append(view.Rights, right)
	}

	accounts, err := h.directory.ListAccounts(ctx, viewer.Profile.Token)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list accounts", "error", err)
		view.Error = "Accounts could not be loaded."
		h.render(w, r, http.StatusBadGateway, "accounts.html", screenAccounts.Name, view)
		return
	}
	for _, a := range accounts {
		view.Accounts = append(view.Accounts, accountRow{Account: a, Self: a.ID == viewer.SubjectID()})
	}
	h.render(w, r, http.StatusOK, "accounts.html", screenAccounts.Name, view)
}

func (h *Handler) handleAccountRights(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	viewer, _ := access.ViewerFrom(r.Context())
	res, err := h.lifecycle.ChangeRights(w, r, viewer, chi.URLParam(r, "id"), r.PostForm["rights"])
	h.afterChange(w, r, res, err, "/accounts")
}

func (h *Handler) handleAccountDetails(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	viewer, _ := access.ViewerFrom(r.Context())
	in := lifecycle.DetailsInput{
		Name:     strings.TrimSpace(r.PostForm.Get("name")),
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Position: strings.TrimSpace(r.PostForm.Get("position")),
	}
	res, err := h.lifecycle.ChangeDetails(w, r, viewer, chi.URLParam(r, "id"), in)
	h.afterChange(w, r, res, err, "/accounts")
}

func (h *Handler) handleAccountPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	viewer, _ := access.ViewerFrom(r.Context())
	in := lifecycle.PasswordInput{Password: r.PostForm.Get("password"), Confirm: r.PostForm.Get("confirm")}
	res, err := h.lifecycle.ChangePassword(w, r, viewer, chi.URLParam(r, "id"), in)
	h.afterChange(w, r, res, err, "/accounts")
}

func (h *Handler) handlePasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "password.html", screenPassword.Name, passwordView{})
}

func (h *Handler) handleOwnPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	viewer, _ := access.ViewerFrom(r.Context())
	in := lifecycle.PasswordInput{Password: r.PostForm.Get("password"), Confirm: r.PostForm.Get("confirm")}
	res, err := h.lifecycle.ChangePassword(w, r, viewer, viewer.SubjectID(), in)
	if err != nil && errors.Is(err, sentinel.ErrInvalidInput) {
		h.render(w, r, http.StatusBadRequest, "password.html", screenPassword.Name, passwordView{Error: "Choose a password of 8 to 128 characters and confirm it."})
		return
	}
	h.afterChange(w, r, res, err, h.guard.Paths().PasswordChange)
}

// afterChange turns an account change into a redirect. A change to the acting
// session's own account ends the session, so the browser goes to sign in.
func (h *Handler) afterChange(w http.ResponseWriter, r *http.Request, res lifecycle.Result, err error, back string) {
	ctx := r.Context()
	switch {
	case err == nil && res.ForceReauth:
		h.notify(w, r, guard.LevelInfo, "Your account was updated. Sign in again to continue.")
		http.Redirect(w, r, h.guard.Paths().Login, http.StatusSeeOther)
	case err == nil:
		h.notify(w, r, guard.LevelInfo, "Account updated.")
		http.Redirect(w, r, back, http.StatusSeeOther)
	default:
		h.logger.WarnContext(ctx, "account change failed", "error", err)
		h.notify(w, r, guard.LevelError, changeErrorMessage(err))
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

func changeErrorMessage(err error) string {
	switch {
	case errors.Is(err, rights.ErrUnknownCapability):
		return "That capability does not exist."
	case errors.Is(err, sentinel.ErrInvalidInput):
		return "Check the form and try again."
	case errors.Is(err, sentinel.ErrForbidden), errors.Is(err, sentinel.ErrUnauthorized):
		return "The server refused the change."
	case errors.Is(err, sentinel.ErrNotFound):
		return "That account no longer exists."
	default:
		return "The change could not be saved. Try again shortly."
	}
}
