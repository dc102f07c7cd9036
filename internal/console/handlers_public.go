package console

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"steward/internal/authclient"
	"steward/internal/guard"
	"steward/internal/lifecycle"
	"steward/pkg/platform/sentinel"
)

type loginView struct {
	Next     string
	Username string
	Error    string
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home.html", "Home", nil)
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	next := localPath(r.URL.Query().Get("next"))
	if _, ok := h.guard.Viewer(r); ok {
		http.Redirect(w, r, h.landing(next), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", "Sign in", loginView{Next: next})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login.html", "Sign in", loginView{Error: "Invalid form submission."})
		return
	}
	view := loginView{
		Next:     localPath(r.PostForm.Get("next")),
		Username: strings.TrimSpace(r.PostForm.Get("username")),
	}
	in := lifecycle.LoginInput{Username: view.Username, Password: r.PostForm.Get("password")}

	err := h.lifecycle.Login(w, r, in)
	switch {
	case err == nil:
		http.Redirect(w, r, h.landing(view.Next), http.StatusSeeOther)
	case errors.Is(err, lifecycle.ErrInvalidCredentials):
		view.Error = "Incorrect username or password."
		h.render(w, r, http.StatusUnauthorized, "login.html", "Sign in", view)
	case errors.Is(err, sentinel.ErrInvalidInput):
		view.Error = "Enter your username and password."
		h.render(w, r, http.StatusBadRequest, "login.html", "Sign in", view)
	default:
		h.logger.ErrorContext(ctx, "sign-in failed", "error", err)
		view.Error = "Sign-in is unavailable right now. Try again shortly."
		h.render(w, r, http.StatusBadGateway, "login.html", "Sign in", view)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	viewer, _ := h.guard.Viewer(r)
	if err := h.lifecycle.Logout(w, r, viewer); err != nil {
		h.logger.ErrorContext(r.Context(), "sign-out failed", "error", err)
	}
	http.Redirect(w, r, h.guard.Paths().Login, http.StatusSeeOther)
}

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	msg := authclient.Message{
		Name:    strings.TrimSpace(r.PostForm.Get("name")),
		Email:   strings.TrimSpace(r.PostForm.Get("email")),
		Subject: strings.TrimSpace(r.PostForm.Get("subject")),
		Body:    strings.TrimSpace(r.PostForm.Get("message")),
	}
	if msg.Name == "" || msg.Email == "" || msg.Body == "" {
		h.notify(w, r, guard.LevelError, "Please fill in your name, email and message.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := h.directory.SubmitMessage(r.Context(), msg); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to submit contact message", "error", err)
		h.notify(w, r, guard.LevelError, "Your message could not be sent. Please try again later.")
	} else {
		h.notify(w, r, guard.LevelInfo, "Thank you, your message has been sent.")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	if email == "" {
		h.notify(w, r, guard.LevelError, "Enter an email address to subscribe.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := h.directory.Subscribe(r.Context(), email); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to subscribe", "error", err)
		h.notify(w, r, guard.LevelError, "We could not subscribe you right now.")
	} else {
		h.notify(w, r, guard.LevelInfo, "You are subscribed.")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) notify(w http.ResponseWriter, r *http.Request, level guard.Level, msg string) {
	if err := h.flash.Set(w, guard.Notice{Level: level, Message: msg}); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to set notice", "error", err)
	}
}

func (h *Handler) landing(next string) string {
	if next != "" {
		return next
	}
	return h.guard.Paths().Landing
}

// localPath returns raw if it is a path on this site, otherwise "".
func localPath(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	if u.Path == "/login" {
		return ""
	}
	return u.RequestURI()
}
