package session

import (
	"net/http"

	"github.com/google/uuid"
)

// browserCookie carries an opaque id naming the server-side record of a browser.
const browserCookie = "steward_browser"

func browserID(r *http.Request) (string, bool) {
	c, err := r.Cookie(browserCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// rotateBrowserID mints a fresh browser id and sets its cookie. It returns the new id
// and the id the request arrived with, if any. Sign-in never reuses an id the browser
// presented, so an id planted before sign-in cannot name the new session.
func rotateBrowserID(w http.ResponseWriter, r *http.Request, opts Options) (id, previous string) {
	previous, _ = browserID(r)
	id = uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     browserCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   opts.maxAge(),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, previous
}

func expireCookie(w http.ResponseWriter, name string, opts Options) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
