package guard

import (
	"net/http"

	"github.com/gorilla/securecookie"
)

const flashCookie = "steward_flash"

// Level is the severity a notice is shown with.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a one-shot message shown on the next rendered page.
type Notice struct {
	Level   Level
	Message string
}

// Flash carries notices across a redirect in a signed cookie.
type Flash struct {
	codec  *securecookie.SecureCookie
	secure bool
}

func NewFlash(hashKey []byte, secure bool) *Flash {
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(60)
	return &Flash{codec: codec, secure: secure}
}

// Set queues n for the next page.
func (f *Flash) Set(w http.ResponseWriter, n Notice) error {
	encoded, err := f.codec.Encode(flashCookie, map[string]string{
		"level":   string(n.Level),
		"message": n.Message,
	})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop returns the queued notice, if any, and removes it.
func (f *Flash) Pop(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return Notice{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})

	values := map[string]string{}
	if err := f.codec.Decode(flashCookie, c.Value, &values); err != nil {
		return Notice{}, false
	}
	if values["message"] == "" {
		return Notice{}, false
	}
	return Notice{Level: Level(values["level"]), Message: values["message"]}, true
}
