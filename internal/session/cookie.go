package session

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
)

// sessionCookie holds the encoded record for CookieStore.
const sessionCookie = "steward_session"

// CookieStore keeps the whole record in a signed (and optionally encrypted) cookie.
type CookieStore struct {
	codec  *securecookie.SecureCookie
	opts   Options
	logger *slog.Logger
}

// NewCookieStore builds a CookieStore. An empty blockKey signs without encrypting.
func NewCookieStore(hashKey, blockKey []byte, opts Options, logger *slog.Logger) *CookieStore {
	if len(blockKey) == 0 {
		// securecookie only skips encryption for a nil key.
		blockKey = nil
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(opts.maxAge())
	return &CookieStore{codec: codec, opts: opts, logger: logger}
}

func (s *CookieStore) Save(w http.ResponseWriter, _ *http.Request, rec Record) error {
	encoded, err := s.codec.Encode(sessionCookie, rec.values())
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   s.opts.maxAge(),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *CookieStore) Load(r *http.Request) (Record, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return Record{}, false
	}
	values := map[string]string{}
	if err := s.codec.Decode(sessionCookie, c.Value, &values); err != nil {
		s.logger.DebugContext(r.Context(), "discarding unreadable session cookie", "error", err)
		return Record{}, false
	}
	return recordFromValues(values)
}

func (s *CookieStore) Clear(w http.ResponseWriter, _ *http.Request) error {
	expireCookie(w, sessionCookie, s.opts)
	return nil
}
