package guard

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/securecookie"

	"steward/internal/access"
)

const (
	xsrfCookie = "XSRF-TOKEN"
	// XSRFField is the form field carrying the token.
	XSRFField = "xsrf_token"
	// XSRFHeader carries the token for script callers.
	XSRFHeader = "X-XSRF-TOKEN"

	xsrfLife = time.Hour
	// rewrite the token when it expires within this window
	xsrfRewriteWindow = 30 * time.Minute
)

// XSRF issues and checks per-subject form tokens. The token is the signed cookie
// value itself; a state-changing request must echo it in a form field or header.
type XSRF struct {
	codec  *securecookie.SecureCookie
	secure bool
	now    func() time.Time
}

func NewXSRF(hashKey []byte, secure bool) *XSRF {
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(xsrfLife / time.Second))
	return &XSRF{codec: codec, secure: secure, now: time.Now}
}

// Token returns the token for subject's forms, writing a fresh cookie when the
// current one is missing, close to expiry, or issued to someone else.
func (x *XSRF) Token(w http.ResponseWriter, r *http.Request, subject string) (string, error) {
	if c, err := r.Cookie(xsrfCookie); err == nil {
		if values, ok := x.decode(c.Value); ok && values["subject"] == subject {
			if exp, err := strconv.ParseInt(values["expiration"], 10, 64); err == nil &&
				x.now().Before(time.Unix(exp, 0).Add(-xsrfRewriteWindow)) {
				return c.Value, nil
			}
		}
	}

	encoded, err := x.codec.Encode(xsrfCookie, map[string]string{
		"subject":    subject,
		"nonce":      base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(16)),
		"expiration": strconv.FormatInt(x.now().Add(xsrfLife).Unix(), 10),
	})
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     xsrfCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(xsrfLife / time.Second),
		HttpOnly: true,
		Secure:   x.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return encoded, nil
}

// Valid reports whether r carries a live token for subject in both the cookie and
// the form field or header.
func (x *XSRF) Valid(r *http.Request, subject string) bool {
	c, err := r.Cookie(xsrfCookie)
	if err != nil {
		return false
	}
	values, ok := x.decode(c.Value)
	if !ok || values["subject"] != subject {
		return false
	}
	exp, err := strconv.ParseInt(values["expiration"], 10, 64)
	if err != nil || !x.now().Before(time.Unix(exp, 0)) {
		return false
	}

	submitted := r.Header.Get(XSRFHeader)
	if submitted == "" {
		submitted = r.PostFormValue(XSRFField)
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(c.Value)) == 1
}

// Validate rejects unsafe requests without a valid token. It runs behind Protect,
// which puts the viewer in the context.
func (x *XSRF) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		viewer, ok := access.ViewerFrom(r.Context())
		if !ok || !x.Valid(r, viewer.SubjectID()) {
			http.Error(w, "invalid XSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (x *XSRF) decode(value string) (map[string]string, bool) {
	values := map[string]string{}
	if err := x.codec.Decode(xsrfCookie, value, &values); err != nil {
		return nil, false
	}
	return values, true
}
