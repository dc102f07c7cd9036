package guard

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/access"
	"steward/internal/token"
)

func newTestXSRF(now *time.Time) *XSRF {
	x := NewXSRF(securecookie.GenerateRandomKey(32), false)
	x.now = func() time.Time { return *now }
	return x
}

func issueXSRF(t *testing.T, x *XSRF, subject string) (string, *http.Cookie) {
	t.Helper()
	w := httptest.NewRecorder()
	tok, err := x.Token(w, httptest.NewRequest(http.MethodGet, "/accounts", nil), subject)
	require.NoError(t, err)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return tok, cookies[0]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func formPost(cookie *http.Cookie, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/accounts/1/rights", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestXSRF_Valid(t *testing.T) {
	now := time.Now()
	x := newTestXSRF(&now)
	tok, cookie := issueXSRF(t, x, "42")
	assert.Equal(t, cookie.Value, tok)

	t.Run("form field", func(t *testing.T) {
		assert.True(t, x.Valid(formPost(cookie, url.Values{XSRFField: {tok}}), "42"))
	})
	t.Run("header", func(t *testing.T) {
		req := formPost(cookie, nil)
		req.Header.Set(XSRFHeader, tok)
		assert.True(t, x.Valid(req, "42"))
	})
	t.Run("missing submission", func(t *testing.T) {
		assert.False(t, x.Valid(formPost(cookie, nil), "42"))
	})
	t.Run("missing cookie", func(t *testing.T) {
		assert.False(t, x.Valid(formPost(nil, url.Values{XSRFField: {tok}}), "42"))
	})
	t.Run("other subject", func(t *testing.T) {
		assert.False(t, x.Valid(formPost(cookie, url.Values{XSRFField: {tok}}), "7"))
	})
	t.Run("mismatched value", func(t *testing.T) {
		other, _ := issueXSRF(t, x, "42")
		assert.False(t, x.Valid(formPost(cookie, url.Values{XSRFField: {other}}), "42"))
	})
	t.Run("expired", func(t *testing.T) {
		later := now.Add(xsrfLife + time.Minute)
		expired := newTestXSRF(&later)
		expired.codec = x.codec
		assert.False(t, expired.Valid(formPost(cookie, url.Values{XSRFField: {tok}}), "42"))
	})
}

func TestXSRF_TokenReuse(t *testing.T) {
	now := time.Now()
	x := newTestXSRF(&now)
	tok, cookie := issueXSRF(t, x, "42")

	reuse := func(subject string) (string, int) {
		req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		got, err := x.Token(w, req, subject)
		require.NoError(t, err)
		return got, len(w.Result().Cookies())
	}

	got, written := reuse("42")
	assert.Equal(t, tok, got)
	assert.Zero(t, written)

	got, written = reuse("7")
	assert.NotEqual(t, tok, got, "a token is never shared across subjects")
	assert.Equal(t, 1, written)

	now = now.Add(xsrfLife - xsrfRewriteWindow + time.Second)
	got, written = reuse("42")
	assert.NotEqual(t, tok, got, "a token close to expiry is rewritten")
	assert.Equal(t, 1, written)
}

func TestXSRF_Validate(t *testing.T) {
	now := time.Now()
	x := newTestXSRF(&now)
	tok, cookie := issueXSRF(t, x, "U1")

	raw, err := token.NewIssuer("k", "test").Issue(token.Profile{SubjectID: "U1"}, time.Hour)
	require.NoError(t, err)
	viewer, d := access.NewEvaluator(token.NewDecoder(""), discardLogger()).Inspect(t.Context(), raw)
	require.Equal(t, access.Allow, d)

	h := x.Validate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(req *http.Request) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req.WithContext(access.WithViewer(req.Context(), viewer)))
		return rr.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(httptest.NewRequest(http.MethodGet, "/accounts", nil)))
	assert.Equal(t, http.StatusForbidden, serve(formPost(cookie, nil)))
	assert.Equal(t, http.StatusNoContent, serve(formPost(cookie, url.Values{XSRFField: {tok}})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, formPost(cookie, url.Values{XSRFField: {tok}}))
	assert.Equal(t, http.StatusForbidden, rr.Code, "no viewer in context")
}
