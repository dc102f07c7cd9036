// Package testutil provides common test utilities for handler and integration tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// NewFormRequest creates a POST request with a url-encoded form body.
func NewFormRequest(t *testing.T, path string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// ReadBody reads the response body as a string.
func ReadBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err, "failed to read response body")
	return string(body)
}

// UnmarshalResponse unmarshals the response body into the target struct.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var result T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&result), "failed to unmarshal response")
	return &result
}

// AssertStatus asserts the response status code matches expected.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code")
}

// AssertRedirect asserts a 303 See Other to location.
func AssertRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rr.Code, "expected a redirect")
	assert.Equal(t, location, rr.Header().Get("Location"), "unexpected redirect target")
}

// Browser replays cookies across requests the way a browser would, so tests can
// follow a redirect and observe what the next page sees.
type Browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func NewBrowser(t *testing.T, handler http.Handler) *Browser {
	return &Browser{t: t, handler: handler, cookies: make(map[string]*http.Cookie)}
}

// Get requests path with the browser's cookies.
func (b *Browser) Get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.Do(httptest.NewRequest(http.MethodGet, path, nil))
}

// PostForm submits form to path with the browser's cookies.
func (b *Browser) PostForm(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.Do(NewFormRequest(b.t, path, form))
}

// Do sends req with the browser's cookies and keeps whatever the response sets.
func (b *Browser) Do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rr := DoRequest(b.handler, req)
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rr
}

// Follow requests the Location of a redirect response.
func (b *Browser) Follow(rr *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	b.t.Helper()
	loc := rr.Header().Get("Location")
	require.NotEmpty(b.t, loc, "response is not a redirect")
	return b.Get(loc)
}

// Cookie returns the current value of name, if set.
func (b *Browser) Cookie(name string) (string, bool) {
	c, ok := b.cookies[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}
