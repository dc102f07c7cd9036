package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"steward/pkg/platform/sentinel"
)

type ClientSuite struct {
	suite.Suite
	server *httptest.Server
	client *Client
	last   *http.Request
	body   map[string]any
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	r := chi.NewRouter()
	capture := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			s.last = req
			s.body = nil
			_ = json.NewDecoder(req.Body).Decode(&s.body)
			next(w, req)
		}
	}
	r.Post("/api/auth/login", capture(func(w http.ResponseWriter, req *http.Request) {
		if s.body["password"] != "correct horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid username or password"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(LoginResult{Token: "a.b.c", Name: "Ada", Position: "Administrator"})
	}))
	r.Get("/api/accounts", capture(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Account{{ID: "U1", Name: "Ada", Rights: []string{"manage_users"}}})
	}))
	r.Put("/api/accounts/{id}/rights", capture(func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	r.Put("/api/accounts/{id}", capture(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r.Put("/api/accounts/{id}/password", capture(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	r.Post("/api/subscribers", capture(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"already subscribed"}`))
	}))
	r.Post("/api/messages", capture(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	s.server = httptest.NewServer(r)
	s.T().Cleanup(s.server.Close)
	s.client = New(s.server.URL+"/api/", 2*time.Second, nil)
}

func (s *ClientSuite) TestLogin() {
	res, err := s.client.Login(context.Background(), "ada", "correct horse")
	s.Require().NoError(err)
	s.Equal("a.b.c", res.Token)
	s.Equal("Ada", res.Name)
	s.Equal("application/json", s.last.Header.Get("Content-Type"))
	s.Empty(s.last.Header.Get("Authorization"))
}

func (s *ClientSuite) TestLogin_BadCredentials() {
	_, err := s.client.Login(context.Background(), "ada", "wrong")
	s.Require().ErrorIs(err, sentinel.ErrUnauthorized)

	var se *StatusError
	s.Require().ErrorAs(err, &se)
	s.Equal("Invalid username or password", se.Message)
}

func (s *ClientSuite) TestAccountCalls() {
	ctx := context.Background()

	accounts, err := s.client.ListAccounts(ctx, "tok")
	s.Require().NoError(err)
	s.Len(accounts, 1)
	s.Equal("Bearer tok", s.last.Header.Get("Authorization"))

	s.Require().NoError(s.client.UpdateRights(ctx, "tok", "U2", []string{"manage_dental"}))
	s.Equal([]any{"manage_dental"}, s.body["rights"])

	s.Require().ErrorIs(s.client.UpdateRights(ctx, "tok", "missing", nil), sentinel.ErrNotFound)

	s.Require().NoError(s.client.UpdateDetails(ctx, "tok", "U2", Details{Name: "Bo"}))
	s.Equal("Bo", s.body["name"])

	s.Require().ErrorIs(s.client.ChangePassword(ctx, "tok", "U2", "pw"), sentinel.ErrUnavailable)
}

func (s *ClientSuite) TestPublicForms() {
	ctx := context.Background()
	s.Require().ErrorIs(s.client.Subscribe(ctx, "a@example.org"), sentinel.ErrConflict)
	s.Require().NoError(s.client.SubmitMessage(ctx, Message{Name: "A", Email: "a@example.org", Body: "hi"}))
	s.Equal("hi", s.body["message"])
}

func TestClient_Unreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond, nil)
	_, err := c.Login(context.Background(), "a", "b")
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestStatusError_Unwrap(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:        sentinel.ErrUnauthorized,
		http.StatusForbidden:           sentinel.ErrForbidden,
		http.StatusUnprocessableEntity: sentinel.ErrInvalidInput,
		http.StatusBadGateway:          sentinel.ErrUnavailable,
	}
	for status, want := range cases {
		assert.ErrorIs(t, &StatusError{Op: "x", Status: status}, want)
	}
}
