// Package authclient talks to the organisation's REST API for sign-in, account
// administration and the public website forms.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"steward/internal/platform/metrics"
	"steward/pkg/platform/sentinel"
)

const tracerName = "steward/authclient"

// LoginResult is what the auth endpoint returns for valid credentials.
type LoginResult struct {
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	LastLogin time.Time `json:"last_login"`
}

// Account is a console account as listed by the API.
type Account struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Position string   `json:"position"`
	Rights   []string `json:"rights"`
}

// Details are the editable profile fields of an account.
type Details struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position string `json:"position"`
}

// Message is a contact-form submission from the public site.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

// StatusError is returned for non-2xx responses. It unwraps to a sentinel error.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return sentinel.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return sentinel.ErrForbidden
	case e.Status == http.StatusNotFound:
		return sentinel.ErrNotFound
	case e.Status == http.StatusConflict:
		return sentinel.ErrConflict
	case e.Status >= 400 && e.Status < 500:
		return sentinel.ErrInvalidInput
	default:
		return sentinel.ErrUnavailable
	}
}

type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

func New(baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", body, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, fmt.Errorf("login: %w: empty token in response", sentinel.ErrUnavailable)
	}
	return &res, nil
}

func (c *Client) ListAccounts(ctx context.Context, bearer string) ([]Account, error) {
	var res []Account
	if err := c.do(ctx, "list_accounts", http.MethodGet, "/accounts", bearer, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) UpdateRights(ctx context.Context, bearer, accountID string, rights []string) error {
	body := map[string][]string{"rights": rights}
	return c.do(ctx, "update_rights", http.MethodPut, accountPath(accountID, "rights"), bearer, body, nil)
}

func (c *Client) UpdateDetails(ctx context.Context, bearer, accountID string, d Details) error {
	return c.do(ctx, "update_details", http.MethodPut, accountPath(accountID, ""), bearer, d, nil)
}

func (c *Client) ChangePassword(ctx context.Context, bearer, accountID, password string) error {
	body := map[string]string{"password": password}
	return c.do(ctx, "change_password", http.MethodPut, accountPath(accountID, "password"), bearer, body, nil)
}

func (c *Client) SubmitMessage(ctx context.Context, m Message) error {
	return c.do(ctx, "submit_message", http.MethodPost, "/messages", "", m, nil)
}

func (c *Client) Subscribe(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, "subscribe", http.MethodPost, "/subscribers", "", body, nil)
}

func accountPath(id, suffix string) string {
	p := "/accounts/" + url.PathEscape(id)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) do(ctx context.Context, op, method, path, bearer string, in, out any) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "authclient."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.path", path))

	start := time.Now()
	defer func() {
		c.metrics.ObserveAuthLatency(op, time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %v", op, sentinel.ErrUnavailable, err)
	}
	return nil
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
