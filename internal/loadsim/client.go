package loadsim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Error constants
var (
	ErrStatus   = errors.New("unexpected status")
	ErrNoCookie = errors.New("login returned no session cookie")
)

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 512

// HTTPClient talks to the server's JSON API with a session cookie.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	cookies []*http.Cookie
}

// newHTTPClient creates a new HTTP client with timeout. Redirects are not
// followed so the login response and its cookie stay visible.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// StatusError carries the status and body of a failed request.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d: %s", ErrStatus, e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	return c.client.Do(req)
}

// expect reads resp and decodes it into out when the status matches.
func expect(resp *http.Response, status int, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode != status {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Health checks /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", "", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	return expect(resp, http.StatusOK, nil)
}

// Login signs in through the login form and keeps the session cookie.
func (c *HTTPClient) Login(ctx context.Context, email, secret string) error {
	form := url.Values{"email": {email}, "secret": {secret}}
	resp, err := c.do(ctx, http.MethodPost, "/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	cookies := resp.Cookies()
	if err := expect(resp, http.StatusSeeOther, nil); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if len(cookies) == 0 {
		return ErrNoCookie
	}
	c.cookies = cookies
	return nil
}

// Events lists every scheduled event.
func (c *HTTPClient) Events(ctx context.Context) ([]Event, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/events", "", nil)
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := expect(resp, http.StatusOK, &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Scoreboard fetches the current totals.
func (c *HTTPClient) Scoreboard(ctx context.Context) (Scoreboard, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/scoreboard", "", nil)
	if err != nil {
		return Scoreboard{}, err
	}
	var sb Scoreboard
	if err := expect(resp, http.StatusOK, &sb); err != nil {
		return Scoreboard{}, fmt.Errorf("scoreboard: %w", err)
	}
	return sb, nil
}

// PutScores replaces the scores of one event.
func (c *HTTPClient) PutScores(ctx context.Context, u Update) error {
	body, err := json.Marshal(u.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, "/api/events/"+url.PathEscape(u.EventID)+"/scores", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return expect(resp, http.StatusOK, nil)
}
