package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/aiox-platform/mentionbot/internal/config"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// maxErrorBody caps how much of an error response body is kept in StatusError.
const maxErrorBody = 2048

// Client talks to the platform's private GraphQL web API using a reused
// browser session (cookies + bearer token). Read calls are retried through a
// failsafe-go policy; CreateTweet never is.
type Client struct {
	http      *http.Client
	baseURL   string
	username  string
	bearer    string
	userAgent string
	reads     failsafe.Executor[[]byte]

	mu      sync.Mutex
	cookies []*http.Cookie
}

// Option customises a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithBackoff sets the retry backoff bounds for read requests.
func WithBackoff(base, max time.Duration) Option {
	return func(o *clientOptions) {
		o.baseDelay = base
		o.maxDelay = max
	}
}

// NewClient creates a platform client from the session configuration.
func NewClient(cfg config.PlatformConfig, opts ...Option) (*Client, error) {
	o := clientOptions{
		baseDelay: 500 * time.Millisecond,
		maxDelay:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		o.httpClient = &http.Client{Timeout: timeout}
	}

	cookies, err := ParseCookies(cfg.Cookies)
	if err != nil {
		return nil, fmt.Errorf("parsing cookies: %w", err)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	retry := retrypolicy.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool { return retryable(err) }).
		WithBackoff(o.baseDelay, o.maxDelay).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[[]byte]) {
			slog.Debug("platform: retrying request", "attempt", e.Attempts(), "error", e.LastError())
		}).
		Build()

	return &Client{
		http:      o.httpClient,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		username:  cfg.Username,
		bearer:    cfg.BearerToken,
		userAgent: ua,
		reads:     failsafe.With(retry),
		cookies:   cookies,
	}, nil
}

// Identity returns the handle of the account the session belongs to.
func (c *Client) Identity() string {
	return c.username
}

// ParseCookies accepts either a JSON array of {"name","value"} objects (the
// browser-export format) or a raw "a=b; c=d" cookie header.
func ParseCookies(raw string) ([]*http.Cookie, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "[") {
		var list []struct {
			Name   string `json:"name"`
			Value  string `json:"value"`
			Domain string `json:"domain"`
			Path   string `json:"path"`
		}
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("decoding cookie list: %w", err)
		}
		cookies := make([]*http.Cookie, 0, len(list))
		for _, c := range list {
			if c.Name == "" {
				continue
			}
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path})
		}
		return cookies, nil
	}

	var cookies []*http.Cookie
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies, nil
}

// csrfToken returns the ct0 cookie, which the API expects mirrored in x-csrf-token.
func (c *Client) csrfToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ck := range c.cookies {
		if ck.Name == "ct0" {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) cookieHeader() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts := make([]string, 0, len(c.cookies))
	for _, ck := range c.cookies {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// absorbCookies keeps the session current when the server rotates cookies (e.g. ct0).
func (c *Client) absorbCookies(resp *http.Response) {
	updated := resp.Cookies()
	if len(updated) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, nc := range updated {
		if nc.Name == "" {
			continue
		}
		replaced := false
		for i, ck := range c.cookies {
			if ck.Name == nc.Name {
				c.cookies[i] = &http.Cookie{Name: nc.Name, Value: nc.Value}
				replaced = true
				break
			}
		}
		if !replaced {
			c.cookies = append(c.cookies, &http.Cookie{Name: nc.Name, Value: nc.Value})
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	if cookie := c.cookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if token := c.csrfToken(); token != "" {
		req.Header.Set("x-csrf-token", token)
	}
	return req, nil
}

// send performs a single request and returns the body of a 2xx response.
func (c *Client) send(ctx context.Context, op, method, rawURL string, body []byte) ([]byte, error) {
	req, err := c.newRequest(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.absorbCookies(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// query runs a GraphQL GET through the retry policy.
func (c *Client) query(ctx context.Context, op string, params url.Values) ([]byte, error) {
	rawURL := c.baseURL + "/i/api/graphql/" + op + "?" + params.Encode()
	return c.reads.WithContext(ctx).Get(func() ([]byte, error) {
		return c.send(ctx, op, http.MethodGet, rawURL, nil)
	})
}

// mutate runs a GraphQL POST exactly once.
func (c *Client) mutate(ctx context.Context, op string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling payload: %w", op, err)
	}
	return c.send(ctx, op, http.MethodPost, c.baseURL+"/i/api/graphql/"+op, body)
}

func graphQLParams(variables any, withFieldToggles bool) (url.Values, error) {
	vars, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("marshaling variables: %w", err)
	}
	features, err := json.Marshal(defaultFeatures())
	if err != nil {
		return nil, fmt.Errorf("marshaling features: %w", err)
	}
	params := url.Values{}
	params.Set("variables", string(vars))
	params.Set("features", string(features))
	if withFieldToggles {
		params.Set("fieldToggles", `{"withArticleRichContentState":false}`)
	}
	return params, nil
}

// retryable reports whether a read failure is worth another attempt:
// network errors, rate limiting and server errors.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
