// Package client provides the HTTP client adapter for the car marketplace
// API. It attaches bearer tokens, and on an authorization failure it clears
// the stored credentials and publishes a single session-expired event.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/donaldgifford/auto-marketplace/internal/metrics"
	"github.com/donaldgifford/auto-marketplace/internal/session"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// CredentialStore holds the access token used for authenticated calls.
type CredentialStore interface {
	Token() string
	Save(c session.Credentials) error
	Clear() error
}

// EventPublisher receives session-expired notifications.
type EventPublisher interface {
	Publish(ev session.Event)
}

// Client is the marketplace API adapter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore
	events     EventPublisher
	limiter    *rate.Limiter
	log        *slog.Logger
}

// New creates a new API client targeting the given base URL, for example
// "http://localhost:8000/api/".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets a per-request timeout on a dedicated HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithCredentials sets the store the bearer token is read from and cleared
// in on session expiry.
func WithCredentials(s CredentialStore) Option {
	return func(c *Client) {
		c.creds = s
	}
}

// WithSessionEvents sets where session-expired events are published.
func WithSessionEvents(p EventPublisher) Option {
	return func(c *Client) {
		c.events = p
	}
}

// WithRateLimit paces outgoing calls. A non-positive perSecond disables
// pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = logger.Component(l, "api-client")
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticated reports whether an access token is available.
func (c *Client) Authenticated() bool {
	return c.token() != ""
}

func (c *Client) token() string {
	if c.creds == nil {
		return ""
	}
	return c.creds.Token()
}

// requireToken fails fast for endpoints that are pointless without a token.
func (c *Client) requireToken() error {
	if c.token() == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// get performs a GET request and decodes the JSON response into dst.
func (c *Client) get(ctx context.Context, path string, dst any) error {
	return c.do(ctx, http.MethodGet, path, nil, dst)
}

// post performs a POST request with a JSON body and decodes the response into dst.
func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPost, path, body, dst)
}

// put performs a PUT request with a JSON body and decodes the response into dst.
func (c *Client) put(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPut, path, body, dst)
}

// del performs a DELETE request and decodes the response into dst.
func (c *Client) del(ctx context.Context, path string, dst any) error {
	return c.do(ctx, http.MethodDelete, path, nil, dst)
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var (
		bodyReader  io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *multipartBody:
		bodyReader = b.buf
		contentType = b.contentType
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ClientRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClientRequestsTotal.WithLabelValues(method, "error").Inc()
		if isConnectionRefused(err) {
			return fmt.Errorf("API server not running at %s", c.baseURL)
		}
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	metrics.ClientRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(method, path, resp.StatusCode, respBody)
		if apiErr.SessionExpired() {
			c.expireSession(apiErr)
		}
		return apiErr
	}

	if dst != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, dst); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// expireSession clears the credentials and publishes exactly one event for
// the failed call. The call itself is not retried.
func (c *Client) expireSession(apiErr *APIError) {
	metrics.SessionExpiriesTotal.Inc()

	if c.creds != nil {
		if err := c.creds.Clear(); err != nil {
			c.log.Error("clearing credentials", "err", err)
		}
	}

	c.log.Warn("session expired",
		"method", apiErr.Method,
		"path", apiErr.Path,
		"status", apiErr.StatusCode,
		"code", apiErr.Code,
	)

	if c.events != nil {
		c.events.Publish(session.Event{
			Method:     apiErr.Method,
			Path:       apiErr.Path,
			StatusCode: apiErr.StatusCode,
			Code:       apiErr.Code,
		})
	}
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, errConnRefused) ||
		strings.Contains(err.Error(), "connection refused")
}
