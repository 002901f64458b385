// Package jamendo is a small client for the Jamendo v3 API, used to browse
// and search its Creative Commons catalog.
package jamendo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"songbox/logger"
)

var (
	// ErrNotConfigured is returned when no client id is set.
	ErrNotConfigured = errors.New("jamendo client id not configured")
	// ErrUpstream wraps failures reported by, or talking to, the Jamendo API.
	ErrUpstream = errors.New("jamendo upstream error")
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 8 << 20

// ResponseCache stores upstream results keyed by request.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (nopCache) Set(context.Context, string, []byte) error         { return nil }

// Client talks to the Jamendo API.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	cache      ResponseCache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache caches successful responses.
func WithCache(cache ResponseCache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// NewClient creates a client. An empty clientID makes every call fail with ErrNotConfigured.
func NewClient(baseURL, clientID string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		cache: nopCache{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool { return c.clientID != "" }

// envelope is the shape of every Jamendo response.
type envelope struct {
	Headers struct {
		Status       string `json:"status"`
		Code         int    `json:"code"`
		ErrorMessage string `json:"error_message"`
		ResultsCount int    `json:"results_count"`
	} `json:"headers"`
	Results json.RawMessage `json:"results"`
}

// cacheKey identifies a request independent of credentials. url.Values
// encodes keys sorted, so equal requests share a key.
func cacheKey(endpoint string, params url.Values) string {
	return "jamendo:" + endpoint + "?" + params.Encode()
}

// get calls endpoint and returns the raw results array.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	key := cacheKey(endpoint, params)
	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		logger.Warn("Jamendo cache read failed", logger.String("key", key), logger.ErrorField(err))
	} else if ok {
		return cached, nil
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("client_id", c.clientID)
	q.Set("format", "json")
	reqURL := fmt.Sprintf("%s/%s/?%s", c.baseURL, endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request to %s failed: %v", ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response: %v", ErrUpstream, endpoint, err)
	}
	logger.Debug("Jamendo request",
		logger.String("endpoint", endpoint),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrUpstream, endpoint, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", ErrUpstream, endpoint, err)
	}
	if env.Headers.Status == "failed" {
		return nil, fmt.Errorf("%w: %s failed with code %d: %s", ErrUpstream, endpoint, env.Headers.Code, env.Headers.ErrorMessage)
	}

	results := env.Results
	if len(results) == 0 || string(results) == "null" {
		results = json.RawMessage("[]")
	}

	if err := c.cache.Set(ctx, key, results); err != nil {
		logger.Warn("Jamendo cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
	return results, nil
}
