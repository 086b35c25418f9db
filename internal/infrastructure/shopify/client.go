package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

const (
	// DefaultAPIVersion is the Admin API version used when none is configured
	DefaultAPIVersion = "2024-01"

	maxResponseSize     = 10 << 20
	maxErrorMessageSize = 512
)

// ClientConfig configures a resilient client for one shop.
type ClientConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string

	// BaseURL overrides https://{shop}/admin/api/{version}
	BaseURL string

	HTTPClient  *http.Client
	Retry       RetryConfig
	Breaker     CircuitBreakerConfig
	RateLimiter *RateLimiter
	Metrics     ports.MetricsRecorder
	Logger      zerolog.Logger

	// Now and Sleep default to the wall clock
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client calls the Shopify Admin REST API of a single shop with bounded retries,
// exponential backoff and a circuit breaker.
type Client struct {
	shopDomain  string
	accessToken string
	baseURL     string
	httpClient  *http.Client
	retry       RetryConfig
	breaker     *CircuitBreaker
	rateLimiter *RateLimiter
	metrics     ports.MetricsRecorder
	logger      zerolog.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

var _ ports.APIClient = (*Client)(nil)

// NewClient creates a client bound to one shop and access token
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s/admin/api/%s", cfg.ShopDomain, cfg.APIVersion)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = ports.NopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}

	return &Client{
		shopDomain:  cfg.ShopDomain,
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  cfg.HTTPClient,
		retry:       cfg.Retry,
		breaker:     NewCircuitBreaker(cfg.Breaker, cfg.Now),
		rateLimiter: cfg.RateLimiter,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("shop", cfg.ShopDomain).Logger(),
		now:         cfg.Now,
		sleep:       cfg.Sleep,
	}
}

// CircuitState returns the state of this client's breaker
func (c *Client) CircuitState() CircuitSnapshot {
	return c.breaker.Snapshot()
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*ports.APIResponse, error) {
	return c.Request(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*ports.APIResponse, error) {
	return c.Request(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*ports.APIResponse, error) {
	return c.Request(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) Delete(ctx context.Context, path string) (*ports.APIResponse, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

// Request performs one logical call. 429 and 5xx/408 responses and transport
// errors are retried up to Retry.MaxRetries times; other 4xx responses fail
// immediately. A call that ultimately fails counts once against the breaker.
func (c *Client) Request(ctx context.Context, method string, path string, query url.Values, body any) (*ports.APIResponse, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &domain.APIError{Kind: domain.ErrValidation, Method: method, Path: path, Err: fmt.Errorf("failed to encode request body: %w", err)}
		}
	}

	if !c.breaker.Allow() {
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Msg("Circuit breaker open, failing fast")
		return nil, &domain.APIError{Kind: domain.ErrCircuitOpen, Method: method, Path: path}
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, method, target, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.retry.MaxRetries {
				if err := c.backoff(ctx, "network", method, path, attempt, c.retry.Backoff(attempt), 0); err != nil {
					return nil, err
				}
				continue
			}
			c.fail()
			return nil, &domain.APIError{Kind: domain.ErrNetwork, Method: method, Path: path, Attempts: attempt + 1, Err: err}
		}

		status := resp.StatusCode
		switch {
		case status >= 200 && status < 300:
			c.breaker.RecordSuccess()
			return resp, nil

		case status == http.StatusTooManyRequests:
			if attempt < c.retry.MaxRetries {
				delay, ok := retryAfter(resp.Header, c.now())
				if !ok {
					delay = c.retry.Backoff(attempt)
				}
				if err := c.backoff(ctx, "rate_limited", method, path, attempt, delay, status); err != nil {
					return nil, err
				}
				continue
			}
			c.fail()
			return nil, c.apiError(domain.ErrRateLimitExceeded, method, path, attempt, resp)

		case status >= 500 || status == http.StatusRequestTimeout:
			if attempt < c.retry.MaxRetries {
				if err := c.backoff(ctx, "server_error", method, path, attempt, c.retry.Backoff(attempt), status); err != nil {
					return nil, err
				}
				continue
			}
			c.fail()
			return nil, c.apiError(domain.ErrUpstream, method, path, attempt, resp)

		default:
			c.fail()
			// 401 is a revoked or invalid token; 403 is a missing scope on one resource
			kind := domain.ErrValidation
			switch status {
			case http.StatusUnauthorized:
				kind = domain.ErrAuth
			case http.StatusForbidden:
				kind = domain.ErrForbidden
			}
			return nil, c.apiError(kind, method, path, attempt, resp)
		}
	}
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) (*ports.APIResponse, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, c.now().Sub(start))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.metrics.ObserveRequest(method, resp.StatusCode, c.now().Sub(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &ports.APIResponse{
		StatusCode:   resp.StatusCode,
		Header:       resp.Header,
		Body:         body,
		NextPageInfo: ParseNextPageInfo(resp.Header.Get("Link")),
	}, nil
}

func (c *Client) backoff(ctx context.Context, reason, method, path string, attempt int, delay time.Duration, status int) error {
	c.metrics.ObserveRetry(reason)
	c.logger.Warn().
		Str("method", method).
		Str("path", path).
		Str("reason", reason).
		Int("status", status).
		Int("attempt", attempt+1).
		Int("max_retries", c.retry.MaxRetries).
		Dur("delay", delay).
		Msg("Retrying Shopify request")

	if err := c.sleep(ctx, delay); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("failed to wait before retry: %w", err)
	}
	return nil
}

func (c *Client) fail() {
	if c.breaker.RecordFailure() {
		c.metrics.ObserveCircuitOpen()
		c.logger.Error().Msg("Circuit breaker opened")
	}
}

func (c *Client) apiError(kind error, method, path string, attempt int, resp *ports.APIResponse) error {
	msg := string(resp.Body)
	if len(msg) > maxErrorMessageSize {
		msg = msg[:maxErrorMessageSize]
	}
	return &domain.APIError{
		Kind:       kind,
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Attempts:   attempt + 1,
		Message:    msg,
	}
}
