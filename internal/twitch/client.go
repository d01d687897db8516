// Package twitch implements the Helix API client used by the extract stage:
// retryable requests, rate-limit pacing and cursor pagination.
package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stream-insights/twitch-etl-go/internal/config"
	"github.com/stream-insights/twitch-etl-go/internal/metrics"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// MaxIDsPerRequest is the Helix cap on repeated id query parameters.
const MaxIDsPerRequest = 100

// ErrRateLimited marks an HTTP 429 response.
var ErrRateLimited = errors.New("twitch: rate limited")

// Client talks to the Helix API. All endpoint methods go through a single
// retry loop; the only state threaded between page requests is the cursor,
// so a Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authURL    string
	clientID   string
	token      string
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.TwitchConfig, maxRetries int, retryDelay time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		authURL:    cfg.AuthURL,
		clientID:   cfg.ClientID,
		token:      cfg.AccessToken,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1)),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// get issues one Helix GET with retries. Transient failures (network errors,
// 5xx) wait retryDelay between attempts; a 429 waits twice that. Non-retryable
// statuses fail immediately.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			metrics.APIRetries.Inc()
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request %s: %w", endpoint, err)
		}
		req.URL.RawQuery = params.Encode()
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Client-Id", c.clientID)

		res, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
			logger.Log.Warn("helix request failed",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if !c.wait(ctx, c.retryDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		body, readErr := io.ReadAll(res.Body)
		_ = res.Body.Close()
		metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(res.StatusCode)).Inc()

		switch {
		case res.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				if !c.wait(ctx, c.retryDelay) {
					return nil, ctx.Err()
				}
				continue
			}
			return body, nil

		case res.StatusCode == http.StatusTooManyRequests:
			metrics.RateLimitHits.Inc()
			lastErr = ErrRateLimited
			logger.Log.Warn("helix rate limit hit, backing off",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
			)
			if !c.wait(ctx, 2*c.retryDelay) {
				return nil, ctx.Err()
			}

		case retryableStatus(res.StatusCode):
			lastErr = fmt.Errorf("helix %s: status %d", endpoint, res.StatusCode)
			logger.Log.Warn("helix server error",
				zap.String("endpoint", endpoint),
				zap.Int("status", res.StatusCode),
				zap.Int("attempt", attempt),
			)
			if !c.wait(ctx, c.retryDelay) {
				return nil, ctx.Err()
			}

		default:
			return nil, fmt.Errorf("helix %s: status %d: %s", endpoint, res.StatusCode, snippet(body))
		}
	}

	return nil, fmt.Errorf("helix %s: %d attempts exhausted: %w", endpoint, c.maxRetries, lastErr)
}

// wait sleeps for d unless the context is cancelled first.
func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// page is the Helix response envelope.
type page[T any] struct {
	Data       []T `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// getPage fetches and decodes one page of records from endpoint.
func getPage[T any](ctx context.Context, c *Client, endpoint string, params url.Values) ([]T, string, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, "", err
	}

	var p page[T]
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, "", fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return p.Data, p.Pagination.Cursor, nil
}
