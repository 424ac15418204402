// Package health implements the client for the step provider bridge,
// the HTTP sidecar that exposes the device health store. The bridge
// re-delivers cumulative daily counts, so every read is idempotent and
// the consumer is expected to tolerate repeats.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/circuitbreaker"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/retry"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ErrBridgeThrottled is returned when the rate limiter cannot admit a
// request before its wait timeout.
var ErrBridgeThrottled = errors.New("health bridge request throttled")

// DefaultPollInterval is how often Subscribe re-reads today's count.
const DefaultPollInterval = 3 * time.Minute

// ClientConfig contains configuration for the bridge client.
type ClientConfig struct {
	// BaseURL of the step provider bridge.
	BaseURL string

	// APIKey authenticates against the bridge, empty to skip auth.
	APIKey string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// PollInterval is the cadence of the Subscribe loop.
	PollInterval time.Duration

	// RateLimiterConfig paces outgoing requests.
	RateLimiterConfig RateLimiterConfig

	// Location anchors "today" for the poll loop and sample dates.
	Location *time.Location

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           10 * time.Second,
		PollInterval:      DefaultPollInterval,
		RateLimiterConfig: DefaultRateLimiterConfig(),
		Location:          timeutil.JST,
	}
}

// Client talks to the step provider bridge. Requests run behind a rate
// limiter, a retrier with exponential backoff, and a circuit breaker so
// a dead bridge degrades to stale step counts instead of hammering it.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	log         *logger.Logger
	rateLimiter *RateLimiter
	retrier     *retry.Retrier
	breaker     *circuitbreaker.CircuitBreaker

	mu      sync.Mutex
	started bool
}

// NewClient creates a bridge client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Location == nil {
		config.Location = timeutil.JST
	}

	log := config.Logger.WithComponent("health_client")

	return &Client{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		log:         log,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		retrier:     retry.HealthAPIRetrier(),
		breaker: circuitbreaker.HealthAPIBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	}
}

// daySampleDTO is the bridge's per-day step sample.
type daySampleDTO struct {
	Date  string `json:"date"`
	Steps int    `json:"steps"`
}

// DaySteps is a day's cumulative step count.
type DaySteps struct {
	Day   shared.Day
	Steps int
}

// DailySteps returns the cumulative step count for the given day.
// A day the provider has no data for reads as zero, not an error.
func (c *Client) DailySteps(ctx context.Context, day shared.Day) (int, error) {
	path := "/v1/steps/daily?date=" + url.QueryEscape(day.String())

	var sample daySampleDTO
	if err := c.doRequest(ctx, path, &sample); err != nil {
		return 0, fmt.Errorf("daily steps for %s: %w", day, err)
	}
	return sample.Steps, nil
}

// RangeSteps returns per-day cumulative counts for [from, to] inclusive.
// Days the provider has no data for are omitted from the result.
func (c *Client) RangeSteps(ctx context.Context, from, to shared.Day) ([]DaySteps, error) {
	path := fmt.Sprintf("/v1/steps/range?from=%s&to=%s",
		url.QueryEscape(from.String()), url.QueryEscape(to.String()))

	var response struct {
		Samples []daySampleDTO `json:"samples"`
	}
	if err := c.doRequest(ctx, path, &response); err != nil {
		return nil, fmt.Errorf("range steps: %w", err)
	}

	result := make([]DaySteps, 0, len(response.Samples))
	for _, s := range response.Samples {
		t, err := timeutil.ParseDate(s.Date, c.config.Location)
		if err != nil {
			c.log.Warn("bridge returned unparseable date", logger.String("date", s.Date))
			continue
		}
		result = append(result, DaySteps{
			Day:   shared.DayOf(t, c.config.Location),
			Steps: s.Steps,
		})
	}
	return result, nil
}

// Subscribe polls today's cumulative count at the configured interval
// and invokes deliver with each reading until ctx is cancelled. The
// same count may be delivered repeatedly; consumers own idempotency.
// A second Subscribe on the same client is rejected.
func (c *Client) Subscribe(ctx context.Context, deliver func(ctx context.Context, steps int, at time.Time)) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("health bridge subscription already active")
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.started = false
			c.mu.Unlock()
		}()

		ticker := time.NewTicker(c.config.PollInterval)
		defer ticker.Stop()

		// First delivery immediately so startup does not wait a full
		// poll interval for the gate to see today's count.
		c.pollOnce(ctx, deliver)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.pollOnce(ctx, deliver)
			}
		}
	}()

	return nil
}

func (c *Client) pollOnce(ctx context.Context, deliver func(ctx context.Context, steps int, at time.Time)) {
	now := time.Now().In(c.config.Location)
	steps, err := c.DailySteps(ctx, shared.DayOf(now, c.config.Location))
	if err != nil {
		c.log.Warn("step poll failed", logger.Err(err))
		return
	}
	deliver(ctx, steps, now)
}

// IsHealthy reports whether the bridge responds to its health probe.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response struct {
		Status string `json:"status"`
	}
	err := c.doSingleRequest(ctx, "/v1/health", &response)
	return err == nil && response.Status == "ok"
}

// doRequest performs a GET behind the rate limiter, circuit breaker
// and retrier.
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				return retry.Permanent(err)
			}

			err := c.doSingleRequest(ctx, path, result)
			if err == nil {
				return nil
			}
			if shared.IsRetryable(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		})
	})
}

// doSingleRequest performs one GET against the bridge.
func (c *Client) doSingleRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.WrapError("health", "Request", shared.ErrServiceUnavailable, "bridge unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return shared.NewDomainError("health", "Request", shared.ErrRateLimited, "bridge rate limit exceeded")
	case resp.StatusCode >= 500:
		return shared.NewDomainError("health", "Request", shared.ErrServiceUnavailable,
			fmt.Sprintf("bridge error: status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return fmt.Errorf("bridge request rejected: status %d", resp.StatusCode)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
