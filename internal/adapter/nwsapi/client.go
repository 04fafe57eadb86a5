// Package nwsapi is the client for the api.weather.gov REST service. It
// serves two roles: polling active alerts when the wire feed is unavailable,
// and fetching zone boundaries for alerts that carry no polygon.
package nwsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/geometry"
	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

// Options configure the client. UserAgent is mandatory; api.weather.gov
// rejects anonymous callers.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RetryCount int
}

// Client talks to api.weather.gov with rate limiting and retries.
type Client struct {
	baseURL    string
	userAgent  string
	retryCount int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics

	retryBase time.Duration
	retryMax  time.Duration
}

const (
	retryBaseInterval = 2 * time.Second
	retryMaxInterval  = 30 * time.Second
)

// NewClient creates an API client. Requests are limited to one per second
// regardless of how many callers share the client.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		retryCount: opts.RetryCount,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		logger:     logger.With("component", "nwsapi"),
		metrics:    metrics,
		retryBase:  retryBaseInterval,
		retryMax:   retryMaxInterval,
	}
}

// featureCollection is the GeoJSON envelope the alert endpoints return.
type featureCollection struct {
	Features []domain.APIFeature `json:"features"`
}

// ActiveAlerts returns the currently active alerts. area is a comma-separated
// list of state codes and event an event name; either may be empty for an
// unfiltered nationwide query.
func (c *Client) ActiveAlerts(ctx context.Context, area, event string) ([]domain.APIFeature, error) {
	query := url.Values{"status": {"actual"}}
	if area != "" {
		query.Set("area", area)
	}
	if event != "" {
		query.Set("event", event)
	}

	body, err := c.get(ctx, "/alerts/active?"+query.Encode(), "alerts_active")
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decode active alerts: %w", err)
	}
	return fc.Features, nil
}

// Alert fetches one alert by its CAP identifier.
func (c *Client) Alert(ctx context.Context, id string) (*domain.APIFeature, error) {
	body, err := c.get(ctx, "/alerts/"+id, "alert")
	if err != nil {
		return nil, err
	}

	var f domain.APIFeature
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decode alert %s: %w", id, err)
	}
	return &f, nil
}

// zoneResponse carries the only field the resolver needs.
type zoneResponse struct {
	Geometry *domain.GeoJSONGeometry `json:"geometry"`
}

// ZoneGeometry fetches the boundary for a UGC zone or county code. It
// implements geometry.Fetcher; unknown codes return geometry.ErrNotFound.
func (c *Client) ZoneGeometry(ctx context.Context, ugc string) (domain.Ring, error) {
	if len(ugc) != 6 {
		return nil, fmt.Errorf("%s: %w", ugc, geometry.ErrNotFound)
	}

	// County codes use /zones/county, zone codes /zones/forecast.
	path := "/zones/forecast/" + ugc
	if ugc[2] == 'C' {
		path = "/zones/county/" + ugc
	}

	body, err := c.get(ctx, path, "zone_geometry")
	if err != nil {
		if errors.Is(err, errStatusNotFound) {
			return nil, fmt.Errorf("%s: %w", ugc, geometry.ErrNotFound)
		}
		return nil, err
	}

	var zone zoneResponse
	if err := json.Unmarshal(body, &zone); err != nil {
		return nil, fmt.Errorf("decode zone %s: %w", ugc, err)
	}

	ring := domain.RingFromGeoJSON(zone.Geometry)
	if len(ring) == 0 {
		return nil, fmt.Errorf("%s: %w", ugc, geometry.ErrNotFound)
	}
	return ring, nil
}

var errStatusNotFound = errors.New("not found")

// retryableError marks a response worth retrying (5xx or 429).
type retryableError struct {
	status int
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("status %d", e.status)
}

// get performs one rate-limited GET with exponential-backoff retries on
// server errors. The endpoint label feeds the request metrics.
func (c *Client) get(ctx context.Context, path, endpoint string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBase
	bo.MaxInterval = c.retryMax

	var body []byte
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var err error
		body, err = c.doOnce(ctx, path, endpoint)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			c.logger.Warn("request failed, will retry", "endpoint", endpoint, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retryCount)), ctx))
	if err != nil {
		c.metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		return nil, err
	}
	return body, nil
}

// isRetryable covers 5xx, 429, and transport errors such as timeouts and
// connection resets. 404s, other 4xx, and cancellation are permanent.
func isRetryable(err error) bool {
	var re *retryableError
	if errors.As(err, &re) {
		return true
	}
	var ce *clientError
	if errors.As(err, &ce) ||
		errors.Is(err, errStatusNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// clientError marks 4xx responses other than 429; retrying cannot help.
type clientError struct {
	status int
	body   string
}

func (e *clientError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.status, e.body)
}

func (c *Client) doOnce(ctx context.Context, path, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &clientError{status: 0, body: err.Error()}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errStatusNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableError{status: resp.StatusCode}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &clientError{status: resp.StatusCode, body: string(body)}
	}
}
