package theoddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/skyventures840/skybet/pkg/models"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.the-odds-api.com"
	apiVersion     = "v4"
	userAgent      = "skybet-odds/1.0"
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	retryDelay     = 500 * time.Millisecond
)

// Client implements the OddsProvider interface for The Odds API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limits     *rateLimitTracker
	limiter    *rate.Limiter // nil means unlimited
}

// Ensure Client implements OddsProvider
var _ contracts.OddsProvider = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-call timeout. The HTTP client is copied first so a
// client passed with WithHTTPClient is never modified.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			hc := *c.httpClient
			hc.Timeout = timeout
			c.httpClient = &hc
		}
	}
}

// WithRateLimit caps outgoing requests at perSecond across the client and
// every client derived from it with WithAPIKey
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a new The Odds API client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limits: &rateLimitTracker{
			limits: models.RateLimits{
				RequestsRemaining: 500, // Default free-tier quota
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithAPIKey returns a client bound to apiKey that shares the HTTP client,
// quota tracker and request limiter of c
func (c *Client) WithAPIKey(apiKey string) *Client {
	clone := *c
	clone.apiKey = apiKey
	return &clone
}

// ListSports retrieves the sports currently covered by the vendor
func (c *Client) ListSports(ctx context.Context) ([]models.Sport, error) {
	body, err := c.get(ctx, "/sports", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("list sports: %w", err)
	}

	var sports []models.Sport
	if err := json.Unmarshal(body, &sports); err != nil {
		return nil, fmt.Errorf("parse sports response: %w", err)
	}

	valid := sports[:0]
	for _, s := range sports {
		if s.Key != "" {
			valid = append(valid, s)
		}
	}

	return valid, nil
}

// ListMarkets retrieves market metadata for a sport.
// A 404 means the vendor has no market metadata for the sport and yields an empty list.
func (c *Client) ListMarkets(ctx context.Context, sport string) ([]models.MarketDescriptor, error) {
	path := fmt.Sprintf("/sports/%s/markets", url.PathEscape(sport))

	body, err := c.get(ctx, path, url.Values{})
	if err != nil {
		var upErr *contracts.UpstreamError
		if errors.As(err, &upErr) && upErr.StatusCode == http.StatusNotFound {
			return []models.MarketDescriptor{}, nil
		}
		return nil, fmt.Errorf("list markets: %w", err)
	}

	return parseMarketsResponse(body)
}

// GetOdds retrieves decimal odds for one sport and market selection
func (c *Client) GetOdds(ctx context.Context, query *models.OddsQuery) ([]models.Match, error) {
	path := fmt.Sprintf("/sports/%s/odds", url.PathEscape(query.Sport))

	params := url.Values{}
	params.Set("markets", strings.Join(query.Markets, ","))
	params.Set("oddsFormat", "decimal")
	params.Set("dateFormat", "iso")

	// A bookmaker list is more specific than regions and costs fewer quota credits
	if len(query.Bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(query.Bookmakers, ","))
	} else {
		params.Set("regions", strings.Join(query.Regions, ","))
	}

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("get odds: %w", err)
	}

	var apiResp oddsResponseList
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse odds response: %w", err)
	}

	return parseOddsResponse(apiResp), nil
}

// GetScores retrieves live and recently completed scores
func (c *Client) GetScores(ctx context.Context, sport string, daysFrom int) ([]models.Score, error) {
	path := fmt.Sprintf("/sports/%s/scores", url.PathEscape(sport))

	params := url.Values{}
	params.Set("dateFormat", "iso")
	if daysFrom > 0 {
		params.Set("daysFrom", strconv.Itoa(daysFrom))
	}

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("get scores: %w", err)
	}

	var apiResp []scoreResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse scores response: %w", err)
	}

	return parseScoresResponse(apiResp), nil
}

// GetRateLimits returns current rate limit information
func (c *Client) GetRateLimits() *models.RateLimits {
	return c.limits.snapshot()
}

// get performs an authenticated GET against the versioned API
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("apiKey", c.apiKey)
	fullURL := fmt.Sprintf("%s/%s%s?%s", c.baseURL, apiVersion, path, params.Encode())

	return c.doRequestWithRetry(ctx, fullURL)
}

// doRequestWithRetry retries transport failures only. Any HTTP status is
// returned to the caller untouched so it can decide its own retry policy.
func (c *Client) doRequestWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// The limiter refuses waits that would overrun the deadline
				return nil, fmt.Errorf("wait for request slot: %w", errors.Join(context.DeadlineExceeded, err))
			}
		}

		body, err := c.doRequest(ctx, fullURL)
		if err == nil {
			return body, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// A timed out call already used its whole budget
		var upErr *contracts.UpstreamError
		var urlErr *url.Error
		if errors.As(err, &upErr) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request
func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = c.redact(urlErr.URL)
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	// Update rate limits from headers
	c.limits.update(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &contracts.UpstreamError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       c.redact(string(body)),
		}
	}

	return body, nil
}

// redact removes the API key from text that may be surfaced to callers
func (c *Client) redact(s string) string {
	if c.apiKey == "" {
		return s
	}
	return strings.ReplaceAll(s, c.apiKey, "[redacted]")
}

// classifyStatus maps an upstream status code onto an error kind
func classifyStatus(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return contracts.ErrRateLimited
	case http.StatusBadRequest:
		return contracts.ErrBadRequest
	default:
		return contracts.ErrUpstream
	}
}

// rateLimitTracker is shared by all clients derived with WithAPIKey
type rateLimitTracker struct {
	mu     sync.RWMutex
	limits models.RateLimits
}

// update extracts rate limit info from response headers
func (t *rateLimitTracker) update(headers http.Header) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if remaining := headers.Get("x-requests-remaining"); remaining != "" {
		if val, err := strconv.ParseFloat(remaining, 64); err == nil {
			t.limits.RequestsRemaining = int(val)
		}
	}

	if used := headers.Get("x-requests-used"); used != "" {
		if val, err := strconv.ParseFloat(used, 64); err == nil {
			t.limits.RequestsUsed = int(val)
		}
	}
}

func (t *rateLimitTracker) snapshot() *models.RateLimits {
	t.mu.RLock()
	defer t.mu.RUnlock()

	limits := t.limits
	return &limits
}
