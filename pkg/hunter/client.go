// Package hunter implements the Hunter.io email-finder endpoint.
package hunter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/contact-discovery/internal/resilience"
)

const defaultBaseURL = "https://api.hunter.io/v2"

// Client performs email-finder lookups against the Hunter API.
type Client interface {
	FindEmail(ctx context.Context, req FindRequest) (*FindResponse, error)
}

// FindRequest identifies the person and domain to search.
type FindRequest struct {
	Domain    string
	FirstName string
	LastName  string
}

// FindResponse is the email-finder payload. Hunter reports API-level errors
// in the Errors field even on HTTP 200.
type FindResponse struct {
	Data   FindData   `json:"data"`
	Errors []APIError `json:"errors,omitempty"`
}

// FindData holds the discovered email and its confidence.
type FindData struct {
	Email     string  `json:"email"`
	Score     float64 `json:"score"` // 0..1 in v2 responses normalized below
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Position  string  `json:"position"`
}

// APIError is Hunter's in-payload error shape.
type APIError struct {
	ID      string `json:"id"`
	Code    int    `json:"code"`
	Details string `json:"details"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps the request rate (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Hunter API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FindEmail(ctx context.Context, req FindRequest) (*FindResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "hunter: rate limit wait")
		}
	}

	q := url.Values{}
	q.Set("domain", req.Domain)
	q.Set("first_name", req.FirstName)
	if req.LastName != "" {
		q.Set("last_name", req.LastName)
	}
	q.Set("api_key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/email-finder?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("hunter: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result FindResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "hunter: unmarshal response")
	}

	return &result, nil
}
