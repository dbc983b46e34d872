// Package overpass discovers restaurants near a point through the
// OpenStreetMap Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/foodiepair/foodiepair-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://overpass-api.de/api/interpreter"

	// DefaultRadiusM is the search radius used when a request leaves it unset.
	DefaultRadiusM = 2000

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 16 << 20
)

// Client discovers nearby venues.
type Client interface {
	DiscoverNearby(ctx context.Context, req DiscoverRequest) ([]Place, error)
}

// DiscoverRequest is a radius search around a point, optionally narrowed to a cuisine.
type DiscoverRequest struct {
	Lat     float64
	Lng     float64
	RadiusM int
	Cuisine string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL points the client at another interpreter, e.g. a mirror or a test server.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithBackoff sets the retry policy for transient failures.
func WithBackoff(b resilience.Backoff) Option {
	return func(c *httpClient) {
		c.backoff = b
	}
}

// WithBreaker wraps every discovery in the given circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) {
		c.breaker = b
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	backoff resilience.Backoff
	breaker *resilience.Breaker
}

// NewClient creates a new Overpass client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(1, 1),
		backoff: resilience.DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewBreaker("overpass", resilience.BreakerConfig{})
	}
	return c
}

// DiscoverNearby returns named venues within the radius, in response order.
func (c *httpClient) DiscoverNearby(ctx context.Context, req DiscoverRequest) ([]Place, error) {
	if req.RadiusM <= 0 {
		req.RadiusM = DefaultRadiusM
	}
	query := BuildQuery(req)

	log := zap.L().With(
		zap.String("service", "overpass"),
		zap.Float64("lat", req.Lat),
		zap.Float64("lng", req.Lng),
		zap.Int("radius_m", req.RadiusM),
		zap.String("cuisine", req.Cuisine),
	)

	resp, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) (*response, error) {
		return resilience.Retry(ctx, c.backoff, "overpass.interpreter", func(ctx context.Context) (*response, error) {
			return c.interpret(ctx, query)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "overpass: discover nearby")
	}

	places := mapElements(resp.Elements)
	log.Debug("overpass: discovery complete",
		zap.Int("elements", len(resp.Elements)),
		zap.Int("places", len(places)),
	)
	return places, nil
}

func (c *httpClient) interpret(ctx context.Context, query string) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer httpResp.Body.Close() //nolint:errcheck

	if httpResp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("overpass: interpreter returned status %d", httpResp.StatusCode)
		if resilience.IsTransientHTTPStatus(httpResp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, httpResp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read body")
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}
	return &out, nil
}

// BuildQuery renders the Overpass QL for a request: nodes and ways matching
// the cuisine (case-insensitive regex) or any restaurant amenity, with
// centers computed for ways.
func BuildQuery(req DiscoverRequest) string {
	radius := req.RadiusM
	if radius <= 0 {
		radius = DefaultRadiusM
	}

	filter := `["amenity"="restaurant"]`
	if req.Cuisine != "" {
		filter = fmt.Sprintf(`["cuisine"~"%s",i]`, escapeQL(req.Cuisine))
	}

	around := fmt.Sprintf("(around:%d,%s,%s)", radius, formatCoord(req.Lat), formatCoord(req.Lng))

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	b.WriteString("  node" + filter + around + ";\n")
	b.WriteString("  way" + filter + around + ";\n")
	b.WriteString(");\nout center;\n")
	return b.String()
}

// escapeQL keeps user text inside a double-quoted Overpass string.
func escapeQL(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ").Replace(s)
}
