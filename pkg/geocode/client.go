// Package geocode resolves street addresses to coordinates via Nominatim.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/foodiepair/foodiepair-cli/internal/resilience"
)

// Client geocodes free-form addresses.
type Client interface {
	// Geocode resolves one address. An unmatched address is not an error:
	// the result comes back with Matched false.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Source      string // "nominatim"
	Quality     string // "rooftop", "range", "centroid", "approximate"
	Matched     bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL points the client at another Nominatim instance.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit. The public instance
// allows one per second.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithUserAgent identifies the application, which Nominatim requires.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithCache replaces the default in-process cache.
func WithCache(c Cache) Option {
	return func(g *geocoder) {
		g.cache = c
	}
}

// WithBackoff sets the retry policy for transient failures.
func WithBackoff(b resilience.Backoff) Option {
	return func(g *geocoder) {
		g.backoff = b
	}
}

type geocoder struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	backoff    resilience.Backoff
	cache      Cache
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  defaultUserAgent,
		limiter:    rate.NewLimiter(1, 1),
		backoff:    resilience.DefaultBackoff(),
		cache:      NewMemoryCache(DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves address, answering repeats from the cache. Non-matches
// are cached too. Cache failures are logged and fall through to a lookup.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return &Result{Matched: false, Source: sourceNominatim}, nil
	}

	key := cacheKey(address)
	cached, err := g.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("geocode: cache read failed", zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	result, err := resilience.Retry(ctx, g.backoff, "nominatim.search", func(ctx context.Context) (*Result, error) {
		return g.search(ctx, address)
	})
	if err != nil {
		return nil, err
	}

	if err := g.cache.Put(ctx, key, result); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.Error(err))
	}
	zap.L().Debug("geocode: resolved",
		zap.String("address", address),
		zap.Bool("matched", result.Matched),
		zap.String("quality", result.Quality),
	)
	return result, nil
}

// Coordinates geocodes address into optional lat/lng values. A non-match
// returns nils without error.
func Coordinates(ctx context.Context, c Client, address string) (lat, lng *float64, err error) {
	r, err := c.Geocode(ctx, address)
	if err != nil || !r.Matched {
		return nil, nil, err
	}
	la, lo := r.Latitude, r.Longitude
	return &la, &lo, nil
}
