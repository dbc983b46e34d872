package geocode

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foodiepair/foodiepair-cli/internal/resilience"
)

// newTestClient serves h and returns a geocoder aimed at it with no rate
// limit and millisecond backoff. opts apply last.
func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(append([]Option{
		WithBaseURL(srv.URL),
		WithRateLimit(1000),
		WithBackoff(resilience.Backoff{Attempts: 3, Initial: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2}),
	}, opts...)...)
}
