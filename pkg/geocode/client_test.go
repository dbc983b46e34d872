package geocode

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiepair/foodiepair-cli/internal/resilience"
)

func TestGeocode_Match(t *testing.T) {
	var gotQuery, gotFormat, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotFormat = r.URL.Query().Get("format")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{
			"lat": "40.4168", "lon": "-3.7038",
			"display_name": "Calle Mayor 1, Madrid",
			"category": "building", "type": "yes", "addresstype": "building"
		}]`)
	})

	r, err := c.Geocode(context.Background(), "  Calle Mayor 1, Madrid ")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.InDelta(t, 40.4168, r.Latitude, 1e-9)
	assert.InDelta(t, -3.7038, r.Longitude, 1e-9)
	assert.Equal(t, "nominatim", r.Source)
	assert.Equal(t, "rooftop", r.Quality)
	assert.Equal(t, "Calle Mayor 1, Madrid", r.DisplayName)

	assert.Equal(t, "Calle Mayor 1, Madrid", gotQuery)
	assert.Equal(t, "jsonv2", gotFormat)
	assert.Equal(t, defaultUserAgent, gotUA)
}

func TestGeocode_NoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	r, err := c.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestGeocode_EmptyAddressSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `[]`)
	})

	r, err := c.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, r.Matched)
	assert.Zero(t, calls.Load())
}

func TestGeocode_CachesByNormalizedAddress(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `[{"lat":"1.5","lon":"2.5","addresstype":"road"}]`)
	})

	first, err := c.Geocode(context.Background(), "Main Street 5")
	require.NoError(t, err)
	second, err := c.Geocode(context.Background(), "main   street 5")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, "range", second.Quality)
}

func TestGeocode_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"lat":"10","lon":"20","addresstype":"city"}]`)
	})

	r, err := c.Geocode(context.Background(), "Springfield")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.Equal(t, "approximate", r.Quality)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeocode_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Geocode(context.Background(), "Springfield")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocode_BadPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat":"north","lon":"2"}]`)
	})
	_, err := c.Geocode(context.Background(), "x")
	assert.ErrorContains(t, err, "bad coordinates")

	c = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{not json`)
	})
	_, err = c.Geocode(context.Background(), "y")
	assert.ErrorContains(t, err, "parse response")
}

func TestPlaceQuality(t *testing.T) {
	tests := []struct {
		place nominatimPlace
		want  string
	}{
		{nominatimPlace{AddressType: "house"}, "rooftop"},
		{nominatimPlace{AddressType: "amenity"}, "rooftop"},
		{nominatimPlace{AddressType: "road"}, "range"},
		{nominatimPlace{AddressType: "postcode"}, "centroid"},
		{nominatimPlace{Type: "suburb"}, "centroid"},
		{nominatimPlace{AddressType: "country"}, "approximate"},
		{nominatimPlace{}, "approximate"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, placeQuality(tt.place), "%+v", tt.place)
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("Main St 5"), cacheKey("  main   st 5 "))
	assert.NotEqual(t, cacheKey("Main St 5"), cacheKey("Main St 6"))
	assert.Len(t, cacheKey("x"), 64)
}

func TestCoordinates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "known" {
			_, _ = io.WriteString(w, `[{"lat":"45.5","lon":"9.25"}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	lat, lng, err := Coordinates(context.Background(), c, "known")
	require.NoError(t, err)
	require.NotNil(t, lat)
	require.NotNil(t, lng)
	assert.Equal(t, 45.5, *lat)
	assert.Equal(t, 9.25, *lng)

	lat, lng, err = Coordinates(context.Background(), c, "unknown")
	require.NoError(t, err)
	assert.Nil(t, lat)
	assert.Nil(t, lng)
}
