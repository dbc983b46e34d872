package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPoint(t *testing.T, lat, lng float64) Point {
	t.Helper()
	p, err := NewPoint(lat, lng)
	require.NoError(t, err)
	return p
}

func TestHaversineKM(t *testing.T) {
	// Austin to Dallas is roughly 292 km.
	d := HaversineKM(mustPoint(t, 30.2672, -97.7431), mustPoint(t, 32.7767, -96.7970))
	assert.InDelta(t, 292, d, 5)

	same := mustPoint(t, 40.4168, -3.7038)
	assert.InDelta(t, 0, HaversineKM(same, same), 0.0001)
}

func TestHaversineKM_Symmetric(t *testing.T) {
	a := mustPoint(t, 48.8566, 2.3522)
	b := mustPoint(t, 51.5074, -0.1278)
	assert.InDelta(t, HaversineKM(a, b), HaversineKM(b, a), 1e-9)
}

func TestHaversineKM_ShortHop(t *testing.T) {
	// 0.01 degrees of latitude is about 1.11 km.
	d := HaversineKM(mustPoint(t, 40.0, -3.0), mustPoint(t, 40.01, -3.0))
	assert.InDelta(t, 1.112, d, 0.01)
}

func TestFormatKM(t *testing.T) {
	assert.Equal(t, "0.5", FormatKM(0.5))
	assert.Equal(t, "2.0", FormatKM(2))
	assert.Equal(t, "1.3", FormatKM(1.25))
	assert.Equal(t, "0.1", FormatKM(0.1449))
	assert.Equal(t, "12.3", FormatKM(12.34))
}
