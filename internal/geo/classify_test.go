package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		km       float64
		nearKM   float64
		closeKM  float64
		expected Band
	}{
		{name: "near: well inside", km: 0.5, nearKM: 1, closeKM: 3, expected: BandNear},
		{name: "close: at near bound", km: 1.0, nearKM: 1, closeKM: 3, expected: BandClose},
		{name: "close: inside", km: 2.0, nearKM: 1, closeKM: 3, expected: BandClose},
		{name: "far: at close bound", km: 3.0, nearKM: 1, closeKM: 3, expected: BandFar},
		{name: "close: wider external band", km: 4.5, nearKM: 1, closeKM: 5, expected: BandClose},
		{name: "far: zero-width close band", km: 1.5, nearKM: 1, closeKM: 1, expected: BandFar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.km, tt.nearKM, tt.closeKM))
		})
	}
}

func TestBandString(t *testing.T) {
	assert.Equal(t, "near", BandNear.String())
	assert.Equal(t, "close", BandClose.String())
	assert.Equal(t, "far", BandFar.String())
}
