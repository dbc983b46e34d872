package recommend

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Weights holds every threshold and bonus the scoring rules use.
type Weights struct {
	// Output shaping.
	ColdStartLimit    int
	MaxResults        int
	SmallSetThreshold int

	// Wishlist rules.
	CravingBonus       float64
	AffinityThreshold  float64
	AffinityBaseline   float64
	AffinityMultiplier float64
	NearKM             float64
	NearBonus          float64
	CloseKM            float64
	CloseBonus         float64
	PriceAffinityBonus float64
	FavoriteBonus      float64

	// External discovery rules.
	ExternalBase            float64
	ExternalCravingBonus    float64
	ExternalNearKM          float64
	ExternalNearBonus       float64
	ExternalCloseKM         float64
	ExternalCloseBonus      float64
	ExternalRatingThreshold float64
	ExternalRatingBaseline  float64
}

// DefaultWeights returns the production scoring rules.
func DefaultWeights() Weights {
	return Weights{
		ColdStartLimit:    3,
		MaxResults:        5,
		SmallSetThreshold: 5,

		CravingBonus:       10,
		AffinityThreshold:  4.0,
		AffinityBaseline:   3,
		AffinityMultiplier: 2,
		NearKM:             1,
		NearBonus:          3,
		CloseKM:            3,
		CloseBonus:         1.5,
		PriceAffinityBonus: 1,
		FavoriteBonus:      2,

		ExternalBase:            0.5,
		ExternalCravingBonus:    8,
		ExternalNearKM:          1,
		ExternalNearBonus:       3,
		ExternalCloseKM:         5,
		ExternalCloseBonus:      1,
		ExternalRatingThreshold: 4.0,
		ExternalRatingBaseline:  3,
	}
}

// Validate checks that w is internally consistent.
func (w Weights) Validate() error {
	var errs []string

	if w.ColdStartLimit < 0 {
		errs = append(errs, fmt.Sprintf("cold_start_limit must be >= 0, got %d", w.ColdStartLimit))
	}
	if w.MaxResults < 1 {
		errs = append(errs, fmt.Sprintf("max_results must be positive, got %d", w.MaxResults))
	}
	if w.SmallSetThreshold < 0 {
		errs = append(errs, fmt.Sprintf("small_set_threshold must be >= 0, got %d", w.SmallSetThreshold))
	}
	if w.NearKM <= 0 || w.CloseKM < w.NearKM {
		errs = append(errs, fmt.Sprintf("distance bands must satisfy 0 < near_km <= close_km, got %g/%g", w.NearKM, w.CloseKM))
	}
	if w.ExternalNearKM <= 0 || w.ExternalCloseKM < w.ExternalNearKM {
		errs = append(errs, fmt.Sprintf("external distance bands must satisfy 0 < near_km <= close_km, got %g/%g", w.ExternalNearKM, w.ExternalCloseKM))
	}

	if len(errs) > 0 {
		return eris.Errorf("recommend: invalid weights: %s", strings.Join(errs, "; "))
	}
	return nil
}
