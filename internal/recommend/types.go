package recommend

import (
	"github.com/rotisserie/eris"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
	"github.com/foodiepair/foodiepair-cli/internal/model"
)

// Kind tags which variant a Candidate holds.
type Kind int

const (
	// KindWishlist is a restaurant from the pair's own wishlist.
	KindWishlist Kind = iota
	// KindExternal is a venue found by a discovery source.
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindWishlist:
		return "wishlist"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "wishlist":
		*k = KindWishlist
	case "external":
		*k = KindExternal
	default:
		return eris.Errorf("recommend: unknown candidate kind %q", string(b))
	}
	return nil
}

// Candidate is either a known wishlist restaurant or an external discovery.
// Exactly one of Restaurant and External is set, matching Kind.
type Candidate struct {
	Kind       Kind                     `json:"kind"`
	Restaurant *model.Restaurant        `json:"restaurant,omitempty"`
	External   *model.ExternalCandidate `json:"external,omitempty"`
}

// WishlistItem wraps a copy of r.
func WishlistItem(r model.Restaurant) Candidate {
	return Candidate{Kind: KindWishlist, Restaurant: &r}
}

// ExternalItem wraps a copy of c.
func ExternalItem(c model.ExternalCandidate) Candidate {
	return Candidate{Kind: KindExternal, External: &c}
}

// ID returns the wrapped record's id.
func (c Candidate) ID() string {
	if c.Kind == KindExternal && c.External != nil {
		return c.External.ID
	}
	if c.Restaurant != nil {
		return c.Restaurant.ID
	}
	return ""
}

// Name returns the wrapped record's display name.
func (c Candidate) Name() string {
	if c.Kind == KindExternal && c.External != nil {
		return c.External.Name
	}
	if c.Restaurant != nil {
		return c.Restaurant.Name
	}
	return ""
}

// AsRestaurant returns a Restaurant-shaped view so callers can treat both
// variants alike. External candidates come back as non-favorite wishlist
// entries with no pair.
func (c Candidate) AsRestaurant() model.Restaurant {
	switch {
	case c.Kind == KindExternal && c.External != nil:
		return c.External.AsRestaurant()
	case c.Restaurant != nil:
		return *c.Restaurant
	default:
		return model.Restaurant{}
	}
}

// ReasonKey identifies a justification. Keys are resolved to display text
// by the localization layer.
type ReasonKey string

const (
	ReasonNoRatingsYet    ReasonKey = "recommendations.reasons.noRatingsYet"
	ReasonCraving         ReasonKey = "recommendations.reasons.craving"
	ReasonBothLoveCuisine ReasonKey = "recommendations.reasons.bothLoveCuisine"
	ReasonVeryClose       ReasonKey = "recommendations.reasons.veryClose"
	ReasonDistanceAway    ReasonKey = "recommendations.reasons.distanceAway"
	ReasonFavorite        ReasonKey = "recommendations.reasons.favorite"
	ReasonNewDiscovery    ReasonKey = "recommendations.reasons.newDiscovery"
	ReasonMatchesCraving  ReasonKey = "recommendations.reasons.matchesCraving"
	ReasonHighlyRated     ReasonKey = "recommendations.reasons.highlyRated"
)

// Reason parameter names.
const (
	ParamCuisine  = "cuisine"
	ParamDistance = "distance"
	ParamRating   = "rating"
)

// Reason is one symbolic justification with optional interpolation params.
type Reason struct {
	Key    ReasonKey      `json:"key"`
	Params map[string]any `json:"params,omitempty"`
}

// Result is one ranked suggestion.
type Result struct {
	Candidate  Candidate `json:"candidate"`
	Score      float64   `json:"score"`
	Reasons    []Reason  `json:"reasons"`
	DistanceKM *float64  `json:"distance_km,omitempty"`
}

// HasReason reports whether key fired for this result.
func (r Result) HasReason(key ReasonKey) bool {
	for _, reason := range r.Reasons {
		if reason.Key == key {
			return true
		}
	}
	return false
}

// Input is one invocation's snapshot. Every field may be empty.
type Input struct {
	// Restaurants holds the pair's visited and wishlist restaurants.
	Restaurants []model.Restaurant
	// Ratings holds every rating for those restaurants, from either member.
	Ratings []model.Rating
	// External holds discovery results not yet in Restaurants.
	External []model.ExternalCandidate
	// CuisineFilter is the craving, matched case-insensitively as a substring
	// of each cuisine label. Empty disables craving rules.
	CuisineFilter string
	// UserLocation enables distance rules when set.
	UserLocation *geo.Point
}
