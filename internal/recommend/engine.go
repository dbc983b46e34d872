package recommend

import (
	"sort"
	"strings"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
	"github.com/foodiepair/foodiepair-cli/internal/model"
)

// Engine scores and ranks recommendation candidates. It is safe for
// concurrent use.
type Engine struct {
	w Weights
}

// New creates an Engine after validating w.
func New(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{w: w}, nil
}

// Default returns an Engine with DefaultWeights.
func Default() *Engine {
	return &Engine{w: DefaultWeights()}
}

// Weights returns the engine's scoring rules.
func (e *Engine) Weights() Weights {
	return e.w
}

// Generate runs the default engine over in.
func Generate(in Input) []Result {
	return Default().Generate(in)
}

// Generate ranks the pair's wishlist together with external candidates.
//
// Without any visited restaurant there is nothing to learn from: the first
// ColdStartLimit wishlist entries come back in input order with score 0 and
// external candidates are ignored. Otherwise results are sorted by score,
// scores <= 0 are dropped unless the whole candidate set is at most
// SmallSetThreshold long, and at most MaxResults are returned.
func (e *Engine) Generate(in Input) []Result {
	var visited, wishlist []model.Restaurant
	for _, r := range in.Restaurants {
		switch {
		case r.VisitStatus.IsVisited():
			visited = append(visited, r)
		case r.VisitStatus.IsWishlist():
			wishlist = append(wishlist, r)
		}
	}

	if len(visited) == 0 {
		return e.coldStart(wishlist)
	}

	aff := learnAffinity(visited, ratingsByRestaurant(in.Ratings))

	combined := make([]Result, 0, len(wishlist)+len(in.External))
	for _, r := range wishlist {
		combined = append(combined, e.scoreWishlist(r, aff, in))
	}
	for _, c := range in.External {
		combined = append(combined, e.scoreExternal(c, in))
	}

	return e.rank(combined)
}

func (e *Engine) coldStart(wishlist []model.Restaurant) []Result {
	n := min(len(wishlist), e.w.ColdStartLimit)
	out := make([]Result, 0, n)
	for _, r := range wishlist[:n] {
		out = append(out, Result{
			Candidate: WishlistItem(r),
			Score:     0,
			Reasons:   []Reason{{Key: ReasonNoRatingsYet}},
		})
	}
	return out
}

func (e *Engine) scoreWishlist(r model.Restaurant, aff affinity, in Input) Result {
	res := Result{Candidate: WishlistItem(r), Reasons: []Reason{}}

	if matchesCraving(r.CuisineType, in.CuisineFilter) {
		res.Score += e.w.CravingBonus
		res.Reasons = append(res.Reasons, Reason{Key: ReasonCraving})
	} else if mean, ok := aff.cuisineMean(r.CuisineType); ok && mean >= e.w.AffinityThreshold {
		res.Score += (mean - e.w.AffinityBaseline) * e.w.AffinityMultiplier
		res.Reasons = append(res.Reasons, Reason{
			Key:    ReasonBothLoveCuisine,
			Params: map[string]any{ParamCuisine: r.CuisineType},
		})
	}

	if km, ok := distanceFrom(in.UserLocation, r.Location); ok {
		res.DistanceKM = &km
		switch geo.Classify(km, e.w.NearKM, e.w.CloseKM) {
		case geo.BandNear:
			res.Score += e.w.NearBonus
			res.Reasons = append(res.Reasons, Reason{
				Key:    ReasonVeryClose,
				Params: map[string]any{ParamDistance: geo.FormatKM(km)},
			})
		case geo.BandClose:
			res.Score += e.w.CloseBonus
			res.Reasons = append(res.Reasons, Reason{
				Key:    ReasonDistanceAway,
				Params: map[string]any{ParamDistance: geo.FormatKM(km)},
			})
		}
	}

	// Price affinity counts but never explains itself.
	if mean, ok := aff.priceMean(r.PriceRange); ok && mean >= e.w.AffinityThreshold {
		res.Score += e.w.PriceAffinityBonus
	}

	if r.IsFavorite {
		res.Score += e.w.FavoriteBonus
		res.Reasons = append(res.Reasons, Reason{Key: ReasonFavorite})
	}

	return res
}

func (e *Engine) scoreExternal(c model.ExternalCandidate, in Input) Result {
	res := Result{
		Candidate: ExternalItem(c),
		Score:     e.w.ExternalBase,
		Reasons:   []Reason{{Key: ReasonNewDiscovery}},
	}

	if matchesCraving(c.CuisineType, in.CuisineFilter) {
		res.Score += e.w.ExternalCravingBonus
		res.Reasons = append(res.Reasons, Reason{Key: ReasonMatchesCraving})
	}

	if km, ok := distanceFrom(in.UserLocation, c.Location); ok {
		res.DistanceKM = &km
		switch geo.Classify(km, e.w.ExternalNearKM, e.w.ExternalCloseKM) {
		case geo.BandNear:
			res.Score += e.w.ExternalNearBonus
			res.Reasons = append(res.Reasons, Reason{
				Key:    ReasonDistanceAway,
				Params: map[string]any{ParamDistance: geo.FormatKM(km)},
			})
		case geo.BandClose:
			res.Score += e.w.ExternalCloseBonus
		}
	}

	if c.Rating != nil && *c.Rating >= e.w.ExternalRatingThreshold {
		res.Score += *c.Rating - e.w.ExternalRatingBaseline
		res.Reasons = append(res.Reasons, Reason{
			Key:    ReasonHighlyRated,
			Params: map[string]any{ParamRating: *c.Rating},
		})
	}

	return res
}

func (e *Engine) rank(combined []Result) []Result {
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Score > combined[j].Score
	})

	keepAll := len(combined) <= e.w.SmallSetThreshold
	out := make([]Result, 0, min(len(combined), e.w.MaxResults))
	for _, r := range combined {
		if len(out) == e.w.MaxResults {
			break
		}
		if r.Score > 0 || keepAll {
			out = append(out, r)
		}
	}
	return out
}

// matchesCraving reports whether filter appears inside the cuisine label,
// ignoring case. Only that direction counts.
func matchesCraving(cuisine, filter string) bool {
	if filter == "" || cuisine == "" {
		return false
	}
	return strings.Contains(strings.ToLower(cuisine), strings.ToLower(filter))
}

func distanceFrom(user *geo.Point, locate func() (geo.Point, bool)) (float64, bool) {
	if user == nil || user.IsZero() {
		return 0, false
	}
	p, ok := locate()
	if !ok {
		return 0, false
	}
	return geo.HaversineKM(*user, p), true
}
