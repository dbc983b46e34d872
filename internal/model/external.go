package model

import "github.com/foodiepair/foodiepair-cli/internal/geo"

// ExternalCandidate is a venue found by a place-discovery source that the
// pair has not recorded yet.
type ExternalCandidate struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Address     string   `json:"address,omitempty" yaml:"address,omitempty"`
	CuisineType string   `json:"cuisine_type,omitempty" yaml:"cuisine_type,omitempty"`
	Lat         *float64 `json:"lat" yaml:"lat,omitempty"`
	Lng         *float64 `json:"lng" yaml:"lng,omitempty"`
	PriceRange  int      `json:"price_range" yaml:"price_range"`
	Rating      *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	Source      string   `json:"source,omitempty" yaml:"source,omitempty"`
}

// Location returns the candidate's coordinates when both are present and valid.
func (c *ExternalCandidate) Location() (geo.Point, bool) {
	return pointFrom(c.Lat, c.Lng)
}

// AsRestaurant returns a Restaurant-shaped copy: not yet visited, not a
// favorite and not attached to any pair.
func (c *ExternalCandidate) AsRestaurant() Restaurant {
	return Restaurant{
		ID:          c.ID,
		Name:        c.Name,
		Address:     c.Address,
		CuisineType: c.CuisineType,
		PriceRange:  c.PriceRange,
		Lat:         c.Lat,
		Lng:         c.Lng,
		VisitStatus: StatusWishlist,
		IsFavorite:  false,
		PairID:      "",
	}
}
