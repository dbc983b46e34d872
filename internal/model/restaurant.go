// Package model defines the records shared by storage, discovery and the
// recommendation engine.
package model

import (
	"time"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
)

// VisitStatus distinguishes places a pair has been to from places they want to try.
type VisitStatus string

const (
	StatusVisited  VisitStatus = "visited"
	StatusWishlist VisitStatus = "wishlist"
)

// IsVisited reports whether the status marks a visited restaurant.
func (s VisitStatus) IsVisited() bool {
	return s == StatusVisited
}

// IsWishlist reports whether the status marks a wishlist entry. An unset
// status counts as wishlist.
func (s VisitStatus) IsWishlist() bool {
	return s == StatusWishlist || s == ""
}

// Valid reports whether s is one of the known statuses or unset.
func (s VisitStatus) Valid() bool {
	return s == "" || s == StatusVisited || s == StatusWishlist
}

// Restaurant is a place one pair tracks, visited or on the wishlist.
type Restaurant struct {
	ID             string      `json:"id" yaml:"id"`
	PairID         string      `json:"pair_id" yaml:"pair_id"`
	Name           string      `json:"name" yaml:"name"`
	Address        string      `json:"address,omitempty" yaml:"address,omitempty"`
	CuisineType    string      `json:"cuisine_type,omitempty" yaml:"cuisine_type,omitempty"`
	PriceRange     int         `json:"price_range" yaml:"price_range"`
	Lat            *float64    `json:"lat" yaml:"lat,omitempty"`
	Lng            *float64    `json:"lng" yaml:"lng,omitempty"`
	VisitStatus    VisitStatus `json:"visit_status,omitempty" yaml:"visit_status,omitempty"`
	IsFavorite     bool        `json:"is_favorite" yaml:"is_favorite"`
	VisitDate      *time.Time  `json:"visit_date,omitempty" yaml:"visit_date,omitempty"`
	GeneralComment string      `json:"general_comment,omitempty" yaml:"general_comment,omitempty"`
	CreatedBy      string      `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at" yaml:"created_at,omitempty"`
}

// Location returns the restaurant's coordinates when both are present and valid.
func (r *Restaurant) Location() (geo.Point, bool) {
	return pointFrom(r.Lat, r.Lng)
}

// SetLocation stores the point's coordinates on the restaurant.
func (r *Restaurant) SetLocation(p geo.Point) {
	lat, lng := p.Lat(), p.Lng()
	r.Lat, r.Lng = &lat, &lng
}

func pointFrom(lat, lng *float64) (geo.Point, bool) {
	if lat == nil || lng == nil {
		return geo.Point{}, false
	}
	p, err := geo.NewPoint(*lat, *lng)
	if err != nil {
		return geo.Point{}, false
	}
	return p, true
}
