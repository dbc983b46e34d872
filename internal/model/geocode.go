package model

import "time"

// GeocodeEntry is a cached address lookup keyed by the hash of the
// normalized address. Non-matches are cached with Matched false.
type GeocodeEntry struct {
	AddressHash string    `json:"address_hash"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	DisplayName string    `json:"display_name,omitempty"`
	Quality     string    `json:"quality,omitempty"`
	Matched     bool      `json:"matched"`
	CachedAt    time.Time `json:"cached_at"`
}
