package model

import "time"

// Pair links the two users who share a restaurant log.
type Pair struct {
	ID        string    `json:"id" yaml:"id"`
	User1ID   string    `json:"user1_id" yaml:"user1_id"`
	User2ID   string    `json:"user2_id,omitempty" yaml:"user2_id,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at,omitempty"`
}

// Snapshot is everything the recommendation engine needs for one pair.
type Snapshot struct {
	Pair        *Pair        `json:"pair,omitempty" yaml:"pair,omitempty"`
	Restaurants []Restaurant `json:"restaurants" yaml:"restaurants"`
	Ratings     []Rating     `json:"ratings" yaml:"ratings"`
}

// RestaurantIDs returns the ids of every restaurant in the snapshot.
func (s *Snapshot) RestaurantIDs() []string {
	ids := make([]string, 0, len(s.Restaurants))
	for _, r := range s.Restaurants {
		ids = append(ids, r.ID)
	}
	return ids
}
