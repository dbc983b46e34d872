package model

import (
	"math"
	"time"
)

// Rating bounds. Sub-scores move in half-point steps.
const (
	MinScore  = 1.0
	MaxScore  = 5.0
	ScoreStep = 0.5
)

// Rating is one pair member's scorecard for a restaurant.
type Rating struct {
	ID                string    `json:"id" yaml:"id"`
	RestaurantID      string    `json:"restaurant_id" yaml:"restaurant_id"`
	UserID            string    `json:"user_id" yaml:"user_id"`
	FoodScore         float64   `json:"food_score" yaml:"food_score"`
	ServiceScore      float64   `json:"service_score" yaml:"service_score"`
	VibeScore         float64   `json:"vibe_score" yaml:"vibe_score"`
	PriceQualityScore float64   `json:"price_quality_score" yaml:"price_quality_score"`
	FavoriteDish      string    `json:"favorite_dish,omitempty" yaml:"favorite_dish,omitempty"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at,omitempty"`
}

// Scores returns the four sub-scores in food, service, vibe, price-quality order.
func (r Rating) Scores() [4]float64 {
	return [4]float64{r.FoodScore, r.ServiceScore, r.VibeScore, r.PriceQualityScore}
}

// Average returns the mean of the four sub-scores.
func (r Rating) Average() float64 {
	var sum float64
	for _, s := range r.Scores() {
		sum += s
	}
	return sum / 4
}

// ValidScore reports whether s is a legal sub-score: within
// [MinScore, MaxScore] and on a ScoreStep boundary.
func ValidScore(s float64) bool {
	if s < MinScore || s > MaxScore {
		return false
	}
	steps := s / ScoreStep
	return math.Abs(steps-math.Round(steps)) < 1e-9
}
