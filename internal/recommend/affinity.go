package recommend

import "github.com/foodiepair/foodiepair-cli/internal/model"

type bucket struct {
	total float64
	count int
}

func (b bucket) mean() float64 {
	if b.count == 0 {
		return 0
	}
	return b.total / float64(b.count)
}

// affinity is what the pair's history says about cuisines and price tiers.
type affinity struct {
	cuisine map[string]float64
	price   map[int]float64
}

// cuisineMean looks a cuisine up by its exact label.
func (a affinity) cuisineMean(label string) (float64, bool) {
	if label == "" {
		return 0, false
	}
	m, ok := a.cuisine[label]
	return m, ok
}

func (a affinity) priceMean(tier int) (float64, bool) {
	if tier == 0 {
		return 0, false
	}
	m, ok := a.price[tier]
	return m, ok
}

func ratingsByRestaurant(ratings []model.Rating) map[string][]model.Rating {
	out := make(map[string][]model.Rating)
	for _, r := range ratings {
		out[r.RestaurantID] = append(out[r.RestaurantID], r)
	}
	return out
}

// restaurantAverage averages every sub-score of every rating as one flat
// list, so each sub-score weighs the same no matter who wrote it.
func restaurantAverage(ratings []model.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, r := range ratings {
		for _, s := range r.Scores() {
			sum += s
			n++
		}
	}
	return sum / float64(n)
}

// learnAffinity buckets visited restaurants' averages by cuisine label and
// by price tier. Cuisine keys are case-sensitive.
func learnAffinity(visited []model.Restaurant, byRestaurant map[string][]model.Rating) affinity {
	cuisines := make(map[string]bucket)
	prices := make(map[int]bucket)

	for _, r := range visited {
		avg := restaurantAverage(byRestaurant[r.ID])

		if r.CuisineType != "" {
			b := cuisines[r.CuisineType]
			b.total += avg
			b.count++
			cuisines[r.CuisineType] = b
		}

		b := prices[r.PriceRange]
		b.total += avg
		b.count++
		prices[r.PriceRange] = b
	}

	a := affinity{
		cuisine: make(map[string]float64, len(cuisines)),
		price:   make(map[int]float64, len(prices)),
	}
	for k, b := range cuisines {
		a.cuisine[k] = b.mean()
	}
	for k, b := range prices {
		a.price[k] = b.mean()
	}
	return a
}
