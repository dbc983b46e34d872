// Package store persists pairs, restaurants and ratings.
package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/foodiepair/foodiepair-cli/internal/model"
)

// ErrNotFound is returned (wrapped) when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// RestaurantFilter narrows ListRestaurants.
type RestaurantFilter struct {
	Status        model.VisitStatus `json:"status,omitempty"`
	FavoritesOnly bool              `json:"favorites_only,omitempty"`
	Limit         int               `json:"limit,omitempty"`
	Offset        int               `json:"offset,omitempty"`
}

// ImportResult counts rows written by Import.
type ImportResult struct {
	Pairs       int64 `json:"pairs"`
	Restaurants int64 `json:"restaurants"`
	Ratings     int64 `json:"ratings"`
}

// Store defines the persistence interface for a pair's restaurant log.
type Store interface {
	// Pairs
	CreatePair(ctx context.Context, pair model.Pair) (*model.Pair, error)
	GetPair(ctx context.Context, pairID string) (*model.Pair, error)

	// Restaurants
	CreateRestaurant(ctx context.Context, r model.Restaurant) (*model.Restaurant, error)
	GetRestaurant(ctx context.Context, restaurantID string) (*model.Restaurant, error)
	ListRestaurants(ctx context.Context, pairID string, filter RestaurantFilter) ([]model.Restaurant, error)
	SetFavorite(ctx context.Context, restaurantID string, favorite bool) error
	MarkVisited(ctx context.Context, restaurantID string, visitDate time.Time) error

	// Ratings
	CreateRating(ctx context.Context, r model.Rating) (*model.Rating, error)
	ListRatingsForRestaurants(ctx context.Context, restaurantIDs []string) ([]model.Rating, error)

	// Geocode cache. GetGeocode returns ErrNotFound for a missing entry or
	// one cached before notBefore; a zero notBefore accepts any age.
	GetGeocode(ctx context.Context, addressHash string, notBefore time.Time) (*model.GeocodeEntry, error)
	PutGeocode(ctx context.Context, e model.GeocodeEntry) error

	// Snapshots
	Snapshot(ctx context.Context, pairID string) (*model.Snapshot, error)
	Import(ctx context.Context, snap *model.Snapshot) (ImportResult, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// LoadSnapshotFile reads a YAML snapshot of restaurants and ratings.
// Restaurants without a pair id inherit the snapshot pair's id.
func LoadSnapshotFile(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read snapshot %s", path)
	}

	var snap model.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(err, "store: parse snapshot %s", path)
	}

	for i := range snap.Restaurants {
		r := &snap.Restaurants[i]
		if r.ID == "" {
			return nil, eris.Errorf("store: snapshot %s: restaurant %d (%q) has no id", path, i, r.Name)
		}
		if !r.VisitStatus.Valid() {
			return nil, eris.Errorf("store: snapshot %s: restaurant %s has unknown visit_status %q", path, r.ID, r.VisitStatus)
		}
		if r.PairID == "" && snap.Pair != nil {
			r.PairID = snap.Pair.ID
		}
		r.Lat, r.Lng = normalizeCoords(r.Lat, r.Lng)
	}
	return &snap, nil
}

// snapshotReader is the read side shared by every backend's Snapshot.
type snapshotReader interface {
	GetPair(ctx context.Context, pairID string) (*model.Pair, error)
	ListRestaurants(ctx context.Context, pairID string, filter RestaurantFilter) ([]model.Restaurant, error)
	ListRatingsForRestaurants(ctx context.Context, restaurantIDs []string) ([]model.Rating, error)
}

func buildSnapshot(ctx context.Context, s snapshotReader, pairID string) (*model.Snapshot, error) {
	pair, err := s.GetPair(ctx, pairID)
	if err != nil {
		return nil, err
	}
	restaurants, err := s.ListRestaurants(ctx, pairID, RestaurantFilter{})
	if err != nil {
		return nil, err
	}
	snap := &model.Snapshot{Pair: pair, Restaurants: restaurants}
	snap.Ratings, err = s.ListRatingsForRestaurants(ctx, snap.RestaurantIDs())
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// normalizeCoords drops partial coordinates and the (0, 0) placeholder
// written when geocoding fails.
func normalizeCoords(lat, lng *float64) (*float64, *float64) {
	if lat == nil || lng == nil {
		return nil, nil
	}
	if *lat == 0 && *lng == 0 {
		return nil, nil
	}
	return lat, lng
}

func preparePair(p model.Pair, now time.Time) model.Pair {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	return p
}

func prepareRestaurant(r model.Restaurant, now time.Time) (model.Restaurant, error) {
	if r.PairID == "" {
		return r, eris.New("restaurant pair id is required")
	}
	if r.Name == "" {
		return r, eris.New("restaurant name is required")
	}
	if !r.VisitStatus.Valid() {
		return r, eris.Errorf("unknown visit status %q", r.VisitStatus)
	}
	if r.VisitStatus == "" {
		r.VisitStatus = model.StatusWishlist
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.Lat, r.Lng = normalizeCoords(r.Lat, r.Lng)
	return r, nil
}

func prepareRating(r model.Rating, now time.Time) (model.Rating, error) {
	if r.RestaurantID == "" {
		return r, eris.New("rating restaurant id is required")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	return r, nil
}

// importPairs returns the snapshot pair plus a stub for every other pair id
// its restaurants reference, so foreign keys hold on import.
func importPairs(snap *model.Snapshot, now time.Time) []model.Pair {
	var pairs []model.Pair
	seen := map[string]bool{}
	if snap.Pair != nil && snap.Pair.ID != "" {
		pairs = append(pairs, preparePair(*snap.Pair, now))
		seen[snap.Pair.ID] = true
	}
	for _, r := range snap.Restaurants {
		if r.PairID == "" || seen[r.PairID] {
			continue
		}
		seen[r.PairID] = true
		pairs = append(pairs, preparePair(model.Pair{ID: r.PairID}, now))
	}
	return pairs
}

func rowsAffected(n int64, entity, id string) error {
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func restaurantArgs(r model.Restaurant) []any {
	return []any{
		r.ID, r.PairID, r.Name, r.Address, r.CuisineType, r.PriceRange, r.Lat, r.Lng,
		string(r.VisitStatus), r.IsFavorite, r.VisitDate, r.GeneralComment, r.CreatedBy, r.CreatedAt,
	}
}

func ratingArgs(r model.Rating) []any {
	return []any{
		r.ID, r.RestaurantID, r.UserID, r.FoodScore, r.ServiceScore, r.VibeScore,
		r.PriceQualityScore, r.FavoriteDish, r.CreatedAt,
	}
}

func splitColumns(cols string) []string {
	parts := strings.Split(cols, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
