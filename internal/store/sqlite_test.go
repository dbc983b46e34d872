package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiepair/foodiepair-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedPair(t *testing.T, st *SQLiteStore) *model.Pair {
	t.Helper()
	p, err := st.CreatePair(context.Background(), model.Pair{User1ID: "ana", User2ID: "ben"})
	require.NoError(t, err)
	return p
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, st.Ping(context.Background()))
}

// --- Pairs ---

func TestSQLite_Pair_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := seedPair(t, st)
	assert.NotEmpty(t, p.ID)

	got, err := st.GetPair(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.User1ID)
	assert.Equal(t, "ben", got.User2ID)
}

func TestSQLite_Pair_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetPair(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Restaurants ---

func TestSQLite_Restaurant_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	p := seedPair(t, st)

	created, err := st.CreateRestaurant(ctx, model.Restaurant{
		PairID:      p.ID,
		Name:        "Trattoria Roma",
		Address:     "Calle Mayor 1",
		CuisineType: "Italian",
		PriceRange:  2,
		Lat:         ptr(40.4168),
		Lng:         ptr(-3.7038),
		VisitStatus: model.StatusVisited,
		IsFavorite:  true,
		CreatedBy:   "ana",
	})
	require.NoError(t, err)

	got, err := st.GetRestaurant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trattoria Roma", got.Name)
	assert.Equal(t, "Italian", got.CuisineType)
	assert.Equal(t, 2, got.PriceRange)
	assert.Equal(t, model.StatusVisited, got.VisitStatus)
	assert.True(t, got.IsFavorite)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, 40.4168, *got.Lat, 1e-9)
	assert.Nil(t, got.VisitDate)
}

func TestSQLite_Restaurant_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRestaurant(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_Restaurant_UnknownPair(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.CreateRestaurant(context.Background(), model.Restaurant{PairID: "ghost", Name: "Nowhere"})
	assert.Error(t, err)
}

func TestSQLite_Restaurant_ZeroCoordinatesLoadAsMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	p := seedPair(t, st)

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO restaurants (id, pair_id, name, lat, lng, created_at) VALUES ('r0', ?, 'Ungeocoded', 0, 0, ?)`,
		p.ID, time.Now().UTC(),
	)
	require.NoError(t, err)

	got, err := st.GetRestaurant(ctx, "r0")
	require.NoError(t, err)
	assert.Nil(t, got.Lat)
	assert.Nil(t, got.Lng)
	_, ok := got.Location()
	assert.False(t, ok)
}

func TestSQLite_ListRestaurants_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	p := seedPair(t, st)
	other := seedPair(t, st)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range []model.Restaurant{
		{Name: "A", VisitStatus: model.StatusVisited, IsFavorite: true},
		{Name: "B", VisitStatus: model.StatusVisited},
		{Name: "C", VisitStatus: model.StatusWishlist},
	} {
		r.PairID = p.ID
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := st.CreateRestaurant(ctx, r)
		require.NoError(t, err)
	}
	_, err := st.CreateRestaurant(ctx, model.Restaurant{PairID: other.ID, Name: "Elsewhere"})
	require.NoError(t, err)

	all, err := st.ListRestaurants(ctx, p.ID, RestaurantFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Name)
	assert.Equal(t, "C", all[2].Name)

	visited, err := st.ListRestaurants(ctx, p.ID, RestaurantFilter{Status: model.StatusVisited})
	require.NoError(t, err)
	assert.Len(t, visited, 2)

	favs, err := st.ListRestaurants(ctx, p.ID, RestaurantFilter{FavoritesOnly: true})
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "A", favs[0].Name)

	page, err := st.ListRestaurants(ctx, p.ID, RestaurantFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].Name)

	skipped, err := st.ListRestaurants(ctx, p.ID, RestaurantFilter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "C", skipped[0].Name)
}

func TestSQLite_SetFavoriteAndMarkVisited(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	p := seedPair(t, st)

	r, err := st.CreateRestaurant(ctx, model.Restaurant{PairID: p.ID, Name: "Taqueria"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusWishlist, r.VisitStatus)

	require.NoError(t, st.SetFavorite(ctx, r.ID, true))
	visitedAt := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
	require.NoError(t, st.MarkVisited(ctx, r.ID, visitedAt))

	got, err := st.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)
	assert.Equal(t, model.StatusVisited, got.VisitStatus)
	require.NotNil(t, got.VisitDate)
	assert.True(t, visitedAt.Equal(*got.VisitDate))
}

func TestSQLite_SetFavorite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SetFavorite(context.Background(), "missing", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.MarkVisited(context.Background(), "missing", time.Now())
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Ratings ---

func TestSQLite_Ratings_ListForRestaurants(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	p := seedPair(t, st)

	r1, err := st.CreateRestaurant(ctx, model.Restaurant{PairID: p.ID, Name: "One"})
	require.NoError(t, err)
	r2, err := st.CreateRestaurant(ctx, model.Restaurant{PairID: p.ID, Name: "Two"})
	require.NoError(t, err)

	for _, rid := range []string{r1.ID, r1.ID, r2.ID} {
		_, err := st.CreateRating(ctx, model.Rating{
			RestaurantID: rid, UserID: "ana",
			FoodScore: 4, ServiceScore: 4.5, VibeScore: 3, PriceQualityScore: 3.5,
			FavoriteDish: "carbonara",
		})
		require.NoError(t, err)
	}

	only1, err := st.ListRatingsForRestaurants(ctx, []string{r1.ID})
	require.NoError(t, err)
	require.Len(t, only1, 2)
	assert.InDelta(t, 4.5, only1[0].ServiceScore, 1e-9)
	assert.Equal(t, "carbonara", only1[0].FavoriteDish)

	both, err := st.ListRatingsForRestaurants(ctx, []string{r1.ID, r2.ID})
	require.NoError(t, err)
	assert.Len(t, both, 3)

	none, err := st.ListRatingsForRestaurants(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_Rating_UnknownRestaurant(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.CreateRating(context.Background(), model.Rating{RestaurantID: "ghost", FoodScore: 3, ServiceScore: 3, VibeScore: 3, PriceQualityScore: 3})
	assert.Error(t, err)
}

// --- Snapshots ---

func TestSQLite_Snapshot(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	p := seedPair(t, st)

	r, err := st.CreateRestaurant(ctx, model.Restaurant{PairID: p.ID, Name: "Pho House", CuisineType: "Vietnamese", VisitStatus: model.StatusVisited})
	require.NoError(t, err)
	_, err = st.CreateRestaurant(ctx, model.Restaurant{PairID: p.ID, Name: "Ramen Ya", CuisineType: "Japanese"})
	require.NoError(t, err)
	_, err = st.CreateRating(ctx, model.Rating{RestaurantID: r.ID, FoodScore: 5, ServiceScore: 5, VibeScore: 5, PriceQualityScore: 5})
	require.NoError(t, err)

	snap, err := st.Snapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, snap.Pair.ID)
	assert.Len(t, snap.Restaurants, 2)
	require.Len(t, snap.Ratings, 1)
	assert.Equal(t, r.ID, snap.Ratings[0].RestaurantID)
}

func TestSQLite_Snapshot_UnknownPair(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.Snapshot(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_Import_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	snap := &model.Snapshot{
		Pair: &model.Pair{ID: "pair-1", User1ID: "ana"},
		Restaurants: []model.Restaurant{
			{ID: "r1", PairID: "pair-1", Name: "Trattoria", CuisineType: "Italian", VisitStatus: model.StatusVisited, PriceRange: 2},
			{ID: "r2", PairID: "pair-1", Name: "Noodle Bar", CuisineType: "Thai"},
		},
		Ratings: []model.Rating{
			{ID: "t1", RestaurantID: "r1", FoodScore: 4, ServiceScore: 4, VibeScore: 4, PriceQualityScore: 4},
		},
	}

	res, err := st.Import(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Pairs: 1, Restaurants: 2, Ratings: 1}, res)

	snap.Restaurants[1].Name = "Noodle Bar Deluxe"
	_, err = st.Import(ctx, snap)
	require.NoError(t, err)

	got, err := st.Snapshot(ctx, "pair-1")
	require.NoError(t, err)
	require.Len(t, got.Restaurants, 2)
	assert.Len(t, got.Ratings, 1)

	r2, err := st.GetRestaurant(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, "Noodle Bar Deluxe", r2.Name)
	assert.Equal(t, model.StatusWishlist, r2.VisitStatus)
}

func TestSQLite_Import_RollsBackOnError(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	snap := &model.Snapshot{
		Pair: &model.Pair{ID: "pair-1"},
		Restaurants: []model.Restaurant{
			{ID: "r1", PairID: "pair-1", Name: "Fine"},
		},
		Ratings: []model.Rating{
			{ID: "t1", RestaurantID: "no-such-restaurant", FoodScore: 4, ServiceScore: 4, VibeScore: 4, PriceQualityScore: 4},
		},
	}

	_, err := st.Import(ctx, snap)
	require.Error(t, err)

	_, err = st.GetPair(ctx, "pair-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Geocode cache ---

func TestSQLite_GeocodeCache(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetGeocode(ctx, "h1", time.Time{})
	assert.True(t, errors.Is(err, ErrNotFound))

	cachedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.PutGeocode(ctx, model.GeocodeEntry{
		AddressHash: "h1",
		Latitude:    40.4,
		Longitude:   -3.7,
		DisplayName: "Calle Mayor 1, Madrid",
		Quality:     "rooftop",
		Matched:     true,
		CachedAt:    cachedAt,
	}))

	e, err := st.GetGeocode(ctx, "h1", time.Time{})
	require.NoError(t, err)
	assert.True(t, e.Matched)
	assert.InDelta(t, 40.4, e.Latitude, 1e-9)
	assert.Equal(t, "rooftop", e.Quality)
	assert.Equal(t, cachedAt, e.CachedAt)

	_, err = st.GetGeocode(ctx, "h1", cachedAt.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrNotFound), "entries older than notBefore are misses")

	require.NoError(t, st.PutGeocode(ctx, model.GeocodeEntry{AddressHash: "h1", Matched: false}))
	e, err = st.GetGeocode(ctx, "h1", cachedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, e.Matched)
	assert.True(t, e.CachedAt.After(cachedAt))
}
