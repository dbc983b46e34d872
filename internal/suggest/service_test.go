package suggest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
	"github.com/foodiepair/foodiepair-cli/internal/model"
	"github.com/foodiepair/foodiepair-cli/internal/recommend"
	"github.com/foodiepair/foodiepair-cli/pkg/overpass"
	"github.com/foodiepair/foodiepair-cli/pkg/overpass/mocks"
)

type fakeStore struct {
	snap  *model.Snapshot
	err   error
	gotID string
}

func (f *fakeStore) Snapshot(_ context.Context, pairID string) (*model.Snapshot, error) {
	f.gotID = pairID
	return f.snap, f.err
}

func ptr[T any](v T) *T { return &v }

// historySnapshot has one visited Italian place rated 4.0 and an Italian
// wishlist entry, so the wishlist entry scores 2.
func historySnapshot() *model.Snapshot {
	return &model.Snapshot{
		Pair: &model.Pair{ID: "pair-1"},
		Restaurants: []model.Restaurant{
			{ID: "v1", PairID: "pair-1", Name: "Old Favorite", CuisineType: "Italian", PriceRange: 2, VisitStatus: model.StatusVisited},
			{ID: "w1", PairID: "pair-1", Name: "New Trattoria", CuisineType: "Italian", PriceRange: 3, VisitStatus: model.StatusWishlist},
		},
		Ratings: []model.Rating{
			{ID: "t1", RestaurantID: "v1", FoodScore: 4, ServiceScore: 4, VibeScore: 4, PriceQualityScore: 4},
		},
	}
}

func madrid(t *testing.T) *geo.Point {
	t.Helper()
	p, err := geo.NewPoint(40.4168, -3.7038)
	require.NoError(t, err)
	return &p
}

func TestRecommend_WithoutLocationSkipsDiscovery(t *testing.T) {
	store := &fakeStore{snap: historySnapshot()}
	client := mocks.NewMockClient(t)
	svc := New(store, nil, WithDiscovery(client))

	resp, err := svc.Recommend(context.Background(), Request{PairID: "pair-1"})
	require.NoError(t, err)

	assert.Equal(t, "pair-1", store.gotID)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "w1", resp.Results[0].Candidate.ID())
	assert.InDelta(t, 2.0, resp.Results[0].Score, 1e-9)
	assert.Equal(t, 2, resp.Restaurants)
	assert.Equal(t, 1, resp.Ratings)
	assert.Equal(t, 0, resp.Discovered)
	client.AssertNotCalled(t, "DiscoverNearby", mock.Anything, mock.Anything)
}

func TestRecommend_MergesDiscoveries(t *testing.T) {
	store := &fakeStore{snap: historySnapshot()}
	client := mocks.NewMockClient(t)
	loc := madrid(t)

	client.On("DiscoverNearby", mock.Anything, overpass.DiscoverRequest{
		Lat: loc.Lat(), Lng: loc.Lng(), RadiusM: 1500, Cuisine: "ital",
	}).Return([]overpass.Place{
		{ID: "osm-1", Name: "Pizzeria Nueva", Cuisine: "italian", PriceRange: 2, Lat: ptr(40.4170), Lng: ptr(-3.7040), Rating: ptr(4.5)},
	}, nil)

	svc := New(store, nil, WithDiscovery(client), WithRadius(1500))
	resp, err := svc.Recommend(context.Background(), Request{PairID: "pair-1", Cuisine: "ital", Location: loc})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Discovered)
	assert.False(t, resp.DiscoveryFailed)
	require.Len(t, resp.Results, 2)
	// 0.5 base + 8 craving + 3 near + 1.5 rating
	assert.Equal(t, recommend.KindExternal, resp.Results[0].Candidate.Kind)
	assert.InDelta(t, 13.0, resp.Results[0].Score, 1e-9)
	assert.True(t, resp.Results[0].HasReason(recommend.ReasonHighlyRated))
}

func TestRecommend_DiscoveryFailureIsNonBlocking(t *testing.T) {
	store := &fakeStore{snap: historySnapshot()}
	client := mocks.NewMockClient(t)
	client.On("DiscoverNearby", mock.Anything, mock.Anything).Return(nil, errors.New("overpass down"))

	svc := New(store, nil, WithDiscovery(client))
	resp, err := svc.Recommend(context.Background(), Request{PairID: "pair-1", Location: madrid(t)})
	require.NoError(t, err)

	assert.True(t, resp.DiscoveryFailed)
	assert.Equal(t, 0, resp.Discovered)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "w1", resp.Results[0].Candidate.ID())
}

func TestRecommend_SnapshotFailureFails(t *testing.T) {
	store := &fakeStore{err: errors.New("db gone")}
	svc := New(store, nil)

	_, err := svc.Recommend(context.Background(), Request{PairID: "pair-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suggest: load snapshot")
}

func TestRecommend_RequiresPairID(t *testing.T) {
	_, err := New(&fakeStore{}, nil).Recommend(context.Background(), Request{})
	assert.Error(t, err)
}

func TestRecommend_DiscoveryTimeout(t *testing.T) {
	store := &fakeStore{snap: historySnapshot()}
	client := mocks.NewMockClient(t)
	client.On("DiscoverNearby", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, _ overpass.DiscoverRequest) ([]overpass.Place, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	svc := New(store, nil, WithDiscovery(client), WithDiscoveryTimeout(10*time.Millisecond))
	resp, err := svc.Recommend(context.Background(), Request{PairID: "pair-1", Location: madrid(t)})
	require.NoError(t, err)
	assert.True(t, resp.DiscoveryFailed)
	assert.Len(t, resp.Results, 1)
}

func TestRecommend_ColdStart(t *testing.T) {
	store := &fakeStore{snap: &model.Snapshot{Restaurants: []model.Restaurant{
		{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}, {ID: "d", Name: "D"},
	}}}

	resp, err := New(store, nil).Recommend(context.Background(), Request{PairID: "pair-1"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	for _, r := range resp.Results {
		assert.True(t, r.HasReason(recommend.ReasonNoRatingsYet))
	}
}

func TestRecommendSnapshot(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("DiscoverNearby", mock.Anything, mock.Anything).Return([]overpass.Place{}, nil)

	svc := New(nil, nil, WithDiscovery(client))
	resp, err := svc.RecommendSnapshot(context.Background(), historySnapshot(), Request{Location: madrid(t)})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)

	_, err = svc.RecommendSnapshot(context.Background(), nil, Request{})
	assert.Error(t, err)
}

func TestCandidates(t *testing.T) {
	got := Candidates([]overpass.Place{{ID: "osm-9", Name: "Ramen", Cuisine: "ramen", PriceRange: 1, Address: "Address unknown"}})
	require.Len(t, got, 1)
	assert.Equal(t, model.ExternalCandidate{
		ID: "osm-9", Name: "Ramen", Address: "Address unknown", CuisineType: "ramen", PriceRange: 1, Source: "osm",
	}, got[0])
}
