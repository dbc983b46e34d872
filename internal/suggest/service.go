// Package suggest assembles a pair's history and nearby discoveries into
// ranked recommendations.
package suggest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
	"github.com/foodiepair/foodiepair-cli/internal/model"
	"github.com/foodiepair/foodiepair-cli/internal/recommend"
	"github.com/foodiepair/foodiepair-cli/pkg/overpass"
)

// SnapshotSource loads everything the engine needs for one pair.
type SnapshotSource interface {
	Snapshot(ctx context.Context, pairID string) (*model.Snapshot, error)
}

// Request asks for recommendations for one pair.
type Request struct {
	PairID   string
	Cuisine  string
	Location *geo.Point
}

// Response carries ranked results and the input sizes behind them.
type Response struct {
	Results     []recommend.Result `json:"recommendations"`
	Restaurants int                `json:"restaurants"`
	Ratings     int                `json:"ratings"`
	Discovered  int                `json:"discovered"`
	// DiscoveryFailed is set when nearby discovery errored and was skipped.
	DiscoveryFailed bool `json:"discovery_failed,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithDiscovery enables nearby discovery through c.
func WithDiscovery(c overpass.Client) Option {
	return func(s *Service) {
		s.discovery = c
	}
}

// WithRadius sets the discovery radius in meters.
func WithRadius(meters int) Option {
	return func(s *Service) {
		s.radiusM = meters
	}
}

// WithDiscoveryTimeout bounds how long a request waits on discovery before
// continuing without it.
func WithDiscoveryTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.discoveryTimeout = d
	}
}

// Service is safe for concurrent use.
type Service struct {
	store            SnapshotSource
	engine           *recommend.Engine
	discovery        overpass.Client
	radiusM          int
	discoveryTimeout time.Duration
}

// New creates a Service. A nil engine uses the default weights.
func New(store SnapshotSource, engine *recommend.Engine, opts ...Option) *Service {
	if engine == nil {
		engine = recommend.Default()
	}
	s := &Service{
		store:   store,
		engine:  engine,
		radiusM: overpass.DefaultRadiusM,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend loads the pair's snapshot and, when a location is known,
// discovers nearby venues concurrently. Discovery failures are logged and
// treated as no candidates; snapshot failures fail the request.
func (s *Service) Recommend(ctx context.Context, req Request) (*Response, error) {
	if req.PairID == "" {
		return nil, eris.New("suggest: pair id is required")
	}

	log := zap.L().With(
		zap.String("pair_id", req.PairID),
		zap.String("cuisine", req.Cuisine),
		zap.Bool("located", req.Location != nil),
	)

	var (
		snap       *model.Snapshot
		external   []model.ExternalCandidate
		discoverOK = true
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = s.store.Snapshot(gctx, req.PairID)
		return eris.Wrap(err, "suggest: load snapshot")
	})
	if req.Location != nil && s.discovery != nil {
		g.Go(func() error {
			var err error
			external, err = s.discover(gctx, req)
			if err != nil {
				discoverOK = false
				log.Warn("suggest: discovery failed, continuing without it", zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := s.rank(snap, external, req)
	resp.DiscoveryFailed = !discoverOK
	log.Info("suggest: recommendations ready",
		zap.Int("restaurants", resp.Restaurants),
		zap.Int("ratings", resp.Ratings),
		zap.Int("discovered", resp.Discovered),
		zap.Int("results", len(resp.Results)),
	)
	return resp, nil
}

// RecommendSnapshot ranks an already-loaded snapshot, e.g. one read from a
// YAML file. Discovery still runs when a location and client are present.
func (s *Service) RecommendSnapshot(ctx context.Context, snap *model.Snapshot, req Request) (*Response, error) {
	if snap == nil {
		return nil, eris.New("suggest: snapshot is required")
	}

	var external []model.ExternalCandidate
	failed := false
	if req.Location != nil && s.discovery != nil {
		var err error
		external, err = s.discover(ctx, req)
		if err != nil {
			failed = true
			zap.L().Warn("suggest: discovery failed, continuing without it", zap.Error(err))
		}
	}

	resp := s.rank(snap, external, req)
	resp.DiscoveryFailed = failed
	return resp, nil
}

func (s *Service) rank(snap *model.Snapshot, external []model.ExternalCandidate, req Request) *Response {
	results := s.engine.Generate(recommend.Input{
		Restaurants:   snap.Restaurants,
		Ratings:       snap.Ratings,
		External:      external,
		CuisineFilter: req.Cuisine,
		UserLocation:  req.Location,
	})
	return &Response{
		Results:     results,
		Restaurants: len(snap.Restaurants),
		Ratings:     len(snap.Ratings),
		Discovered:  len(external),
	}
}

func (s *Service) discover(ctx context.Context, req Request) ([]model.ExternalCandidate, error) {
	if s.discoveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.discoveryTimeout)
		defer cancel()
	}

	places, err := s.discovery.DiscoverNearby(ctx, overpass.DiscoverRequest{
		Lat:     req.Location.Lat(),
		Lng:     req.Location.Lng(),
		RadiusM: s.radiusM,
		Cuisine: req.Cuisine,
	})
	if err != nil {
		return nil, err
	}
	return Candidates(places), nil
}

// Candidates converts discovered places into engine candidates.
func Candidates(places []overpass.Place) []model.ExternalCandidate {
	out := make([]model.ExternalCandidate, 0, len(places))
	for _, p := range places {
		out = append(out, model.ExternalCandidate{
			ID:          p.ID,
			Name:        p.Name,
			Address:     p.Address,
			CuisineType: p.Cuisine,
			Lat:         p.Lat,
			Lng:         p.Lng,
			PriceRange:  p.PriceRange,
			Rating:      p.Rating,
			Source:      "osm",
		})
	}
	return out
}
