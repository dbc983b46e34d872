package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/foodiepair/foodiepair-cli/internal/config"
	"github.com/foodiepair/foodiepair-cli/internal/recommend"
	"github.com/foodiepair/foodiepair-cli/internal/resilience"
	"github.com/foodiepair/foodiepair-cli/internal/store"
	"github.com/foodiepair/foodiepair-cli/internal/suggest"
	"github.com/foodiepair/foodiepair-cli/pkg/geocode"
	"github.com/foodiepair/foodiepair-cli/pkg/overpass"
)

// breakerHook observes discovery breaker transitions.
type breakerHook func(name string, from, to resilience.State)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the configured store and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initDiscovery(hook breakerHook) overpass.Client {
	d := cfg.Discovery

	backoff := resilience.DefaultBackoff()
	if d.MaxAttempts > 0 {
		backoff.Attempts = d.MaxAttempts
	}

	opts := []overpass.Option{
		overpass.WithBaseURL(d.OverpassURL),
		overpass.WithHTTPClient(&http.Client{Timeout: time.Duration(d.TimeoutSecs) * time.Second}),
		overpass.WithBackoff(backoff),
		overpass.WithBreaker(resilience.NewBreaker("overpass", resilience.BreakerConfig{
			Failures:      d.BreakerFailures,
			Cooldown:      time.Duration(d.BreakerResetSecs) * time.Second,
			OnStateChange: hook,
		})),
	}
	if d.RateLimit > 0 {
		opts = append(opts, overpass.WithRateLimit(d.RateLimit))
	}
	return overpass.NewClient(opts...)
}

func initEngine() (*recommend.Engine, error) {
	e, err := recommend.New(engineWeights(cfg.Recommend))
	return e, eris.Wrap(err, "init engine")
}

// engineWeights copies every configured value; recommend.New rejects the
// invalid ones.
func engineWeights(rc config.RecommendConfig) recommend.Weights {
	return recommend.Weights{
		ColdStartLimit:    rc.ColdStartLimit,
		MaxResults:        rc.MaxResults,
		SmallSetThreshold: rc.SmallSetThreshold,

		CravingBonus:       rc.CravingBonus,
		AffinityThreshold:  rc.AffinityThreshold,
		AffinityBaseline:   rc.AffinityBaseline,
		AffinityMultiplier: rc.AffinityMultiplier,
		NearKM:             rc.NearKM,
		NearBonus:          rc.NearBonus,
		CloseKM:            rc.CloseKM,
		CloseBonus:         rc.CloseBonus,
		PriceAffinityBonus: rc.PriceAffinityBonus,
		FavoriteBonus:      rc.FavoriteBonus,

		ExternalBase:            rc.ExternalBase,
		ExternalCravingBonus:    rc.ExternalCravingBonus,
		ExternalNearKM:          rc.ExternalNearKM,
		ExternalNearBonus:       rc.ExternalNearBonus,
		ExternalCloseKM:         rc.ExternalCloseKM,
		ExternalCloseBonus:      rc.ExternalCloseBonus,
		ExternalRatingThreshold: rc.ExternalRatingThreshold,
		ExternalRatingBaseline:  rc.ExternalRatingBaseline,
	}
}

// initSuggest wires the engine and, when enabled, discovery. A nil src is
// allowed for snapshot-file runs.
func initSuggest(src suggest.SnapshotSource, hook breakerHook) (*suggest.Service, error) {
	engine, err := initEngine()
	if err != nil {
		return nil, err
	}
	opts := []suggest.Option{suggest.WithRadius(cfg.Discovery.RadiusMeters)}
	if cfg.Discovery.Enabled {
		opts = append(opts,
			suggest.WithDiscovery(initDiscovery(hook)),
			suggest.WithDiscoveryTimeout(discoveryTimeout()),
		)
	}
	return suggest.New(src, engine, opts...), nil
}

func discoveryTimeout() time.Duration {
	if cfg.Discovery.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.Discovery.TimeoutSecs) * time.Second
}

// initGeocoder returns nil when address lookup is disabled. Lookups are
// cached in st.
func initGeocoder(st store.Store) geocode.Client {
	g := cfg.Geocode
	if !g.Enabled || g.NominatimURL == "" {
		return nil
	}
	opts := []geocode.Option{
		geocode.WithBaseURL(g.NominatimURL),
		geocode.WithUserAgent(g.UserAgent),
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(g.TimeoutSecs) * time.Second}),
		geocode.WithCache(geocode.NewStoreCache(st, time.Duration(g.CacheTTLDays)*24*time.Hour)),
	}
	if g.RateLimit > 0 {
		opts = append(opts, geocode.WithRateLimit(g.RateLimit))
	}
	return geocode.NewClient(opts...)
}
