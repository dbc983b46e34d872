package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/foodiepair/foodiepair-cli/internal/db"
	"github.com/foodiepair/foodiepair-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pairs (
	id         TEXT PRIMARY KEY,
	user1_id   TEXT NOT NULL DEFAULT '',
	user2_id   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS restaurants (
	id              TEXT PRIMARY KEY,
	pair_id         TEXT NOT NULL REFERENCES pairs(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	address         TEXT NOT NULL DEFAULT '',
	cuisine_type    TEXT NOT NULL DEFAULT '',
	price_range     INTEGER NOT NULL DEFAULT 0 CHECK (price_range BETWEEN 0 AND 3),
	lat             DOUBLE PRECISION,
	lng             DOUBLE PRECISION,
	visit_status    TEXT NOT NULL DEFAULT 'wishlist' CHECK (visit_status IN ('visited', 'wishlist')),
	is_favorite     BOOLEAN NOT NULL DEFAULT false,
	visit_date      TIMESTAMPTZ,
	general_comment TEXT NOT NULL DEFAULT '',
	created_by      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ratings (
	id                  TEXT PRIMARY KEY,
	restaurant_id       TEXT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	user_id             TEXT NOT NULL DEFAULT '',
	food_score          DOUBLE PRECISION NOT NULL,
	service_score       DOUBLE PRECISION NOT NULL,
	vibe_score          DOUBLE PRECISION NOT NULL,
	price_quality_score DOUBLE PRECISION NOT NULL,
	favorite_dish       TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
	display_name TEXT NOT NULL DEFAULT '',
	quality      TEXT NOT NULL DEFAULT '',
	matched      BOOLEAN NOT NULL DEFAULT false,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_restaurants_pair_id ON restaurants(pair_id);
CREATE INDEX IF NOT EXISTS idx_restaurants_status ON restaurants(pair_id, visit_status);
CREATE INDEX IF NOT EXISTS idx_ratings_restaurant_id ON ratings(restaurant_id);
`

const restaurantColumns = `id, pair_id, name, address, cuisine_type, price_range, lat, lng, visit_status, is_favorite, visit_date, general_comment, created_by, created_at`

const ratingColumns = `id, restaurant_id, user_id, food_score, service_score, vibe_score, price_quality_score, favorite_dish, created_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreatePair(ctx context.Context, pair model.Pair) (*model.Pair, error) {
	p := preparePair(pair, time.Now().UTC())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pairs (id, user1_id, user2_id, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.User1ID, p.User2ID, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert pair")
	}
	return &p, nil
}

func (s *PostgresStore) GetPair(ctx context.Context, pairID string) (*model.Pair, error) {
	var p model.Pair
	err := s.pool.QueryRow(ctx,
		`SELECT id, user1_id, user2_id, created_at FROM pairs WHERE id = $1`,
		pairID,
	).Scan(&p.ID, &p.User1ID, &p.User2ID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get pair %s", pairID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get pair %s", pairID)
	}
	return &p, nil
}

func (s *PostgresStore) CreateRestaurant(ctx context.Context, in model.Restaurant) (*model.Restaurant, error) {
	r, err := prepareRestaurant(in, time.Now().UTC())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create restaurant")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO restaurants (`+restaurantColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		restaurantArgs(r)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert restaurant")
	}
	return &r, nil
}

func (s *PostgresStore) GetRestaurant(ctx context.Context, restaurantID string) (*model.Restaurant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`,
		restaurantID,
	)
	r, err := scanPgRestaurant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get restaurant %s", restaurantID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get restaurant %s", restaurantID)
	}
	return r, nil
}

func (s *PostgresStore) ListRestaurants(ctx context.Context, pairID string, filter RestaurantFilter) ([]model.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE pair_id = $1`
	args := []any{pairID}
	argIdx := 2

	if filter.Status != "" {
		query += fmt.Sprintf(` AND visit_status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.FavoritesOnly {
		query += ` AND is_favorite`
	}
	query += ` ORDER BY created_at, id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list restaurants")
	}
	defer rows.Close()

	var out []model.Restaurant
	for rows.Next() {
		r, err := scanPgRestaurant(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan restaurant")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list restaurants iterate")
}

func (s *PostgresStore) SetFavorite(ctx context.Context, restaurantID string, favorite bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE restaurants SET is_favorite = $1 WHERE id = $2`,
		favorite, restaurantID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set favorite %s", restaurantID)
	}
	return eris.Wrap(rowsAffected(tag.RowsAffected(), "restaurant", restaurantID), "postgres: set favorite")
}

func (s *PostgresStore) MarkVisited(ctx context.Context, restaurantID string, visitDate time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE restaurants SET visit_status = $1, visit_date = $2 WHERE id = $3`,
		string(model.StatusVisited), visitDate.UTC(), restaurantID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark visited %s", restaurantID)
	}
	return eris.Wrap(rowsAffected(tag.RowsAffected(), "restaurant", restaurantID), "postgres: mark visited")
}

func (s *PostgresStore) CreateRating(ctx context.Context, in model.Rating) (*model.Rating, error) {
	r, err := prepareRating(in, time.Now().UTC())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create rating")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO ratings (`+ratingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ratingArgs(r)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert rating")
	}
	return &r, nil
}

func (s *PostgresStore) ListRatingsForRestaurants(ctx context.Context, restaurantIDs []string) ([]model.Rating, error) {
	if len(restaurantIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE restaurant_id = ANY($1) ORDER BY created_at, id`,
		restaurantIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ratings")
	}
	defer rows.Close()

	var out []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.ID, &r.RestaurantID, &r.UserID, &r.FoodScore, &r.ServiceScore,
			&r.VibeScore, &r.PriceQualityScore, &r.FavoriteDish, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rating")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list ratings iterate")
}

func (s *PostgresStore) GetGeocode(ctx context.Context, addressHash string, notBefore time.Time) (*model.GeocodeEntry, error) {
	var e model.GeocodeEntry
	err := s.pool.QueryRow(ctx,
		`SELECT address_hash, latitude, longitude, display_name, quality, matched, cached_at
		FROM geocode_cache WHERE address_hash = $1 AND cached_at >= $2`,
		addressHash, notBefore,
	).Scan(&e.AddressHash, &e.Latitude, &e.Longitude, &e.DisplayName, &e.Quality, &e.Matched, &e.CachedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "postgres: get geocode")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get geocode")
	}
	return &e, nil
}

func (s *PostgresStore) PutGeocode(ctx context.Context, e model.GeocodeEntry) error {
	if e.CachedAt.IsZero() {
		e.CachedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, display_name, quality, matched, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			display_name = EXCLUDED.display_name,
			quality = EXCLUDED.quality,
			matched = EXCLUDED.matched,
			cached_at = EXCLUDED.cached_at`,
		e.AddressHash, e.Latitude, e.Longitude, e.DisplayName, e.Quality, e.Matched, e.CachedAt,
	)
	return eris.Wrap(err, "postgres: put geocode")
}

func (s *PostgresStore) Snapshot(ctx context.Context, pairID string) (*model.Snapshot, error) {
	return buildSnapshot(ctx, s, pairID)
}

// Import upserts a snapshot with COPY-staged bulk merges. Re-importing the
// same snapshot overwrites rows by id.
func (s *PostgresStore) Import(ctx context.Context, snap *model.Snapshot) (ImportResult, error) {
	var res ImportResult
	now := time.Now().UTC()

	pairs := importPairs(snap, now)
	pairRows := make([][]any, 0, len(pairs))
	for _, p := range pairs {
		pairRows = append(pairRows, []any{p.ID, p.User1ID, p.User2ID, p.CreatedAt})
	}

	restaurantRows := make([][]any, 0, len(snap.Restaurants))
	for _, in := range snap.Restaurants {
		r, err := prepareRestaurant(in, now)
		if err != nil {
			return res, eris.Wrapf(err, "postgres: import restaurant %s", in.ID)
		}
		restaurantRows = append(restaurantRows, restaurantArgs(r))
	}

	ratingRows := make([][]any, 0, len(snap.Ratings))
	for _, in := range snap.Ratings {
		r, err := prepareRating(in, now)
		if err != nil {
			return res, eris.Wrapf(err, "postgres: import rating %s", in.ID)
		}
		ratingRows = append(ratingRows, ratingArgs(r))
	}

	var err error
	res.Pairs, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "pairs",
		Columns:      []string{"id", "user1_id", "user2_id", "created_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{},
	}, pairRows)
	if err != nil {
		return res, eris.Wrap(err, "postgres: import pairs")
	}

	res.Restaurants, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "restaurants",
		Columns:      splitColumns(restaurantColumns),
		ConflictKeys: []string{"id"},
	}, restaurantRows)
	if err != nil {
		return res, eris.Wrap(err, "postgres: import restaurants")
	}

	res.Ratings, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "ratings",
		Columns:      splitColumns(ratingColumns),
		ConflictKeys: []string{"id"},
	}, ratingRows)
	if err != nil {
		return res, eris.Wrap(err, "postgres: import ratings")
	}
	return res, nil
}

func scanPgRestaurant(row pgx.Row) (*model.Restaurant, error) {
	var r model.Restaurant
	var status string
	err := row.Scan(&r.ID, &r.PairID, &r.Name, &r.Address, &r.CuisineType, &r.PriceRange,
		&r.Lat, &r.Lng, &status, &r.IsFavorite, &r.VisitDate, &r.GeneralComment, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.VisitStatus = model.VisitStatus(status)
	r.Lat, r.Lng = normalizeCoords(r.Lat, r.Lng)
	return &r, nil
}
