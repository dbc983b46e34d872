package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/foodiepair/foodiepair-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; keep a single one so they stick.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pairs (
	id         TEXT PRIMARY KEY,
	user1_id   TEXT NOT NULL DEFAULT '',
	user2_id   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS restaurants (
	id              TEXT PRIMARY KEY,
	pair_id         TEXT NOT NULL REFERENCES pairs(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	address         TEXT NOT NULL DEFAULT '',
	cuisine_type    TEXT NOT NULL DEFAULT '',
	price_range     INTEGER NOT NULL DEFAULT 0 CHECK (price_range BETWEEN 0 AND 3),
	lat             REAL,
	lng             REAL,
	visit_status    TEXT NOT NULL DEFAULT 'wishlist' CHECK (visit_status IN ('visited', 'wishlist')),
	is_favorite     INTEGER NOT NULL DEFAULT 0,
	visit_date      DATETIME,
	general_comment TEXT NOT NULL DEFAULT '',
	created_by      TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ratings (
	id                  TEXT PRIMARY KEY,
	restaurant_id       TEXT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	user_id             TEXT NOT NULL DEFAULT '',
	food_score          REAL NOT NULL,
	service_score       REAL NOT NULL,
	vibe_score          REAL NOT NULL,
	price_quality_score REAL NOT NULL,
	favorite_dish       TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL DEFAULT 0,
	longitude    REAL NOT NULL DEFAULT 0,
	display_name TEXT NOT NULL DEFAULT '',
	quality      TEXT NOT NULL DEFAULT '',
	matched      INTEGER NOT NULL DEFAULT 0,
	cached_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_restaurants_pair_id ON restaurants(pair_id);
CREATE INDEX IF NOT EXISTS idx_restaurants_status ON restaurants(pair_id, visit_status);
CREATE INDEX IF NOT EXISTS idx_ratings_restaurant_id ON ratings(restaurant_id);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreatePair(ctx context.Context, pair model.Pair) (*model.Pair, error) {
	p := preparePair(pair, time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pairs (id, user1_id, user2_id, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.User1ID, p.User2ID, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert pair")
	}
	return &p, nil
}

func (s *SQLiteStore) GetPair(ctx context.Context, pairID string) (*model.Pair, error) {
	var p model.Pair
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id, created_at FROM pairs WHERE id = ?`,
		pairID,
	).Scan(&p.ID, &p.User1ID, &p.User2ID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get pair %s", pairID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get pair %s", pairID)
	}
	return &p, nil
}

func (s *SQLiteStore) CreateRestaurant(ctx context.Context, in model.Restaurant) (*model.Restaurant, error) {
	r, err := prepareRestaurant(in, time.Now().UTC())
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create restaurant")
	}
	if _, err := s.db.ExecContext(ctx, insertRestaurantSQL, restaurantArgs(r)...); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert restaurant")
	}
	return &r, nil
}

const insertRestaurantSQL = `INSERT INTO restaurants (` + restaurantColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertRatingSQL = `INSERT INTO ratings (` + ratingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) GetRestaurant(ctx context.Context, restaurantID string) (*model.Restaurant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE id = ?`,
		restaurantID,
	)
	r, err := scanSQLiteRestaurant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get restaurant %s", restaurantID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get restaurant %s", restaurantID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRestaurants(ctx context.Context, pairID string, filter RestaurantFilter) ([]model.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE pair_id = ?`
	args := []any{pairID}

	if filter.Status != "" {
		query += ` AND visit_status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.FavoritesOnly {
		query += ` AND is_favorite = 1`
	}
	query += ` ORDER BY created_at, id`

	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list restaurants")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Restaurant
	for rows.Next() {
		r, err := scanSQLiteRestaurant(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan restaurant")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list restaurants iterate")
}

func (s *SQLiteStore) SetFavorite(ctx context.Context, restaurantID string, favorite bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurants SET is_favorite = ? WHERE id = ?`,
		favorite, restaurantID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set favorite %s", restaurantID)
	}
	return checkRowsAffected(res, "restaurant", restaurantID)
}

func (s *SQLiteStore) MarkVisited(ctx context.Context, restaurantID string, visitDate time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurants SET visit_status = ?, visit_date = ? WHERE id = ?`,
		string(model.StatusVisited), visitDate.UTC(), restaurantID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark visited %s", restaurantID)
	}
	return checkRowsAffected(res, "restaurant", restaurantID)
}

func (s *SQLiteStore) CreateRating(ctx context.Context, in model.Rating) (*model.Rating, error) {
	r, err := prepareRating(in, time.Now().UTC())
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create rating")
	}
	if _, err := s.db.ExecContext(ctx, insertRatingSQL, ratingArgs(r)...); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert rating")
	}
	return &r, nil
}

func (s *SQLiteStore) ListRatingsForRestaurants(ctx context.Context, restaurantIDs []string) ([]model.Rating, error) {
	if len(restaurantIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(restaurantIDs)), ", ")
	args := make([]any, len(restaurantIDs))
	for i, id := range restaurantIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE restaurant_id IN (`+placeholders+`) ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ratings")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.ID, &r.RestaurantID, &r.UserID, &r.FoodScore, &r.ServiceScore,
			&r.VibeScore, &r.PriceQualityScore, &r.FavoriteDish, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rating")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list ratings iterate")
}

// cached_at is unix seconds so the age check compares integers.
func (s *SQLiteStore) GetGeocode(ctx context.Context, addressHash string, notBefore time.Time) (*model.GeocodeEntry, error) {
	var (
		e        model.GeocodeEntry
		cachedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT address_hash, latitude, longitude, display_name, quality, matched, cached_at
		FROM geocode_cache WHERE address_hash = ? AND cached_at >= ?`,
		addressHash, unixOrZero(notBefore),
	).Scan(&e.AddressHash, &e.Latitude, &e.Longitude, &e.DisplayName, &e.Quality, &e.Matched, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: get geocode")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get geocode")
	}
	e.CachedAt = time.Unix(cachedAt, 0).UTC()
	return &e, nil
}

func (s *SQLiteStore) PutGeocode(ctx context.Context, e model.GeocodeEntry) error {
	if e.CachedAt.IsZero() {
		e.CachedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, display_name, quality, matched, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			display_name = excluded.display_name,
			quality = excluded.quality,
			matched = excluded.matched,
			cached_at = excluded.cached_at`,
		e.AddressHash, e.Latitude, e.Longitude, e.DisplayName, e.Quality, e.Matched, e.CachedAt.Unix(),
	)
	return eris.Wrap(err, "sqlite: put geocode")
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func (s *SQLiteStore) Snapshot(ctx context.Context, pairID string) (*model.Snapshot, error) {
	return buildSnapshot(ctx, s, pairID)
}

// Import upserts a snapshot in a single transaction. Re-importing the same
// snapshot overwrites rows by id.
func (s *SQLiteStore) Import(ctx context.Context, snap *model.Snapshot) (ImportResult, error) {
	var res ImportResult
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, eris.Wrap(err, "sqlite: import begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range importPairs(snap, now) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pairs (id, user1_id, user2_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			p.ID, p.User1ID, p.User2ID, p.CreatedAt,
		); err != nil {
			return res, eris.Wrapf(err, "sqlite: import pair %s", p.ID)
		}
		res.Pairs++
	}

	for _, in := range snap.Restaurants {
		r, err := prepareRestaurant(in, now)
		if err != nil {
			return res, eris.Wrapf(err, "sqlite: import restaurant %s", in.ID)
		}
		if _, err := tx.ExecContext(ctx, insertRestaurantSQL+upsertTail(restaurantColumns), restaurantArgs(r)...); err != nil {
			return res, eris.Wrapf(err, "sqlite: import restaurant %s", r.ID)
		}
		res.Restaurants++
	}

	for _, in := range snap.Ratings {
		r, err := prepareRating(in, now)
		if err != nil {
			return res, eris.Wrapf(err, "sqlite: import rating %s", in.ID)
		}
		if _, err := tx.ExecContext(ctx, insertRatingSQL+upsertTail(ratingColumns), ratingArgs(r)...); err != nil {
			return res, eris.Wrapf(err, "sqlite: import rating %s", r.ID)
		}
		res.Ratings++
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, eris.Wrap(err, "sqlite: import commit")
	}
	return res, nil
}

// upsertTail builds the ON CONFLICT clause updating every non-key column.
func upsertTail(columns string) string {
	var sets []string
	for _, c := range splitColumns(columns) {
		if c == "id" {
			continue
		}
		sets = append(sets, c+" = excluded."+c)
	}
	return ` ON CONFLICT(id) DO UPDATE SET ` + strings.Join(sets, ", ")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	return eris.Wrap(rowsAffected(n, entity, id), "sqlite")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteRestaurant(row scannable) (*model.Restaurant, error) {
	var (
		r         model.Restaurant
		status    string
		lat, lng  sql.NullFloat64
		visitDate sql.NullTime
	)
	err := row.Scan(&r.ID, &r.PairID, &r.Name, &r.Address, &r.CuisineType, &r.PriceRange,
		&lat, &lng, &status, &r.IsFavorite, &visitDate, &r.GeneralComment, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.VisitStatus = model.VisitStatus(status)
	if lat.Valid {
		r.Lat = &lat.Float64
	}
	if lng.Valid {
		r.Lng = &lng.Float64
	}
	if visitDate.Valid {
		t := visitDate.Time
		r.VisitDate = &t
	}
	r.Lat, r.Lng = normalizeCoords(r.Lat, r.Lng)
	return &r, nil
}
