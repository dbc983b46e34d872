package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiepair/foodiepair-cli/internal/config"
	"github.com/foodiepair/foodiepair-cli/internal/model"
	"github.com/foodiepair/foodiepair-cli/internal/recommend"
	"github.com/foodiepair/foodiepair-cli/internal/stats"
	"github.com/foodiepair/foodiepair-cli/internal/store"
)

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between executions.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "foodiepair %s", strings.Join(args, " "))
	return out
}

// useSQLite points the CLI at a fresh SQLite file with discovery off.
func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("FOODIEPAIR_STORE_DRIVER", "sqlite")
	t.Setenv("FOODIEPAIR_STORE_SQLITE_PATH", path)
	t.Setenv("FOODIEPAIR_DISCOVERY_ENABLED", "false")
	t.Setenv("FOODIEPAIR_GEOCODE_ENABLED", "false")
	t.Setenv("FOODIEPAIR_LOG_LEVEL", "error")
	return path
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"recommend", "serve", "migrate", "pair", "restaurant", "rate", "discover", "export", "import"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "foodiepair", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestRecommendCommand_Flags(t *testing.T) {
	for _, name := range []string{"pair", "cuisine", "lat", "lng", "snapshot", "lang", "json"} {
		assert.NotNil(t, recommendCmd.Flags().Lookup(name), "recommend should have --%s", name)
	}
}

func TestMigrate(t *testing.T) {
	path := useSQLite(t)
	mustRun(t, "migrate")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

// seedHistory creates a pair with a visited Italian place both members
// rated 4 and an Italian wishlist entry.
func seedHistory(t *testing.T) (pairID, wishlistID string) {
	t.Helper()
	pairID = strings.TrimSpace(mustRun(t, "pair", "create", "--user1", "ana", "--user2", "ben"))
	require.NotEmpty(t, pairID)

	visited := strings.TrimSpace(mustRun(t, "restaurant", "add", "--pair", pairID,
		"--name", "Old Favorite", "--cuisine", "Italian", "--price", "2", "--status", "visited"))
	for _, user := range []string{"ana", "ben"} {
		out := mustRun(t, "rate", "--restaurant", visited, "--user", user,
			"--food", "4", "--service", "4", "--vibe", "4", "--value", "4")
		assert.Contains(t, out, "(average 4.0)")
	}

	wishlistID = strings.TrimSpace(mustRun(t, "restaurant", "add", "--pair", pairID,
		"--name", "New Trattoria", "--cuisine", "Italian", "--price", "3"))
	return pairID, wishlistID
}

func TestRecommend_FromStore(t *testing.T) {
	useSQLite(t)
	pairID, wishlistID := seedHistory(t)

	out := mustRun(t, "recommend", "--pair", pairID, "--json")
	var got recommendOut
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, 2, got.Restaurants)
	assert.Equal(t, 2, got.Ratings)
	require.Len(t, got.Recommendations, 1)
	rec := got.Recommendations[0]
	assert.Equal(t, wishlistID, rec.ID)
	assert.Equal(t, "wishlist", rec.Kind)
	assert.InDelta(t, 2.0, rec.Score, 1e-9)
	assert.Equal(t, []string{"You both love Italian food"}, rec.Reasons)

	out = mustRun(t, "recommend", "--pair", pairID, "--cuisine", "ital", "--lang", "es")
	assert.Contains(t, out, "New Trattoria")
	assert.Contains(t, out, "Justo lo que os apetece")
}

func TestRecommend_Snapshot(t *testing.T) {
	t.Setenv("FOODIEPAIR_DISCOVERY_ENABLED", "false")
	t.Setenv("FOODIEPAIR_LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`pair:
  id: p1
  user1_id: ana
restaurants:
  - id: w1
    name: Sushi Bar
    cuisine_type: Japanese
    price_range: 2
  - id: w2
    name: Taqueria
    cuisine_type: Mexican
    price_range: 1
`), 0o644))

	out := mustRun(t, "recommend", "--snapshot", path, "--json")
	var got recommendOut
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "p1", got.PairID)
	require.Len(t, got.Recommendations, 2)
	assert.Equal(t, "Sushi Bar", got.Recommendations[0].Name)
	assert.Equal(t, 1, got.Recommendations[0].Rank)
	assert.Equal(t, 0.0, got.Recommendations[0].Score)
	assert.Equal(t, []string{"Rate a few places to unlock personal picks"}, got.Recommendations[0].Reasons)
}

func TestRecommend_FlagErrors(t *testing.T) {
	useSQLite(t)

	_, err := runCLI(t, "recommend")
	assert.ErrorContains(t, err, "--pair or --snapshot")

	_, err = runCLI(t, "recommend", "--pair", "p1", "--lat", "40")
	assert.ErrorContains(t, err, "--lat and --lng")

	_, err = runCLI(t, "recommend", "--pair", "p1", "--lat", "95", "--lng", "0")
	assert.Error(t, err)

	_, err = runCLI(t, "recommend", "--pair", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRestaurant_ListFavoriteVisit(t *testing.T) {
	useSQLite(t)
	pairID, wishlistID := seedHistory(t)

	mustRun(t, "restaurant", "favorite", "--id", wishlistID)
	out := mustRun(t, "restaurant", "list", "--pair", pairID, "--favorites", "--json")
	var favs []model.Restaurant
	require.NoError(t, json.Unmarshal([]byte(out), &favs), out)
	require.Len(t, favs, 1)
	assert.Equal(t, wishlistID, favs[0].ID)

	mustRun(t, "restaurant", "visit", "--id", wishlistID, "--date", "2024-06-01")
	out = mustRun(t, "restaurant", "list", "--pair", pairID, "--status", "wishlist", "--json")
	assert.JSONEq(t, "[]", out)

	out = mustRun(t, "restaurant", "list", "--pair", pairID)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "New Trattoria")
	assert.Contains(t, out, "$$$")

	_, err := runCLI(t, "restaurant", "favorite", "--id", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = runCLI(t, "restaurant", "visit", "--id", wishlistID, "--date", "June 1st")
	assert.Error(t, err)
}

func TestRestaurantAdd_Validation(t *testing.T) {
	useSQLite(t)
	pairID := strings.TrimSpace(mustRun(t, "pair", "create", "--user1", "ana"))

	_, err := runCLI(t, "restaurant", "add", "--pair", pairID, "--name", "X", "--price", "4")
	assert.ErrorContains(t, err, "--price")

	_, err = runCLI(t, "restaurant", "add", "--pair", pairID, "--name", "X", "--status", "archived")
	assert.ErrorContains(t, err, "--status")

	_, err = runCLI(t, "restaurant", "add", "--pair", pairID, "--name", "X", "--lat", "1")
	assert.ErrorContains(t, err, "--lat and --lng")

	_, err = runCLI(t, "restaurant", "add", "--pair", "missing", "--name", "X")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = runCLI(t, "restaurant", "add", "--pair", pairID)
	assert.Error(t, err, "--name is required")
}

func TestRate_Validation(t *testing.T) {
	useSQLite(t)
	pairID := strings.TrimSpace(mustRun(t, "pair", "create", "--user1", "ana"))
	id := strings.TrimSpace(mustRun(t, "restaurant", "add", "--pair", pairID, "--name", "X"))

	_, err := runCLI(t, "rate", "--restaurant", id, "--user", "ana",
		"--food", "6", "--service", "4", "--vibe", "4", "--value", "4")
	assert.ErrorContains(t, err, "--food")

	_, err = runCLI(t, "rate", "--restaurant", id, "--user", "ana",
		"--food", "4", "--service", "4", "--vibe", "3.3", "--value", "4")
	assert.ErrorContains(t, err, "--vibe")

	_, err = runCLI(t, "rate", "--restaurant", "missing", "--user", "ana",
		"--food", "4", "--service", "4", "--vibe", "4", "--value", "4")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPairShow(t *testing.T) {
	useSQLite(t)
	pairID := strings.TrimSpace(mustRun(t, "pair", "create", "--user1", "ana", "--user2", "ben"))

	out := mustRun(t, "pair", "show", "--pair", pairID)
	var p model.Pair
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "ben", p.User2ID)
}

func TestEngineWeights(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, recommend.DefaultWeights(), engineWeights(c.Recommend))

	c.Recommend.SmallSetThreshold = 0
	c.Recommend.FavoriteBonus = 0
	w := engineWeights(c.Recommend)
	assert.Equal(t, 0, w.SmallSetThreshold)
	assert.Zero(t, w.FavoriteBonus)
	_, err = recommend.New(w)
	assert.NoError(t, err)

	c.Recommend.NearKM = 0
	_, err = recommend.New(engineWeights(c.Recommend))
	assert.Error(t, err)
}

func TestPairStats(t *testing.T) {
	useSQLite(t)
	pairID := strings.TrimSpace(mustRun(t, "pair", "create", "--user1", "ana", "--user2", "ben"))
	place := strings.TrimSpace(mustRun(t, "restaurant", "add", "--pair", pairID,
		"--name", "Bistro", "--status", "visited"))
	mustRun(t, "rate", "--restaurant", place, "--user", "ana",
		"--food", "5", "--service", "5", "--vibe", "4", "--value", "4")
	mustRun(t, "rate", "--restaurant", place, "--user", "ben",
		"--food", "3", "--service", "3", "--vibe", "3", "--value", "3")

	out := mustRun(t, "pair", "stats", "--pair", pairID, "--json")
	var got stats.Pair
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	require.Len(t, got.Members, 2)
	assert.InDelta(t, 4.5, got.Members[0].AverageScore, 1e-9)
	assert.InDelta(t, 3.0, got.Members[1].AverageScore, 1e-9)
	assert.Equal(t, "ben", got.Pickiest)

	out = mustRun(t, "pair", "stats", "--pair", pairID)
	assert.Contains(t, out, "PICKIEST")
	assert.Contains(t, out, "4.5")

	_, err := runCLI(t, "pair", "stats", "--pair", "missing")
	assert.Error(t, err)
}

func TestExportImport_XLSX(t *testing.T) {
	useSQLite(t)
	pairID, _ := seedHistory(t)
	xlsxPath := filepath.Join(t.TempDir(), "log.xlsx")

	mustRun(t, "export", "--pair", pairID, "--out", xlsxPath)
	info, err := os.Stat(xlsxPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	newPair := strings.TrimSpace(mustRun(t, "pair", "create", "--user1", "cleo"))
	_, err = runCLI(t, "import", "--file", xlsxPath)
	assert.ErrorContains(t, err, "--pair is required")

	// Same ids, so the rows move to the new pair rather than duplicating.
	out := mustRun(t, "import", "--file", xlsxPath, "--pair", newPair)
	var res store.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, int64(2), res.Restaurants)

	out = mustRun(t, "restaurant", "list", "--pair", newPair, "--json")
	var moved []model.Restaurant
	require.NoError(t, json.Unmarshal([]byte(out), &moved))
	assert.Len(t, moved, 2)
}

func TestImport_YAML(t *testing.T) {
	useSQLite(t)
	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`pair:
  id: p-yaml
  user1_id: ana
restaurants:
  - id: r1
    name: Noodle House
    cuisine_type: Chinese
    price_range: 1
    visit_status: visited
ratings:
  - id: rt1
    restaurant_id: r1
    user_id: ana
    food_score: 5
    service_score: 4
    vibe_score: 4
    price_quality_score: 5
`), 0o644))

	out := mustRun(t, "import", "--file", path)
	var res store.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, store.ImportResult{Pairs: 1, Restaurants: 1, Ratings: 1}, res)

	out = mustRun(t, "restaurant", "list", "--pair", "p-yaml", "--json")
	assert.Contains(t, out, "Noodle House")

	_, err := runCLI(t, "import", "--file", filepath.Join(t.TempDir(), "data.csv"))
	assert.ErrorContains(t, err, "unsupported import file")
}

func TestDiscover(t *testing.T) {
	t.Setenv("FOODIEPAIR_LOG_LEVEL", "error")

	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		query = r.PostForm.Get("data")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":7,"lat":40.41,"lon":-3.70,"tags":{"name":"Casa Pepe","amenity":"restaurant","cuisine":"spanish"}},
			{"type":"node","id":8,"lat":40.42,"lon":-3.71,"tags":{"amenity":"restaurant"}}
		]}`))
	}))
	defer srv.Close()
	t.Setenv("FOODIEPAIR_DISCOVERY_OVERPASS_URL", srv.URL)
	t.Setenv("FOODIEPAIR_DISCOVERY_RATE_LIMIT", "100")

	out := mustRun(t, "discover", "--lat", "40.41", "--lng", "-3.70", "--radius", "500", "--json")
	var got []model.ExternalCandidate
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	require.Len(t, got, 1)
	assert.Equal(t, "osm-7", got[0].ID)
	assert.Equal(t, "Casa Pepe", got[0].Name)
	assert.Equal(t, "osm", got[0].Source)
	assert.Contains(t, query, "500")

	out = mustRun(t, "discover", "--lat", "40.41", "--lng", "-3.70")
	assert.Contains(t, out, "Casa Pepe")

	_, err := runCLI(t, "discover", "--lat", "100", "--lng", "0")
	assert.Error(t, err)
}

func TestRunServer_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()
	cancel()

	assert.NoError(t, <-done)
}

func TestRestaurantAdd_Geocodes(t *testing.T) {
	useSQLite(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Via Roma 1, Milano", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"lat":"45.4642","lon":"9.19","addresstype":"building"}]`))
	}))
	defer srv.Close()
	t.Setenv("FOODIEPAIR_GEOCODE_ENABLED", "true")
	t.Setenv("FOODIEPAIR_GEOCODE_NOMINATIM_URL", srv.URL)
	t.Setenv("FOODIEPAIR_GEOCODE_RATE_LIMIT", "100")

	pairID := strings.TrimSpace(mustRun(t, "pair", "create", "--user1", "ana"))
	mustRun(t, "restaurant", "add", "--pair", pairID, "--name", "Trattoria", "--address", "Via Roma 1, Milano")

	out := mustRun(t, "restaurant", "list", "--pair", pairID, "--json")
	var got []model.Restaurant
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Lat)
	assert.InDelta(t, 45.4642, *got[0].Lat, 1e-9)
	assert.InDelta(t, 9.19, *got[0].Lng, 1e-9)

	// A second run reads the lookup back from the store.
	mustRun(t, "restaurant", "add", "--pair", pairID, "--name", "Pizzeria", "--address", "via roma 1,  milano")
	assert.Equal(t, int32(1), calls.Load())
}
