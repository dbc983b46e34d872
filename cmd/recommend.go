package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
	"github.com/foodiepair/foodiepair-cli/internal/i18n"
	"github.com/foodiepair/foodiepair-cli/internal/recommend"
	"github.com/foodiepair/foodiepair-cli/internal/store"
	"github.com/foodiepair/foodiepair-cli/internal/suggest"
)

var (
	recPairID   string
	recCuisine  string
	recLat      float64
	recLng      float64
	recSnapshot string
	recLang     string
	recJSON     bool
)

type recommendationOut struct {
	Rank       int      `json:"rank"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Cuisine    string   `json:"cuisine,omitempty"`
	Score      float64  `json:"score"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
	Reasons    []string `json:"reasons"`
}

type recommendOut struct {
	PairID          string              `json:"pair_id,omitempty"`
	Language        string              `json:"language"`
	Restaurants     int                 `json:"restaurants"`
	Ratings         int                 `json:"ratings"`
	Discovered      int                 `json:"discovered"`
	DiscoveryFailed bool                `json:"discovery_failed,omitempty"`
	Recommendations []recommendationOut `json:"recommendations"`
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest where a pair should eat next",
	Long: "Ranks the pair's wishlist by what both members rated highly, an optional craving and distance. " +
		"With --lat/--lng and discovery enabled, nearby places from OpenStreetMap are ranked alongside.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if recPairID == "" && recSnapshot == "" {
			return eris.New("one of --pair or --snapshot is required")
		}

		req := suggest.Request{PairID: recPairID, Cuisine: strings.TrimSpace(recCuisine)}
		latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
		if latSet != lngSet {
			return eris.New("--lat and --lng must be given together")
		}
		if latSet {
			p, err := geo.NewPoint(recLat, recLng)
			if err != nil {
				return err
			}
			req.Location = &p
		}

		var resp *suggest.Response
		if recSnapshot != "" {
			snap, err := store.LoadSnapshotFile(recSnapshot)
			if err != nil {
				return err
			}
			if req.PairID == "" && snap.Pair != nil {
				req.PairID = snap.Pair.ID
			}
			svc, err := initSuggest(nil, nil)
			if err != nil {
				return err
			}
			if resp, err = svc.RecommendSnapshot(ctx, snap, req); err != nil {
				return err
			}
		} else {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			svc, err := initSuggest(st, nil)
			if err != nil {
				return err
			}
			if resp, err = svc.Recommend(ctx, req); err != nil {
				return err
			}
		}

		out := buildRecommendOut(req.PairID, resp, i18n.New(recLang, cfg.Locale.Default))
		if recJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}
		return table(cmd.OutOrStdout(), recommendRows(out))
	},
}

func buildRecommendOut(pairID string, resp *suggest.Response, loc *i18n.Localizer) recommendOut {
	out := recommendOut{
		PairID:          pairID,
		Language:        loc.Language().String(),
		Restaurants:     resp.Restaurants,
		Ratings:         resp.Ratings,
		Discovered:      resp.Discovered,
		DiscoveryFailed: resp.DiscoveryFailed,
		Recommendations: make([]recommendationOut, 0, len(resp.Results)),
	}
	for i, res := range resp.Results {
		out.Recommendations = append(out.Recommendations, recommendationOf(i+1, res, loc))
	}
	return out
}

func recommendationOf(rank int, res recommend.Result, loc *i18n.Localizer) recommendationOut {
	r := res.Candidate.AsRestaurant()
	return recommendationOut{
		Rank:       rank,
		ID:         r.ID,
		Name:       r.Name,
		Kind:       res.Candidate.Kind.String(),
		Cuisine:    r.CuisineType,
		Score:      res.Score,
		DistanceKM: res.DistanceKM,
		Reasons:    loc.RenderAll(res.Reasons),
	}
}

func recommendRows(out recommendOut) [][]string {
	rows := [][]string{{"#", "NAME", "KIND", "SCORE", "DISTANCE", "WHY"}}
	for _, r := range out.Recommendations {
		rows = append(rows, []string{
			strconv.Itoa(r.Rank),
			r.Name,
			r.Kind,
			formatScore(r.Score),
			formatDistance(r.DistanceKM),
			dash(strings.Join(r.Reasons, "; ")),
		})
	}
	return rows
}

func init() {
	f := recommendCmd.Flags()
	f.StringVar(&recPairID, "pair", "", "pair id")
	f.StringVar(&recCuisine, "cuisine", "", "what you're craving, e.g. sushi")
	f.Float64Var(&recLat, "lat", 0, "current latitude")
	f.Float64Var(&recLng, "lng", 0, "current longitude")
	f.StringVar(&recSnapshot, "snapshot", "", "rank a YAML snapshot instead of the database")
	f.StringVar(&recLang, "lang", "", "language for reasons (en, es); default from config")
	f.BoolVar(&recJSON, "json", false, "print JSON")
	rootCmd.AddCommand(recommendCmd)
}
