package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
	"github.com/foodiepair/foodiepair-cli/internal/suggest"
	"github.com/foodiepair/foodiepair-cli/pkg/overpass"
)

var (
	discLat     float64
	discLng     float64
	discRadius  int
	discCuisine string
	discJSON    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List restaurants near a point from OpenStreetMap",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if discRadius > 0 {
			cfg.Discovery.RadiusMeters = discRadius
		}
		if err := cfg.Validate("discover"); err != nil {
			return err
		}
		if _, err := geo.NewPoint(discLat, discLng); err != nil {
			return err
		}

		places, err := initDiscovery(nil).DiscoverNearby(cmd.Context(), overpass.DiscoverRequest{
			Lat:     discLat,
			Lng:     discLng,
			RadiusM: cfg.Discovery.RadiusMeters,
			Cuisine: strings.TrimSpace(discCuisine),
		})
		if err != nil {
			return eris.Wrap(err, "discover")
		}
		zap.L().Info("discovery complete", zap.Int("places", len(places)))

		candidates := suggest.Candidates(places)
		if discJSON {
			return printJSON(cmd.OutOrStdout(), candidates)
		}

		rows := [][]string{{"ID", "NAME", "CUISINE", "PRICE", "RATING", "ADDRESS"}}
		for _, c := range candidates {
			rating := "-"
			if c.Rating != nil {
				rating = formatScore(*c.Rating)
			}
			rows = append(rows, []string{
				c.ID,
				c.Name,
				dash(c.CuisineType),
				dash(strings.Repeat("$", c.PriceRange)),
				rating,
				dash(c.Address),
			})
		}
		return table(cmd.OutOrStdout(), rows)
	},
}

func init() {
	f := discoverCmd.Flags()
	f.Float64Var(&discLat, "lat", 0, "latitude (required)")
	f.Float64Var(&discLng, "lng", 0, "longitude (required)")
	f.IntVar(&discRadius, "radius", 0, "search radius in meters (default from config)")
	f.StringVar(&discCuisine, "cuisine", "", "only this cuisine")
	f.BoolVar(&discJSON, "json", false, "print JSON")
	_ = discoverCmd.MarkFlagRequired("lat")
	_ = discoverCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(discoverCmd)
}
