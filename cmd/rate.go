package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/foodiepair/foodiepair-cli/internal/model"
)

var (
	rateRestaurantID string
	rateUserID       string
	rateFood         float64
	rateService      float64
	rateVibe         float64
	rateValue        float64
	rateDish         string
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Record one member's rating for a restaurant",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r := model.Rating{
			RestaurantID:      rateRestaurantID,
			UserID:            rateUserID,
			FoodScore:         rateFood,
			ServiceScore:      rateService,
			VibeScore:         rateVibe,
			PriceQualityScore: rateValue,
			FavoriteDish:      rateDish,
		}
		names := []string{"food", "service", "vibe", "value"}
		for i, s := range r.Scores() {
			if !model.ValidScore(s) {
				return eris.Errorf("--%s must be between %.0f and %.0f in steps of %.1f, got %v",
					names[i], model.MinScore, model.MaxScore, model.ScoreStep, s)
			}
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if _, err := st.GetRestaurant(cmd.Context(), rateRestaurantID); err != nil {
			return err
		}
		created, err := st.CreateRating(cmd.Context(), r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (average %s)\n", created.ID, formatScore(created.Average()))
		return err
	},
}

func init() {
	f := rateCmd.Flags()
	f.StringVar(&rateRestaurantID, "restaurant", "", "restaurant id (required)")
	f.StringVar(&rateUserID, "user", "", "rating member's user id (required)")
	f.Float64Var(&rateFood, "food", 0, "food score 1-5")
	f.Float64Var(&rateService, "service", 0, "service score 1-5")
	f.Float64Var(&rateVibe, "vibe", 0, "vibe score 1-5")
	f.Float64Var(&rateValue, "value", 0, "price-quality score 1-5")
	f.StringVar(&rateDish, "dish", "", "favorite dish")
	for _, name := range []string{"restaurant", "user", "food", "service", "vibe", "value"} {
		_ = rateCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(rateCmd)
}
