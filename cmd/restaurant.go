package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foodiepair/foodiepair-cli/internal/model"
	"github.com/foodiepair/foodiepair-cli/internal/store"
	"github.com/foodiepair/foodiepair-cli/pkg/geocode"
)

const dateLayout = "2006-01-02"

var (
	restPairID    string
	restName      string
	restAddress   string
	restCuisine   string
	restPrice     int
	restLat       float64
	restLng       float64
	restStatus    string
	restFavorite  bool
	restComment   string
	restCreatedBy string

	restListStatus    string
	restListFavorites bool
	restListLimit     int
	restListOffset    int
	restListJSON      bool

	restID         string
	restUnfavorite bool
	restVisitDate  string
)

var restaurantCmd = &cobra.Command{
	Use:   "restaurant",
	Short: "Manage a pair's visited and wishlist restaurants",
}

var restaurantAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a restaurant to a pair's log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r := model.Restaurant{
			PairID:         restPairID,
			Name:           restName,
			Address:        restAddress,
			CuisineType:    restCuisine,
			PriceRange:     restPrice,
			VisitStatus:    model.VisitStatus(restStatus),
			IsFavorite:     restFavorite,
			GeneralComment: restComment,
			CreatedBy:      restCreatedBy,
		}
		if restPrice < 1 || restPrice > 3 {
			return eris.Errorf("--price must be 1, 2 or 3, got %d", restPrice)
		}
		if !r.VisitStatus.Valid() {
			return eris.Errorf("--status must be visited or wishlist, got %q", restStatus)
		}
		latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
		if latSet != lngSet {
			return eris.New("--lat and --lng must be given together")
		}
		if latSet {
			lat, lng := restLat, restLng
			r.Lat, r.Lng = &lat, &lng
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if _, err := st.GetPair(cmd.Context(), restPairID); err != nil {
			return err
		}
		if gc := initGeocoder(st); gc != nil && r.Lat == nil && r.Address != "" {
			lat, lng, err := geocode.Coordinates(cmd.Context(), gc, r.Address)
			if err != nil {
				zap.L().Warn("geocode failed, saving without coordinates", zap.String("address", r.Address), zap.Error(err))
			}
			r.Lat, r.Lng = lat, lng
		}
		created, err := st.CreateRestaurant(cmd.Context(), r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), created.ID)
		return err
	},
}

var restaurantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a pair's restaurants",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter := store.RestaurantFilter{
			Status:        model.VisitStatus(restListStatus),
			FavoritesOnly: restListFavorites,
			Limit:         restListLimit,
			Offset:        restListOffset,
		}
		if !filter.Status.Valid() {
			return eris.Errorf("--status must be visited or wishlist, got %q", restListStatus)
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		restaurants, err := st.ListRestaurants(cmd.Context(), restPairID, filter)
		if err != nil {
			return err
		}
		if restListJSON {
			if restaurants == nil {
				restaurants = []model.Restaurant{}
			}
			return printJSON(cmd.OutOrStdout(), restaurants)
		}
		return table(cmd.OutOrStdout(), restaurantRows(restaurants))
	},
}

var restaurantFavoriteCmd = &cobra.Command{
	Use:   "favorite",
	Short: "Mark or unmark a restaurant as a favorite",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return st.SetFavorite(cmd.Context(), restID, !restUnfavorite)
	},
}

var restaurantVisitCmd = &cobra.Command{
	Use:   "visit",
	Short: "Move a wishlist restaurant to visited",
	RunE: func(cmd *cobra.Command, _ []string) error {
		date := time.Now().UTC()
		if restVisitDate != "" {
			d, err := time.Parse(dateLayout, restVisitDate)
			if err != nil {
				return eris.Wrapf(err, "--date must look like %s", dateLayout)
			}
			date = d
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return st.MarkVisited(cmd.Context(), restID, date)
	},
}

func init() {
	f := restaurantAddCmd.Flags()
	f.StringVar(&restPairID, "pair", "", "pair id (required)")
	f.StringVar(&restName, "name", "", "restaurant name (required)")
	f.StringVar(&restAddress, "address", "", "street address")
	f.StringVar(&restCuisine, "cuisine", "", "cuisine label, e.g. Italian")
	f.IntVar(&restPrice, "price", 2, "price tier 1-3")
	f.Float64Var(&restLat, "lat", 0, "latitude")
	f.Float64Var(&restLng, "lng", 0, "longitude")
	f.StringVar(&restStatus, "status", string(model.StatusWishlist), "visited or wishlist")
	f.BoolVar(&restFavorite, "favorite", false, "mark as a favorite")
	f.StringVar(&restComment, "comment", "", "general comment")
	f.StringVar(&restCreatedBy, "by", "", "user id of the member adding it")
	_ = restaurantAddCmd.MarkFlagRequired("pair")
	_ = restaurantAddCmd.MarkFlagRequired("name")

	lf := restaurantListCmd.Flags()
	lf.StringVar(&restPairID, "pair", "", "pair id (required)")
	lf.StringVar(&restListStatus, "status", "", "only visited or wishlist")
	lf.BoolVar(&restListFavorites, "favorites", false, "only favorites")
	lf.IntVar(&restListLimit, "limit", 0, "max rows, 0 for all")
	lf.IntVar(&restListOffset, "offset", 0, "rows to skip")
	lf.BoolVar(&restListJSON, "json", false, "print JSON")
	_ = restaurantListCmd.MarkFlagRequired("pair")

	restaurantFavoriteCmd.Flags().StringVar(&restID, "id", "", "restaurant id (required)")
	restaurantFavoriteCmd.Flags().BoolVar(&restUnfavorite, "off", false, "remove the favorite mark")
	_ = restaurantFavoriteCmd.MarkFlagRequired("id")

	restaurantVisitCmd.Flags().StringVar(&restID, "id", "", "restaurant id (required)")
	restaurantVisitCmd.Flags().StringVar(&restVisitDate, "date", "", "visit date (YYYY-MM-DD), default today")
	_ = restaurantVisitCmd.MarkFlagRequired("id")

	restaurantCmd.AddCommand(restaurantAddCmd, restaurantListCmd, restaurantFavoriteCmd, restaurantVisitCmd)
	rootCmd.AddCommand(restaurantCmd)
}
