package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/foodiepair/foodiepair-cli/internal/model"
)

type createPairRequest struct {
	User1ID string `json:"user1_id" validate:"required,max=100"`
	User2ID string `json:"user2_id" validate:"omitempty,max=100,nefield=User1ID"`
}

type createRestaurantRequest struct {
	Name           string            `json:"name" validate:"required,max=200"`
	Address        string            `json:"address" validate:"max=500"`
	CuisineType    string            `json:"cuisine_type" validate:"max=100"`
	PriceRange     int               `json:"price_range" validate:"min=1,max=3"`
	Lat            *float64          `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng            *float64          `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	VisitStatus    model.VisitStatus `json:"visit_status" validate:"omitempty,oneof=visited wishlist"`
	IsFavorite     bool              `json:"is_favorite"`
	VisitDate      *time.Time        `json:"visit_date"`
	GeneralComment string            `json:"general_comment" validate:"max=2000"`
	CreatedBy      string            `json:"created_by" validate:"max=100"`
}

func (req createRestaurantRequest) restaurant(pairID string) model.Restaurant {
	return model.Restaurant{
		PairID:         pairID,
		Name:           req.Name,
		Address:        req.Address,
		CuisineType:    req.CuisineType,
		PriceRange:     req.PriceRange,
		Lat:            req.Lat,
		Lng:            req.Lng,
		VisitStatus:    req.VisitStatus,
		IsFavorite:     req.IsFavorite,
		VisitDate:      req.VisitDate,
		GeneralComment: req.GeneralComment,
		CreatedBy:      req.CreatedBy,
	}
}

type listRestaurantsQuery struct {
	Status        model.VisitStatus `validate:"omitempty,oneof=visited wishlist"`
	FavoritesOnly bool
	Limit         int `validate:"gte=0,lte=500"`
	Offset        int `validate:"gte=0"`
}

type createRatingRequest struct {
	UserID            string  `json:"user_id" validate:"required,max=100"`
	FoodScore         float64 `json:"food_score" validate:"score"`
	ServiceScore      float64 `json:"service_score" validate:"score"`
	VibeScore         float64 `json:"vibe_score" validate:"score"`
	PriceQualityScore float64 `json:"price_quality_score" validate:"score"`
	FavoriteDish      string  `json:"favorite_dish" validate:"max=200"`
}

func (req createRatingRequest) rating(restaurantID string) model.Rating {
	return model.Rating{
		RestaurantID:      restaurantID,
		UserID:            req.UserID,
		FoodScore:         req.FoodScore,
		ServiceScore:      req.ServiceScore,
		VibeScore:         req.VibeScore,
		PriceQualityScore: req.PriceQualityScore,
		FavoriteDish:      req.FavoriteDish,
	}
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

type visitRequest struct {
	VisitDate *time.Time `json:"visit_date"`
}

type recommendationsQuery struct {
	Cuisine string   `validate:"max=100"`
	Lat     *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lng     *float64 `validate:"omitempty,gte=-180,lte=180"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("score", validScore)
	return v
}

func validScore(fl validator.FieldLevel) bool {
	return model.ValidScore(fl.Field().Float())
}
