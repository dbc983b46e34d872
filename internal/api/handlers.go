package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
	"github.com/foodiepair/foodiepair-cli/internal/i18n"
	"github.com/foodiepair/foodiepair-cli/internal/model"
	"github.com/foodiepair/foodiepair-cli/internal/recommend"
	"github.com/foodiepair/foodiepair-cli/internal/stats"
	"github.com/foodiepair/foodiepair-cli/internal/store"
	"github.com/foodiepair/foodiepair-cli/internal/suggest"
	"github.com/foodiepair/foodiepair-cli/pkg/geocode"
)

type reasonView struct {
	Key    recommend.ReasonKey `json:"key"`
	Params map[string]any      `json:"params,omitempty"`
	Text   string              `json:"text"`
}

type recommendationView struct {
	Kind       recommend.Kind   `json:"kind"`
	Restaurant model.Restaurant `json:"restaurant"`
	Score      float64          `json:"score"`
	Reasons    []reasonView     `json:"reasons"`
	DistanceKM *float64         `json:"distance_km,omitempty"`
	Rating     *float64         `json:"rating,omitempty"`
	Source     string           `json:"source,omitempty"`
}

type recommendationsResponse struct {
	Language        string               `json:"language"`
	Recommendations []recommendationView `json:"recommendations"`
	Discovered      int                  `json:"discovered"`
	DiscoveryFailed bool                 `json:"discovery_failed,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreatePair(w http.ResponseWriter, r *http.Request) {
	var req createPairRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	pair, err := s.store.CreatePair(r.Context(), model.Pair{User1ID: req.User1ID, User2ID: req.User2ID})
	if err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}
	respondJSON(w, http.StatusCreated, pair)
}

func (s *Server) handleGetPair(w http.ResponseWriter, r *http.Request) {
	pair, err := s.store.GetPair(r.Context(), chi.URLParam(r, "pairID"))
	if err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

func (s *Server) handlePairStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context(), chi.URLParam(r, "pairID"))
	if err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}
	st, err := stats.Compute(snap)
	if err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := recommendationsQuery{Cuisine: strings.TrimSpace(r.URL.Query().Get("cuisine"))}
	var err error
	if q.Lat, err = floatParam(r, "lat"); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	if q.Lng, err = floatParam(r, "lng"); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	if (q.Lat == nil) != (q.Lng == nil) {
		respondError(w, http.StatusBadRequest, codeBadRequest, "lat and lng must be given together", nil)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		respondInvalid(w, err)
		return
	}

	req := suggest.Request{PairID: chi.URLParam(r, "pairID"), Cuisine: q.Cuisine}
	if q.Lat != nil {
		p, err := geo.NewPoint(*q.Lat, *q.Lng)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
			return
		}
		req.Location = &p
	}

	resp, err := s.suggest.Recommend(r.Context(), req)
	if err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}

	loc := i18n.New(r.Header.Get("Accept-Language"), s.defaultLang)
	out := recommendationsResponse{
		Language:        loc.Language().String(),
		Recommendations: make([]recommendationView, 0, len(resp.Results)),
		Discovered:      resp.Discovered,
		DiscoveryFailed: resp.DiscoveryFailed,
	}
	for _, res := range resp.Results {
		out.Recommendations = append(out.Recommendations, recommendationOf(res, loc))
		s.metrics.observeResult(res.Candidate.Kind.String())
	}

	w.Header().Set("Content-Language", out.Language)
	respondJSON(w, http.StatusOK, out)
}

func recommendationOf(res recommend.Result, loc *i18n.Localizer) recommendationView {
	v := recommendationView{
		Kind:       res.Candidate.Kind,
		Restaurant: res.Candidate.AsRestaurant(),
		Score:      res.Score,
		Reasons:    make([]reasonView, 0, len(res.Reasons)),
		DistanceKM: res.DistanceKM,
	}
	if ext := res.Candidate.External; ext != nil {
		v.Rating = ext.Rating
		v.Source = ext.Source
	}
	for _, reason := range res.Reasons {
		v.Reasons = append(v.Reasons, reasonView{
			Key:    reason.Key,
			Params: reason.Params,
			Text:   loc.Render(reason),
		})
	}
	return v
}

func (s *Server) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")
	values := r.URL.Query()

	q := listRestaurantsQuery{Status: model.VisitStatus(values.Get("status"))}
	var err error
	if q.FavoritesOnly, err = boolParam(r, "favorites"); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	if q.Limit, err = intParam(r, "limit", 0); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	if q.Offset, err = intParam(r, "offset", 0); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		respondInvalid(w, err)
		return
	}

	if _, err := s.store.GetPair(r.Context(), pairID); err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}
	restaurants, err := s.store.ListRestaurants(r.Context(), pairID, store.RestaurantFilter{
		Status:        q.Status,
		FavoritesOnly: q.FavoritesOnly,
		Limit:         q.Limit,
		Offset:        q.Offset,
	})
	if err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}
	if restaurants == nil {
		restaurants = []model.Restaurant{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"restaurants": restaurants})
}

func (s *Server) handleCreateRestaurant(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")
	var req createRestaurantRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		respondError(w, http.StatusBadRequest, codeBadRequest, "lat and lng must be given together", nil)
		return
	}

	if _, err := s.store.GetPair(r.Context(), pairID); err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}
	rest := req.restaurant(pairID)
	if s.geocoder != nil && rest.Lat == nil && strings.TrimSpace(rest.Address) != "" {
		lat, lng, err := geocode.Coordinates(r.Context(), s.geocoder, rest.Address)
		if err != nil {
			zap.L().Warn("api: geocode failed, saving without coordinates",
				zap.String("address", rest.Address), zap.Error(err))
		}
		rest.Lat, rest.Lng = lat, lng
	}
	created, err := s.store.CreateRestaurant(r.Context(), rest)
	if err != nil {
		respondStoreError(w, r, err, "pair")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := s.store.GetRestaurant(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		respondStoreError(w, r, err, "restaurant")
		return
	}
	respondJSON(w, http.StatusOK, rest)
}

func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "restaurantID")
	var req favoriteRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.store.SetFavorite(r.Context(), id, *req.Favorite); err != nil {
		respondStoreError(w, r, err, "restaurant")
		return
	}
	s.respondRestaurant(w, r, id)
}

func (s *Server) handleMarkVisited(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "restaurantID")
	var req visitRequest
	if r.ContentLength != 0 {
		if !s.decodeAndValidate(w, r, &req) {
			return
		}
	}
	date := time.Now().UTC()
	if req.VisitDate != nil {
		date = *req.VisitDate
	}
	if err := s.store.MarkVisited(r.Context(), id, date); err != nil {
		respondStoreError(w, r, err, "restaurant")
		return
	}
	s.respondRestaurant(w, r, id)
}

func (s *Server) respondRestaurant(w http.ResponseWriter, r *http.Request, id string) {
	rest, err := s.store.GetRestaurant(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "restaurant")
		return
	}
	respondJSON(w, http.StatusOK, rest)
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "restaurantID")
	if _, err := s.store.GetRestaurant(r.Context(), id); err != nil {
		respondStoreError(w, r, err, "restaurant")
		return
	}
	ratings, err := s.store.ListRatingsForRestaurants(r.Context(), []string{id})
	if err != nil {
		respondStoreError(w, r, err, "restaurant")
		return
	}
	if ratings == nil {
		ratings = []model.Rating{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"ratings": ratings})
}

func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "restaurantID")
	var req createRatingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if _, err := s.store.GetRestaurant(r.Context(), id); err != nil {
		respondStoreError(w, r, err, "restaurant")
		return
	}
	created, err := s.store.CreateRating(r.Context(), req.rating(id))
	if err != nil {
		respondStoreError(w, r, err, "restaurant")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// decodeAndValidate reads a JSON body into dst and validates it, writing a
// 400 and returning false on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request body", nil)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		respondInvalid(w, err)
		return false
	}
	return true
}

func floatParam(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, eris.Errorf("%s must be a number", name)
	}
	return &f, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, eris.Errorf("%s must be true or false", name)
	}
	return b, nil
}
