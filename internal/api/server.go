// Package api serves a pair's restaurant log and recommendations over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/foodiepair/foodiepair-cli/internal/store"
	"github.com/foodiepair/foodiepair-cli/internal/suggest"
	"github.com/foodiepair/foodiepair-cli/pkg/geocode"
)

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request and breaker metrics on m and exposes them at
// /metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithDefaultLanguage sets the language used when a request has no usable
// Accept-Language header.
func WithDefaultLanguage(lang string) Option {
	return func(s *Server) {
		s.defaultLang = lang
	}
}

// WithAllowedOrigins sets the CORS allow list.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithGeocoder fills in coordinates for new restaurants that have an
// address but no lat/lng.
func WithGeocoder(c geocode.Client) Option {
	return func(s *Server) {
		s.geocoder = c
	}
}

// Server holds the dependencies shared by every handler.
type Server struct {
	store       store.Store
	suggest     *suggest.Service
	metrics     *Metrics
	geocoder    geocode.Client
	validate    *validator.Validate
	defaultLang string
	origins     []string
}

// New creates a Server. Without WithMetrics a private registry is used.
func New(st store.Store, svc *suggest.Service, opts ...Option) *Server {
	s := &Server{
		store:       st,
		suggest:     svc,
		validate:    newValidator(),
		defaultLang: "en",
		origins:     []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Language", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.instrument)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pairs", s.handleCreatePair)
		r.Route("/pairs/{pairID}", func(r chi.Router) {
			r.Get("/", s.handleGetPair)
			r.Get("/stats", s.handlePairStats)
			r.Get("/recommendations", s.handleRecommendations)
			r.Get("/restaurants", s.handleListRestaurants)
			r.Post("/restaurants", s.handleCreateRestaurant)
		})
		r.Route("/restaurants/{restaurantID}", func(r chi.Router) {
			r.Get("/", s.handleGetRestaurant)
			r.Put("/favorite", s.handleSetFavorite)
			r.Post("/visit", s.handleMarkVisited)
			r.Get("/ratings", s.handleListRatings)
			r.Post("/ratings", s.handleCreateRating)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Debug("api: request",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
