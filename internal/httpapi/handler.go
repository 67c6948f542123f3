// Package httpapi exposes the referral ledger as a JSON API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/set-night/shareit/internal/metrics"
	"github.com/set-night/shareit/internal/ratelimit"
	"github.com/set-night/shareit/internal/service"
)

// Handler holds the services the API routes call.
type Handler struct {
	users           *service.UserService
	businesses      *service.BusinessService
	recommendations *service.RecommendationService
	saves           *service.SavedOfferService
	rewards         *service.RewardService
	verifier        *Verifier
	limiter         *ratelimit.Limiter
	metrics         *metrics.Metrics
	ready           func(r *http.Request) error
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Users           *service.UserService
	Businesses      *service.BusinessService
	Recommendations *service.RecommendationService
	Saves           *service.SavedOfferService
	Rewards         *service.RewardService
	// Verifier is nil when no identity provider is configured; the /v1
	// routes are not mounted then.
	Verifier *Verifier
	Limiter  *ratelimit.Limiter
	Metrics  *metrics.Metrics
	// Ready backs /healthz. Nil always reports healthy.
	Ready func(r *http.Request) error
}

func New(deps Deps) *Handler {
	return &Handler{
		users:           deps.Users,
		businesses:      deps.Businesses,
		recommendations: deps.Recommendations,
		saves:           deps.Saves,
		rewards:         deps.Rewards,
		verifier:        deps.Verifier,
		limiter:         deps.Limiter,
		metrics:         deps.Metrics,
		ready:           deps.Ready,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.metrics.InstrumentHandler)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", h.metrics.Handler())

	if h.verifier != nil {
		r.Route("/v1", h.routes)
	}
	return r
}

func (h *Handler) routes(r chi.Router) {
	r.Use(h.authenticate)
	r.Use(h.rateLimit)

	r.Post("/recommendations", h.createRecommendation)
	r.Get("/recommendations", h.listRecommendations)
	r.Get("/recommendations/{id}", h.getRecommendation)
	r.Get("/recommendations/{id}/aggregate", h.getAggregate)
	r.Post("/recommendations/{id}/views", h.recordView)
	r.Post("/recommendations/{id}/save", h.saveOffer)

	r.Post("/saved-offers/{id}/claim", h.claimOffer)

	r.Get("/me", h.me)
	r.Get("/me/saved-offers", h.mySavedOffers)
	r.Get("/me/transactions", h.myTransactions)
	r.Get("/users/{id}/recommendations", h.userRecommendations)

	r.Get("/businesses", h.listBusinesses)
	r.Get("/businesses/{id}", h.getBusiness)
	r.Get("/businesses/{id}/stats", h.businessStats)
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	return slog.With("request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r); err != nil {
			h.log(r).Warn("health check failed", "error", err)
			writeProblem(w, http.StatusServiceUnavailable, "unavailable", "store unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
