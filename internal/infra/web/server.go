package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"orbit-redemption/internal/config"
	"orbit-redemption/internal/usecase"
)

// RateLimiter admits at most limit hits per key and window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Deps are the use cases and collaborators behind the HTTP surface.
type Deps struct {
	Batches      usecase.BatchUseCase
	Redemption   usecase.RedemptionUseCase
	Codes        usecase.CodeUseCase
	Stats        usecase.StatsUseCase
	Distributors usecase.DistributorUseCase
	Auth         *Authenticator

	// Limiter is optional; redeem is unlimited without it.
	Limiter         RateLimiter
	RedeemPerMinute int
	RequestTimeout  time.Duration
}

type Server struct {
	deps Deps
	log  *zerolog.Logger
}

func NewServer(deps Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTP").Logger()
	return &Server{deps: deps, log: &l}
}

// Router builds the chi router with every route and middleware attached.
func (s *Server) Router() http.Handler {
	auth := s.deps.Auth

	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.deps.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, http.StatusOK, envelope{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(s.rateLimit("redeem")).Post("/codes/redeem", s.handleRedeem)
		r.With(auth.RequireCaller()).Get("/batches/{batchID}/codes", s.handleBatchCodes)

		r.Route("/distributor", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireDistributor())
				r.Get("/profile", s.handleProfile)
				r.Post("/codes/generate", s.handleGenerate)
				r.Get("/codes", s.handleListCodes)
				r.Post("/codes/revoke", s.handleRevoke)
				r.Get("/batches", s.handleListBatches)
				r.Get("/stats", s.handleStats)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin())
			r.Post("/codes/generate", s.handleGenerate)
			r.Get("/codes", s.handleListCodes)
			r.Post("/codes/revoke", s.handleRevoke)
			r.Post("/codes/settle", s.handleSettle)
			r.Get("/batches", s.handleListBatches)
			r.Get("/stats", s.handleStats)
			r.Get("/distributors", s.handleListDistributors)
			r.Post("/distributors/list", s.handleListDistributors)
			r.Post("/distributors", s.handleCreateDistributor)
			r.Post("/distributors/status", s.handleSetDistributorStatus)
			r.Post("/distributors/commission", s.handleSetDistributorCommission)
		})
	})
	return r
}

// NewHTTPServer applies the configured port and timeouts to h.
func NewHTTPServer(cfg config.HTTPConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
