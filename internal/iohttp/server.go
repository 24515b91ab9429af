// Package iohttp serves the read-side query API: the ranked pair view,
// the append-only review log, health and Prometheus metrics. The write
// side (study aggregation) stays CLI-only.
package iohttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/genobase/pairmeta/internal/iometrics"
	"github.com/genobase/pairmeta/pkg/config"
	"github.com/genobase/pairmeta/pkg/pairmeta"
)

// Server exposes the ranking and review contracts over HTTP.
type Server struct {
	cfg     *config.Config
	ranker  pairmeta.Ranker
	reviews pairmeta.ReviewStore
	limiter *rate.Limiter
}

// New creates the query API server. The rate limiter allows
// cfg.HTTP.RateLimit sustained requests per second with bursts up to
// twice that.
func New(cfg *config.Config, rnk pairmeta.Ranker, rs pairmeta.ReviewStore) *Server {
	rps := cfg.HTTP.RateLimit
	if rps <= 0 {
		rps = 50
	}
	return &Server{
		cfg:     cfg,
		ranker:  rnk,
		reviews: rs,
		limiter: rate.NewLimiter(rate.Limit(rps), 2*rps),
	}
}

// Run starts the server and blocks until it stops or ctx is canceled.
// Cancellation triggers a graceful shutdown with a 5 second drain.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.HTTP.Host, s.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting query API", "address", "http://"+addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return ServerStartError(addr, err)
	}
	return nil
}

// Router assembles the chi routes. It is exported so tests can drive
// the handlers through httptest without binding a port.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.throttle)
	r.Use(s.instrument)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/pairs", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/top", s.topPairs)
		r.Route("/{pair_key}", func(r chi.Router) {
			r.Post("/review", s.addReview)
			r.Get("/reviews", s.listReviews)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":  "OK",
		"version": pairmeta.Version,
	})
}

// throttle applies the shared token bucket. Rejected requests get a
// 429 without touching the database.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			_ = render.Render(w, r, apiError(http.StatusTooManyRequests, "rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument counts requests by route pattern and status code.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		iometrics.HTTPRequests.
			WithLabelValues(route, strconv.Itoa(ww.Status())).
			Inc()
	})
}
