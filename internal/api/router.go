package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/technosupport/cctv-console/internal/middleware"
	"github.com/technosupport/cctv-console/internal/views"
)

const DefaultRequestTimeout = 30 * time.Second

type RouterConfig struct {
	Console *ConsoleHandler
	Views   *views.Table
	// ActionLimiter wraps the state-changing endpoints. Nil disables it.
	ActionLimiter  func(http.Handler) http.Handler
	// Readiness serves /readyz when set.
	Readiness      http.Handler
	RequestTimeout time.Duration
	Log            zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(middleware.CORS)

	// Health & Metrics
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	if cfg.Readiness != nil {
		r.Handle("/readyz", cfg.Readiness)
	}

	mount := func(r chi.Router) {
		cfg.Views.Mount(r, cfg.Console.Render)

		r.Group(func(r chi.Router) {
			if cfg.ActionLimiter != nil {
				r.Use(cfg.ActionLimiter)
			}
			r.Post("/cameras/add", cfg.Console.Create)
			r.Put("/cameras/{id}", cfg.Console.Update)
			r.Delete("/cameras/{id}", cfg.Console.Delete)
			r.Post("/cameras/{id}/start", cfg.Console.StartStream)
			r.Post("/cameras/{id}/stop", cfg.Console.StopStream)
			r.Post("/cameras/{id}/restart", cfg.Console.RestartStream)
		})
	}

	if base := cfg.Views.Base(); base == "/" {
		mount(r)
	} else {
		r.Route(strings.TrimSuffix(base, "/"), mount)
	}
	return r
}
