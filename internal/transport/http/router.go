// Package http serves the operational endpoints next to the gRPC API.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type RouterConfig struct {
	// Checks run on /readyz, keyed by dependency name.
	Checks  map[string]ReadinessCheck
	Metrics http.Handler
	// CheckTimeout bounds each readiness check.
	CheckTimeout time.Duration
}

func NewRouter(cfg RouterConfig, log *slog.Logger) chi.Router {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		code := http.StatusOK
		deps := make(map[string]string, len(cfg.Checks))
		for name, check := range cfg.Checks {
			ctx, cancel := context.WithTimeout(r.Context(), cfg.CheckTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				log.Warn("readiness check failed", slog.String("dependency", name), slog.Any("err", err))
				deps[name] = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		st := "ok"
		if code != http.StatusOK {
			st = "unavailable"
		}
		writeJSON(w, code, map[string]any{"status": st, "dependencies": deps})
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	return r
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
