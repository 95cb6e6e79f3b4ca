package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/beacon/internal/adapter/api/handler"
	"github.com/V4T54L/beacon/internal/adapter/api/middleware"
)

// RouterDeps are the collaborators served by the admin router.
type RouterDeps struct {
	Status   *handler.StatusHandler
	Stream   *handler.SSEBroker
	Gatherer prometheus.Gatherer // nil disables /metrics
	Token    string              // empty disables bearer auth
	Logger   *slog.Logger
}

// NewRouter creates and configures the admin HTTP router. /health is always
// public; every other route sits behind bearer auth when a token is set.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/health", deps.Status.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(deps.Token, deps.Logger))

		r.Get("/status", deps.Status.Status)
		if deps.Stream != nil {
			r.Get("/events", deps.Stream.ServeHTTP)
		}
		if deps.Gatherer != nil {
			r.Get("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)
		}
	})

	return r
}
