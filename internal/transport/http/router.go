// Package httptransport assembles the HTTP surface of the service: global
// middleware, per-module routers, health and metrics endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
)

// ModuleHandler is implemented by every module's HTTP handler.
type ModuleHandler interface {
	Register(r chi.Router)
}

// Config carries the handlers and platform dependencies the router mounts.
type Config struct {
	Registry   ModuleHandler
	Identity   ModuleHandler
	Governance ModuleHandler
	AutoVerify ModuleHandler

	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
}

const defaultRequestTimeout = 30 * time.Second

// NewRouter builds the top-level router. Module routers are mounted under
// /api/v1/<module>; health and metrics endpoints bypass the middleware chain
// that requires authentication.
func NewRouter(cfg Config) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		api.Route("/registry", cfg.Registry.Register)
		api.Route("/identity", cfg.Identity.Register)
		api.Route("/governance", cfg.Governance.Register)
		api.Route("/auto-verify", cfg.AutoVerify.Register)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
