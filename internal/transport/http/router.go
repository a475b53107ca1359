// Package httptransport assembles the HTTP API: the common middleware chain,
// the /api route groups owned by each context handler, and the operational
// endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	articlehandler "conduit/internal/article/handler"
	commenthandler "conduit/internal/comment/handler"
	"conduit/internal/platform/metrics"
	"conduit/internal/platform/middleware"
	taghandler "conduit/internal/tag/handler"
	"conduit/internal/transport/http/shared"
	userhandler "conduit/internal/user/handler"
)

const requestTimeout = 30 * time.Second

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router wires together.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Users    *userhandler.Handler
	Articles *articlehandler.Handler
	Comments *commenthandler.Handler
	Tags     *taghandler.Handler
	Health   map[string]HealthCheck
}

// NewRouter builds the full HTTP handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.LatencyMiddleware(deps.Metrics))

	r.Route("/api", func(api chi.Router) {
		deps.Users.Register(api)
		deps.Articles.Register(api)
		deps.Comments.Register(api)
		deps.Tags.Register(api)
	})

	r.Get("/health", handleHealth(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Components = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(r.Context()); err != nil {
					resp.Components[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Components[name] = "ok"
			}
		}
		shared.WriteJSON(w, status, resp)
	}
}
