// Package http assembles the service's HTTP surface: the public gate
// endpoint, the authenticated admin API, and operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	atthandler "facegate/internal/attendance/handler"
	gatehandler "facegate/internal/gate/handler"
	"facegate/internal/platform/middleware"
	permhandler "facegate/internal/permission/handler"
	userhandler "facegate/internal/user/handler"
	"facegate/pkg/platform/httputil"
)

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Logger *slog.Logger
	JWT    middleware.JWTValidator

	Gate        *gatehandler.Handler
	Permissions *permhandler.Handler
	Users       *userhandler.Handler
	Attendance  *atthandler.Handler

	// Metrics serves the Prometheus scrape endpoint when set.
	Metrics http.Handler

	// Checkers are probed by /health, keyed by dependency name.
	Checkers map[string]HealthChecker
}

// NewRouter builds the full route tree. The gate endpoint is unauthenticated
// since scanner terminals sit on a trusted network segment; everything
// administrative requires a bearer token.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/health", healthHandler(deps.Checkers))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	deps.Gate.Register(r)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAuth(deps.JWT, deps.Logger))
		deps.Permissions.Register(admin)
		deps.Users.Register(admin)
		deps.Attendance.Register(admin)
	})

	return r
}

func healthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(checkers))
		for name, checker := range checkers {
			if err := checker.Health(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(checks) > 0 {
			body["checks"] = checks
		}
		httputil.WriteJSON(w, status, body)
	}
}
