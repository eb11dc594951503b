package router

import (
	"net/http"

	"github.com/evyataryagoni/iptracker/internal/handler"
	"github.com/evyataryagoni/iptracker/internal/limiter"
	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/evyataryagoni/iptracker/internal/metrics"
	custommiddleware "github.com/evyataryagoni/iptracker/internal/middleware"
	"github.com/evyataryagoni/iptracker/internal/render"
	v1 "github.com/evyataryagoni/iptracker/internal/router/v1"
	"github.com/evyataryagoni/iptracker/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the collaborators the router wires together
type Deps struct {
	Handler      *handler.TrackerHandler
	Sessions     *session.Registry
	Limiter      limiter.Limiter
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
	SecureCookie bool

	// TrustProxyHeaders makes the client address come from forwarding
	// headers. Only enable it behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// SetupRouter creates the chi router with middleware and routes.
//
// Only the routes that reach the upstream API are rate limited; the page,
// static files and health checks are not.
func SetupRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	// Order matters: request id first, then logging, then recovery
	r.Use(middleware.RequestID)
	if d.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(custommiddleware.LoggingMiddleware(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.MetricsMiddleware(d.Metrics))

	rateLimit := custommiddleware.RateLimitMiddleware(d.Limiter, d.Logger)
	sessions := custommiddleware.SessionMiddleware(d.Sessions, d.SecureCookie, d.Logger)

	r.Group(func(r chi.Router) {
		r.Use(sessions)

		r.Get("/", d.Handler.Page)
		r.With(rateLimit).Post("/lookup", d.Handler.SubmitForm)

		r.Mount("/v1", v1.SetupRoutes(d.Handler, rateLimit))
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(render.Static()))))

	r.Get("/health", healthCheckHandler)
	r.Handle("/metrics", d.Metrics.Handler())

	return r
}

// healthCheckHandler reports liveness
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
