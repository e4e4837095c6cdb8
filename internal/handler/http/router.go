package http

import (
	"net/http"
	"time"

	"product-views/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions toggles the optional parts of the router
type RouterOptions struct {
	EnableMetrics bool
	SentryTimeout time.Duration
	APITimeout    time.Duration
}

// NewRouter wires every route behind the middleware chain.
// Order: RequestID → Recovery → Sentry → Logging → CORS → Metrics → handler.
func NewRouter(h *Handler, log *logger.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RequestIDMiddleware,
		RecoveryMiddleware(log),
		SentryMiddleware(opts.SentryTimeout),
		LoggingMiddleware(log),
		CORSMiddleware,
	)
	if opts.EnableMetrics {
		r.Use(MetricsMiddleware)
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/", h.Home)
	r.Get("/health/live", h.HealthCheck)
	r.Get("/health/ready", h.ReadinessCheck)

	r.Route("/api", func(r chi.Router) {
		if opts.APITimeout > 0 {
			r.Use(TimeoutMiddleware(opts.APITimeout))
		}
		r.Get("/log", h.ListLogs)
		r.Post("/log", h.CreateLog)
		r.Get("/docs/openapi.json", ServeOpenAPISpec)
	})

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.ProductDetail)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/", h.Dashboard)
		r.Get("/export.xlsx", h.Export)
		r.Get("/stream", h.Stream)
	})

	SetupStaticFiles(r)

	return r
}
