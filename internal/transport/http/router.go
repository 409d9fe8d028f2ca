package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	"rfmcli/internal/config"
	apierrors "rfmcli/internal/errors"
	"rfmcli/internal/middleware"
	"rfmcli/internal/services"
)

// RouterDeps are the collaborators of the report server
type RouterDeps struct {
	Report  ReportServiceInterface
	Health  *services.HealthService
	Metrics http.Handler // nil disables /metrics
	Tracer  trace.Tracer // nil disables request spans
	Server  config.ServerConfig
	Logger  *slog.Logger
}

// NewRouter builds the report server router
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errorHandler := apierrors.NewErrorHandler(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if deps.Tracer != nil {
		r.Use(middleware.Tracing(deps.Tracer))
	}
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.SecurityHeaders)
	if deps.Server.RateLimit > 0 {
		burst := deps.Server.RateBurst
		if burst <= 0 {
			burst = 1
		}
		r.Use(middleware.NewRateLimiter(deps.Server.RateLimit, burst, logger).Handler)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", NewHealthHandler(deps.Health, logger).HealthCheck)
		r.Mount("/", NewReportHandler(deps.Report, logger, errorHandler).Routes())
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}
