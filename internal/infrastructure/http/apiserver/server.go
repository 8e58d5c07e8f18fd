// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/alchemorsel/recipeforge/internal/infrastructure/config"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipeforge/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipeforge/pkg/errors"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// APIServer serves the recipe generation JSON API
type APIServer struct {
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	router  *chi.Mux
	service inbound.GenerationService
	metrics *monitoring.MetricsCollector
	stream  *handlers.StateStreamHandler
	openAPI *OpenAPIHandler
}

// NewAPIServer creates a new API server instance
func NewAPIServer(
	cfg *config.Config,
	log *zap.Logger,
	service inbound.GenerationService,
	metrics *monitoring.MetricsCollector,
) *APIServer {
	logger := log.Named("http")
	s := &APIServer{
		config:  cfg,
		logger:  logger,
		service: service,
		metrics: metrics,
		stream:  handlers.NewStateStreamHandler(service, logger, nil),
		openAPI: NewOpenAPIHandler(logger),
	}

	s.router = s.setupRoutes()

	var handler http.Handler = otelhttp.NewHandler(s.router, "recipeforge-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	if cfg.Server.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	s.server = &http.Server{
		Addr:           cfg.Address(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s
}

// setupRoutes configures JSON API routes
func (s *APIServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recoverer(s.logger))
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}
	r.Use(middleware.Security())
	if s.config.Server.EnableCompression {
		r.Use(middleware.Compress(middleware.DefaultCompressionConfig()))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, apperrors.NewNotFoundError("Route"), middleware.RequestIDFromContext(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, apperrors.NewMethodNotAllowedError(r.Method), middleware.RequestIDFromContext(r.Context()))
	})

	h := handlers.NewGenerationAPIHandlers(s.service, s.logger, s.config.App.Version)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/openapi.yaml", s.openAPI.ServeOpenAPISpec)

		r.Route("/recipes", func(r chi.Router) {
			r.With(middleware.JSONOnly()).Post("/generate", h.Generate)
			r.Get("/state", h.State)
			r.Method(http.MethodGet, "/state/stream", s.stream)
		})
	})

	return r
}

// Handler returns the root handler, including tracing and h2c wrapping
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

// Serve serves on an existing listener until Shutdown is called
func (s *APIServer) Serve(ln net.Listener) error {
	s.logger.Info("Starting JSON API server",
		zap.String("address", ln.Addr().String()),
		zap.Bool("h2c", s.config.Server.EnableH2C),
		zap.Bool("compression", s.config.Server.EnableCompression),
	)

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes open state streams and gracefully stops the server
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	s.stream.Close()
	return s.server.Shutdown(ctx)
}
