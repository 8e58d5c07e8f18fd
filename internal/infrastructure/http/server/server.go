// Package server provides the admin HTTP server exposing metrics, liveness
// and readiness
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/alchemorsel/recipeforge/internal/infrastructure/config"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipeforge/internal/ports/inbound"
	"github.com/alchemorsel/recipeforge/pkg/healthcheck"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminServer serves /metrics, /healthz and /readyz on the monitoring port
type AdminServer struct {
	config  *config.Config
	logger  *zap.Logger
	engine  *gin.Engine
	server  *http.Server
	metrics *monitoring.MetricsCollector
	service inbound.GenerationService
	health  *healthcheck.HealthCheck
	started time.Time
}

// NewAdminServer creates the admin server
func NewAdminServer(
	cfg *config.Config,
	log *zap.Logger,
	metrics *monitoring.MetricsCollector,
	service inbound.GenerationService,
	health *healthcheck.HealthCheck,
) *AdminServer {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &AdminServer{
		config:  cfg,
		logger:  log.Named("admin"),
		metrics: metrics,
		service: service,
		health:  health,
		started: time.Now(),
	}
	s.engine = s.setupRouter()
	s.server = &http.Server{
		Addr:              cfg.MetricsAddress(),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *AdminServer) setupRouter() *gin.Engine {
	engine := gin.New()

	mw := middleware.NewGin(s.logger, "/metrics", "/healthz", "/readyz")
	engine.Use(mw.RequestID(), mw.Recovery(), mw.Logger(), s.metrics.GinMiddleware())

	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/readyz", s.health.ReadinessHandler())
	engine.GET("/health/checks", s.health.Handler())

	return engine
}

func (s *AdminServer) handleHealth(c *gin.Context) {
	state := s.service.State()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        s.config.App.Name,
		"version":        s.config.App.Version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"generation": gin.H{
			"status":        state.Status,
			"generation_id": state.GenerationID,
			"updated_at":    state.UpdatedAt,
		},
	})
}

// Handler exposes the gin engine
func (s *AdminServer) Handler() http.Handler {
	return s.engine
}

// Serve serves on an existing listener until Shutdown is called
func (s *AdminServer) Serve(ln net.Listener) error {
	s.logger.Info("Starting admin server", zap.String("address", ln.Addr().String()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the admin server
func (s *AdminServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down admin server")
	return s.server.Shutdown(ctx)
}
