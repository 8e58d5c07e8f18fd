// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/alchemorsel/recipeforge/internal/application/generation"
	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/ai/gemini"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/config"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/http/server"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipeforge/internal/ports/inbound"
	"github.com/alchemorsel/recipeforge/internal/ports/outbound"
	"github.com/alchemorsel/recipeforge/pkg/healthcheck"
	"github.com/alchemorsel/recipeforge/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConfigPath is the optional explicit config file location
type ConfigPath string

// Options returns the application graph for the given config file
func Options(configPath string) fx.Option {
	return fx.Options(
		fx.Supply(ConfigPath(configPath)),
		Module,
	)
}

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	GenerationModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) *config.Loader {
		return config.NewLoader(string(path))
	},
	func(loader *config.Loader) (*config.Config, error) {
		return loader.Load()
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
		return logger.NewWithLevel(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// MonitoringModule provides metrics and tracing
var MonitoringModule = fx.Provide(
	NewRegistry,
	fx.Annotate(
		monitoring.NewMetricsCollector,
		fx.As(fx.Self()),
		fx.As(new(outbound.GenerationMetrics)),
	),
	func(cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		return monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log.Named("tracing"))
	},
	func(cfg *config.Config, registry *prometheus.Registry, log *zap.Logger) (*monitoring.MeterProvider, error) {
		return monitoring.NewMeterProvider(registry, monitoring.MeterConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
		}, log.Named("metrics"))
	},
)

// NewRegistry creates the private Prometheus registry with runtime collectors
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// GenerationModule provides the generation pipeline
var GenerationModule = fx.Provide(
	fx.Annotate(
		func(cfg *config.Config, log *zap.Logger, metrics outbound.GenerationMetrics) *gemini.Client {
			return gemini.NewClient(gemini.Config{
				Endpoint:       cfg.AI.GenerateContentURL(),
				APIKey:         cfg.AI.APIKey,
				RequestTimeout: cfg.AI.RequestTimeout,
			}, log,
				gemini.WithRetryPolicy(gemini.DefaultRetryPolicy(cfg.AI.BackoffBase, cfg.AI.MaxJitter)),
				gemini.WithMetrics(metrics),
				gemini.WithRateLimiter(gemini.NewRequestsPerMinuteLimiter(cfg.AI.RequestsPerMinute)),
			)
		},
		fx.As(fx.Self()),
		fx.As(new(outbound.GenerationTransport)),
	),
	generation.NewBuilder,
	generation.NewValidator,
	fx.Annotate(
		func(
			cfg *config.Config,
			builder *generation.Builder,
			transport outbound.GenerationTransport,
			validator *generation.Validator,
			metrics outbound.GenerationMetrics,
			log *zap.Logger,
		) *generation.Controller {
			return generation.NewController(builder, transport, validator, metrics, log, generation.ControllerConfig{
				MaxAttempts: cfg.AI.MaxAttempts,
			})
		},
		fx.As(fx.Self()),
		fx.As(new(inbound.GenerationService)),
	),
)

// HTTPModule provides the API and admin servers
var HTTPModule = fx.Provide(
	NewHealthCheck,
	apiserver.NewAPIServer,
	server.NewAdminServer,
)

// NewHealthCheck registers the readiness checks: provider reachability behind
// a circuit breaker, and the outcome of the last generation
func NewHealthCheck(
	cfg *config.Config,
	log *zap.Logger,
	client *gemini.Client,
	service inbound.GenerationService,
) *healthcheck.HealthCheck {
	health := healthcheck.New(cfg.App.Version, log.Named("health"))

	breaker := healthcheck.NewCircuitBreaker("gemini", healthcheck.CircuitBreakerConfig{
		OnStateChange: func(name string, from, to healthcheck.CircuitBreakerState) {
			log.Warn("Health check circuit changed state",
				zap.String("dependency", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	health.Register("gemini", healthcheck.NewPingChecker(client, breaker))
	health.Register("generation", healthcheck.NewCustomChecker(GenerationCheck(service)))

	return health
}

// GenerationCheck reports degraded while the last generation failed to reach
// the provider
func GenerationCheck(service inbound.GenerationService) func(context.Context) (healthcheck.Status, string, interface{}) {
	return func(context.Context) (healthcheck.Status, string, interface{}) {
		state := service.State()
		metadata := map[string]interface{}{
			"status":     state.Status,
			"updated_at": state.UpdatedAt,
		}
		if state.Error != nil {
			metadata["error_kind"] = state.Error.Kind
			switch state.Error.Kind {
			case domain.KindNetwork, domain.KindRetryExhausted:
				return healthcheck.StatusDegraded, state.Error.Message, metadata
			}
		}
		return healthcheck.StatusHealthy, "", metadata
	}
}

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
	RegisterConfigWatcher,
)

// RegisterLifecycleHooks starts and stops servers and background workers
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	api *apiserver.APIServer,
	admin *server.AdminServer,
	controller *generation.Controller,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
	meters *monitoring.MeterProvider,
) {
	workers, stopWorkers := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting RecipeForge",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.Int("max_attempts", controller.MaxAttempts()),
			)

			apiListener, err := net.Listen("tcp", cfg.Address())
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Address(), err)
			}
			go serve(log, shutdowner, "api", func() error { return api.Serve(apiListener) })

			if cfg.Monitoring.EnableMetrics {
				adminListener, err := net.Listen("tcp", cfg.MetricsAddress())
				if err != nil {
					apiListener.Close()
					return fmt.Errorf("failed to listen on %s: %w", cfg.MetricsAddress(), err)
				}
				go serve(log, shutdowner, "admin", func() error { return admin.Serve(adminListener) })
				go metrics.StartUptimeCounter(workers)
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down RecipeForge")
			stopWorkers()

			var errs []error
			if err := api.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("api server: %w", err))
			}
			if err := admin.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("admin server: %w", err))
			}
			if err := controller.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("generation controller: %w", err))
			}
			if err := tracing.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := meters.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}

			_ = log.Sync()
			return errors.Join(errs...)
		},
	})
}

func serve(log *zap.Logger, shutdowner fx.Shutdowner, name string, run func() error) {
	if err := run(); err != nil {
		log.Error("Server stopped unexpectedly", zap.String("server", name), zap.Error(err))
		_ = shutdowner.Shutdown(fx.ExitCode(1))
	}
}

// RegisterConfigWatcher applies reloaded configuration to the running
// controller and logger. Only the retry budget and log level are live.
func RegisterConfigWatcher(
	loader *config.Loader,
	log *zap.Logger,
	level zap.AtomicLevel,
	controller *generation.Controller,
) error {
	err := loader.Watch(func(cfg *config.Config) {
		ApplyReload(cfg, log, level, controller)
	}, func(err error) {
		log.Warn("Ignoring invalid configuration reload", zap.Error(err))
	})
	if errors.Is(err, config.ErrNoConfigFile) {
		log.Debug("No config file in use; hot reload disabled")
		return nil
	}
	if err == nil {
		log.Info("Watching configuration file", zap.String("path", loader.FileUsed()))
	}
	return err
}

// ApplyReload pushes the live-reloadable settings of cfg into the running components
func ApplyReload(cfg *config.Config, log *zap.Logger, level zap.AtomicLevel, controller *generation.Controller) {
	previousAttempts := controller.MaxAttempts()
	controller.SetMaxAttempts(cfg.AI.MaxAttempts)

	newLevel := logger.ParseLevel(cfg.App.LogLevel)
	previousLevel := level.Level()
	level.SetLevel(newLevel)

	log.Info("Configuration reloaded",
		zap.Int("max_attempts", controller.MaxAttempts()),
		zap.Int("previous_max_attempts", previousAttempts),
		zap.Stringer("log_level", newLevel),
		zap.Stringer("previous_log_level", previousLevel),
	)
}
