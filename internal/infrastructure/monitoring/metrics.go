package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/alchemorsel/recipeforge/internal/ports/outbound"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "recipeforge"

var _ outbound.GenerationMetrics = (*MetricsCollector)(nil)

// MetricsCollector handles Prometheus metrics collection on its own registry
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Generation metrics
	attemptsTotal       *prometheus.CounterVec
	attemptDuration     *prometheus.HistogramVec
	backoffSeconds      prometheus.Histogram
	generationsTotal    *prometheus.CounterVec
	generationDuration  prometheus.Histogram
	generationInFlight  prometheus.Gauge
	rejectedSubmissions prometheus.Counter

	uptimeSeconds prometheus.Counter
}

// NewMetricsCollector registers the collector's metrics on registry.
// A nil registry gets a fresh empty one.
func NewMetricsCollector(registry *prometheus.Registry, logger *zap.Logger) *MetricsCollector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger,
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider attempts by outcome",
			},
			[]string{"outcome"},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_attempt_duration_seconds",
				Help:      "Duration of single provider attempts",
				Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"outcome"},
		),
		backoffSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_backoff_seconds",
				Help:      "Waits between provider attempts",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 6),
			},
		),
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Finished recipe generations by outcome",
			},
			[]string{"outcome"},
		),
		generationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Recipe generation duration from submit to final state",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
		),
		generationInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "generation_in_flight",
				Help:      "1 while a generation is loading",
			},
		),
		rejectedSubmissions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_rejected_total",
				Help:      "Submissions rejected because a generation was loading",
			},
		),

		uptimeSeconds: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uptime_seconds_total",
				Help:      "Total uptime in seconds",
			},
		),
	}
}

// Registry exposes the underlying registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAttempt implements outbound.GenerationMetrics
func (m *MetricsCollector) ObserveAttempt(outcome string, d time.Duration) {
	m.attemptsTotal.WithLabelValues(outcome).Inc()
	m.attemptDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveBackoff implements outbound.GenerationMetrics
func (m *MetricsCollector) ObserveBackoff(wait time.Duration) {
	m.backoffSeconds.Observe(wait.Seconds())
}

// ObserveGeneration implements outbound.GenerationMetrics
func (m *MetricsCollector) ObserveGeneration(outcome string, d time.Duration) {
	m.generationsTotal.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(d.Seconds())
}

// SetInFlight implements outbound.GenerationMetrics
func (m *MetricsCollector) SetInFlight(inFlight bool) {
	if inFlight {
		m.generationInFlight.Set(1)
		return
	}
	m.generationInFlight.Set(0)
}

// IncRejected implements outbound.GenerationMetrics
func (m *MetricsCollector) IncRejected() {
	m.rejectedSubmissions.Inc()
}

// HTTPMiddleware records request metrics for chi routes. Paths are the
// matched route patterns so label cardinality stays bounded.
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// GinMiddleware records request metrics for the admin server
func (m *MetricsCollector) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// StartUptimeCounter increments the uptime counter every second until ctx ends
func (m *MetricsCollector) StartUptimeCounter(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Uptime counter stopped")
			return
		case <-ticker.C:
			m.uptimeSeconds.Inc()
		}
	}
}

// Handler returns the Prometheus metrics HTTP handler for this registry
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
