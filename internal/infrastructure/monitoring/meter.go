package monitoring

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

// MeterConfig holds meter provider configuration
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
}

// MeterProvider exports OpenTelemetry instruments (otelhttp's server and
// client metrics, the state stream gauge) through the Prometheus registry
// served on /metrics. It is installed as the global meter provider.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
	config   MeterConfig
}

// NewMeterProvider registers an OpenTelemetry exporter on registry
func NewMeterProvider(registry *prometheus.Registry, config MeterConfig, logger *zap.Logger) (*MeterProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithNamespace(namespace),
		otelprom.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", config.ServiceName),
		attribute.String("service.version", config.ServiceVersion),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	logger.Debug("OpenTelemetry metrics bridged to Prometheus",
		zap.String("service", config.ServiceName))

	return &MeterProvider{provider: mp, logger: logger, config: config}, nil
}

// Meter returns a named meter carrying the service version
func (m *MeterProvider) Meter(name string) metric.Meter {
	return m.provider.Meter(name, metric.WithInstrumentationVersion(m.config.ServiceVersion))
}

// Shutdown stops the meter provider
func (m *MeterProvider) Shutdown(ctx context.Context) error {
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
