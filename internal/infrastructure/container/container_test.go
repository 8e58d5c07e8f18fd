package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alchemorsel/recipeforge/internal/application/generation"
	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/ai/gemini"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/config"
	"github.com/alchemorsel/recipeforge/pkg/healthcheck"
	"github.com/alchemorsel/recipeforge/test/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestModule_GraphIsComplete(t *testing.T) {
	err := fx.ValidateApp(Options(""), fx.NopLogger)
	assert.NoError(t, err)
}

func TestNewRegistry_RegistersRuntimeCollectors(t *testing.T) {
	families, err := NewRegistry().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}

func TestApplyReload(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	controller := generation.NewController(generation.NewBuilder(), new(testutils.MockTransport),
		generation.NewValidator(), nil, zaptest.NewLogger(t), generation.ControllerConfig{MaxAttempts: 3})

	cfg := &config.Config{
		App: config.AppConfig{LogLevel: "debug"},
		AI:  config.AIConfig{MaxAttempts: 5},
	}
	ApplyReload(cfg, log, level, controller)

	assert.Equal(t, 5, controller.MaxAttempts())
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	entries := logs.FilterMessage("Configuration reloaded").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 5, fields["max_attempts"])
	assert.EqualValues(t, 3, fields["previous_max_attempts"])
	assert.Equal(t, "info", fields["previous_log_level"])

	t.Run("UnknownLevelFallsBackToInfo", func(t *testing.T) {
		cfg.App.LogLevel = "verbose"
		cfg.AI.MaxAttempts = 0

		ApplyReload(cfg, log, level, controller)

		assert.Equal(t, zapcore.InfoLevel, level.Level())
		assert.Equal(t, generation.DefaultMaxAttempts, controller.MaxAttempts())
	})
}

func TestGenerationCheck(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	tests := []struct {
		name           string
		state          domain.RequestState
		expectedStatus healthcheck.Status
		expectedKind   domain.ErrorKind
	}{
		{name: "Idle", state: domain.IdleState(now), expectedStatus: healthcheck.StatusHealthy},
		{name: "Loading", state: domain.LoadingState(id, now), expectedStatus: healthcheck.StatusHealthy},
		{
			name:           "SchemaFailureIsHealthy",
			state:          domain.FailureState(id, domain.ErrorDetail{Kind: domain.KindSchemaViolation, Message: "bad"}, now),
			expectedStatus: healthcheck.StatusHealthy,
			expectedKind:   domain.KindSchemaViolation,
		},
		{
			name:           "NetworkFailureDegrades",
			state:          domain.FailureState(id, domain.ErrorDetail{Kind: domain.KindNetwork, Message: "unreachable"}, now),
			expectedStatus: healthcheck.StatusDegraded,
			expectedKind:   domain.KindNetwork,
		},
		{
			name:           "RetryExhaustedDegrades",
			state:          domain.FailureState(id, domain.ErrorDetail{Kind: domain.KindRetryExhausted, Message: "gave up"}, now),
			expectedStatus: healthcheck.StatusDegraded,
			expectedKind:   domain.KindRetryExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(testutils.MockGenerationService)
			service.On("State").Return(tt.state)

			status, message, metadata := GenerationCheck(service)(context.Background())

			assert.Equal(t, tt.expectedStatus, status)
			meta, ok := metadata.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.state.Status, meta["status"])
			if tt.expectedKind != "" {
				assert.Equal(t, tt.expectedKind, meta["error_kind"])
			} else {
				assert.NotContains(t, meta, "error_kind")
			}
			if tt.expectedStatus == healthcheck.StatusDegraded {
				assert.Equal(t, tt.state.Error.Message, message)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestNewHealthCheck(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer provider.Close()

	log := zaptest.NewLogger(t)
	cfg := &config.Config{App: config.AppConfig{Version: "1.0.0"}}
	client := gemini.NewClient(gemini.Config{Endpoint: provider.URL, APIKey: "test"}, log,
		gemini.WithHTTPClient(provider.Client()))

	service := new(testutils.MockGenerationService)
	service.On("State").Return(domain.IdleState(time.Now()))

	health := NewHealthCheck(cfg, log, client, service)
	response := health.Check(context.Background())

	assert.Equal(t, healthcheck.StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	require.Len(t, response.Checks, 2)
	assert.Equal(t, "gemini", response.Checks[0].Name)
	assert.Equal(t, map[string]interface{}{"circuit": "closed"}, response.Checks[0].Metadata)
	assert.Equal(t, "generation", response.Checks[1].Name)

	t.Run("UnreachableProvider", func(t *testing.T) {
		provider.Close()
		health.SetCacheTTL(0)

		response := health.Check(context.Background())

		assert.Equal(t, healthcheck.StatusUnhealthy, response.Status)
		assert.Equal(t, healthcheck.StatusUnhealthy, response.Checks[0].Status)
		assert.Contains(t, response.Checks[0].Message, "unreachable")
	})
}
