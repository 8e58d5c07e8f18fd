package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() *Config {
	return &Config{
		App:        AppConfig{Name: "RecipeForge"},
		Server:     ServerConfig{Port: 8080},
		AI:         AIConfig{Endpoint: "https://example.com/v1/generate", APIKey: "k", MaxAttempts: 3},
		Monitoring: MonitoringConfig{EnableMetrics: true, MetricsPort: 9090, SamplingRate: 0.5},
	}
}

func TestAIConfig_GenerateContentURL(t *testing.T) {
	assert.Equal(t, "https://example.com/v1/generate",
		AIConfig{Endpoint: "https://example.com/v1/generate", Model: "ignored"}.GenerateContentURL())
	assert.Equal(t, GeminiBaseURL+"/models/gemini-2.0-flash:generateContent",
		AIConfig{Model: "gemini-2.0-flash"}.GenerateContentURL())
}

func TestLoad_DefaultsWithEnvKey(t *testing.T) {
	t.Setenv("RECIPEFORGE_AI_API_KEY", "secret")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "RecipeForge", cfg.App.Name)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, time.Second, cfg.AI.BackoffBase)
	assert.Equal(t, time.Second, cfg.AI.MaxJitter)
	assert.Equal(t, 60*time.Second, cfg.AI.RequestTimeout)
	assert.Empty(t, cfg.AI.Endpoint)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, GeminiBaseURL+"/models/gemini-2.5-flash:generateContent", cfg.AI.GenerateContentURL())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, "0.0.0.0:9090", cfg.MetricsAddress())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("RECIPEFORGE_AI_API_KEY", "")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ai.api_key")
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
app:
  environment: production
  log_level: debug
server:
  port: 8181
ai:
  api_key: from-file
  max_attempts: 5
  backoff_base: 250ms
monitoring:
  metrics_port: 9191
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.AI.APIKey)
	assert.Equal(t, 5, cfg.AI.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.AI.BackoffBase)
	assert.Equal(t, 9191, cfg.Monitoring.MetricsPort)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ai:\n  api_key: from-file\n  max_attempts: 5\n")
	t.Setenv("RECIPEFORGE_AI_MAX_ATTEMPTS", "2")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.AI.MaxAttempts)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ai:\n  api_key: k\n  max_attempts: 0\n")

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ai.max_attempts")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"Valid", func(*Config) {}, ""},
		{"MissingName", func(c *Config) { c.App.Name = "" }, "app.name"},
		{"MissingEndpoint", func(c *Config) { c.AI.Endpoint = "" }, "ai.endpoint"},
		{"RelativeEndpoint", func(c *Config) { c.AI.Endpoint = "/v1/generate" }, "absolute URL"},
		{"MissingKey", func(c *Config) { c.AI.APIKey = "" }, "ai.api_key"},
		{"ZeroAttempts", func(c *Config) { c.AI.MaxAttempts = 0 }, "ai.max_attempts"},
		{"TooManyAttempts", func(c *Config) { c.AI.MaxAttempts = MaxAttemptsLimit + 1 }, "ai.max_attempts"},
		{"AttemptsAtLimit", func(c *Config) { c.AI.MaxAttempts = MaxAttemptsLimit }, ""},
		{"ModelWithoutEndpoint", func(c *Config) {
			c.AI.Endpoint = ""
			c.AI.Model = "gemini-2.0-flash"
		}, ""},
		{"NegativeBackoff", func(c *Config) { c.AI.BackoffBase = -time.Second }, "must not be negative"},
		{"NegativePacing", func(c *Config) { c.AI.RequestsPerMinute = -1 }, "ai.requests_per_minute"},
		{"BadPort", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"SamePorts", func(c *Config) { c.Monitoring.MetricsPort = 8080 }, "must differ"},
		{"MetricsDisabledSkipsPort", func(c *Config) {
			c.Monitoring.EnableMetrics = false
			c.Monitoring.MetricsPort = 0
		}, ""},
		{"SamplingRate", func(c *Config) { c.Monitoring.SamplingRate = 1.5 }, "sampling_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoader_WatchWithoutFile(t *testing.T) {
	t.Setenv("RECIPEFORGE_AI_API_KEY", "secret")
	loader := NewLoader("")
	_, err := loader.Load()
	require.NoError(t, err)

	assert.ErrorIs(t, loader.Watch(func(*Config) {}, nil), ErrNoConfigFile)
	assert.Empty(t, loader.FileUsed())
}

func TestLoader_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "ai:\n  api_key: k\n  max_attempts: 3\n")

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, path, loader.FileUsed())

	var attempts atomic.Int32
	var failures atomic.Int32
	require.NoError(t, loader.Watch(
		func(cfg *Config) { attempts.Store(int32(cfg.AI.MaxAttempts)) },
		func(error) { failures.Add(1) },
	))

	writeConfig(t, dir, "ai:\n  api_key: k\n  max_attempts: 6\n")
	assert.Eventually(t, func() bool { return attempts.Load() == 6 }, 5*time.Second, 20*time.Millisecond)

	writeConfig(t, dir, "ai:\n  api_key: k\n  max_attempts: 0\n")
	assert.Eventually(t, func() bool { return failures.Load() > 0 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(6), attempts.Load())
}
