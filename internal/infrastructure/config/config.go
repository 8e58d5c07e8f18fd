// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RECIPEFORGE_AI_API_KEY
const EnvPrefix = "RECIPEFORGE"

// GeminiBaseURL is the API root used to derive the endpoint from ai.model
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// MaxAttemptsLimit bounds ai.max_attempts
const MaxAttemptsLimit = 10

// ErrNoConfigFile is returned by Watch when configuration came only from
// defaults and the environment
var ErrNoConfigFile = errors.New("no config file in use")

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	AI         AIConfig         `mapstructure:"ai"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableH2C         bool          `mapstructure:"enable_h2c"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// AIConfig contains the generation provider configuration
type AIConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	MaxJitter      time.Duration `mapstructure:"max_jitter"`
	// RequestsPerMinute paces provider calls; 0 disables pacing
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics bool    `mapstructure:"enable_metrics"`
	MetricsPort   int     `mapstructure:"metrics_port"`
	EnableTracing bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRate  float64 `mapstructure:"sampling_rate"`
}

// Loader reads configuration and can watch its file for changes
type Loader struct {
	v    *viper.Viper
	once sync.Once
}

// NewLoader prepares a loader. An empty configPath searches for config.yaml
// in the working directory, ./config and /etc/recipeforge.
func NewLoader(configPath string) *Loader {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/recipeforge")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Load reads the file, applies overrides and validates the result
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Watch calls onChange with every reloaded configuration that validates.
// Invalid reloads go to onError and the previous configuration stays active.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) error {
	if l.v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}

	l.once.Do(func() {
		l.v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			cfg, err := l.decode()
			if err != nil {
				if onError != nil {
					onError(fmt.Errorf("reload %s: %w", e.Name, err))
				}
				return
			}
			onChange(cfg)
		})
		l.v.WatchConfig()
	})
	return nil
}

// FileUsed returns the path of the loaded config file, if any
func (l *Loader) FileUsed() string {
	return l.v.ConfigFileUsed()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "RecipeForge")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_h2c", false)
	v.SetDefault("server.enable_compression", true)

	// AI defaults
	v.SetDefault("ai.endpoint", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.request_timeout", "60s")
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.backoff_base", "1s")
	v.SetDefault("ai.max_jitter", "1s")
	v.SetDefault("ai.requests_per_minute", 0)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_port", 9090)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "")
	v.SetDefault("monitoring.sampling_rate", 0.1)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.AI.Endpoint == "" && c.AI.Model == "" {
		return fmt.Errorf("ai.endpoint or ai.model is required")
	}
	if u, err := url.Parse(c.AI.GenerateContentURL()); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ai.endpoint must be an absolute URL")
	}

	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}

	if c.AI.MaxAttempts < 1 || c.AI.MaxAttempts > MaxAttemptsLimit {
		return fmt.Errorf("ai.max_attempts must be between 1 and %d", MaxAttemptsLimit)
	}

	if c.AI.BackoffBase < 0 || c.AI.MaxJitter < 0 {
		return fmt.Errorf("ai.backoff_base and ai.max_jitter must not be negative")
	}

	if c.AI.RequestsPerMinute < 0 {
		return fmt.Errorf("ai.requests_per_minute must not be negative")
	}

	// Validate port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Monitoring.EnableMetrics {
		if c.Monitoring.MetricsPort < 1 || c.Monitoring.MetricsPort > 65535 {
			return fmt.Errorf("monitoring.metrics_port must be between 1 and 65535")
		}
		if c.Monitoring.MetricsPort == c.Server.Port {
			return fmt.Errorf("monitoring.metrics_port must differ from server.port")
		}
	}

	if c.Monitoring.SamplingRate < 0 || c.Monitoring.SamplingRate > 1 {
		return fmt.Errorf("monitoring.sampling_rate must be between 0 and 1")
	}

	return nil
}

// GenerateContentURL returns ai.endpoint when set, otherwise the
// generateContent URL of ai.model
func (c AIConfig) GenerateContentURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("%s/models/%s:generateContent", GeminiBaseURL, url.PathEscape(c.Model))
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// Address returns the host:port the API server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MetricsAddress returns the host:port of the admin server
func (c *Config) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Monitoring.MetricsPort)
}
