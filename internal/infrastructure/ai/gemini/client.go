// Package gemini sends recipe generation requests to the Gemini
// generateContent endpoint with bounded retry and backoff
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/alchemorsel/recipeforge/internal/ports/outbound"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultEndpoint is the generateContent URL of the default model
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"

const (
	apiKeyHeader     = "x-goog-api-key"
	maxResponseBytes = 10 << 20
)

var _ outbound.GenerationTransport = (*Client)(nil)

// Config holds the connection settings of a Client
type Config struct {
	Endpoint       string
	APIKey         string
	RequestTimeout time.Duration
}

// Client implements outbound.GenerationTransport against the Gemini API
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	policy     RetryPolicy
	clock      Clock
	metrics    outbound.GenerationMetrics
	limiter    *rate.Limiter
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the default retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithClock replaces the timer-based clock
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithMetrics reports attempts and backoff waits to m
func WithMetrics(m outbound.GenerationMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRateLimiter paces attempts, retries included, through l
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewRequestsPerMinuteLimiter allows rpm requests per minute with no burst.
// A non-positive rpm returns nil, which disables pacing.
func NewRequestsPerMinuteLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60), 1)
}

// NewClient creates a Gemini client
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		policy:  DefaultRetryPolicy(time.Second, time.Second),
		clock:   RealClock{},
		metrics: outbound.NopMetrics{},
		logger:  logger.Named("gemini"),
		tracer:  otel.Tracer("github.com/alchemorsel/recipeforge/gemini"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.policy = c.policy.withDefaults()
	return c
}

// Send posts req until it succeeds, fails terminally or maxAttempts
// retryable failures have occurred
func (c *Client) Send(ctx context.Context, req domain.GenerationRequest, maxAttempts int) (*domain.RawResponse, error) {
	attempts := c.policy.budget(maxAttempts)

	body, err := json.Marshal(newGenerateContentRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := c.policy.Backoff(i - 1)
			c.metrics.ObserveBackoff(wait)
			c.logger.Info("Retrying generation request",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", attempts),
				zap.Duration("backoff", wait),
				zap.Error(lastErr))
			if err := c.clock.Sleep(ctx, wait); err != nil {
				return nil, domain.NewCanceled(err)
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, domain.NewCanceled(err)
			}
		}

		raw, err := c.attempt(ctx, body, i+1)
		if err == nil {
			return raw, nil
		}
		if domain.KindOf(err) == domain.KindCanceled {
			return nil, err
		}
		if !c.policy.Retryable(err) {
			c.logger.Warn("Generation request failed terminally",
				zap.Int("attempt", i+1),
				zap.Error(err))
			return nil, err
		}
		lastErr = err
	}

	c.logger.Error("Generation retry budget exhausted",
		zap.Int("attempts", attempts),
		zap.Error(lastErr))
	return nil, domain.NewRetryExhausted(attempts, lastErr)
}

// attempt performs a single POST and classifies its outcome
func (c *Client) attempt(ctx context.Context, body []byte, n int) (raw *domain.RawResponse, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "gemini.generateContent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("gemini.attempt", n)))
	defer func() {
		outcome := outbound.OutcomeSuccess
		if err != nil {
			outcome = string(domain.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		c.metrics.ObserveAttempt(outcome, time.Since(start))
		span.End()
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domain.NewCanceled(ctxErr)
		}
		return nil, domain.NewNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domain.NewCanceled(ctxErr)
		}
		return nil, domain.NewNetworkError(fmt.Errorf("failed to read response: %w", err))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("Generation attempt completed",
		zap.Int("attempt", n),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, domain.NewHTTPError(resp.StatusCode, ExtractErrorMessage(resp.StatusCode, data))
	}
	return &domain.RawResponse{StatusCode: resp.StatusCode, Body: data}, nil
}

// Ping checks that the endpoint is reachable. Any HTTP answer counts as
// reachable; only transport failures are reported.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(errors.New("gemini endpoint unreachable"), err)
	}
	resp.Body.Close()
	return nil
}
