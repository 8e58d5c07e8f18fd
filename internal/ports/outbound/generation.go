// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces the generation pipeline uses to reach external systems
package outbound

import (
	"context"
	"time"

	"github.com/alchemorsel/recipeforge/internal/domain/generation"
)

// GenerationTransport executes a built request against the model provider.
// Implementations retry retryable failures up to maxAttempts times and
// return *generation.PipelineError values on failure.
type GenerationTransport interface {
	Send(ctx context.Context, req generation.GenerationRequest, maxAttempts int) (*generation.RawResponse, error)
}

// Attempt outcomes reported to GenerationMetrics
const (
	OutcomeSuccess = "success"
)

// GenerationMetrics receives pipeline measurements
type GenerationMetrics interface {
	// ObserveAttempt records one network attempt and its outcome
	ObserveAttempt(outcome string, duration time.Duration)
	// ObserveBackoff records a wait between two attempts
	ObserveBackoff(wait time.Duration)
	// ObserveGeneration records a finished submission
	ObserveGeneration(outcome string, duration time.Duration)
	// SetInFlight flags whether a generation is loading
	SetInFlight(inFlight bool)
	// IncRejected counts submissions rejected by the single-flight guard
	IncRejected()
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) ObserveAttempt(string, time.Duration)    {}
func (NopMetrics) ObserveBackoff(time.Duration)            {}
func (NopMetrics) ObserveGeneration(string, time.Duration) {}
func (NopMetrics) SetInFlight(bool)                        {}
func (NopMetrics) IncRejected()                            {}
