// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/google/uuid"
)

// GenerationService is the use case the HTTP API drives.
// Only the service mutates the request state; adapters read it.
type GenerationService interface {
	// Submit runs one generation to completion and returns the final state.
	// It fails with generation.ErrGenerationInProgress while loading and
	// with generation.ErrShuttingDown once shutdown has begun.
	Submit(ctx context.Context, constraints generation.Constraints) (generation.RequestState, error)

	// Start moves to loading and runs the generation in the background
	Start(ctx context.Context, constraints generation.Constraints) (uuid.UUID, error)

	// State returns the current request state
	State() generation.RequestState

	// Subscribe delivers the current state and then every transition until
	// cancel is called
	Subscribe() (updates <-chan generation.RequestState, cancel func())
}
