// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/alchemorsel/recipeforge/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTransport provides a mock implementation of GenerationTransport
type MockTransport struct {
	mock.Mock
}

var _ outbound.GenerationTransport = (*MockTransport)(nil)

// Send records the call and returns the configured response
func (m *MockTransport) Send(ctx context.Context, req domain.GenerationRequest, maxAttempts int) (*domain.RawResponse, error) {
	args := m.Called(ctx, req, maxAttempts)
	raw, _ := args.Get(0).(*domain.RawResponse)
	return raw, args.Error(1)
}

// FakeClock records requested waits without sleeping
type FakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

// Sleep implements the transport clock
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	return ctx.Err()
}

// Waits returns the recorded waits in order
func (c *FakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// RecordingMetrics captures GenerationMetrics calls
type RecordingMetrics struct {
	mu          sync.Mutex
	Attempts    []string
	Backoffs    []time.Duration
	Generations []string
	InFlight    []bool
	Rejected    int
}

var _ outbound.GenerationMetrics = (*RecordingMetrics)(nil)

func (m *RecordingMetrics) ObserveAttempt(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, outcome)
}

func (m *RecordingMetrics) ObserveBackoff(wait time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Backoffs = append(m.Backoffs, wait)
}

func (m *RecordingMetrics) ObserveGeneration(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Generations = append(m.Generations, outcome)
}

func (m *RecordingMetrics) SetInFlight(inFlight bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InFlight = append(m.InFlight, inFlight)
}

func (m *RecordingMetrics) IncRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected++
}

// Snapshot returns a copy safe to inspect while generations run
func (m *RecordingMetrics) Snapshot() RecordingMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return RecordingMetrics{
		Attempts:    append([]string(nil), m.Attempts...),
		Backoffs:    append([]time.Duration(nil), m.Backoffs...),
		Generations: append([]string(nil), m.Generations...),
		InFlight:    append([]bool(nil), m.InFlight...),
		Rejected:    m.Rejected,
	}
}

// MockGenerationService provides a mock implementation of GenerationService
type MockGenerationService struct {
	mock.Mock
}

// Submit runs the configured expectation
func (m *MockGenerationService) Submit(ctx context.Context, c domain.Constraints) (domain.RequestState, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.RequestState), args.Error(1)
}

// Start runs the configured expectation
func (m *MockGenerationService) Start(ctx context.Context, c domain.Constraints) (uuid.UUID, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// State runs the configured expectation
func (m *MockGenerationService) State() domain.RequestState {
	args := m.Called()
	return args.Get(0).(domain.RequestState)
}

// Subscribe runs the configured expectation
func (m *MockGenerationService) Subscribe() (<-chan domain.RequestState, func()) {
	args := m.Called()
	return args.Get(0).(<-chan domain.RequestState), args.Get(1).(func())
}
