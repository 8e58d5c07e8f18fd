package generation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/alchemorsel/recipeforge/internal/ports/outbound"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxAttempts is the retry budget used when none is configured
const DefaultMaxAttempts = 3

const subscriberBuffer = 16

// ControllerConfig configures a Controller
type ControllerConfig struct {
	MaxAttempts int
	// Now overrides the clock used for state timestamps
	Now func() time.Time
}

// Controller orchestrates Builder, transport and Validator and owns the
// request state. At most one generation is in flight per controller:
// submissions that arrive while loading are rejected, and so is every
// submission after Shutdown.
type Controller struct {
	builder     *Builder
	transport   outbound.GenerationTransport
	validator   *Validator
	metrics     outbound.GenerationMetrics
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
	maxAttempts atomic.Int32

	mu          sync.Mutex
	state       domain.RequestState
	subscribers map[int]chan domain.RequestState
	nextSubID   int
	cancelRun   context.CancelFunc
	closing     bool
	wg          sync.WaitGroup
}

// NewController creates a controller in the idle state
func NewController(
	builder *Builder,
	transport outbound.GenerationTransport,
	validator *Validator,
	metrics outbound.GenerationMetrics,
	logger *zap.Logger,
	cfg ControllerConfig,
) *Controller {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Controller{
		builder:     builder,
		transport:   transport,
		validator:   validator,
		metrics:     metrics,
		logger:      logger.Named("generation"),
		tracer:      otel.Tracer("github.com/alchemorsel/recipeforge/generation"),
		now:         cfg.Now,
		subscribers: make(map[int]chan domain.RequestState),
	}
	c.SetMaxAttempts(cfg.MaxAttempts)
	c.state = domain.IdleState(c.now())
	return c
}

// SetMaxAttempts changes the retry budget of subsequent generations.
// Values below one fall back to DefaultMaxAttempts.
func (c *Controller) SetMaxAttempts(n int) {
	if n < 1 {
		n = DefaultMaxAttempts
	}
	c.maxAttempts.Store(int32(n))
}

// MaxAttempts returns the current retry budget
func (c *Controller) MaxAttempts() int {
	return int(c.maxAttempts.Load())
}

// State returns a copy of the current request state
func (c *Controller) State() domain.RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Subscribe returns a channel that first receives the current state and then
// every transition. Slow subscribers lose the oldest buffered states, never
// the latest one. The channel is closed by cancel.
func (c *Controller) Subscribe() (<-chan domain.RequestState, func()) {
	ch := make(chan domain.RequestState, subscriberBuffer)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.state.Clone()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

// Submit runs one generation to completion on the calling goroutine and
// returns the final state. While another generation is loading it returns
// domain.ErrGenerationInProgress and leaves the state untouched; after
// Shutdown it returns domain.ErrShuttingDown.
func (c *Controller) Submit(ctx context.Context, constraints domain.Constraints) (domain.RequestState, error) {
	id, runCtx, cancel, err := c.begin(ctx, false)
	if err != nil {
		return c.State(), err
	}
	defer c.wg.Done()
	defer cancel()
	return c.run(runCtx, id, constraints), nil
}

// Start applies the same guards as Submit, moves to loading and runs the
// pipeline in the background. The run outlives ctx cancellation; it is
// stopped by Shutdown.
func (c *Controller) Start(ctx context.Context, constraints domain.Constraints) (uuid.UUID, error) {
	id, runCtx, cancel, err := c.begin(ctx, true)
	if err != nil {
		return uuid.Nil, err
	}

	go func() {
		defer c.wg.Done()
		defer cancel()
		c.run(runCtx, id, constraints)
	}()
	return id, nil
}

// Shutdown refuses further submissions, cancels the running generation and
// waits for it to settle
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closing = true
	cancel := c.cancelRun
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin is the single-flight guard. The check, the transition to loading,
// the run's cancel func and its WaitGroup slot are all set under one lock,
// so Shutdown either sees the run or the run is refused. detach keeps the
// run alive past ctx cancellation. The caller must call cancel and
// c.wg.Done when the run ends.
func (c *Controller) begin(ctx context.Context, detach bool) (uuid.UUID, context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		c.logger.Info("Rejected submission during shutdown")
		return uuid.Nil, nil, nil, domain.ErrShuttingDown
	}
	if c.state.IsLoading() {
		current := c.state.GenerationID
		c.mu.Unlock()
		c.metrics.IncRejected()
		c.logger.Info("Rejected submission while loading",
			zap.String("generation_id", current.String()))
		return uuid.Nil, nil, nil, domain.ErrGenerationInProgress
	}

	if detach {
		ctx = context.WithoutCancel(ctx)
	}
	runCtx, cancel := context.WithCancel(ctx)
	id := uuid.New()
	c.cancelRun = cancel
	c.wg.Add(1)
	c.setStateLocked(domain.LoadingState(id, c.now()))
	c.metrics.SetInFlight(true)
	c.mu.Unlock()

	return id, runCtx, cancel, nil
}

func (c *Controller) run(ctx context.Context, id uuid.UUID, constraints domain.Constraints) domain.RequestState {
	start := time.Now()
	log := c.logger.With(zap.String("generation_id", id.String()))

	ctx, span := c.tracer.Start(ctx, "generation.submit", trace.WithAttributes(
		attribute.String("generation.id", id.String()),
		attribute.String("generation.diet", string(constraints.DietaryType)),
		attribute.String("generation.fat", string(constraints.Fat)),
	))
	defer span.End()

	log.Info("Generating recipe",
		zap.String("dietary_type", string(constraints.DietaryType)),
		zap.String("fat", string(constraints.Fat)),
		zap.Int("max_attempts", c.MaxAttempts()))

	recipe, err := c.execute(ctx, constraints)

	var next domain.RequestState
	outcome := outbound.OutcomeSuccess
	if err != nil {
		detail := DescribeError(err)
		outcome = string(detail.Kind)
		next = domain.FailureState(id, detail, c.now())

		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		log.Warn("Recipe generation failed",
			zap.String("kind", outcome),
			zap.String("field", detail.Field),
			zap.Error(err))
	} else {
		next = domain.SuccessState(id, recipe, c.now())
		span.SetAttributes(attribute.String("recipe.name", recipe.RecipeName))
		log.Info("Recipe generated",
			zap.String("recipe_name", recipe.RecipeName),
			zap.Int("ingredients", len(recipe.Ingredients)),
			zap.Int("steps", len(recipe.Instructions)))
	}

	c.mu.Lock()
	c.setStateLocked(next)
	c.metrics.SetInFlight(false)
	c.mu.Unlock()

	c.metrics.ObserveGeneration(outcome, time.Since(start))
	return next.Clone()
}

func (c *Controller) execute(ctx context.Context, constraints domain.Constraints) (recipe domain.Recipe, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation pipeline panicked: %v", r)
		}
	}()

	req := c.builder.Build(constraints)

	raw, err := c.transport.Send(ctx, req, c.MaxAttempts())
	if err != nil {
		return domain.Recipe{}, err
	}
	return c.validator.Validate(raw)
}

// setStateLocked stores s and fans it out. c.mu must be held.
func (c *Controller) setStateLocked(s domain.RequestState) {
	c.state = s
	for _, ch := range c.subscribers {
		select {
		case ch <- s.Clone():
			continue
		default:
		}
		// buffer full: drop the oldest queued state to make room
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.Clone():
		default:
		}
	}
}
