package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/platform/metrics"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

func (s CircuitState) gaugeValue() float64 {
	switch s {
	case CircuitStateOpen:
		return 1
	case CircuitStateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

type BreakerOption func(*CircuitBreaker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithTransitionHook is called under the breaker lock on every state change.
func WithTransitionHook(fn func(dependency string, from, to CircuitState)) BreakerOption {
	return func(b *CircuitBreaker) {
		b.onTransition = fn
	}
}

// CircuitBreaker guards one upstream dependency (the match feed, the job
// queue). State changes are exported as prediction_pool_circuit_state.
// A disabled breaker admits everything and records nothing.
type CircuitBreaker struct {
	mu sync.Mutex

	dependency string
	enabled    bool
	cfg        CircuitBreakerConfig

	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
	halfOpenSuccesses   int
	now                 func() time.Time
	onTransition        func(dependency string, from, to CircuitState)
}

func NewCircuitBreaker(dependency string, cfg CircuitBreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	cfg = cfg.Normalize()
	b := &CircuitBreaker{
		dependency: dependency,
		enabled:    cfg.Enabled,
		cfg:        cfg,
		state:      CircuitStateClosed,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.SetCircuitState(dependency, CircuitStateClosed.gaugeValue())
	return b
}

func (b *CircuitBreaker) Dependency() string {
	return b.dependency
}

func (b *CircuitBreaker) Allow() error {
	if !b.enabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			metrics.RecordCircuitRejection(b.dependency)
			return ErrCircuitOpen
		}
		b.transition(CircuitStateHalfOpen)
	}

	if b.state == CircuitStateHalfOpen {
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxReq {
			metrics.RecordCircuitRejection(b.dependency)
			return ErrCircuitOpen
		}
		b.halfOpenInFlight++
	}
	return nil
}

// Record feeds one call outcome into the breaker. failed decides whether the
// outcome counts against the dependency; callers classify their own errors.
func (b *CircuitBreaker) Record(failed bool) {
	if failed {
		b.RecordFailure()
		return
	}
	b.RecordSuccess()
}

func (b *CircuitBreaker) RecordSuccess() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures = 0
	case CircuitStateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.HalfOpenMaxReq && b.halfOpenInFlight == 0 {
			b.transition(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.transition(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

// State reports half_open once the open timeout has elapsed even though the
// transition itself only happens on the next Allow.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0
	switch to {
	case CircuitStateOpen:
		b.openedAt = b.now()
	case CircuitStateClosed:
		b.consecutiveFailures = 0
		b.openedAt = time.Time{}
	}
	if from == to {
		return
	}
	metrics.RecordCircuitTransition(b.dependency, string(to), to.gaugeValue())
	if b.onTransition != nil {
		b.onTransition(b.dependency, from, to)
	}
}
