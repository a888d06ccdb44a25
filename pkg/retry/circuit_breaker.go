package retry

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call
// without invoking the wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig configures failure detection and recovery.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that
	// opens the circuit.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a single
	// trial call is allowed through.
	ResetTimeout time.Duration
}

// DefaultCircuitBreakerConfig returns the standard breaker tuning.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// CircuitBreaker fails fast after repeated consecutive failures and
// probes for recovery after a cooldown.
//
// The state lives in process memory only. On a multi-instance
// deployment each instance keeps its own counters, so this is a
// best-effort optimization for a warm instance, not a cross-instance
// coordination mechanism.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger *zap.Logger

	mu            sync.Mutex
	state         CircuitState
	failures      int
	nextAttempt   time.Time
	trialInFlight bool

	// now is swapped out in tests
	now func() time.Time
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CircuitBreaker{
		config: config,
		logger: logger.Named("circuit_breaker"),
		state:  StateClosed,
		now:    time.Now,
	}
}

// Execute runs op under circuit breaker protection. While the circuit
// is open, calls fail immediately with ErrCircuitOpen. After the reset
// timeout exactly one trial call is let through; its outcome decides
// whether the circuit closes again.
func (cb *CircuitBreaker) Execute(op func() error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := op()
	cb.afterCall(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			return ErrCircuitOpen
		}
		cb.transitionTo(StateHalfOpen)
		cb.trialInFlight = true
		return nil
	case StateHalfOpen:
		// Only one trial call at a time
		if cb.trialInFlight {
			return ErrCircuitOpen
		}
		cb.trialInFlight = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trialInFlight = false

	if err == nil {
		cb.failures = 0
		if cb.state != StateClosed {
			cb.transitionTo(StateClosed)
		}
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.transitionTo(StateOpen)
		cb.nextAttempt = cb.now().Add(cb.config.ResetTimeout)
	}
}

// transitionTo changes state; callers must hold the mutex.
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState

	cb.logger.Info("circuit breaker state changed",
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
		zap.Int("consecutive_failures", cb.failures),
	)
}
