// Package retry provides exponential backoff with jitter and a circuit
// breaker for hardening calls to the managed data and object stores.
package retry

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	apperrors "catalogo-backend/pkg/errors"

	"go.uber.org/zap"
)

// Default retry tuning, shared by every store-facing operation.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultMaxDelay     = 5 * time.Second
	DefaultMultiplier   = 2.0
)

// ComputeDelay returns the exponential backoff delay for a zero-based
// attempt index, capped at maxDelay. Pure and deterministic.
func ComputeDelay(attempt int, initialDelay, maxDelay time.Duration, multiplier float64) time.Duration {
	delay := float64(initialDelay) * math.Pow(multiplier, float64(attempt))
	if delay > float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(delay)
}

// AddJitter inflates a delay by a uniform random amount in
// [0, 20%) so concurrent retriers do not wake in lockstep.
func AddJitter(delay time.Duration) time.Duration {
	return delay + time.Duration(rand.Float64()*0.2*float64(delay))
}

// Config configures retry behavior for store-facing operations.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// ShouldRetry decides whether a failed attempt is worth repeating.
	// Defaults to apperrors.IsRetryable.
	ShouldRetry func(error) bool
}

// DefaultConfig returns the standard retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Multiplier:   DefaultMultiplier,
		ShouldRetry:  apperrors.IsRetryable,
	}
}

// Retrier wraps operations with retry and backoff. A zero-value
// Retrier is not usable; construct one with NewRetrier.
type Retrier struct {
	config Config
	logger *zap.Logger

	mu   sync.Mutex
	rand *rand.Rand

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier with the given configuration. Zero or
// negative config fields fall back to defaults.
func NewRetrier(config Config, logger *zap.Logger) *Retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultInitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultMaxDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = DefaultMultiplier
	}
	if config.ShouldRetry == nil {
		config.ShouldRetry = apperrors.IsRetryable
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retrier{
		config: config,
		logger: logger.Named("retry"),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepContext,
	}
}

// Do runs op up to MaxAttempts times, backing off between attempts.
// Errors propagate unchanged: callers still observe the classified
// error raised by the operation itself, never a retry wrapper error.
func (r *Retrier) Do(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("operation succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt+1),
				)
			}
			return nil
		}

		lastErr = err

		lastAttempt := attempt == r.config.MaxAttempts-1
		retryable := r.config.ShouldRetry(err)

		if !retryable || lastAttempt {
			r.logger.Warn("operation failed",
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", r.config.MaxAttempts),
				zap.Bool("retryable", retryable),
				zap.Error(err),
			)
			return err
		}

		delay := AddJitter(ComputeDelay(attempt, r.config.InitialDelay, r.config.MaxDelay, r.config.Multiplier))

		r.logger.Warn("operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.config.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	// Unreachable with MaxAttempts >= 1, but the loop must never fall
	// through to a nil return.
	if lastErr == nil {
		lastErr = apperrors.NewInternalError("retry loop exhausted without capturing an error")
	}
	return lastErr
}

// sleepContext waits for the delay or the context, whichever ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
