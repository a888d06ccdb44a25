package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "catalogo-backend/pkg/errors"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestRetrier(config Config) *Retrier {
	r := NewRetrier(config, zap.NewNop())
	r.sleep = noSleep
	return r
}

func TestComputeDelay(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first attempt", 0, 100 * time.Millisecond},
		{"second attempt", 1, 200 * time.Millisecond},
		{"third attempt", 2, 400 * time.Millisecond},
		{"capped at max", 10, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDelay(tt.attempt, DefaultInitialDelay, DefaultMaxDelay, DefaultMultiplier)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeDelayMonotonicUntilCap(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		d := ComputeDelay(attempt, DefaultInitialDelay, DefaultMaxDelay, DefaultMultiplier)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, DefaultMaxDelay)
		prev = d
	}
}

func TestAddJitterRange(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		d := AddJitter(base)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/5+time.Millisecond)
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	r := newTestRetrier(DefaultConfig())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientFailure(t *testing.T) {
	r := newTestRetrier(DefaultConfig())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return apperrors.NewUnavailableError("throttled")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	r := newTestRetrier(DefaultConfig())

	transient := apperrors.NewUnavailableError("throttled")
	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return transient
	})

	// The raw error comes back, not a retry wrapper
	require.ErrorIs(t, err, error(transient))
	assert.Equal(t, DefaultMaxAttempts, calls)
}

func TestDoDoesNotRetryNonRetryable(t *testing.T) {
	r := newTestRetrier(DefaultConfig())

	notFound := apperrors.NewNotFoundError("product abc")
	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return notFound
	})

	require.ErrorIs(t, err, error(notFound))
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	r := newTestRetrier(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.Do(ctx, "op", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDoCancelDuringBackoff(t *testing.T) {
	r := NewRetrier(DefaultConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	calls := 0
	err := r.Do(ctx, "op", func(ctx context.Context) error {
		calls++
		return apperrors.NewUnavailableError("throttled")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoCustomShouldRetry(t *testing.T) {
	sentinel := errors.New("flaky")
	config := DefaultConfig()
	config.ShouldRetry = func(err error) bool { return errors.Is(err, sentinel) }
	r := newTestRetrier(config)

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return sentinel
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNewRetrierFillsDefaults(t *testing.T) {
	r := NewRetrier(Config{}, nil)

	assert.Equal(t, DefaultMaxAttempts, r.config.MaxAttempts)
	assert.Equal(t, DefaultInitialDelay, r.config.InitialDelay)
	assert.Equal(t, DefaultMaxDelay, r.config.MaxDelay)
	assert.Equal(t, DefaultMultiplier, r.config.Multiplier)
	assert.NotNil(t, r.config.ShouldRetry)
}
