package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
)

func TestExecutorRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(3, time.Millisecond, 5, time.Minute, logger.Discard())

	calls := 0
	err := exec.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "closed", exec.State())
}

func TestExecutorOpensAfterConsecutiveFailures(t *testing.T) {
	exec := NewExecutor(1, time.Millisecond, 2, time.Minute, logger.Discard())
	boom := errors.New("down")
	fail := func(context.Context) error { return boom }

	require.ErrorIs(t, exec.Do(context.Background(), "op", fail), boom)
	assert.Equal(t, "closed", exec.State())
	require.ErrorIs(t, exec.Do(context.Background(), "op", fail), boom)
	assert.Equal(t, "open", exec.State())

	// While open the call is rejected without invoking fn.
	calls := 0
	err := exec.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestExecutorHalfOpenTrialClosesOnSuccess(t *testing.T) {
	exec := NewExecutor(1, time.Millisecond, 1, 10*time.Millisecond, logger.Discard())
	boom := errors.New("down")

	require.Error(t, exec.Do(context.Background(), "op", func(context.Context) error { return boom }))
	require.Equal(t, "open", exec.State())

	time.Sleep(15 * time.Millisecond)

	err := exec.Do(context.Background(), "op", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", exec.State())
}

func TestExecutorHalfOpenTrialReopensOnFailure(t *testing.T) {
	exec := NewExecutor(1, time.Millisecond, 1, 10*time.Millisecond, logger.Discard())
	boom := errors.New("down")

	require.Error(t, exec.Do(context.Background(), "op", func(context.Context) error { return boom }))
	time.Sleep(15 * time.Millisecond)
	require.Error(t, exec.Do(context.Background(), "op", func(context.Context) error { return boom }))
	assert.Equal(t, "open", exec.State())
}

func TestExecutorCancelledTrialDoesNotWedgeBreaker(t *testing.T) {
	exec := NewExecutor(1, time.Millisecond, 1, 10*time.Millisecond, logger.Discard())
	boom := errors.New("down")

	require.Error(t, exec.Do(context.Background(), "op", func(context.Context) error { return boom }))
	require.Equal(t, "open", exec.State())

	time.Sleep(15 * time.Millisecond)

	// The half-open trial caller gives up mid-call. The trial is inconclusive,
	// so the breaker returns to open rather than holding the slot forever.
	ctx, cancel := context.WithCancel(context.Background())
	require.Error(t, exec.Do(ctx, "op", func(context.Context) error {
		cancel()
		return errors.New("interrupted")
	}))
	assert.Equal(t, "open", exec.State())

	// After another cooldown a healthy call runs its own trial and closes.
	time.Sleep(15 * time.Millisecond)

	calls := 0
	err := exec.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "closed", exec.State())
}

func TestExecutorContextCancelStopsRetrying(t *testing.T) {
	exec := NewExecutor(5, time.Millisecond, 10, time.Minute, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := exec.Do(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return errors.New("interrupted")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	// Cancellation is the caller's choice, not a store failure.
	assert.Equal(t, "closed", exec.State())
}
