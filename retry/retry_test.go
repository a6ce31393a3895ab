package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetrier(maxAttempts int, classifier ErrorClassifier) *Retrier {
	return NewRetrier(RetryConfig{
		MaxAttempts:   maxAttempts,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}, classifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRetrierDo(t *testing.T) {
	retryAll := func(error) bool { return true }

	t.Run("should return nil on first success", func(t *testing.T) {
		calls := 0

		err := testRetrier(3, retryAll).Do(context.Background(), func() error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("should retry until success", func(t *testing.T) {
		calls := 0

		err := testRetrier(3, retryAll).Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("should stop after the attempt budget", func(t *testing.T) {
		calls := 0
		cause := errors.New("always failing")

		err := testRetrier(3, retryAll).Do(context.Background(), func() error {
			calls++
			return cause
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 3, calls)
	})

	t.Run("should not retry a non-retryable error", func(t *testing.T) {
		calls := 0
		permanent := errors.New("permanent")

		classifier := func(err error) bool { return !errors.Is(err, permanent) }

		err := testRetrier(3, classifier).Do(context.Background(), func() error {
			calls++
			return permanent
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("should stop waiting when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		retrier := NewRetrier(RetryConfig{
			MaxAttempts:   5,
			BaseDelay:     time.Minute,
			MaxDelay:      time.Minute,
			BackoffFactor: 2.0,
		}, func(error) bool { return true }, slog.New(slog.NewTextHandler(io.Discard, nil)))

		done := make(chan error, 1)
		go func() {
			done <- retrier.Do(ctx, func() error { return errors.New("transient") })
		}()

		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("retrier did not honor context cancellation")
		}
	})
}
