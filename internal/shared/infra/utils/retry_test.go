package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry_SucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 3 {
			return errors.New("todavía no")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Retry(context.Background(), 3, 10*time.Millisecond, func(attempt int) error {
		calls++
		return errors.New("fallo")
	})

	assert.EqualError(t, err, "fallo")
	assert.Equal(t, 3, calls)
	// dos esperas, ninguna después del último intento
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func(attempt int) error {
		calls++
		cancel()
		return errors.New("fallo")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_AtLeastOneAttempt(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), 0, time.Millisecond, func(int) error {
		calls++
		return nil
	})
	assert.Equal(t, 1, calls)
}
