package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("nonce too low")
	errFatal     = errors.New("execution reverted")
)

func isTransient(err error) bool {
	return errors.Is(err, errTransient)
}

func TestDo_SucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	var retried []int

	result, err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Delay:       time.Millisecond,
		Retryable:   isTransient,
		OnRetry:     func(attempt int, err error) { retried = append(retried, attempt) },
	}, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "0xhash", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "0xhash", result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_FatalErrorReturnsImmediately(t *testing.T) {
	calls := 0

	result, err := Do(context.Background(), Policy{
		MaxAttempts: 10,
		Delay:       time.Millisecond,
		Retryable:   isTransient,
	}, func(ctx context.Context) (int, error) {
		calls++
		return 7, errFatal
	})

	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
	// 失败也返回结果
	assert.Equal(t, 7, result)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 4,
		Delay:       time.Millisecond,
		Retryable:   isTransient,
	}, func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, errTransient
	})

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "retry exhausted after 4 attempts")
}

func TestDo_NilClassifierNeverRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, Policy{
		MaxAttempts: 10,
		Delay:       time.Hour,
		Retryable:   isTransient,
		OnRetry:     func(int, error) { cancel() },
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Defaults(t *testing.T) {
	p := Policy{}.normalize()
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultDelay, p.Delay)
}
