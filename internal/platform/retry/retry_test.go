package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pscheid92/rtspoverlay/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Millisecond,
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	val, err := retry.Do(context.Background(), fastPolicy, func(context.Context) (string, error) {
		calls++
		return "connected", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "connected", val)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	val, err := retry.Do(context.Background(), fastPolicy, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection refused")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	invalid := errors.New("invalid URL")
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, retry.Permanent(invalid)
	})

	var permErr *retry.PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.ErrorIs(t, err, invalid)
	assert.Equal(t, 1, calls)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, retry.Permanent(nil))
}

func TestDo_ExhaustedRetries(t *testing.T) {
	underlying := errors.New("transient")
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, underlying
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, fastPolicy.MaxAttempts, calls)
}

func TestDo_InvalidPolicy(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), retry.Policy{}, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, nil
	})
	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestDo_BackoffDoublesUpToCap(t *testing.T) {
	var observed []time.Duration
	p := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     3 * time.Millisecond,
		OnRetry: func(_ int, _ error, backoff time.Duration) {
			observed = append(observed, backoff)
		},
	}

	_, _ = retry.Do(context.Background(), p, func(context.Context) (struct{}, error) {
		return struct{}{}, errors.New("fail")
	})

	assert.Equal(t, []time.Duration{
		1 * time.Millisecond,
		2 * time.Millisecond,
		3 * time.Millisecond,
		3 * time.Millisecond,
	}, observed)
}

func TestDo_ContextCancellationDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Second,
	}

	calls := 0
	_, err := retry.Do(ctx, p, func(context.Context) (struct{}, error) {
		calls++
		cancel()
		return struct{}{}, errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_PassesContextToOperation(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	_, err := retry.Do(ctx, fastPolicy, func(ctx context.Context) (struct{}, error) {
		assert.Equal(t, "v", ctx.Value(key{}))
		return struct{}{}, nil
	})
	require.NoError(t, err)
}
