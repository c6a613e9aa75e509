// Package retry runs an operation until it succeeds, fails permanently, or runs out of attempts.
//
// Used for establishing store and Redis connections at startup. Request handling never retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	// MaxBackoff caps the doubling backoff; zero means uncapped.
	MaxBackoff time.Duration
	OnRetry    func(attempt int, err error, backoff time.Duration)
}

// StartupPolicy is the policy used when dialing backing services at boot.
var StartupPolicy = Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

type Operation[T any] func(ctx context.Context) (T, error)

// Do runs op until it succeeds. Errors wrapped with Permanent abort immediately.
func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, errors.New("retry: MaxAttempts must be >= 1")
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}

		var permErr *PermanentError
		if errors.As(err, &permErr) {
			return zero, err
		}

		if attempt == p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
			if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

// Permanent wraps err so Do stops at once. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
