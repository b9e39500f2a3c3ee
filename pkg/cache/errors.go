package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks a remote backend that could not be reached. Snapshot
// loading logs it and decodes the metadata instead.
var ErrNetwork = errors.New("network error")

// RetryableError marks a failure worth another attempt.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err for retry. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err, or an error it wraps, was marked with
// [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// backoff tries an operation up to attempts times. The wait starts at delay
// and doubles after every retryable failure.
type backoff struct {
	attempts int
	delay    time.Duration
}

// redisBackoff covers every Redis round trip.
var redisBackoff = backoff{attempts: 3, delay: 100 * time.Millisecond}

func (b backoff) do(ctx context.Context, fn func() error) error {
	wait := b.delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt >= b.attempts {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

// RetryWithBackoff runs fn, retrying errors marked with [Retryable] up to
// three attempts in total.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return redisBackoff.do(ctx, fn)
}
