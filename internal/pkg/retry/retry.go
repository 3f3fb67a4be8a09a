package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how a failing call is retried.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries uint64
	// BaseDelay is the wait before the first retry; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
	// Retryable decides whether an error is worth another attempt.
	// A nil predicate retries every error.
	Retryable func(error) bool
}

// Notify is called before each wait with the error that caused it.
type Notify func(err error, wait time.Duration)

// Delays returns the waits the policy schedules between attempts.
func (p Policy) Delays() []time.Duration {
	b := p.backoff()
	delays := make([]time.Duration, 0, p.MaxRetries)
	for i := uint64(0); i < p.MaxRetries; i++ {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

func (p Policy) backoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts the
// policy, or ctx is done. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), notify Notify) (T, error) {
	var result T

	b := backoff.WithContext(backoff.WithMaxRetries(p.backoff(), p.MaxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		v, err := op(ctx)
		if err != nil {
			if p.Retryable != nil && !p.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(err, wait)
		}
	})

	return result, err
}
