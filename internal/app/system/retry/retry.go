// Package retry re-runs idempotent operations on transient store failures
// with jittered exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"go.mongodb.org/mongo-driver/mongo"
)

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	Attempts int           // total tries, including the first
	Base     time.Duration // delay before the second try; roughly doubles each time
	Max      time.Duration // cap on a single delay
}

// Default is used for idempotent reads.
var Default = Policy{Attempts: 3, Base: 100 * time.Millisecond, Max: 2 * time.Second}

// Transient reports whether err is worth retrying: network errors, server
// selection/socket timeouts, or anything already marked ErrStoreUnavailable.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errs.ErrStoreUnavailable) {
		return true
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

// Do calls fn until it succeeds, returns a non-transient error, the attempts
// run out, or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var last error
	op := func() error {
		last = fn(ctx)
		if last != nil && !Transient(last) {
			return backoff.Permanent(last)
		}
		return last
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(p.backOff(), uint64(p.Attempts-1)), ctx))
	if err != nil && last != nil {
		// A done ctx surfaces as ctx.Err(); callers want the store error.
		return last
	}
	return err
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxInterval = p.Max
	if b.MaxInterval <= 0 {
		b.MaxInterval = backoff.DefaultMaxInterval
	}
	b.MaxElapsedTime = 0
	return b
}
