// Package retry re-runs upstream calls that failed transiently.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mindshear/mindshear-api/internal/apperr"
)

// Policy bounds the number of attempts and the delay between them.
type Policy struct {
	// MaxTries counts every attempt, including the first. 1 disables retries.
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is used when a caller supplies the zero Policy.
var DefaultPolicy = Policy{
	MaxTries:        3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	bo.Multiplier = 2
	return bo
}

// Do runs op until it succeeds, fails with an error apperr.Retryable rejects,
// runs out of attempts, or ctx is done.
func Do[T any](ctx context.Context, p Policy, name string, op func(context.Context) (T, error)) (T, error) {
	if p.MaxTries == 0 {
		p = DefaultPolicy
	}

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !apperr.Retryable(err) || ctx.Err() != nil {
			return v, backoff.Permanent(err)
		}
		slog.Warn("Upstream call failed, retrying", "operation", name, "attempt", attempt, "max_attempts", p.MaxTries, "error", err)
		return v, err
	}, backoff.WithBackOff(p.backOff()), backoff.WithMaxTries(p.MaxTries))
}
