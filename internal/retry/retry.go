// Package retry runs an operation with capped exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"TrendRadar/internal/logging"
)

// Options tune the retry loop. Delay before retry i (0-indexed) is
// min(MinDelay * Factor^i, MaxDelay).
type Options struct {
	Retries  int
	Factor   float64
	MinDelay time.Duration
	MaxDelay time.Duration
	Logger   *slog.Logger
}

// DefaultOptions is one retry, doubling from one second up to ten.
func DefaultOptions() Options {
	return Options{
		Retries:  1,
		Factor:   2,
		MinDelay: time.Second,
		MaxDelay: 10 * time.Second,
	}
}

// Permanent marks err as not worth retrying; Do returns it unwrapped immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, the retries are spent, op returns a Permanent
// error, or ctx is done. The last error of op is returned.
func Do(ctx context.Context, opts Options, op func(context.Context) error) error {
	opts = opts.withDefaults()
	logger := logging.OrDiscard(opts.Logger)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = opts.MinDelay
	policy.Multiplier = opts.Factor
	policy.MaxInterval = opts.MaxDelay
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return op(ctx)
		},
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(opts.Retries)), ctx),
		func(err error, wait time.Duration) {
			logger.Warn("operation failed, retrying",
				"attempt", attempt,
				"retries", opts.Retries,
				"wait", wait,
				"error", err,
			)
		},
	)
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, opts, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Factor <= 0 {
		o.Factor = def.Factor
	}
	if o.MinDelay <= 0 {
		o.MinDelay = def.MinDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = def.MaxDelay
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = o.MinDelay
	}
	return o
}
