package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// retryClass buckets provider errors by how the retry loop treats them.
type retryClass int

const (
	// retryNever marks configuration or caller errors a repeat cannot fix.
	retryNever retryClass = iota
	// retryOnce marks a schema-invalid payload, which earns exactly one
	// regeneration attempt.
	retryOnce
	// retryAlways marks transient transport or capacity failures.
	retryAlways
)

// retrier decorates a Provider with bounded retries. Template authoring
// runs inside batch maintenance, so the policy leans on longer waits over
// aggressive re-requests.
type retrier struct {
	inner Provider
	cfg   RetryConfig
}

// WithRetry wraps a Provider with the retry policy.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &retrier{inner: p, cfg: cfg}
}

func (r *retrier) ModelID() string { return r.inner.ModelID() }

func (r *retrier) Generate(ctx context.Context, req Request) (*Response, error) {
	invalidBudget := 1

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		switch classify(err) {
		case retryNever:
			return nil, err
		case retryOnce:
			if invalidBudget == 0 {
				return nil, err
			}
			invalidBudget--
		}

		if attempt == r.cfg.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.wait(attempt, err)):
		}
	}
	return nil, lastErr
}

func classify(err error) retryClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retryNever
	}

	// Truncation means the token budget is too small for the template
	// schema; re-asking cannot help.
	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return retryNever
	}

	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		return retryOnce
	}

	return retryAlways
}

// wait computes the pause before the next attempt. A rate limit's
// RetryAfter wins over the computed backoff.
func (r *retrier) wait(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.cfg.InitialWait)
	for i := 0; i < attempt; i++ {
		wait *= r.cfg.Multiplier
	}
	if ceil := float64(r.cfg.MaxWait); wait > ceil {
		wait = ceil
	}

	// ±20% jitter so parallel maintenance workers do not sync up.
	wait *= 0.8 + 0.4*rand.Float64()
	return time.Duration(wait)
}
