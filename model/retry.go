package model

import (
	"context"
	"time"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
)

// RetryOptions configures the bounded retry policy applied at the model-call
// boundary. Tool calls and workflow steps are never retried by the
// framework; any retry at that level is a reasoning-loop re-iteration.
type RetryOptions struct {
	// MaxAttempts is the total number of Generate attempts (first call
	// included). Values below 1 are treated as 1.
	MaxAttempts int
	// Delay is the wait before the first retry.
	Delay time.Duration
	// Backoff multiplies the delay after each failed attempt. 1 keeps the
	// delay fixed.
	Backoff float64
	// Logger records retried attempts; defaults to NoOp.
	Logger logging.Logger
}

// retryProvider decorates a Provider with the bounded retry policy.
type retryProvider struct {
	inner  Provider
	opts   RetryOptions
	logger logging.Logger
}

// WithRetry wraps a provider so transient Generate failures are retried a
// bounded number of times with a fixed or backoff delay. Once the budget is
// exhausted the last error propagates wrapped in core.RemoteCallError.
func WithRetry(inner Provider, optFns ...func(o *RetryOptions)) Provider {
	opts := RetryOptions{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
		Backoff:     2,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 1
	}
	return &retryProvider{inner: inner, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Generate implements Provider.
func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	delay := r.opts.Delay

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == r.opts.MaxAttempts {
			break
		}
		r.logger.Warn("model call failed, retrying",
			"provider", r.inner.Info().Provider,
			"attempt", attempt,
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, &core.RemoteCallError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * r.opts.Backoff)
	}

	return nil, &core.RemoteCallError{Attempts: r.opts.MaxAttempts, Err: lastErr}
}

// Info implements Provider.
func (r *retryProvider) Info() Info { return r.inner.Info() }
