package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"syscall"
	"time"

	"github.com/vietddude/vatcheck/internal/core/domain"
	"github.com/vietddude/vatcheck/internal/infra/rpc/provider"
	"github.com/vietddude/vatcheck/internal/metrics"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay scales the exponential backoff.
	BaseDelay time.Duration

	// AttemptTimeout bounds a single attempt. Zero disables the bound.
	AttemptTimeout time.Duration
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     5,
	BaseDelay:      1 * time.Second,
	AttemptTimeout: 10 * time.Second,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFatal
	}

	if ce, ok := domain.AsClassified(err); ok {
		if ce.Retryable || domain.IsRetryableStatus(ce.HTTPStatus) {
			return ActionRetry
		}
		return ActionFatal
	}

	if isNetworkError(err) {
		return ActionRetry
	}

	return ActionFatal
}

// isNetworkError reports whether an unclassified error comes from the network stack.
func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

// Retrier runs fallible attempts under exponential backoff with full jitter.
type Retrier struct {
	cfg   RetryConfig
	rand  func() float64
	sleep func(ctx context.Context, d time.Duration) error
	log   *slog.Logger
}

// RetryOption customizes a Retrier.
type RetryOption func(*Retrier)

// WithRand replaces the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) RetryOption {
	return func(r *Retrier) { r.rand = fn }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *Retrier) { r.sleep = fn }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) RetryOption {
	return func(r *Retrier) { r.log = l }
}

// NewRetrier creates a Retrier. Negative values in cfg are treated as zero.
func NewRetrier(cfg RetryConfig, opts ...RetryOption) *Retrier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}

	r := &Retrier{
		cfg:   cfg,
		rand:  rand.Float64,
		sleep: sleepContext,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the retry configuration in use.
func (r *Retrier) Config() RetryConfig {
	return r.cfg
}

// Execute runs op up to MaxRetries+1 times and returns the first success.
// When retries are exhausted, or the failure is not retryable, the last
// error is returned unchanged. Cancelling ctx aborts the loop with ctx.Err().
func Execute[T any](ctx context.Context, r *Retrier, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := runAttempt(ctx, name, r.cfg.AttemptTimeout, op)
		if err == nil {
			if attempt > 0 {
				r.log.Debug("Attempt succeeded after retry", "authority", name, "attempt", attempt+1)
			}
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		if ClassifyError(err) == ActionFatal {
			return zero, err
		}

		if attempt >= r.cfg.MaxRetries {
			r.log.Error("Retries exhausted",
				"authority", name,
				"attempts", attempt+1,
				"error", err,
			)
			return zero, err
		}

		delay, fromHint := r.backoff(attempt, err)
		source := "backoff"
		if fromHint {
			source = "retry_after"
		}
		metrics.RetriesTotal.WithLabelValues(name, source).Inc()
		metrics.RetryDelay.WithLabelValues(name).Observe(delay.Seconds())

		r.log.Warn("Attempt failed, retrying",
			"authority", name,
			"attempt", attempt+1,
			"delay", delay,
			"retry_after", fromHint,
			"error", err,
		)

		if err := r.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// runAttempt runs op under its own deadline. A deadline error while the
// parent context is still live becomes a retryable timeout error; any other
// error is returned unchanged.
func runAttempt[T any](ctx context.Context, name string, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(attemptCtx)
		done <- outcome{v, err}
	}()

	var zero T
	select {
	case res := <-done:
		return res.value, attemptError(ctx, name, timeout, res.err)
	case <-attemptCtx.Done():
		select {
		case res := <-done:
			return res.value, attemptError(ctx, name, timeout, res.err)
		default:
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, domain.NewTimeoutError(name, timeout)
	}
}

// attemptError turns a deadline error into a retryable timeout while the
// parent context is live. Every other error passes through unchanged.
func attemptError(ctx context.Context, name string, timeout time.Duration, err error) error {
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTimeoutError(name, timeout)
	}
	return err
}

// backoff returns the wait before the next attempt and whether it came from
// a server Retry-After hint.
func (r *Retrier) backoff(attempt int, err error) (time.Duration, bool) {
	if ce, ok := domain.AsClassified(err); ok {
		if d, ok := ce.RetryAfterDelay(); ok {
			return d, true
		}
	}
	delay := float64(r.cfg.BaseDelay) * math.Pow(2, float64(attempt)) * r.rand()
	return time.Duration(delay), false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryingValidator decorates a single-attempt validator with a Retrier.
type retryingValidator struct {
	provider.Validator
	retrier *Retrier
}

// WithRetry wraps v so every Validate call runs under r.
func WithRetry(v provider.Validator, r *Retrier) provider.Validator {
	return &retryingValidator{Validator: v, retrier: r}
}

func (rv *retryingValidator) Validate(ctx context.Context, countryCode, vatNumber string) (bool, error) {
	return Execute(ctx, rv.retrier, rv.Name(), func(ctx context.Context) (bool, error) {
		return rv.Validator.Validate(ctx, countryCode, vatNumber)
	})
}

// Unwrap returns the decorated validator.
func (rv *retryingValidator) Unwrap() provider.Validator {
	return rv.Validator
}
