// Package retry wraps external calls with bounded retries and exponential
// backoff.
//
// Every attempt's error is passed to the policy's Classifier. Retryable
// errors are retried after BaseDelay * Multiplier^(n-1), where n is the
// attempt that just failed, until MaxRetries retries have been spent.
// Non-retryable errors end the call immediately. A terminal failure is
// returned as a *CallError that unwraps to the last error.
//
//	w := retry.New(retry.DefaultPolicy(), retry.WithLogger(log), retry.WithName("sentiment"))
//	text, err := retry.Invoke(ctx, w, func(ctx context.Context) (string, error) {
//		return client.Generate(ctx, prompt)
//	})
//
// The wrapper never runs an operation concurrently with itself and never
// interrupts an attempt in flight; the context only cuts a backoff wait
// short.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"mailfilter/pkg/config"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/metrics"
	"mailfilter/pkg/util"
)

// Classifier reports whether err is transient, plus a short label for logs.
type Classifier func(err error) (retryable bool, errType string)

type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	Classify   Classifier
}

// DefaultPolicy is 2 retries (3 attempts) starting at 1s and doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		BaseDelay:  1000 * time.Millisecond,
		Multiplier: 2.0,
		Classify:   util.IsRetryableError,
	}
}

// FromConfig builds a policy from configuration, keeping defaults for unset
// values. An explicit max_retries of 0 makes every call a single attempt.
func FromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxRetries != nil {
		p.MaxRetries = max(*cfg.MaxRetries, 0)
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	return p
}

// Delay returns the wait after failed attempt n (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1)))
}

// CallError is the terminal failure of an invoked operation.
type CallError struct {
	Op        string
	Attempts  int
	ErrorType string
	Retryable bool
	Err       error
}

func (e *CallError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("%s: failed after %d attempts (%s): %v", e.Op, e.Attempts, e.ErrorType, e.Err)
	}
	return fmt.Sprintf("%s: non-retryable error on attempt %d (%s): %v", e.Op, e.Attempts, e.ErrorType, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Wrapper struct {
	policy Policy
	name   string
	logger *zap.Logger
	sleep  Sleeper
}

type Option func(*Wrapper)

func WithLogger(l *zap.Logger) Option {
	return func(w *Wrapper) { w.logger = logger.OrNop(l) }
}

// WithName labels logs and metrics for the wrapped operation.
func WithName(name string) Option {
	return func(w *Wrapper) { w.name = name }
}

func WithSleep(s Sleeper) Option {
	return func(w *Wrapper) { w.sleep = s }
}

func New(policy Policy, opts ...Option) *Wrapper {
	if policy.Classify == nil {
		policy.Classify = util.IsRetryableError
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	w := &Wrapper{
		policy: policy,
		name:   "call",
		logger: zap.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Named returns a copy of w with a different operation name.
func (w *Wrapper) Named(name string) *Wrapper {
	c := *w
	c.name = name
	return &c
}

func (w *Wrapper) Policy() Policy {
	return w.policy
}

// Operation is one attempt of an external call.
type Operation[T any] func(ctx context.Context) (T, error)

// Invoke runs op until it succeeds, fails with a non-retryable error, or
// exhausts the retry budget.
func Invoke[T any](ctx context.Context, w *Wrapper, op Operation[T]) (T, error) {
	var zero T
	log := logger.WithTrace(ctx, w.logger).With(zap.String("operation", w.name))
	maxAttempts := w.policy.MaxRetries + 1

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			metrics.IncrementCallAttempt(w.name, "success")
			if attempt > 1 {
				log.Info("Call succeeded after retry", zap.Int("attempt", attempt))
			}
			return result, nil
		}

		retryable, errType := w.policy.Classify(err)
		log.Warn("Call attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)

		if !retryable || attempt >= maxAttempts {
			metrics.IncrementCallAttempt(w.name, "failed")
			return zero, &CallError{
				Op:        w.name,
				Attempts:  attempt,
				ErrorType: errType,
				Retryable: retryable,
				Err:       err,
			}
		}

		metrics.IncrementCallAttempt(w.name, "retry")
		delay := w.policy.Delay(attempt)
		log.Info("Retrying call",
			zap.Duration("delay", delay),
			zap.Int("retries_left", maxAttempts-attempt),
		)
		if waitErr := w.sleep(ctx, delay); waitErr != nil {
			metrics.IncrementCallAttempt(w.name, "failed")
			return zero, &CallError{
				Op:        w.name,
				Attempts:  attempt,
				ErrorType: "context_canceled",
				Retryable: true,
				Err:       fmt.Errorf("retry cancelled by context: %w; last error: %w", waitErr, err),
			}
		}
	}
}

// Do is Invoke for operations without a result.
func Do(ctx context.Context, w *Wrapper, fn func(ctx context.Context) error) error {
	_, err := Invoke(ctx, w, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
