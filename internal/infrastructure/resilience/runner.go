package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Verdict tells the runner what to do with a failed attempt.
type Verdict struct {
	Retry  bool
	Record bool
}

// Classify maps a backend error to a retry/record verdict.
type Classify func(err error) Verdict

// Runner wraps backend calls with bounded exponential retry and one
// circuit breaker per named operation.
type Runner struct {
	policy Policy

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewRunner(policy Policy) *Runner {
	return &Runner{
		policy:   policy.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (r *Runner) Do(ctx context.Context, operation string, classify Classify, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil operation callback")
	}
	if operation == "" {
		operation = "unknown"
	}
	if classify == nil {
		classify = func(error) Verdict { return Verdict{Record: true} }
	}

	if !r.policy.BreakerEnabled {
		return r.retry(ctx, operation, classify, fn)
	}

	breaker := r.breaker(operation, classify)
	_, err := breaker.Execute(func() (any, error) {
		return nil, r.retry(ctx, operation, classify, fn)
	})
	return err
}

func (r *Runner) retry(ctx context.Context, operation string, classify Classify, fn func(context.Context) error) error {
	backoff := r.policy.RetryInitialBackoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if v := classify(err); !v.Retry || attempt == r.policy.RetryMaxAttempts {
			return err
		}

		slog.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", r.policy.RetryMaxAttempts,
			"backoff", backoff.String(),
			"error", err,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * r.policy.RetryMultiplier)
		if backoff > r.policy.RetryMaxBackoff {
			backoff = r.policy.RetryMaxBackoff
		}
	}
}

func (r *Runner) breaker(operation string, classify Classify) *gobreaker.CircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[operation]; ok {
		return b
	}

	b := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        operation,
		MaxRequests: r.policy.BreakerHalfOpenMaxCalls,
		Timeout:     r.policy.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < r.policy.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= r.policy.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classify(err).Record
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change",
				"operation", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	r.breakers[operation] = b
	return b
}

// IsCircuitOpen reports whether the breaker rejected the call before
// it reached the backend.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
