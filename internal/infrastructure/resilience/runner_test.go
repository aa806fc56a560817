package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	r := NewRunner(testPolicy())

	errFlaky := errors.New("flaky")
	attempts := 0
	err := r.Do(context.Background(), "op", func(err error) Verdict {
		return Verdict{Retry: errors.Is(err, errFlaky), Record: true}
	}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsOnPermanentFailure(t *testing.T) {
	r := NewRunner(testPolicy())

	errPermanent := errors.New("permanent")
	attempts := 0
	err := r.Do(context.Background(), "op", func(error) Verdict {
		return Verdict{}
	}, func(context.Context) error {
		attempts++
		return errPermanent
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDoOpensBreakerAfterFailures(t *testing.T) {
	p := testPolicy()
	p.RetryMaxAttempts = 1
	p.BreakerEnabled = true
	p.BreakerMinRequests = 2
	p.BreakerFailureRatio = 0.5
	p.BreakerOpenTimeout = 50 * time.Millisecond
	p.BreakerHalfOpenMaxCalls = 1
	r := NewRunner(p)

	errDown := errors.New("down")
	classify := func(error) Verdict { return Verdict{Record: true} }
	for i := 0; i < 3; i++ {
		_ = r.Do(context.Background(), "op", classify, func(context.Context) error {
			return errDown
		})
	}

	calls := 0
	err := r.Do(context.Background(), "op", classify, func(context.Context) error {
		calls++
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("open circuit must not invoke the callback, got %d calls", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	r := NewRunner(testPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.Do(ctx, "op", nil, func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled context must not invoke the callback, got %d calls", calls)
	}
}
